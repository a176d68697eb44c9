package gpio

import (
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sweeney/solenoid-endurance/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// constSource always returns v.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func TestLevelString(t *testing.T) {
	assert.Equal(t, "OFF", Off.String())
	assert.Equal(t, "PULL", Pull.String())
	assert.Equal(t, "HOLD", Hold.String())
	assert.Equal(t, "Level(7)", Level(7).String())
}

func TestLevelsDuty(t *testing.T) {
	l := Levels{Pull: 1.0, Hold: 0.35}
	assert.Equal(t, 0.0, l.Duty(Off))
	assert.Equal(t, 1.0, l.Duty(Pull))
	assert.Equal(t, 0.35, l.Duty(Hold))
}

func TestFakeDriverIdempotent(t *testing.T) {
	f := NewFakeDriver()

	var transitions [][2]Level
	f.OnChange = func(from, to Level) { transitions = append(transitions, [2]Level{from, to}) }

	f.SetLevel(Pull)
	f.SetLevel(Pull)
	f.SetLevel(Hold)
	f.SetLevel(Off)
	f.SetLevel(Off)

	assert.Equal(t, []Level{Pull, Pull, Hold, Off, Off}, f.Calls)
	assert.Equal(t, []Level{Pull, Hold, Off}, f.Changes)
	assert.Equal(t, [][2]Level{{Off, Pull}, {Pull, Hold}, {Hold, Off}}, transitions)
	assert.Equal(t, Off, f.Level())
}

func TestFakeDriverCloseDrivesOff(t *testing.T) {
	f := NewFakeDriver()
	f.SetLevel(Hold)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	assert.Equal(t, Off, f.Level())

	f.Reset()
	assert.False(t, f.Closed)
	assert.Empty(t, f.Calls)
}

func TestFakeEndstop(t *testing.T) {
	f := &FakeEndstop{Active: true}
	v, err := f.Value()
	require.NoError(t, err)
	assert.True(t, v)

	f.ReadError = errors.New("simulated error")
	_, err = f.Value()
	assert.EqualError(t, err, "simulated error")

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
}

func TestSimRigPullAndRelease(t *testing.T) {
	clk := clock.NewFake(epoch)
	var edges int
	rig := NewSimRig(SimConfig{PullLatency: 30 * time.Millisecond, ReleaseLatency: 45 * time.Millisecond},
		clk, constSource(0.5), func() { edges++ })

	rig.SetLevel(Pull)
	clk.Advance(29 * time.Millisecond)
	assert.Equal(t, 0, edges)
	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, edges)
	v, _ := rig.Value()
	assert.True(t, v)

	rig.SetLevel(Hold)
	clk.Advance(time.Second)
	assert.Equal(t, 1, edges, "pull to hold does not move the plunger")

	rig.SetLevel(Off)
	clk.Advance(45 * time.Millisecond)
	assert.Equal(t, 2, edges)
	v, _ = rig.Value()
	assert.False(t, v)
}

func TestSimRigBounceEdges(t *testing.T) {
	clk := clock.NewFake(epoch)
	var edges int
	rig := NewSimRig(SimConfig{PullLatency: 10 * time.Millisecond, Edges: 2}, clk, constSource(0), func() { edges++ })

	rig.SetLevel(Pull)
	clk.Advance(10 * time.Millisecond)
	assert.Equal(t, 2, edges)
}

func TestSimRigMisses(t *testing.T) {
	clk := clock.NewFake(epoch)
	var edges int
	rig := NewSimRig(SimConfig{PullLatency: 10 * time.Millisecond, MissPull: 1, MissRelease: 1},
		clk, constSource(0.999), func() { edges++ })

	rig.SetLevel(Pull)
	clk.Advance(time.Second)
	rig.SetLevel(Off)
	clk.Advance(time.Second)
	assert.Equal(t, 0, edges)
}

func TestSimRigCloseCancelsPending(t *testing.T) {
	clk := clock.NewFake(epoch)
	var edges int
	rig := NewSimRig(SimConfig{PullLatency: 10 * time.Millisecond}, clk, constSource(0), func() { edges++ })

	rig.SetLevel(Pull)
	require.NoError(t, rig.Close())
	clk.Advance(time.Second)
	assert.Equal(t, 0, edges)
	assert.Equal(t, 0, clk.Pending())

	rig.SetLevel(Pull)
	clk.Advance(time.Second)
	assert.Equal(t, 0, edges, "closed rig ignores drive changes")
}

func TestSimRigRealClockNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	var edges atomic.Int32
	rig := NewSimRig(SimConfig{PullLatency: time.Millisecond}, clock.Real{},
		rand.New(rand.NewPCG(1, 1)), func() { edges.Add(1) })

	rig.SetLevel(Pull)
	require.Eventually(t, func() bool { return edges.Load() == 1 }, time.Second, time.Millisecond)

	rig.SetLevel(Off)
	require.NoError(t, rig.Close())
}
