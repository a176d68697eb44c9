package gpio

// FakeDriver is a test double that records drive level changes.
type FakeDriver struct {
	// Calls contains every level passed to SetLevel, including repeats.
	Calls []Level

	// Changes contains only the calls that changed the level.
	Changes []Level

	// OnChange, if set, is called after each level change.
	OnChange func(from, to Level)

	// Closed tracks if Close was called
	Closed bool

	current Level
}

// NewFakeDriver creates a FakeDriver in the Off state.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetLevel records the call and notifies OnChange when the level changes.
func (f *FakeDriver) SetLevel(level Level) {
	f.Calls = append(f.Calls, level)
	if level == f.current {
		return
	}
	from := f.current
	f.current = level
	f.Changes = append(f.Changes, level)
	if f.OnChange != nil {
		f.OnChange(from, level)
	}
}

// Level returns the current drive level.
func (f *FakeDriver) Level() Level {
	return f.current
}

// Close drives off and marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.SetLevel(Off)
	f.Closed = true
	return nil
}

// Reset clears recorded calls.
func (f *FakeDriver) Reset() {
	f.Calls = nil
	f.Changes = nil
	f.Closed = false
	f.current = Off
}

// FakeEndstop is a test double that returns a scripted endstop state.
type FakeEndstop struct {
	// Active is returned by Value.
	Active bool

	// ReadError, if set, will be returned by Value()
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// Value returns the scripted state.
func (f *FakeEndstop) Value() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.Active, nil
}

// Close marks the endstop as closed.
func (f *FakeEndstop) Close() error {
	f.Closed = true
	return nil
}
