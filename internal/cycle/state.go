package cycle

import "fmt"

// State is the controller's position in the test cycle.
type State int32

const (
	Idle State = iota
	Pulling
	Holding
	Releasing
	DetectingOff
	Classifying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Pulling:
		return "PULLING"
	case Holding:
		return "HOLDING"
	case Releasing:
		return "RELEASING"
	case DetectingOff:
		return "DETECTING_OFF"
	case Classifying:
		return "CLASSIFYING"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
