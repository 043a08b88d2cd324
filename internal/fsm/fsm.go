package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateArmed     State = "armed"
	StateCapturing State = "capturing"
)

const (
	EventWake    Event = "wake"
	EventVoice   Event = "voice"
	EventTimeout Event = "timeout"
	EventReset   Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventReset {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventWake:
			return StateArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateArmed:
		switch event {
		case EventVoice:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCapturing:
		switch event {
		case EventTimeout:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
