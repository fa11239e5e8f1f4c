package core

type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateExecuting
	CallStateExecutingFailed
	CallStateMaterializing
	CallStateMaterializingFailed
	CallStateDone
	CallStateCanceled
)

func CallStateFromString(s string) CallState {
	switch s {
	case CallStateUnknown.String():
		return CallStateUnknown

	case CallStateExecuting.String():
		return CallStateExecuting
	case CallStateExecutingFailed.String():
		return CallStateExecutingFailed

	case CallStateMaterializing.String():
		return CallStateMaterializing
	case CallStateMaterializingFailed.String():
		return CallStateMaterializingFailed

	case CallStateDone.String():
		return CallStateDone

	case CallStateCanceled.String():
		return CallStateCanceled

	default:
		return CallStateUnknown
	}
}

func (s CallState) String() string {
	switch s {
	case CallStateUnknown:
		return "unknown"

	case CallStateExecuting:
		return "executing"
	case CallStateExecutingFailed:
		return "executing_failed"

	case CallStateMaterializing:
		return "materializing"
	case CallStateMaterializingFailed:
		return "materializing_failed"

	case CallStateDone:
		return "done"

	case CallStateCanceled:
		return "canceled"

	default:
		return "unknown"
	}
}

// IsFinal reports whether no further transitions can happen from s.
func (s CallState) IsFinal() bool {
	switch s {
	case CallStateExecutingFailed, CallStateMaterializingFailed, CallStateDone, CallStateCanceled:
		return true
	default:
		return false
	}
}
