package domain

// SignalState tells whether an optional signal was computed.
type SignalState string

const (
	SignalPresent     SignalState = "present"
	SignalUnavailable SignalState = "unavailable"
)

// Signal is an optional value produced by a collaborator that may be missing.
// The zero value is Unavailable.
type Signal[T any] struct {
	value   T
	present bool
}

func Present[T any](v T) Signal[T] {
	return Signal[T]{value: v, present: true}
}

func Unavailable[T any]() Signal[T] {
	return Signal[T]{}
}

func (s Signal[T]) Get() (T, bool) {
	return s.value, s.present
}

func (s Signal[T]) State() SignalState {
	if s.present {
		return SignalPresent
	}
	return SignalUnavailable
}
