package eval

// ResultStream is an index cursor over the caller's immutable sequence of
// pre-determined measurement outcomes. Values are consumed strictly front to
// back, one per measurement intrinsic; past the end every read yields false
// (measure-as-zero), which lets callers under-specify trailing measurements.
//
// The cursor form (rather than a shrinking queue) keeps the full stream
// inspectable for diagnostics after the run.
type ResultStream struct {
	values []bool
	cursor int
}

// NewResultStream wraps a value sequence. The slice is copied so later caller
// mutation cannot change the run.
func NewResultStream(values []bool) *ResultStream {
	copied := make([]bool, len(values))
	copy(copied, values)
	return &ResultStream{values: copied}
}

// Next consumes and returns the front value, or false when the stream is
// exhausted. Exhaustion is policy, never a fault.
func (s *ResultStream) Next() bool {
	if s.cursor >= len(s.values) {
		s.cursor++
		return false
	}
	v := s.values[s.cursor]
	s.cursor++
	return v
}

// Consumed returns how many values have been read, including reads past the
// end.
func (s *ResultStream) Consumed() int {
	return s.cursor
}

// Len returns the supplied stream length.
func (s *ResultStream) Len() int {
	return len(s.values)
}

// Values returns the full supplied sequence for diagnostics.
func (s *ResultStream) Values() []bool {
	return s.values
}
