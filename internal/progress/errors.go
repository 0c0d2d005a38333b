package progress

import "fmt"

// InvalidSampleError describes a sample field that was clamped or ignored
// instead of being stored as reported. It is informational: the sample is
// still applied in its sanitized form.
type InvalidSampleError struct {
	Field  string  // "percent" or "position"
	Value  float64 // value as reported
	Reason string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample %s %v: %s", e.Field, e.Value, e.Reason)
}
