package analysis

import (
	"encoding/json"
	"fmt"
)

// PhaseError records which analysis phase failed.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("failed to analyze %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Section is the outcome of one analysis phase: data, an error marker or
// a skipped marker. A failed section never carries partial data.
type Section[T any] struct {
	Data    T
	Err     string
	Skipped string
}

// Completed wraps the data of a phase that ran to completion.
func Completed[T any](v T) Section[T] {
	return Section[T]{Data: v}
}

// Failure builds an error marker.
func Failure[T any](err error) Section[T] {
	return Section[T]{Err: err.Error()}
}

// Skip builds a skipped marker. zero carries the empty per-sheet entries.
func Skip[T any](reason string, zero T) Section[T] {
	return Section[T]{Data: zero, Skipped: reason}
}

// Failed reports whether the phase produced an error marker.
func (s Section[T]) Failed() bool { return s.Err != "" }

// OK reports whether the section carries real data.
func (s Section[T]) OK() bool { return s.Err == "" && s.Skipped == "" }

// MarshalJSON writes the data inline, {"error": ...} for a failure, or the
// zero data plus a "skipped" key.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	if s.Err != "" {
		return json.Marshal(map[string]string{"error": s.Err})
	}
	data, err := json.Marshal(s.Data)
	if err != nil || s.Skipped == "" {
		return data, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("skipped section must be an object: %w", err)
	}
	reason, _ := json.Marshal(s.Skipped)
	fields["skipped"] = reason
	return json.Marshal(fields)
}

// UnmarshalJSON reverses MarshalJSON.
func (s *Section[T]) UnmarshalJSON(b []byte) error {
	var marker struct {
		Error   string `json:"error"`
		Skipped string `json:"skipped"`
	}
	if err := json.Unmarshal(b, &marker); err == nil && marker.Error != "" {
		*s = Section[T]{Err: marker.Error}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Section[T]{Data: v, Skipped: marker.Skipped}
	return nil
}
