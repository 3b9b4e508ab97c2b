package report

// Status models the outcome of a report script execution.
type Status uint8

//go:generate stringer -type Status -trimprefix Status -linecomment

const (
	// StatusUnknown is the zero value, used before any execution has completed.
	StatusUnknown Status = iota // unknown
	// StatusSuccess is when the script exited with status code 0.
	StatusSuccess // success
	// StatusError is when the script exited non-zero or could not be run at all.
	StatusError // error
	// StatusTimeout is when the script was terminated for exceeding its deadline.
	StatusTimeout // timeout
)

// IsFailure returns true for statuses indicating that the report was not delivered.
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusTimeout
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
