package logsink

// Fake records appended lines for test assertions.
type Fake struct {
	// Lines contains every line that was accepted.
	Lines []string

	// AppendError, if set, will be returned by Append and the line dropped.
	AppendError error

	// Attempts counts Append calls, accepted or not.
	Attempts int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates an empty Fake sink.
func NewFake() *Fake {
	return &Fake{}
}

// Append records the line unless AppendError is set.
func (f *Fake) Append(line string) error {
	f.Attempts++
	if f.AppendError != nil {
		return f.AppendError
	}
	f.Lines = append(f.Lines, line)
	return nil
}

// Close marks the sink as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
