package runner

// Result holds the output of a command execution.
type Result struct {
	ExitCode  int    // process exit code; 0 when Signal is set
	Signal    string // signal that killed the process, if any
	Stdout    []byte // captured stdout (may be truncated)
	Stderr    []byte // captured stderr (may be truncated)
	Truncated bool   // true if output exceeded the size cap
}

// Failed reports whether the command exited non-zero or was killed.
func (r *Result) Failed() bool {
	return r.ExitCode != 0 || r.Signal != ""
}
