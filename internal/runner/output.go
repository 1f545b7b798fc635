package runner

// truncationSuffix is appended to output that was truncated due to exceeding the limit.
const truncationSuffix = "\n...[truncated]"

// limitedWriter is an io.Writer that discards bytes beyond a maximum limit,
// so a chatty command cannot grow the captured output without bound.
type limitedWriter struct {
	buf []byte
	max int64
}

func newLimitedWriter(max int64) *limitedWriter {
	return &limitedWriter{max: max}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.max - int64(len(w.buf))
	if remaining > 0 {
		n := int64(len(p))
		if n > remaining {
			n = remaining
		}
		w.buf = append(w.buf, p[:n]...)
	}
	// Always report all bytes as written so the command doesn't stall.
	return len(p), nil
}

func (w *limitedWriter) String() string {
	return string(w.buf)
}

func (w *limitedWriter) truncated() bool {
	return int64(len(w.buf)) >= w.max
}

// collectOutput returns the writer's content, appending a truncation indicator
// if the output exceeded the writer's capacity.
func collectOutput(w *limitedWriter) string {
	if w.truncated() {
		return w.String() + truncationSuffix
	}
	return w.String()
}
