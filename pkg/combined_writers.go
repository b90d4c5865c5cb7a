package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter fans a Write out to all given writers. Unlike
// io.MultiWriter it keeps going after a failed writer and returns the
// combined error, so a full log disk does not silence stdout.
type CombinedWriter struct {
	writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{writers: writers}
}

func (cw *CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = multierr.Combine(err, werr)
			continue
		}
		n += written
	}
	return n, err
}
