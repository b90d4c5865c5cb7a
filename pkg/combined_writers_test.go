package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCombinedWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	cw := NewCombinedWriter(&buf1, &buf2)

	n, err := cw.Write([]byte("test log line"))
	require.NoError(t, err)
	assert.Equal(t, 2*len("test log line"), n)
	assert.Equal(t, "test log line", buf1.String())
	assert.Equal(t, "test log line", buf2.String())
}

func TestCombinedWriter_KeepsWritingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCombinedWriter(failingWriter{}, &buf)

	n, err := cw.Write([]byte("still here"))
	assert.Error(t, err)
	assert.Equal(t, len("still here"), n)
	assert.Equal(t, "still here", buf.String())
}
