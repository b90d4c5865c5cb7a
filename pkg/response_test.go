package pkg

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteResponse(rr, ContentType.Text, "all good", 200)

	assert.Equal(t, 200, rr.Code)
	assert.Equal(t, "all good", rr.Body.String())
	assert.Equal(t, ContentType.Text, rr.Header().Get("Content-Type"))
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, "not_found", "enrollment not found", 404)

	assert.Equal(t, 404, rr.Code)
	assert.Equal(t, ContentType.JSON, rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Kind)
	assert.Equal(t, "enrollment not found", resp.Message)
}
