package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPIsLocal(t *testing.T) {
	cases := []struct {
		addr    string
		isLocal bool
	}{
		{addr: "127.0.0.1:8080", isLocal: true},
		{addr: "127.23.0.1:35325", isLocal: false},
		{addr: "172.20.0.1:60102", isLocal: true},
		{addr: "172.0.0.1:42452", isLocal: true},
		{addr: "83.12.53.65:2145", isLocal: false},
		{addr: "111.12.56.65:8080", isLocal: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.isLocal, IPIsLocal(tc.addr), tc.addr)
	}
}

func TestReadUserIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/auth/login", nil)
	req.RemoteAddr = "83.12.53.65:2145"

	ip, err := ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "83.12.53.65", ip)

	// proxy header wins over the remote addr
	req.Header.Set("X-Real-Ip", "91.35.21.7")
	ip, err = ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "91.35.21.7", ip)

	// local callers are collapsed to a stable label
	req.Header.Del("X-Real-Ip")
	req.RemoteAddr = "127.0.0.1:51234"
	ip, err = ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "localhost", ip)
}
