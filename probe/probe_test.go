package probe_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/goldsuite/probe"
)

func TestReachable_ListeningServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	assert.True(t, probe.Reachable(context.Background(), server.URL, time.Second))
}

func TestReachable_ClosedPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	assert.False(t, probe.Reachable(context.Background(), "http://"+addr, time.Second))
}

func TestReachable_InvalidURLs(t *testing.T) {
	for _, rawURL := range []string{"", "not a url", "http://", "://missing-scheme", "mailto:someone"} {
		assert.False(t, probe.Reachable(context.Background(), rawURL, 100*time.Millisecond), rawURL)
	}
}

func TestReachable_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, probe.Reachable(ctx, server.URL, time.Second))
}

func TestAddress(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
		ok     bool
	}{
		{"http://localhost:3000", "localhost:3000", true},
		{"http://example.com/path", "example.com:80", true},
		{"https://example.com", "example.com:443", true},
		{"https://[::1]:8443/x", "[::1]:8443", true},
		{"http://", "", false},
		{"%zz", "", false},
	}

	for _, tt := range tests {
		got, ok := probe.Address(tt.rawURL)
		assert.Equal(t, tt.ok, ok, tt.rawURL)
		assert.Equal(t, tt.want, got, tt.rawURL)
	}
}
