// Package probe checks whether the application under test accepts connections.
package probe

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single reachability check.
const DefaultTimeout = 2 * time.Second

// Reachable reports whether a TCP connection to the host and port of rawURL can be
// established within timeout. The port defaults to 443 for https and 80 otherwise.
//
// Any failure (unparsable URL, missing host, resolution error, refusal, timeout) is
// reported as false. There is no retry.
func Reachable(ctx context.Context, rawURL string, timeout time.Duration) bool {
	addr, ok := Address(rawURL)
	if !ok {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Address returns the host:port a probe of rawURL would dial.
func Address(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port), true
}
