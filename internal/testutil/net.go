package testutil

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

// ListenTCP opens a listener on a random loopback port.
// The listener is closed when the test ends.
func ListenTCP(tb testing.TB) (net.Listener, string) {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("creating TCP listener: %v", err)
	}
	tb.Cleanup(func() { _ = ln.Close() })

	return ln, ln.Addr().String()
}

// WaitForTCPReady polls addr until it accepts connections or timeout passes.
func WaitForTCPReady(addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server at %s: %w", addr, ctx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}
