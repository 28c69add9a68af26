// Package probe verifies that provisioned services answer on their ports.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// pollInterval is the delay between reachability attempts while waiting for
// a service to come up.
const pollInterval = 500 * time.Millisecond

// httpCheckTimeout bounds an HTTP status check.
const httpCheckTimeout = 3 * time.Second

// httpClient performs one-shot checks; keep-alives are pointless for a
// probe and would hold connections to the checked service open.
var httpClient = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
}

// WaitReachable blocks until a TCP connection to addr succeeds, polling
// every half second. It fails when timeout elapses or ctx is cancelled.
func WaitReachable(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("probe: %s not reachable within %s: %w", addr, timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// CheckHTTP performs a GET against url. Any HTTP response, including an
// error status, proves the server is up; only transport failures are
// reported.
func CheckHTTP(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe: build request for %s: %w", url, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe: %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return nil
}
