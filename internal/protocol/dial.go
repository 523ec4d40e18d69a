package protocol

import (
	"context"
	"net"

	"golang.org/x/net/proxy"
)

// dialWithContext dials a TCP connection respecting context cancellation.
// Dialers that implement proxy.ContextDialer are used directly; for the
// others the dial runs in a goroutine and is abandoned when ctx is done.
func dialWithContext(ctx context.Context, dialer proxy.Dialer, address string) (net.Conn, error) {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := dialer.Dial("tcp", address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after we gave up on it.
		go func() {
			if r := <-resultCh; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case result := <-resultCh:
		return result.conn, result.err
	}
}

// NewDialer returns proxy.Direct when proxyAddr is empty, otherwise a SOCKS5
// dialer for proxyAddr.
func NewDialer(proxyAddr string) (proxy.Dialer, error) {
	if proxyAddr == "" {
		return proxy.Direct, nil
	}
	return proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
}
