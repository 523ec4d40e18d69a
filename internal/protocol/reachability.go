package protocol

import (
	"context"
	"net/netip"
)

// PortCheck tests whether the printer port of a host accepts connections.
// It makes a single attempt bounded by the per-host timeout and closes the
// connection without reading or writing.
type PortCheck struct {
	tcpProbe
}

// NewPortCheck creates a PortCheck. It accepts the same options as the probes;
// WithReadTimeout has no effect.
func NewPortCheck(opts ...Option) *PortCheck {
	return &PortCheck{tcpProbe: newTCPProbe(0, opts...)}
}

// IsOpen reports whether a connection to the printer port of addr succeeded.
func (c *PortCheck) IsOpen(ctx context.Context, addr netip.Addr) bool {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := dialWithContext(dialCtx, c.dialer, c.address(addr))
	if err != nil {
		c.logger.Debug("printer port closed",
			"address", addr.String(),
			"port", c.port,
			"error", err,
		)
		return false
	}
	_ = conn.Close()

	return true
}
