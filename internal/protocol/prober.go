package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/nao1215/printscan/internal/model"
	"golang.org/x/net/proxy"
)

// Default settings shared by the TCP probes.
const (
	// DefaultPort is the raw printer port (AppSocket / JetDirect).
	DefaultPort = 9100

	// DefaultTimeout bounds connection setup for a single probe.
	DefaultTimeout = 2 * time.Second

	// maxResponseSize is the size of the single read performed by a probe.
	maxResponseSize = 1024
)

// Probe names, used to disable probes from configuration.
const (
	NameSGD    = "sgd"
	NamePJL    = "pjl"
	NameZPL    = "zpl"
	NameSNMP   = "snmp"
	NameBanner = "raw"
)

// Names returns every probe name in chain order.
func Names() []string {
	return []string{NameSGD, NamePJL, NameZPL, NameSNMP, NameBanner}
}

// errEmptyResponse is returned by exchange when the device sent no bytes.
var errEmptyResponse = errors.New("empty response")

// Prober identifies a printer model over a single protocol.
type Prober interface {
	// Name returns the short probe name (e.g. "pjl").
	Name() string

	// Source returns the tag recorded for printers this probe identifies.
	Source() model.Source

	// Probe queries addr and returns the model string on success.
	// ok is false when the protocol did not identify the device, for any reason.
	Probe(ctx context.Context, addr netip.Addr) (modelName string, ok bool)
}

// Option configures a TCP probe or a PortCheck.
type Option func(*tcpProbe)

// WithDialer sets the dialer used to reach the printer port.
// Pass a SOCKS5 dialer from proxy.SOCKS5 to route probes through a proxy.
func WithDialer(dialer proxy.Dialer) Option {
	return func(p *tcpProbe) {
		if dialer != nil {
			p.dialer = dialer
		}
	}
}

// WithPort sets the printer port.
func WithPort(port int) Option {
	return func(p *tcpProbe) {
		p.port = uint16(port) //nolint:gosec // validated by config
	}
}

// WithTimeout sets the per-host timeout. It bounds the connect and caps
// the probe's own response timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *tcpProbe) {
		p.timeout = timeout
	}
}

// WithReadTimeout overrides the probe's response timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(p *tcpProbe) {
		p.readTimeout = timeout
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *tcpProbe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// tcpProbe holds the connection settings shared by the TCP probes.
type tcpProbe struct {
	dialer      proxy.Dialer
	port        uint16
	timeout     time.Duration
	readTimeout time.Duration
	logger      *slog.Logger
}

func newTCPProbe(readTimeout time.Duration, opts ...Option) tcpProbe {
	p := tcpProbe{
		dialer:      proxy.Direct,
		port:        DefaultPort,
		timeout:     DefaultTimeout,
		readTimeout: readTimeout,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// address returns the printer port endpoint of addr.
func (p *tcpProbe) address(addr netip.Addr) string {
	return netip.AddrPortFrom(addr, p.port).String()
}

// responseTimeout returns the read timeout, never longer than the per-host timeout.
func (p *tcpProbe) responseTimeout() time.Duration {
	if p.timeout > 0 && p.readTimeout > p.timeout {
		return p.timeout
	}
	return p.readTimeout
}

// exchange connects to the printer port of addr, writes payload if it is
// not empty, and performs one read of up to maxResponseSize bytes.
// The response is decoded as UTF-8 with invalid sequences replaced.
func (p *tcpProbe) exchange(ctx context.Context, addr netip.Addr, payload []byte) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := dialWithContext(dialCtx, p.dialer, p.address(addr))
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(p.responseTimeout())); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	// Closing the connection unblocks Read when the run is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return "", fmt.Errorf("write: %w", err)
		}
	}

	return readOnce(conn)
}

// readOnce performs a single read from conn.
func readOnce(conn net.Conn) (string, error) {
	buf := make([]byte, maxResponseSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = errEmptyResponse
		}
		return "", fmt.Errorf("read: %w", err)
	}
	return decode(buf[:n]), nil
}

// decode converts raw device bytes to a string, replacing invalid UTF-8
// sequences with U+FFFD.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// miss logs a probe that did not identify the device.
func (p *tcpProbe) miss(name string, addr netip.Addr, reason any) {
	p.logger.Debug("probe miss",
		"probe", name,
		"address", addr.String(),
		"reason", reason,
	)
}
