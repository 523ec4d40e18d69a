package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/nao1215/printscan/internal/model"
	"golang.org/x/sync/semaphore"
)

// SNMP defaults.
const (
	// OIDSysDescr is the system description object (SNMPv2-MIB::sysDescr.0).
	OIDSysDescr = "1.3.6.1.2.1.1.1.0"

	// DefaultCommunity is the SNMP v2c community string.
	DefaultCommunity = "public"

	// DefaultSNMPPort is the standard SNMP agent port.
	DefaultSNMPPort = 161

	// DefaultSNMPTimeout bounds a single SNMP request.
	DefaultSNMPTimeout = time.Second

	// DefaultSNMPWorkers is the number of SNMP exchanges that may run at once.
	DefaultSNMPWorkers = 16
)

var (
	errNoVarbind      = errors.New("no varbind in response")
	errNotOctetString = errors.New("sysDescr is not an octet string")
)

// SNMPClient is the subset of gosnmp used by the SNMP prober.
type SNMPClient interface {
	Connect() error
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

// SNMPTarget describes one SNMP agent to query.
type SNMPTarget struct {
	Address   netip.Addr
	Port      uint16
	Community string
	Timeout   time.Duration
}

// SNMPClientFunc creates a client for target.
type SNMPClientFunc func(target SNMPTarget) SNMPClient

// gosnmpClient adapts gosnmp.GoSNMP to SNMPClient.
type gosnmpClient struct {
	conn *gosnmp.GoSNMP
}

func (c *gosnmpClient) Connect() error {
	return c.conn.Connect()
}

func (c *gosnmpClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	return c.conn.Get(oids)
}

func (c *gosnmpClient) Close() error {
	if c.conn.Conn == nil {
		return nil
	}
	return c.conn.Conn.Close()
}

// newGoSNMPClient creates a v2c client with no retries.
func newGoSNMPClient(target SNMPTarget) SNMPClient {
	return &gosnmpClient{
		conn: &gosnmp.GoSNMP{
			Target:    target.Address.String(),
			Port:      target.Port,
			Community: target.Community,
			Version:   gosnmp.Version2c,
			Timeout:   target.Timeout,
			Retries:   0,
		},
	}
}

// SNMPProber identifies printers by their SNMP system description.
//
// gosnmp requests block until they complete or time out, so each exchange
// runs on its own goroutine. A weighted semaphore bounds how many exchanges
// are in flight; Probe waits for the result or for ctx, whichever is first.
type SNMPProber struct {
	community string
	port      uint16
	timeout   time.Duration
	pool      *semaphore.Weighted
	newClient SNMPClientFunc
	logger    *slog.Logger
}

// SNMPOption configures an SNMPProber.
type SNMPOption func(*SNMPProber)

// WithCommunity sets the v2c community string.
func WithCommunity(community string) SNMPOption {
	return func(p *SNMPProber) {
		p.community = community
	}
}

// WithSNMPPort sets the agent port.
func WithSNMPPort(port int) SNMPOption {
	return func(p *SNMPProber) {
		p.port = uint16(port) //nolint:gosec // validated by config
	}
}

// WithSNMPTimeout sets the request timeout.
func WithSNMPTimeout(timeout time.Duration) SNMPOption {
	return func(p *SNMPProber) {
		p.timeout = timeout
	}
}

// WithSNMPWorkers sets how many SNMP exchanges may run at once.
func WithSNMPWorkers(n int) SNMPOption {
	return func(p *SNMPProber) {
		if n > 0 {
			p.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithSNMPClientFunc replaces the client constructor. Tests use it to
// substitute a fake agent.
func WithSNMPClientFunc(fn SNMPClientFunc) SNMPOption {
	return func(p *SNMPProber) {
		if fn != nil {
			p.newClient = fn
		}
	}
}

// WithSNMPLogger sets the logger used for debug output.
func WithSNMPLogger(logger *slog.Logger) SNMPOption {
	return func(p *SNMPProber) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewSNMPProber creates an SNMP prober with community "public", port 161,
// a one second timeout and no retries.
func NewSNMPProber(opts ...SNMPOption) *SNMPProber {
	p := &SNMPProber{
		community: DefaultCommunity,
		port:      DefaultSNMPPort,
		timeout:   DefaultSNMPTimeout,
		pool:      semaphore.NewWeighted(DefaultSNMPWorkers),
		newClient: newGoSNMPClient,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns "snmp".
func (p *SNMPProber) Name() string {
	return NameSNMP
}

// Source returns model.SourceSNMP.
func (p *SNMPProber) Source() model.Source {
	return model.SourceSNMP
}

// Probe reads sysDescr from addr.
func (p *SNMPProber) Probe(ctx context.Context, addr netip.Addr) (string, bool) {
	if err := p.pool.Acquire(ctx, 1); err != nil {
		p.miss(addr, err)
		return "", false
	}

	type snmpResult struct {
		descr string
		err   error
	}

	resultCh := make(chan snmpResult, 1)

	go func() {
		defer p.pool.Release(1)
		descr, err := p.query(addr)
		resultCh <- snmpResult{descr, err}
	}()

	select {
	case <-ctx.Done():
		p.miss(addr, ctx.Err())
		return "", false
	case r := <-resultCh:
		if r.err != nil {
			p.miss(addr, r.err)
			return "", false
		}
		return r.descr, true
	}
}

// query performs the blocking GET of sysDescr.
func (p *SNMPProber) query(addr netip.Addr) (string, error) {
	client := p.newClient(SNMPTarget{
		Address:   addr,
		Port:      p.port,
		Community: p.community,
		Timeout:   p.timeout,
	})

	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	packet, err := client.Get([]string{OIDSysDescr})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", OIDSysDescr, err)
	}

	return ParseSysDescr(packet)
}

// ParseSysDescr returns the trimmed sysDescr value of the first varbind.
// Any OCTET STRING is accepted, including one that trims to "".
func ParseSysDescr(packet *gosnmp.SnmpPacket) (string, error) {
	if packet == nil || len(packet.Variables) == 0 {
		return "", errNoVarbind
	}

	v := packet.Variables[0]
	if v.Type != gosnmp.OctetString {
		return "", fmt.Errorf("%w: got %v", errNotOctetString, v.Type)
	}

	b, ok := v.Value.([]byte)
	if !ok {
		return "", errNotOctetString
	}

	return strings.TrimSpace(decode(b)), nil
}

func (p *SNMPProber) miss(addr netip.Addr, reason error) {
	p.logger.Debug("probe miss",
		"probe", NameSNMP,
		"address", addr.String(),
		"community", p.community,
		"reason", reason,
	)
}
