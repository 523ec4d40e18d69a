package pipeline

import (
	"fmt"

	"github.com/nao1215/printscan/internal/config"
	"github.com/nao1215/printscan/internal/protocol"
)

// DefaultPipeline creates the standard chain from cfg: port check, then
// SGD, PJL, ZPL, SNMP and raw banner. Probes disabled in cfg are left out
// and the order of the others is unchanged.
//
// The reachability check and the TCP probes use a SOCKS5 dialer when
// cfg.ProxyAddress is set. SNMP always goes out directly.
func DefaultPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	dialer, err := protocol.NewDialer(cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
	}

	p := New(nil, opts...)
	logger := p.logger

	tcpOpts := []protocol.Option{
		protocol.WithDialer(dialer),
		protocol.WithPort(cfg.Port),
		protocol.WithTimeout(cfg.Timeout),
		protocol.WithLogger(logger),
	}
	p.gate = protocol.NewPortCheck(tcpOpts...)

	all := []protocol.Prober{
		protocol.NewSGDProber(tcpOpts...),
		protocol.NewPJLProber(tcpOpts...),
		protocol.NewZPLProber(tcpOpts...),
		protocol.NewSNMPProber(
			protocol.WithCommunity(cfg.Community),
			protocol.WithSNMPPort(cfg.SNMPPort),
			protocol.WithSNMPTimeout(cfg.SNMPTimeout),
			protocol.WithSNMPWorkers(cfg.SNMPWorkers),
			protocol.WithSNMPLogger(logger),
		),
		protocol.NewBannerProber(tcpOpts...),
	}

	for _, prober := range all {
		if cfg.ProbeEnabled(prober.Name()) {
			p.AddProber(prober)
		}
	}

	return p, nil
}
