package pipeline

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/nao1215/printscan/internal/model"
	"github.com/nao1215/printscan/internal/protocol"
)

// Gate decides whether a host is worth probing.
// protocol.PortCheck is the production implementation.
type Gate interface {
	IsOpen(ctx context.Context, addr netip.Addr) bool
}

// HostResult is the outcome of fingerprinting one host.
type HostResult struct {
	// Address is the probed host.
	Address netip.Addr

	// Reachable is true when the printer port accepted a connection.
	Reachable bool

	// Record is the identified printer. It is only meaningful when Found is true.
	Record model.PrinterRecord

	// Found is true when a prober identified the device.
	Found bool
}

// Pipeline fingerprints a single host.
// It holds the reachability gate and the ordered prober chain.
type Pipeline struct {
	// gate is checked before any prober runs.
	gate Gate

	// probers contains the ordered chain; the first success wins.
	probers []protocol.Prober

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline guarded by gate.
// Probers should be added using AddProber after creation.
func New(gate Gate, opts ...Option) *Pipeline {
	p := &Pipeline{
		gate:    gate,
		probers: make([]protocol.Prober, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddProber appends a prober to the chain.
func (p *Pipeline) AddProber(prober protocol.Prober) {
	p.probers = append(p.probers, prober)
}

// AddProbers appends multiple probers to the chain.
func (p *Pipeline) AddProbers(probers ...protocol.Prober) {
	p.probers = append(p.probers, probers...)
}

// Inspect runs the chain against addr.
// A closed printer port ends the chain before any prober runs. Otherwise
// probers are tried in order and the first one that identifies the device
// produces the record; later probers never run.
func (p *Pipeline) Inspect(ctx context.Context, addr netip.Addr) HostResult {
	result := HostResult{Address: addr}

	if !p.gate.IsOpen(ctx, addr) {
		return result
	}
	result.Reachable = true

	for _, prober := range p.probers {
		if ctx.Err() != nil {
			p.logger.Debug("fingerprinting cancelled",
				"address", addr.String(),
				"probe", prober.Name(),
				"reason", ctx.Err(),
			)
			return result
		}

		p.logger.Debug("executing probe",
			"probe", prober.Name(),
			"address", addr.String(),
		)

		modelName, ok := prober.Probe(ctx, addr)
		if !ok {
			continue
		}

		result.Record = model.NewPrinterRecord(addr, modelName, prober.Source())
		result.Found = true
		return result
	}

	p.logger.Debug("no probe identified the device", "address", addr.String())
	return result
}

// Fingerprint runs the chain against addr and returns the printer, if any.
func (p *Pipeline) Fingerprint(ctx context.Context, addr netip.Addr) (model.PrinterRecord, bool) {
	r := p.Inspect(ctx, addr)
	return r.Record, r.Found
}

// ProberCount returns the number of probers in the chain.
func (p *Pipeline) ProberCount() int {
	return len(p.probers)
}

// ProberNames returns the names of all probers in execution order.
func (p *Pipeline) ProberNames() []string {
	names := make([]string, len(p.probers))
	for i, prober := range p.probers {
		names[i] = prober.Name()
	}
	return names
}
