package pipeline

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/printscan/internal/config"
	"github.com/nao1215/printscan/internal/model"
)

var testAddr = netip.MustParseAddr("127.0.0.1")

// fakeGate is a Gate with a fixed answer.
type fakeGate struct {
	open  bool
	calls atomic.Int32
}

func (g *fakeGate) IsOpen(_ context.Context, _ netip.Addr) bool {
	g.calls.Add(1)
	return g.open
}

// mockProber is a test helper that implements protocol.Prober.
type mockProber struct {
	name   string
	source model.Source
	model  string
	ok     bool
	calls  atomic.Int32
}

func (m *mockProber) Name() string         { return m.name }
func (m *mockProber) Source() model.Source { return m.source }

func (m *mockProber) Probe(_ context.Context, _ netip.Addr) (string, bool) {
	m.calls.Add(1)
	return m.model, m.ok
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New(&fakeGate{})
		if p.ProberCount() != 0 {
			t.Errorf("expected 0 probers, got %d", p.ProberCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("adds probers in order", func(t *testing.T) {
		t.Parallel()

		p := New(&fakeGate{})
		p.AddProber(&mockProber{name: "first"})
		p.AddProbers(&mockProber{name: "second"}, &mockProber{name: "third"})

		want := []string{"first", "second", "third"}
		if got := p.ProberNames(); !slices.Equal(got, want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	})
}

// TestPipelineInspect tests the fingerprinting chain for one host.
func TestPipelineInspect(t *testing.T) {
	t.Parallel()

	t.Run("closed port runs no prober", func(t *testing.T) {
		t.Parallel()

		gate := &fakeGate{open: false}
		probers := []*mockProber{
			{name: "sgd", source: model.SourceSGD, model: "Zebra GX430t", ok: true},
			{name: "pjl", source: model.SourcePJL, model: "HP", ok: true},
			{name: "raw", source: model.SourceRawBanner, model: "Raw: hello", ok: true},
		}
		p := New(gate)
		for _, m := range probers {
			p.AddProber(m)
		}

		result := p.Inspect(context.Background(), testAddr)
		if result.Found || result.Reachable {
			t.Errorf("expected no record for closed port, got %+v", result)
		}
		if gate.calls.Load() != 1 {
			t.Errorf("expected 1 gate call, got %d", gate.calls.Load())
		}
		for _, m := range probers {
			if m.calls.Load() != 0 {
				t.Errorf("prober %s was called %d times", m.name, m.calls.Load())
			}
		}
	})

	t.Run("first success wins and stops the chain", func(t *testing.T) {
		t.Parallel()

		sgd := &mockProber{name: "sgd", source: model.SourceSGD, ok: false}
		pjl := &mockProber{name: "pjl", source: model.SourcePJL, model: "HP LaserJet", ok: true}
		zpl := &mockProber{name: "zpl", source: model.SourceZPL, model: "Zebra ZPL (x)", ok: true}

		p := New(&fakeGate{open: true})
		p.AddProbers(sgd, pjl, zpl)

		rec, ok := p.Fingerprint(context.Background(), testAddr)
		if !ok {
			t.Fatal("expected a record")
		}
		if rec.Source != model.SourcePJL || rec.Model != "HP LaserJet" {
			t.Errorf("unexpected record %+v", rec)
		}
		if rec.Address != testAddr {
			t.Errorf("unexpected address %s", rec.Address)
		}
		if sgd.calls.Load() != 1 || pjl.calls.Load() != 1 {
			t.Error("expected sgd and pjl to run once")
		}
		if zpl.calls.Load() != 0 {
			t.Error("expected zpl not to run after a success")
		}
	})

	t.Run("no prober identifies the device", func(t *testing.T) {
		t.Parallel()

		p := New(&fakeGate{open: true})
		p.AddProbers(
			&mockProber{name: "sgd"},
			&mockProber{name: "pjl"},
		)

		result := p.Inspect(context.Background(), testAddr)
		if result.Found {
			t.Errorf("expected no record, got %+v", result.Record)
		}
		if !result.Reachable {
			t.Error("expected host to be reachable")
		}
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		t.Parallel()

		m := &mockProber{name: "sgd", ok: true, model: "x"}
		p := New(&fakeGate{open: true})
		p.AddProber(m)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, ok := p.Fingerprint(ctx, testAddr); ok {
			t.Error("expected no record after cancellation")
		}
		if m.calls.Load() != 0 {
			t.Error("expected prober not to run after cancellation")
		}
	})
}

// startDualPrinter starts a fake printer that answers both SGD and PJL.
func startDualPrinter(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 1024)
				n, err := conn.Read(buf)
				if err != nil {
					return
				}
				req := string(buf[:n])
				switch {
				case strings.HasPrefix(req, "! U1 getvar"):
					_, _ = conn.Write([]byte(`"GX430t"`))
				case strings.Contains(req, "@PJL INFO ID"):
					_, _ = conn.Write([]byte("@PJL INFO ID\r\n\"GX430t\"\r\n"))
				}
			}()
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// TestDefaultPipeline tests the standard chain built from configuration.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("chain order", func(t *testing.T) {
		t.Parallel()

		p, err := DefaultPipeline(config.NewConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"sgd", "pjl", "zpl", "snmp", "raw"}
		if got := p.ProberNames(); !slices.Equal(got, want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	})

	t.Run("disabled probes keep order of the rest", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DisabledProbes = []string{"pjl", "SNMP"}

		p, err := DefaultPipeline(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"sgd", "zpl", "raw"}
		if got := p.ProberNames(); !slices.Equal(got, want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	})

	t.Run("SGD wins over PJL", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Port = startDualPrinter(t)
		cfg.Timeout = time.Second
		cfg.DisabledProbes = []string{"snmp"}

		p, err := DefaultPipeline(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rec, ok := p.Fingerprint(context.Background(), testAddr)
		if !ok {
			t.Fatal("expected a record")
		}
		if rec.Source != model.SourceSGD {
			t.Errorf("expected source %q, got %q", model.SourceSGD, rec.Source)
		}
		if rec.Model != "Zebra GX430t" {
			t.Errorf("expected model 'Zebra GX430t', got %q", rec.Model)
		}
	})

	t.Run("closed port yields no record", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		port := ln.Addr().(*net.TCPAddr).Port
		_ = ln.Close()

		cfg := config.NewConfig()
		cfg.Port = port
		cfg.Timeout = 500 * time.Millisecond

		p, err := DefaultPipeline(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := p.Inspect(context.Background(), testAddr)
		if result.Reachable || result.Found {
			t.Errorf("expected unreachable host, got %+v", result)
		}
	})
}
