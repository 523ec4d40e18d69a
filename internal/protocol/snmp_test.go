package protocol

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
)

// mockSNMPClient is a fake SNMP agent.
type mockSNMPClient struct {
	packet     *gosnmp.SnmpPacket
	connectErr error
	getErr     error
	delay      time.Duration
	onGet      func()
	onClose    func()

	mu        sync.Mutex
	requested []string
	closed    bool
}

func (m *mockSNMPClient) Connect() error {
	return m.connectErr
}

func (m *mockSNMPClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	m.mu.Lock()
	m.requested = append(m.requested, oids...)
	m.mu.Unlock()

	if m.onGet != nil {
		m.onGet()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.packet, m.getErr
}

func (m *mockSNMPClient) Close() error {
	if m.onClose != nil {
		m.onClose()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func sysDescrPacket(value any, typ gosnmp.Asn1BER) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{
		Variables: []gosnmp.SnmpPDU{
			{Name: "." + OIDSysDescr, Type: typ, Value: value},
		},
	}
}

// TestParseSysDescr tests sysDescr extraction.
func TestParseSysDescr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		packet  *gosnmp.SnmpPacket
		want    string
		wantErr error
	}{
		{
			name:   "octet string",
			packet: sysDescrPacket([]byte("  HP ETHERNET MULTI-ENVIRONMENT \r\n"), gosnmp.OctetString),
			want:   "HP ETHERNET MULTI-ENVIRONMENT",
		},
		{
			name:    "integer value",
			packet:  sysDescrPacket(42, gosnmp.Integer),
			wantErr: errNotOctetString,
		},
		{
			name:   "blank value is kept",
			packet: sysDescrPacket([]byte(" \r\n "), gosnmp.OctetString),
			want:   "",
		},
		{
			name:   "empty value is kept",
			packet: sysDescrPacket([]byte{}, gosnmp.OctetString),
			want:   "",
		},
		{
			name:    "no varbinds",
			packet:  &gosnmp.SnmpPacket{},
			wantErr: errNoVarbind,
		},
		{
			name:    "nil packet",
			wantErr: errNoVarbind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSysDescr(tt.packet)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, expected %q", got, tt.want)
			}
		})
	}
}

// TestSNMPProber tests the SNMP prober against a fake agent.
func TestSNMPProber(t *testing.T) {
	t.Parallel()

	t.Run("reads sysDescr", func(t *testing.T) {
		t.Parallel()

		client := &mockSNMPClient{
			packet: sysDescrPacket([]byte("RICOH MP C3004"), gosnmp.OctetString),
		}
		var target SNMPTarget
		prober := NewSNMPProber(
			WithCommunity("printers"),
			WithSNMPPort(1161),
			WithSNMPTimeout(500*time.Millisecond),
			WithSNMPClientFunc(func(tg SNMPTarget) SNMPClient {
				target = tg
				return client
			}),
		)

		got, ok := prober.Probe(context.Background(), localhost)
		if !ok {
			t.Fatal("expected success")
		}
		if got != "RICOH MP C3004" {
			t.Errorf("got %q", got)
		}
		if target.Address != localhost || target.Port != 1161 || target.Community != "printers" {
			t.Errorf("unexpected target %+v", target)
		}
		if target.Timeout != 500*time.Millisecond {
			t.Errorf("unexpected timeout %v", target.Timeout)
		}
		if len(client.requested) != 1 || client.requested[0] != OIDSysDescr {
			t.Errorf("unexpected OIDs %v", client.requested)
		}
		if !client.closed {
			t.Error("expected client to be closed")
		}
	})

	t.Run("blank sysDescr still identifies the device", func(t *testing.T) {
		t.Parallel()

		client := &mockSNMPClient{
			packet: sysDescrPacket([]byte("   "), gosnmp.OctetString),
		}
		prober := NewSNMPProber(WithSNMPClientFunc(func(SNMPTarget) SNMPClient { return client }))

		got, ok := prober.Probe(context.Background(), localhost)
		if !ok {
			t.Fatal("expected an SNMP hit for a blank sysDescr")
		}
		if got != "" {
			t.Errorf("expected empty model, got %q", got)
		}
	})

	t.Run("misses", func(t *testing.T) {
		t.Parallel()

		clients := map[string]*mockSNMPClient{
			"connect error": {connectErr: errors.New("no route")},
			"request error": {getErr: errors.New("request timeout")},
			"wrong type":    {packet: sysDescrPacket(uint32(7), gosnmp.TimeTicks)},
		}

		for name, client := range clients {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				prober := NewSNMPProber(WithSNMPClientFunc(func(SNMPTarget) SNMPClient { return client }))
				if got, ok := prober.Probe(context.Background(), localhost); ok {
					t.Errorf("expected miss, got %q", got)
				}
			})
		}
	})

	t.Run("cancellation does not wait for the agent", func(t *testing.T) {
		t.Parallel()

		client := &mockSNMPClient{
			packet: sysDescrPacket([]byte("slow"), gosnmp.OctetString),
			delay:  2 * time.Second,
		}
		prober := NewSNMPProber(WithSNMPClientFunc(func(SNMPTarget) SNMPClient { return client }))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		if _, ok := prober.Probe(ctx, localhost); ok {
			t.Error("expected miss")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("probe waited for the agent: %v", elapsed)
		}
	})

	t.Run("worker pool bounds concurrent exchanges", func(t *testing.T) {
		t.Parallel()

		const workers = 2
		var active, peak atomic.Int32

		newClient := func(SNMPTarget) SNMPClient {
			return &mockSNMPClient{
				packet: sysDescrPacket([]byte("Printer"), gosnmp.OctetString),
				delay:  30 * time.Millisecond,
				onGet: func() {
					n := active.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
				},
				onClose: func() { active.Add(-1) },
			}
		}
		prober := NewSNMPProber(WithSNMPWorkers(workers), WithSNMPClientFunc(newClient))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := prober.Probe(context.Background(), localhost); !ok {
					t.Error("expected success")
				}
			}()
		}
		wg.Wait()

		if got := peak.Load(); got > workers {
			t.Errorf("expected at most %d concurrent exchanges, got %d", workers, got)
		}
	})
}
