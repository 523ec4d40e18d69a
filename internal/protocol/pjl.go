package protocol

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/nao1215/printscan/internal/model"
)

// pjlRequest asks for the printer ID, wrapped in Universal Exit Language escapes.
var pjlRequest = []byte("\x1B%-12345X@PJL INFO ID\r\n\x1B%-12345X")

// pjlReadTimeout is how long the PJL probe waits for a reply.
const pjlReadTimeout = 1000 * time.Millisecond

// unknownPJL is reported when a reply carries the ID marker but no text line.
const unknownPJL = "Unknown PJL"

var pjlReplacer = strings.NewReplacer("ID=", "", "ID =", "", `"`, "")

// PJLProber identifies printers that answer the PJL INFO ID query.
// Most laser printers from HP, Kyocera, Ricoh, Brother and others do.
type PJLProber struct {
	tcpProbe
}

// NewPJLProber creates a PJL prober.
func NewPJLProber(opts ...Option) *PJLProber {
	return &PJLProber{tcpProbe: newTCPProbe(pjlReadTimeout, opts...)}
}

// Name returns "pjl".
func (p *PJLProber) Name() string {
	return NamePJL
}

// Source returns model.SourcePJL.
func (p *PJLProber) Source() model.Source {
	return model.SourcePJL
}

// Probe sends the INFO ID query and parses the reply.
func (p *PJLProber) Probe(ctx context.Context, addr netip.Addr) (string, bool) {
	resp, err := p.exchange(ctx, addr, pjlRequest)
	if err != nil {
		p.miss(NamePJL, addr, err)
		return "", false
	}

	modelName, ok := ParsePJL(resp)
	if !ok {
		p.miss(NamePJL, addr, "reply has no ID marker")
	}
	return modelName, ok
}

// ParsePJL extracts the model from a PJL INFO ID reply.
// The reply must contain "ID"; the ID assignment and quotes are stripped and
// the first non-blank line is returned.
func ParsePJL(resp string) (string, bool) {
	if !strings.Contains(resp, "ID") {
		return "", false
	}

	clean := strings.TrimSpace(pjlReplacer.Replace(resp))
	for line := range strings.Lines(clean) {
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r\n"), true
		}
	}
	return unknownPJL, true
}
