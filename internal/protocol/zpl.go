package protocol

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/nao1215/printscan/internal/model"
)

// zplRequest is the ZPL host identification command.
var zplRequest = []byte("~HI")

// zplReadTimeout is how long the ZPL probe waits for a reply.
const zplReadTimeout = 1000 * time.Millisecond

// ZPLProber identifies older Zebra printers through the ~HI command.
// The reply is a comma separated list such as "ZD420-203dpi,V84.20.18Z,8,8176KB".
type ZPLProber struct {
	tcpProbe
}

// NewZPLProber creates a Zebra ZPL prober.
func NewZPLProber(opts ...Option) *ZPLProber {
	return &ZPLProber{tcpProbe: newTCPProbe(zplReadTimeout, opts...)}
}

// Name returns "zpl".
func (p *ZPLProber) Name() string {
	return NameZPL
}

// Source returns model.SourceZPL.
func (p *ZPLProber) Source() model.Source {
	return model.SourceZPL
}

// Probe sends ~HI and parses the reply.
func (p *ZPLProber) Probe(ctx context.Context, addr netip.Addr) (string, bool) {
	resp, err := p.exchange(ctx, addr, zplRequest)
	if err != nil {
		p.miss(NameZPL, addr, err)
		return "", false
	}

	modelName, ok := ParseZPL(resp)
	if !ok {
		p.miss(NameZPL, addr, "reply has no model field")
	}
	return modelName, ok
}

// ParseZPL extracts the model from a ~HI reply. The longest comma separated
// field is taken, the first one winning ties, and accepted when its trimmed
// length exceeds three.
func ParseZPL(resp string) (string, bool) {
	if !strings.Contains(resp, ",") {
		return "", false
	}

	var longest string
	for field := range strings.SplitSeq(resp, ",") {
		if len(field) > len(longest) {
			longest = field
		}
	}

	longest = strings.TrimSpace(longest)
	if len(longest) <= 3 {
		return "", false
	}
	return fmt.Sprintf("Zebra ZPL (%s)", longest), true
}
