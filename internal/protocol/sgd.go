package protocol

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/nao1215/printscan/internal/model"
)

// sgdRequest reads the product name through Zebra's Set-Get-Do command set.
// The printer ignores the command unless it ends with a line terminator.
var sgdRequest = []byte("! U1 getvar \"device.product_name\"\r\n")

// sgdReadTimeout is how long the SGD probe waits for a reply.
const sgdReadTimeout = 1500 * time.Millisecond

// SGDProber identifies Zebra printers through an SGD getvar query.
type SGDProber struct {
	tcpProbe
}

// NewSGDProber creates a Zebra SGD prober.
func NewSGDProber(opts ...Option) *SGDProber {
	return &SGDProber{tcpProbe: newTCPProbe(sgdReadTimeout, opts...)}
}

// Name returns "sgd".
func (p *SGDProber) Name() string {
	return NameSGD
}

// Source returns model.SourceSGD.
func (p *SGDProber) Source() model.Source {
	return model.SourceSGD
}

// Probe sends the getvar query and parses the reply.
func (p *SGDProber) Probe(ctx context.Context, addr netip.Addr) (string, bool) {
	resp, err := p.exchange(ctx, addr, sgdRequest)
	if err != nil {
		p.miss(NameSGD, addr, err)
		return "", false
	}

	modelName, ok := ParseSGD(resp)
	if !ok {
		p.miss(NameSGD, addr, "reply is not a product name")
	}
	return modelName, ok
}

// ParseSGD extracts the model from an SGD getvar reply such as `"GX430t"`.
// The trimmed reply must be longer than two characters and made only of
// printable ASCII. Quotes are removed and the result is prefixed with "Zebra ".
func ParseSGD(resp string) (string, bool) {
	raw := strings.TrimSpace(resp)
	if len(raw) <= 2 || !isPrintableASCII(raw) {
		return "", false
	}
	return "Zebra " + strings.ReplaceAll(raw, `"`, ""), true
}

// isPrintableASCII reports whether s consists only of characters 0x20-0x7E.
func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}
