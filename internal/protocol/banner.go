package protocol

import (
	"context"
	"net/netip"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/printscan/internal/model"
)

// bannerReadTimeout is how long the banner probe waits for unsolicited data.
const bannerReadTimeout = 500 * time.Millisecond

// rawPrefix marks models taken verbatim from a banner.
const rawPrefix = "Raw: "

var newlineReplacer = strings.NewReplacer("\r", " ", "\n", " ")

// BannerProber is the last resort of the chain. It sends nothing and reports
// whatever text the device volunteers after the connection is established,
// such as "Press Enter" prompts or model banners on older print servers.
type BannerProber struct {
	tcpProbe
}

// NewBannerProber creates a raw banner prober.
func NewBannerProber(opts ...Option) *BannerProber {
	return &BannerProber{tcpProbe: newTCPProbe(bannerReadTimeout, opts...)}
}

// Name returns "raw".
func (p *BannerProber) Name() string {
	return NameBanner
}

// Source returns model.SourceRawBanner.
func (p *BannerProber) Source() model.Source {
	return model.SourceRawBanner
}

// Probe waits for a banner and returns it as "Raw: <text>".
func (p *BannerProber) Probe(ctx context.Context, addr netip.Addr) (string, bool) {
	resp, err := p.exchange(ctx, addr, nil)
	if err != nil {
		p.miss(NameBanner, addr, err)
		return "", false
	}

	text, ok := ParseBanner(resp)
	if !ok {
		p.miss(NameBanner, addr, "banner is not text")
		return "", false
	}
	return rawPrefix + text, true
}

// ParseBanner collapses line breaks into spaces and trims the banner.
// It is accepted when longer than three bytes and containing a letter.
func ParseBanner(resp string) (string, bool) {
	text := strings.TrimSpace(newlineReplacer.Replace(resp))
	if len(text) <= 3 || !strings.ContainsFunc(text, unicode.IsLetter) {
		return "", false
	}
	return text, true
}
