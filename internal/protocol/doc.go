// Package protocol provides the probes that fingerprint printers on the raw
// printer port (9100/TCP) and over SNMP.
//
// # Probes
//
// Every probe implements the Prober interface and reports a model string
// plus an ok flag. A probe never returns an error: a refused connection, an
// expired deadline and a response that fails the heuristic all look the same
// to the caller, and only show up in debug logs.
//
//   - PJLProber: sends "@PJL INFO ID" wrapped in UEL escapes
//   - SGDProber: sends the Zebra SGD getvar for device.product_name
//   - ZPLProber: sends the Zebra ZPL host identification command ~HI
//   - SNMPProber: reads sysDescr (1.3.6.1.2.1.1.1.0) with SNMP v2c
//   - BannerProber: sends nothing and reads whatever the device volunteers
//
// The response heuristics are exposed as pure functions (ParsePJL, ParseSGD,
// ParseZPL, ParseBanner) so they can be tested without a network.
//
// # Reachability
//
// PortCheck performs a bare connect to the printer port. It gates all other
// probes: a host whose printer port is closed is never probed further.
//
// # Transport
//
// TCP probes dial through a golang.org/x/net/proxy Dialer. proxy.Direct is
// used unless a SOCKS5 proxy is configured. SNMP always goes out directly
// over UDP.
//
// # Usage
//
//	check := protocol.NewPortCheck(protocol.WithTimeout(2 * time.Second))
//	if check.IsOpen(ctx, addr) {
//	    sgd := protocol.NewSGDProber(protocol.WithTimeout(2 * time.Second))
//	    if model, ok := sgd.Probe(ctx, addr); ok {
//	        fmt.Println(model)
//	    }
//	}
package protocol
