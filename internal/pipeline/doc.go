// Package pipeline runs the printer fingerprinting chain across a network.
//
// A Pipeline fingerprints one host: it checks that the printer port is open
// and then tries its probers in order until one identifies the device. The
// chain is an ordered slice of protocol.Prober values, so adding a protocol
// means appending a prober.
//
// A BatchProcessor fans the pipeline out over every host of a network with a
// bounded number of hosts in flight (errgroup SetLimit). Results are handed
// in completion order to a single collector goroutine that feeds an
// Aggregator, which returns the printers sorted by address.
package pipeline
