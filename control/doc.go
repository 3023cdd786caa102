// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the reactor.
//
// Provides concurrent-safe primitives:
//   - counters and gauges readable as snapshots
//   - named probes evaluated on demand
package control
