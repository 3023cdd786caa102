// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>

package reactor

// DefaultMaxEvents is the size of one wait batch.
const DefaultMaxEvents = 100

func batchSize(maxEvents int) int {
	if maxEvents <= 0 {
		return DefaultMaxEvents
	}
	return maxEvents
}
