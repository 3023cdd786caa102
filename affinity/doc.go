// File: affinity/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package affinity pins the calling OS thread to a CPU so a reactor loop
// keeps its caches warm. Only Linux supports pinning; elsewhere the calls
// report api.ErrNotSupported.
package affinity
