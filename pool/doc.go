// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable I/O buffers for connection reads.
package pool
