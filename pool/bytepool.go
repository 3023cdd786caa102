// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte buffers recycled through sync.Pool. Connections borrow one
// per read call and return it before the callback finishes.

package pool

import "sync"

// DefaultBufferSize is the read buffer size used when none is configured.
const DefaultBufferSize = 4096

// BytePool hands out buffers of a fixed size.
type BytePool struct {
	pool sync.Pool
	size int
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	bp := &BytePool{size: size}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Size returns the length of buffers handed out by the pool.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of length Size.
func (b *BytePool) GetBuffer() *[]byte {
	buf := b.pool.Get().(*[]byte)
	*buf = (*buf)[:b.size]
	return buf
}

// PutBuffer returns a buffer to the pool. Buffers of another capacity are dropped.
func (b *BytePool) PutBuffer(buf *[]byte) {
	if buf == nil || cap(*buf) != b.size {
		return
	}
	b.pool.Put(buf)
}
