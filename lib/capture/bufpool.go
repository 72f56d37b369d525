// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import "bytes"

// scratchPoolSize bounds how many scratch buffers a builder retains
// between serializations. Records are small relative to file content,
// so a handful of buffers covers the packer's needs without growing
// with archive size.
const scratchPoolSize = 5

// bufferPool is a bounded free-list of scratch buffers used to
// serialize transient records (argument lists, options bundles, data
// packs) before hashing. Checkout and return go through withBuffer so
// buffers come back to the pool on every exit path.
type bufferPool struct {
	free chan *bytes.Buffer
}

func newBufferPool() *bufferPool {
	return &bufferPool{free: make(chan *bytes.Buffer, scratchPoolSize)}
}

func (p *bufferPool) acquire() *bytes.Buffer {
	select {
	case buffer := <-p.free:
		buffer.Reset()
		return buffer
	default:
		return new(bytes.Buffer)
	}
}

func (p *bufferPool) release(buffer *bytes.Buffer) {
	select {
	case p.free <- buffer:
	default:
		// Pool is full; drop the buffer for the GC.
	}
}

// withBuffer runs fn with a pooled buffer and returns the buffer to
// the pool afterward, whether or not fn failed.
func (p *bufferPool) withBuffer(fn func(buffer *bytes.Buffer) error) error {
	buffer := p.acquire()
	defer p.release(buffer)
	return fn(buffer)
}
