// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"fmt"
	"io"

	"github.com/compvault/compvault/lib/binhash"
)

// addContent stores data in the archive's content store and returns
// its digest. Identical bytes share one entry: at most one physical
// write happens per unique digest for the archive's lifetime, and the
// digest comes back whether or not this call did the write.
//
// Errors here are archive I/O failures and therefore fatal to the
// in-flight Add.
func (b *Builder) addContent(data []byte) (binhash.Digest, error) {
	digest := binhash.HashBytes(data)
	if _, exists := b.contents[digest]; exists {
		return digest, nil
	}

	entry, err := b.createEntry(ContentEntryName(digest))
	if err != nil {
		return binhash.Digest{}, err
	}
	if _, err := entry.Write(data); err != nil {
		return binhash.Digest{}, fmt.Errorf("writing content entry %s: %w", digest.Hex(), err)
	}
	b.contents[digest] = struct{}{}
	return digest, nil
}

// addContentReader streams r through a pooled scratch buffer into the
// content store. The reader is consumed exactly once even when the
// bytes turn out to be already stored. A read failure from r is
// reported distinctly from archive I/O so callers can degrade it to a
// diagnostic.
func (b *Builder) addContentReader(r io.Reader) (binhash.Digest, error) {
	var digest binhash.Digest
	err := b.buffers.withBuffer(func(buffer *bytes.Buffer) error {
		if _, err := io.Copy(buffer, r); err != nil {
			return &sourceReadError{err: err}
		}
		var storeErr error
		digest, storeErr = b.addContent(buffer.Bytes())
		return storeErr
	})
	return digest, err
}

// sourceReadError marks a failure reading an artifact's bytes (as
// opposed to writing the archive). The packer turns these into
// diagnostics instead of failing the invocation.
type sourceReadError struct {
	err error
}

func (e *sourceReadError) Error() string {
	return e.err.Error()
}

func (e *sourceReadError) Unwrap() error {
	return e.err
}
