// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/compvault/compvault/lib/binhash"
	"github.com/compvault/compvault/lib/codec"
	"github.com/compvault/compvault/lib/invocation"
	"github.com/compvault/compvault/lib/pemeta"
)

// ErrClosed is returned by any operation on a builder whose Close has
// already run (successfully or not).
var ErrClosed = errors.New("capture builder is already closed")

// Builder writes one capture archive. Construct with NewBuilder, call
// Add once per resolved invocation, then Close exactly once.
//
// A builder owns its output stream for the archive's lifetime and is
// append-only: no entry is ever replaced or deleted. It is not safe
// for concurrent Add calls — the archive format requires strictly
// sequential entry writers — so callers capturing invocations
// concurrently must serialize into one builder or shard across
// independent builders.
type Builder struct {
	zip     *zip.Writer
	diags   *DiagnosticList
	buffers *bufferPool

	// contents is the digest set of the content store: one archive
	// entry exists per key.
	contents map[binhash.Digest]struct{}

	// modulesByPath memoizes module identity per file path;
	// moduleManifest records first-seen manifest info per identity.
	modulesByPath  map[string]pemeta.ModuleID
	moduleManifest map[pemeta.ModuleID]manifestModule

	// compilers memoizes compiler identity per executable path,
	// including failed resolutions (the diagnostic is emitted once).
	compilers map[string]compilerIdentity

	invocationCount int
	closed          bool
}

// manifestModule is the per-identity information listed in the
// manifest entry, taken from the first path the identity was seen at.
type manifestModule struct {
	fileName string
	assembly string
}

// NewBuilder creates a builder writing to output. The diagnostic list
// is owned by the caller and collects every non-fatal capture problem;
// it may be shared across builders if the caller serializes use.
//
// The builder finalizes the archive structure on Close but does not
// close output itself — the caller owns the underlying file or stream.
func NewBuilder(output io.Writer, diags *DiagnosticList) *Builder {
	archive := zip.NewWriter(output)
	archive.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return &Builder{
		zip:            archive,
		diags:          diags,
		buffers:        newBufferPool(),
		contents:       make(map[binhash.Digest]struct{}),
		modulesByPath:  make(map[string]pemeta.ModuleID),
		moduleManifest: make(map[pemeta.ModuleID]manifestModule),
		compilers:      make(map[string]compilerIdentity),
	}
}

// Diagnostics returns the builder's diagnostic list.
func (b *Builder) Diagnostics() *DiagnosticList {
	return b.diags
}

// InvocationCount returns the number of invocations added so far.
func (b *Builder) InvocationCount() int {
	return b.invocationCount
}

// Add captures one resolved invocation into the archive. Per-artifact
// problems (unreadable files, unresolvable embed targets, missing
// module identities) become diagnostics and the invocation is still
// written with partial data; only archive I/O failures and use after
// Close return an error.
func (b *Builder) Add(inv *invocation.Invocation) error {
	if b.closed {
		return ErrClosed
	}

	infoPack, err := b.packInvocation(inv)
	if err != nil {
		return err
	}

	if err := b.writeRecord(CompilationEntryName(b.invocationCount), infoPack); err != nil {
		return err
	}
	b.invocationCount++
	return nil
}

// Close finalizes the archive: it writes the metadata record and the
// module manifest, then finishes the archive structure. Close
// transitions the builder to its terminal state exactly once; a
// second call fails with ErrClosed. The closed flag is set in a
// deferred step so a failed Close can never leave the builder
// silently reusable.
func (b *Builder) Close() error {
	if b.closed {
		return ErrClosed
	}
	defer func() { b.closed = true }()

	finalErr := b.writeFinal()

	// Finish the archive structure even if the final records failed:
	// the underlying stream is released either way.
	if err := b.zip.Close(); err != nil && finalErr == nil {
		finalErr = fmt.Errorf("finalizing archive: %w", err)
	}
	return finalErr
}

// writeFinal writes the cross-invocation entries: metadata, then the
// module manifest sorted by file name then identity.
func (b *Builder) writeFinal() error {
	metadata := Metadata{
		FormatVersion:   FormatVersion,
		InvocationCount: b.invocationCount,
	}
	if err := b.writeRecord(MetadataEntryName, metadata); err != nil {
		return err
	}

	type manifestLine struct {
		fileName string
		identity string
		assembly string
	}
	lines := make([]manifestLine, 0, len(b.moduleManifest))
	for id, m := range b.moduleManifest {
		lines = append(lines, manifestLine{m.fileName, id.Hex(), m.assembly})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].fileName != lines[j].fileName {
			return lines[i].fileName < lines[j].fileName
		}
		return lines[i].identity < lines[j].identity
	})

	var manifest strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&manifest, "%s:%s:%s\n", line.fileName, line.identity, line.assembly)
	}

	entry, err := b.createEntry(ManifestEntryName)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(entry, manifest.String()); err != nil {
		return fmt.Errorf("writing manifest entry: %w", err)
	}
	return nil
}

// createEntry starts a new archive entry. Entries carry no timestamp
// so identical captures produce identical archive bytes.
func (b *Builder) createEntry(name string) (io.Writer, error) {
	entry, err := b.zip.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, fmt.Errorf("creating archive entry %s: %w", name, err)
	}
	return entry, nil
}

// writeRecord CBOR-encodes record into a new archive entry.
func (b *Builder) writeRecord(name string, record any) error {
	entry, err := b.createEntry(name)
	if err != nil {
		return err
	}
	if err := codec.NewEncoder(entry).Encode(record); err != nil {
		return fmt.Errorf("encoding archive entry %s: %w", name, err)
	}
	return nil
}

// marshalRecord CBOR-encodes record through a pooled scratch buffer
// and stores the encoding in the content store, returning its digest.
func (b *Builder) marshalRecord(record any) (binhash.Digest, error) {
	var digest binhash.Digest
	err := b.buffers.withBuffer(func(buffer *bytes.Buffer) error {
		if err := codec.NewEncoder(buffer).Encode(record); err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		var storeErr error
		digest, storeErr = b.addContent(buffer.Bytes())
		return storeErr
	})
	return digest, err
}
