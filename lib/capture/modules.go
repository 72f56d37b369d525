// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compvault/compvault/lib/pemeta"
)

// addModule registers the compiled module at path and returns its
// identity (MVID).
//
// A path is resolved at most once per builder: repeat paths return
// the memoized identity without touching the file again. When an
// identity is new — the same module build has not been reached via
// any other path — the module bytes are stored under a
// modules/<identity> entry and the first-seen file name and assembly
// identity string are recorded for the manifest. When the identity is
// already stored, only the path memo is added.
//
// A module whose metadata cannot be read is reported as an error for
// the caller to record as a diagnostic; the invocation continues.
func (b *Builder) addModule(path string) (pemeta.ModuleID, error) {
	if id, seen := b.modulesByPath[path]; seen {
		return id, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pemeta.ModuleID{}, &sourceReadError{err: fmt.Errorf("reading module %s: %w", path, err)}
	}
	info, err := pemeta.Read(bytes.NewReader(data))
	if err != nil {
		return pemeta.ModuleID{}, &sourceReadError{err: fmt.Errorf("reading module metadata from %s: %w", path, err)}
	}

	id := info.Mvid
	b.modulesByPath[path] = id

	if _, stored := b.moduleManifest[id]; stored {
		return id, nil
	}

	entry, err := b.createEntry(ModuleEntryName(id))
	if err != nil {
		return pemeta.ModuleID{}, err
	}
	if _, err := entry.Write(data); err != nil {
		return pemeta.ModuleID{}, fmt.Errorf("writing module entry %s: %w", id.Hex(), err)
	}
	b.moduleManifest[id] = manifestModule{
		fileName: filepath.Base(path),
		assembly: info.Identity(),
	}
	return id, nil
}
