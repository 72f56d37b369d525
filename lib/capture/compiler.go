// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import "github.com/compvault/compvault/lib/pemeta"

// compilerIdentity is the resolved identity of one compiler binary.
// The build ID is the compiler module's own MVID: unique per compiler
// build and readable from the binary without any toolchain support.
type compilerIdentity struct {
	assemblyName string
	version      string
	buildID      pemeta.ModuleID
	resolved     bool
}

// resolveCompiler resolves the compiler binary at path to its
// identity, memoized per path for the builder's lifetime. Failed
// resolutions are memoized too: the diagnostic is emitted once and
// every invocation using that compiler carries an empty identity.
func (b *Builder) resolveCompiler(path string) compilerIdentity {
	if identity, seen := b.compilers[path]; seen {
		return identity
	}

	var identity compilerIdentity
	info, err := pemeta.ReadFile(path)
	if err != nil {
		b.diags.Add("unable to determine compiler identity for %s: %v", path, err)
	} else {
		name := info.AssemblyName
		if name == "" {
			name = info.ModuleName
		}
		identity = compilerIdentity{
			assemblyName: name,
			version:      info.AssemblyVersion,
			buildID:      info.Mvid,
			resolved:     true,
		}
	}
	b.compilers[path] = identity
	return identity
}
