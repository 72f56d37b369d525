// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package pemeta reads identity metadata out of compiled .NET modules
// (managed PE files): the module version identifier (MVID) that gives
// a module build its globally unique 128-bit identity, the module
// name, and the defining assembly's name and version.
//
// The MVID is the dedup key for the capture archive's module store.
// Two file paths whose bytes carry the same MVID are the same module
// build; the registry stores the bytes once and the manifest lists the
// identity once. The MVID lives in the module's own metadata (ECMA-335
// II.22.30, Module table), so identity never depends on file location,
// timestamps, or anything outside the bytes themselves.
//
// The reader walks the standard layering: PE headers (via debug/pe) →
// CLI header (data directory 14) → metadata root → stream headers →
// "#~" tables stream. Reaching the Assembly table requires computing
// the exact row width of every table stored before it, which is why
// tables.go carries the full II.22 column schema including coded-index
// width rules. Only the Module and Assembly rows are decoded; every
// other table is measured and skipped.
package pemeta
