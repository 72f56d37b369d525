// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture builds compilation capture archives.
//
// A capture archive is a single zip container holding, for a set of
// compiler invocations, every input the compiler consumed: source
// text, metadata references, analyzers, analyzer configs, resources,
// embedded files, and the serialized argument list and option bundle.
// Raw content lives in a content-addressed store (content/<sha256>)
// and referenced assemblies in a module store (modules/<mvid>), so
// artifacts shared between invocations are written once.
//
// The Builder is the only writer. It appends invocations in order,
// collects per-artifact failures as diagnostics instead of aborting
// the capture, and finalizes the archive's metadata and module
// manifest at Close. Archive I/O errors are fatal; a missing or
// unreadable input file never is.
package capture
