// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes and formats the SHA-256 content digests
// that identify every blob in a capture archive.
//
// The digest is the identity: two files with identical bytes share one
// content entry regardless of where they live on disk, and a digest
// recorded in a compilation data pack is a stable pointer into the
// archive's content store. SHA-256 is fixed by the archive format —
// changing the algorithm would orphan every existing archive — so this
// package deliberately exposes no algorithm choice.
package binhash
