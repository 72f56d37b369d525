// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Compvault's standard CBOR encoding configuration.
//
// Every structured record in a capture archive — compilation info packs,
// data packs, options bundles, the archive metadata record — is encoded
// as CBOR (RFC 8949) with Core Deterministic Encoding: sorted map keys,
// smallest integer encoding, no indefinite-length items. Determinism
// matters here more than in most systems because serialized records are
// themselves stored through the content-addressed blob store: the same
// logical record must always produce the same bytes, and therefore the
// same SHA-256 digest, or deduplication across invocations breaks.
//
// This package provides the shared encoding and decoding modes so that
// every package encodes identically without duplicating configuration.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (archive entry writers):
//
//	encoder := codec.NewEncoder(entry)
//
// # Struct Tag Rules
//
// Record types use `json` struct tags. fxamacker/cbor v2 reads json
// tags as fallback when cbor tags are absent, so a single json tag
// controls field naming and omitempty for both formats — and the same
// types serve CLI --json output and offline inspection tooling without
// a second tag set. Never add a separate `cbor` tag on top of a `json`
// tag; doubling up is noise that obscures the contract.
package codec
