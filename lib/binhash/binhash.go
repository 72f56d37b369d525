// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest is a SHA-256 digest. The hex encoding of a Digest is the
// identity of a content entry in a capture archive: same bytes, same
// digest, same entry name, for the lifetime of the archive.
type Digest [32]byte

// Hex returns the lowercase hex encoding of the digest. This is the
// canonical form used in archive entry names, records, and diagnostics.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest is the zero value. The zero digest
// never names real content; records use it for "not present".
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler so digests serialize
// as their hex form in CBOR and JSON records.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HashBytes computes the SHA-256 digest of data.
func HashBytes(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// HashReader computes the SHA-256 digest of everything readable from
// r, streaming it through the hash function in chunks to keep memory
// usage constant. Returns the digest and the number of bytes hashed.
func HashReader(r io.Reader) (Digest, int64, error) {
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return Digest{}, n, fmt.Errorf("hashing stream: %w", err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, n, nil
}

// HashFile computes the SHA-256 digest of the file at path. The file
// is streamed through the hash function via io.Copy.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digest, _, err := HashReader(file)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// ParseDigest parses a hex-encoded SHA-256 digest string. Returns an
// error if the string is not a valid 64-character hex encoding of
// 32 bytes.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing content digest: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("content digest is %d bytes, want 32", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}
