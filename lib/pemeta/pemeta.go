// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package pemeta

import (
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ModuleID is a module version identifier (MVID): the 16 raw bytes of
// the GUID stored in the module's #GUID heap. The hex encoding of the
// raw heap bytes is the canonical identity string used in archive
// entry names and manifest lines.
type ModuleID [16]byte

// Hex returns the lowercase hex encoding of the identity.
func (id ModuleID) Hex() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the identity is the zero value. A zero
// identity marks a module whose metadata could not be read.
func (id ModuleID) IsZero() bool {
	return id == ModuleID{}
}

// MarshalText implements encoding.TextMarshaler so identities
// serialize as their hex form in CBOR and JSON records.
func (id ModuleID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ModuleID) UnmarshalText(text []byte) error {
	parsed, err := ParseModuleID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseModuleID parses a 32-character hex string into a ModuleID.
func ParseModuleID(hexString string) (ModuleID, error) {
	var id ModuleID
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return id, fmt.Errorf("parsing module identity: %w", err)
	}
	if len(decoded) != 16 {
		return id, fmt.Errorf("module identity is %d bytes, want 16", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// Info is the identity metadata extracted from a managed module.
type Info struct {
	// ModuleName is the module's own name from the Module table.
	ModuleName string

	// Mvid is the module version identifier.
	Mvid ModuleID

	// AssemblyName is the defining assembly's simple name. Empty for
	// a netmodule (a module with no Assembly table).
	AssemblyName string

	// AssemblyVersion is the four-part assembly version, e.g.
	// "4.2.0.0". Empty when AssemblyName is empty.
	AssemblyVersion string
}

// Identity returns the human-readable assembly identity string used
// in manifest lines: "Name, Version=a.b.c.d", or the bare module name
// for a netmodule.
func (i *Info) Identity() string {
	if i.AssemblyName == "" {
		return i.ModuleName
	}
	return fmt.Sprintf("%s, Version=%s", i.AssemblyName, i.AssemblyVersion)
}

// ReadFile reads identity metadata from the managed PE file at path.
func ReadFile(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening module %s: %w", path, err)
	}
	defer file.Close()

	info, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("reading module metadata from %s: %w", path, err)
	}
	return info, nil
}

// Read reads identity metadata from a managed PE image.
func Read(r io.ReaderAt) (*Info, error) {
	peFile, err := pe.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("parsing PE headers: %w", err)
	}
	defer peFile.Close()

	metadata, err := metadataBytes(peFile)
	if err != nil {
		return nil, err
	}
	return parseMetadata(metadata)
}

// cliHeaderDirectory is the index of the CLI (COM descriptor) entry in
// the PE data directory array.
const cliHeaderDirectory = 14

// metadataBytes locates and returns the raw CLI metadata section of a
// managed PE image: data directory 14 points at the CLI header, whose
// MetaData field points at the metadata root.
func metadataBytes(peFile *pe.File) ([]byte, error) {
	var directories []pe.DataDirectory
	switch header := peFile.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		directories = header.DataDirectory[:]
	case *pe.OptionalHeader64:
		directories = header.DataDirectory[:]
	default:
		return nil, fmt.Errorf("PE file has no optional header")
	}

	if len(directories) <= cliHeaderDirectory || directories[cliHeaderDirectory].VirtualAddress == 0 {
		return nil, fmt.Errorf("not a managed module (no CLI header directory)")
	}

	cliHeader, err := readAtRVA(peFile, directories[cliHeaderDirectory].VirtualAddress, directories[cliHeaderDirectory].Size)
	if err != nil {
		return nil, fmt.Errorf("reading CLI header: %w", err)
	}
	if len(cliHeader) < 16 {
		return nil, fmt.Errorf("CLI header is %d bytes, want at least 16", len(cliHeader))
	}

	// IMAGE_COR20_HEADER: cb, MajorRuntimeVersion, MinorRuntimeVersion,
	// then the MetaData data directory at offset 8.
	metadataRVA := binary.LittleEndian.Uint32(cliHeader[8:12])
	metadataSize := binary.LittleEndian.Uint32(cliHeader[12:16])
	if metadataRVA == 0 || metadataSize == 0 {
		return nil, fmt.Errorf("CLI header has no metadata directory")
	}

	metadata, err := readAtRVA(peFile, metadataRVA, metadataSize)
	if err != nil {
		return nil, fmt.Errorf("reading CLI metadata: %w", err)
	}
	return metadata, nil
}

// readAtRVA reads size bytes at the given relative virtual address by
// locating the containing section and translating the RVA to a section
// offset.
func readAtRVA(peFile *pe.File, rva, size uint32) ([]byte, error) {
	for _, section := range peFile.Sections {
		end := section.VirtualAddress + section.VirtualSize
		if section.VirtualSize == 0 {
			end = section.VirtualAddress + section.Size
		}
		if rva < section.VirtualAddress || rva >= end {
			continue
		}

		data, err := section.Data()
		if err != nil {
			return nil, fmt.Errorf("reading section %s: %w", section.Name, err)
		}
		start := rva - section.VirtualAddress
		if uint64(start)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("RVA range 0x%x+0x%x extends past section %s", rva, size, section.Name)
		}
		return data[start : start+size], nil
	}
	return nil, fmt.Errorf("RVA 0x%x is not covered by any section", rva)
}
