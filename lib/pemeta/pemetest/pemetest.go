// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package pemetest builds minimal managed PE images in memory for
// tests. The images are real enough for debug/pe and lib/pemeta: DOS
// stub, PE32 headers, one .text section holding a CLI header and a
// CLI metadata root with #~, #Strings, #GUID, and #Blob streams.
//
// Nothing here is a usable assembly — there is no IL, no entry point,
// and no type system beyond optional filler rows. The filler rows
// exist to exercise the reader's table-skipping: with ExtraTables set,
// TypeRef and TypeDef rows sit between the Module and Assembly tables
// so the reader must size and skip them correctly.
package pemetest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Assembly describes the synthetic module to build.
type Assembly struct {
	// ModuleName is the Module table name, e.g. "app.dll".
	ModuleName string

	// Mvid is the module version identifier placed in the #GUID heap.
	Mvid [16]byte

	// AssemblyName is the Assembly table name. Empty builds a
	// netmodule with no Assembly table.
	AssemblyName string

	// Version is the four-part assembly version.
	Version [4]uint16

	// ExtraTables adds one TypeRef and one TypeDef row between the
	// Module and Assembly tables.
	ExtraTables bool
}

// Build returns the bytes of the synthetic PE image.
func (a Assembly) Build() []byte {
	metadata := a.buildMetadata()
	return wrapPE(metadata)
}

// Write builds the image and writes it to dir/name, returning the
// full path. Fails the test on any I/O error.
func (a Assembly) Write(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, a.Build(), 0o644); err != nil {
		tb.Fatalf("writing synthetic assembly %s: %v", path, err)
	}
	return path
}

// buildMetadata assembles the CLI metadata root.
func (a Assembly) buildMetadata() []byte {
	// #Strings heap: empty string at offset 0, then the names.
	stringsHeap := []byte{0}
	addString := func(s string) uint16 {
		offset := uint16(len(stringsHeap))
		stringsHeap = append(stringsHeap, s...)
		stringsHeap = append(stringsHeap, 0)
		return offset
	}
	moduleNameIndex := addString(a.ModuleName)
	var assemblyNameIndex, typeNameIndex uint16
	if a.AssemblyName != "" {
		assemblyNameIndex = addString(a.AssemblyName)
	}
	if a.ExtraTables {
		typeNameIndex = addString("Placeholder")
	}

	guidHeap := make([]byte, 16)
	copy(guidHeap, a.Mvid[:])

	blobHeap := []byte{0}

	tables := a.buildTables(moduleNameIndex, assemblyNameIndex, typeNameIndex)

	// Metadata root header: signature, version 1.1, reserved, version
	// string "v4.0.30319" padded to 12 bytes, flags, stream count.
	const versionString = "v4.0.30319\x00\x00"
	root := []byte{}
	root = appendUint32(root, 0x424A5342)
	root = appendUint16(root, 1)
	root = appendUint16(root, 1)
	root = appendUint32(root, 0)
	root = appendUint32(root, uint32(len(versionString)))
	root = append(root, versionString...)
	root = appendUint16(root, 0)
	root = appendUint16(root, 4)

	// Stream headers: offset and size are relative to the metadata
	// root; names are null-terminated and padded to 4 bytes.
	type stream struct {
		name string
		data []byte
	}
	streamList := []stream{
		{"#~", tables},
		{"#Strings", stringsHeap},
		{"#GUID", guidHeap},
		{"#Blob", blobHeap},
	}

	headerSize := len(root)
	for _, s := range streamList {
		headerSize += 8 + paddedNameLength(s.name)
	}

	offset := headerSize
	for _, s := range streamList {
		root = appendUint32(root, uint32(offset))
		root = appendUint32(root, uint32(align4(len(s.data))))
		root = append(root, s.name...)
		for len(root)%4 != 0 || root[len(root)-1] != 0 {
			root = append(root, 0)
		}
		offset += align4(len(s.data))
	}

	for _, s := range streamList {
		root = append(root, s.data...)
		for len(root)%4 != 0 {
			root = append(root, 0)
		}
	}
	return root
}

// buildTables assembles the #~ stream. All heaps are small, so every
// heap and table index is 2 bytes wide.
func (a Assembly) buildTables(moduleName, assemblyName, typeName uint16) []byte {
	var valid uint64 = 1 << 0x00 // Module
	if a.ExtraTables {
		valid |= 1<<0x01 | 1<<0x02 // TypeRef, TypeDef
	}
	if a.AssemblyName != "" {
		valid |= 1 << 0x20 // Assembly
	}

	data := []byte{}
	data = appendUint32(data, 0)  // reserved
	data = append(data, 2, 0)     // major, minor version
	data = append(data, 0)        // heap size flags: all narrow
	data = append(data, 1)        // reserved
	data = appendUint64(data, valid)
	data = appendUint64(data, 0) // sorted mask

	// Row counts in table-number order.
	data = appendUint32(data, 1) // Module
	if a.ExtraTables {
		data = appendUint32(data, 1) // TypeRef
		data = appendUint32(data, 1) // TypeDef
	}
	if a.AssemblyName != "" {
		data = appendUint32(data, 1) // Assembly
	}

	// Module row: Generation, Name, Mvid (GUID index 1), EncId,
	// EncBaseId.
	data = appendUint16(data, 0)
	data = appendUint16(data, moduleName)
	data = appendUint16(data, 1)
	data = appendUint16(data, 0)
	data = appendUint16(data, 0)

	if a.ExtraTables {
		// TypeRef row: ResolutionScope coded index (Module row 1,
		// tag 0), Name, Namespace.
		data = appendUint16(data, 1<<2|0)
		data = appendUint16(data, typeName)
		data = appendUint16(data, 0)

		// TypeDef row: Flags, Name, Namespace, Extends coded index
		// (TypeRef row 1, tag 1), FieldList, MethodList.
		data = appendUint32(data, 0)
		data = appendUint16(data, typeName)
		data = appendUint16(data, 0)
		data = appendUint16(data, 1<<2|1)
		data = appendUint16(data, 1)
		data = appendUint16(data, 1)
	}

	if a.AssemblyName != "" {
		// Assembly row: HashAlgId (SHA-1), four version parts, Flags,
		// PublicKey, Name, Culture.
		data = appendUint32(data, 0x8004)
		for _, part := range a.Version {
			data = appendUint16(data, part)
		}
		data = appendUint32(data, 0)
		data = appendUint16(data, 0)
		data = appendUint16(data, assemblyName)
		data = appendUint16(data, 0)
	}
	return data
}

// Section and file layout constants for the PE envelope.
const (
	textRVA        = 0x2000
	fileAlignment  = 0x200
	cliHeaderSize  = 72
	optionalHeader = 224 // PE32 with 16 data directories
)

// wrapPE wraps CLI metadata in a minimal single-section PE32 image.
func wrapPE(metadata []byte) []byte {
	sectionSize := cliHeaderSize + len(metadata)
	rawSize := alignTo(sectionSize, fileAlignment)

	image := make([]byte, 0, fileAlignment+rawSize)

	// DOS header: "MZ" magic and e_lfanew pointing straight at the
	// PE signature (no DOS stub program).
	dos := make([]byte, 64)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3C:], 64)
	image = append(image, dos...)

	// PE signature and COFF header: i386, one section, DLL.
	image = append(image, 'P', 'E', 0, 0)
	image = appendUint16(image, 0x014C)
	image = appendUint16(image, 1)
	image = appendUint32(image, 0)
	image = appendUint32(image, 0)
	image = appendUint32(image, 0)
	image = appendUint16(image, optionalHeader)
	image = appendUint16(image, 0x2102)

	// Optional header (PE32).
	image = appendUint16(image, 0x010B)      // magic
	image = append(image, 8, 0)              // linker version
	image = appendUint32(image, uint32(rawSize)) // SizeOfCode
	image = appendUint32(image, 0)           // SizeOfInitializedData
	image = appendUint32(image, 0)           // SizeOfUninitializedData
	image = appendUint32(image, 0)           // AddressOfEntryPoint
	image = appendUint32(image, textRVA)     // BaseOfCode
	image = appendUint32(image, 0)           // BaseOfData
	image = appendUint32(image, 0x400000)    // ImageBase
	image = appendUint32(image, 0x2000)      // SectionAlignment
	image = appendUint32(image, fileAlignment)
	image = appendUint16(image, 4)           // OS version
	image = appendUint16(image, 0)
	image = appendUint16(image, 0) // image version
	image = appendUint16(image, 0)
	image = appendUint16(image, 4) // subsystem version
	image = appendUint16(image, 0)
	image = appendUint32(image, 0)        // Win32VersionValue
	image = appendUint32(image, 0x4000)   // SizeOfImage
	image = appendUint32(image, fileAlignment) // SizeOfHeaders
	image = appendUint32(image, 0)        // CheckSum
	image = appendUint16(image, 3)        // Subsystem: console
	image = appendUint16(image, 0)        // DllCharacteristics
	image = appendUint32(image, 0x100000) // stack reserve
	image = appendUint32(image, 0x1000)   // stack commit
	image = appendUint32(image, 0x100000) // heap reserve
	image = appendUint32(image, 0x1000)   // heap commit
	image = appendUint32(image, 0)        // LoaderFlags
	image = appendUint32(image, 16)       // NumberOfRvaAndSizes

	// Data directories: only entry 14 (CLI header) is populated.
	for i := 0; i < 16; i++ {
		if i == 14 {
			image = appendUint32(image, textRVA)
			image = appendUint32(image, cliHeaderSize)
		} else {
			image = appendUint32(image, 0)
			image = appendUint32(image, 0)
		}
	}

	// Section header for .text.
	name := [8]byte{'.', 't', 'e', 'x', 't'}
	image = append(image, name[:]...)
	image = appendUint32(image, uint32(sectionSize)) // VirtualSize
	image = appendUint32(image, textRVA)
	image = appendUint32(image, uint32(rawSize))
	image = appendUint32(image, fileAlignment) // PointerToRawData
	image = appendUint32(image, 0)             // relocations
	image = appendUint32(image, 0)             // line numbers
	image = appendUint32(image, 0)             // counts
	image = appendUint32(image, 0x60000020)    // code, execute, read

	// Pad headers to the start of raw section data.
	image = append(image, make([]byte, fileAlignment-len(image))...)

	// CLI header: size, runtime version 2.5, metadata directory,
	// ILONLY flag.
	cli := make([]byte, cliHeaderSize)
	binary.LittleEndian.PutUint32(cli[0:], cliHeaderSize)
	binary.LittleEndian.PutUint16(cli[4:], 2)
	binary.LittleEndian.PutUint16(cli[6:], 5)
	binary.LittleEndian.PutUint32(cli[8:], textRVA+cliHeaderSize)
	binary.LittleEndian.PutUint32(cli[12:], uint32(len(metadata)))
	binary.LittleEndian.PutUint32(cli[16:], 1)
	image = append(image, cli...)

	image = append(image, metadata...)
	image = append(image, make([]byte, rawSize-sectionSize)...)
	return image
}

func paddedNameLength(name string) int {
	return (len(name)/4 + 1) * 4
}

func align4(n int) int {
	return alignTo(n, 4)
}

func alignTo(n, boundary int) int {
	return (n + boundary - 1) / boundary * boundary
}

func appendUint16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendUint64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}
