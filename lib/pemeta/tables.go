// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package pemeta

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// metadataSignature is the magic number at the start of the CLI
// metadata root ("BSJB", ECMA-335 II.24.2.1).
const metadataSignature = 0x424A5342

// Table numbers from ECMA-335 II.22. Only the ones referenced by name
// are listed; the schema table below covers every table a compiler
// emits into an assembly image.
const (
	tableModule      = 0x00
	tableTypeRef     = 0x01
	tableTypeDef     = 0x02
	tableFieldPtr    = 0x03
	tableField       = 0x04
	tableMethodPtr   = 0x05
	tableMethodDef   = 0x06
	tableParamPtr    = 0x07
	tableParam       = 0x08
	tableModuleRef   = 0x1A
	tableEvent       = 0x14
	tableProperty    = 0x17
	tableAssembly    = 0x20
	tableAssemblyRef = 0x23
	tableCount       = 0x2D
)

// Column kinds. Fixed-width kinds carry their byte width directly;
// index kinds resolve to 2 or 4 bytes from heap-size flags and row
// counts.
type columnKind int

const (
	colFixed2 columnKind = iota
	colFixed4
	colFixed8
	colString
	colGUID
	colBlob
	colTable // index into one specific table
	colCoded // coded index into a tag group
)

type column struct {
	kind columnKind
	// target is the table number for colTable, or the codedGroup
	// index for colCoded.
	target int
}

// Coded index groups (ECMA-335 II.24.2.6). Each group lists the
// tables its tag values can reference; the tag width is
// ceil(log2(len(tables))) bits, and the index is 4 bytes wide when any
// referenced table has too many rows for the remaining 16-tag bits.
// A -1 table means an unused tag value (it still consumes tag space).
type codedGroup struct {
	tables []int
}

const (
	codedTypeDefOrRef = iota
	codedHasConstant
	codedHasCustomAttribute
	codedHasFieldMarshal
	codedHasDeclSecurity
	codedMemberRefParent
	codedHasSemantics
	codedMethodDefOrRef
	codedMemberForwarded
	codedImplementation
	codedCustomAttributeType
	codedResolutionScope
	codedTypeOrMethodDef
)

var codedGroups = []codedGroup{
	codedTypeDefOrRef:        {tables: []int{tableTypeDef, tableTypeRef, 0x1B}},
	codedHasConstant:         {tables: []int{tableField, tableParam, tableProperty}},
	codedHasCustomAttribute:  {tables: []int{tableMethodDef, tableField, tableTypeRef, tableTypeDef, tableParam, 0x09, 0x0A, tableModule, 0x0E, tableProperty, tableEvent, 0x11, tableModuleRef, 0x1B, tableAssembly, tableAssemblyRef, 0x26, 0x27, 0x28, 0x2A, 0x2C, 0x2B}},
	codedHasFieldMarshal:     {tables: []int{tableField, tableParam}},
	codedHasDeclSecurity:     {tables: []int{tableTypeDef, tableMethodDef, tableAssembly}},
	codedMemberRefParent:     {tables: []int{tableTypeDef, tableTypeRef, tableModuleRef, tableMethodDef, 0x1B}},
	codedHasSemantics:        {tables: []int{tableEvent, tableProperty}},
	codedMethodDefOrRef:      {tables: []int{tableMethodDef, 0x0A}},
	codedMemberForwarded:     {tables: []int{tableField, tableMethodDef}},
	codedImplementation:      {tables: []int{0x26, tableAssemblyRef, 0x27}},
	codedCustomAttributeType: {tables: []int{-1, -1, tableMethodDef, 0x0A, -1}},
	codedResolutionScope:     {tables: []int{tableModule, tableModuleRef, tableAssemblyRef, tableTypeRef}},
	codedTypeOrMethodDef:     {tables: []int{tableTypeDef, tableMethodDef}},
}

// tableSchemas gives the column layout of every table number up to
// tableCount (ECMA-335 II.22). A nil entry means the table number is
// unassigned in the spec.
var tableSchemas = [tableCount][]column{
	tableModule:    {{colFixed2, 0}, {colString, 0}, {colGUID, 0}, {colGUID, 0}, {colGUID, 0}},
	tableTypeRef:   {{colCoded, codedResolutionScope}, {colString, 0}, {colString, 0}},
	tableTypeDef:   {{colFixed4, 0}, {colString, 0}, {colString, 0}, {colCoded, codedTypeDefOrRef}, {colTable, tableField}, {colTable, tableMethodDef}},
	tableFieldPtr:  {{colTable, tableField}},
	tableField:     {{colFixed2, 0}, {colString, 0}, {colBlob, 0}},
	tableMethodPtr: {{colTable, tableMethodDef}},
	tableMethodDef: {{colFixed4, 0}, {colFixed2, 0}, {colFixed2, 0}, {colString, 0}, {colBlob, 0}, {colTable, tableParam}},
	tableParamPtr:  {{colTable, tableParam}},
	tableParam:     {{colFixed2, 0}, {colFixed2, 0}, {colString, 0}},
	0x09:           {{colTable, tableTypeDef}, {colCoded, codedTypeDefOrRef}},                            // InterfaceImpl
	0x0A:           {{colCoded, codedMemberRefParent}, {colString, 0}, {colBlob, 0}},                     // MemberRef
	0x0B:           {{colFixed2, 0}, {colCoded, codedHasConstant}, {colBlob, 0}},                         // Constant (type byte + pad)
	0x0C:           {{colCoded, codedHasCustomAttribute}, {colCoded, codedCustomAttributeType}, {colBlob, 0}}, // CustomAttribute
	0x0D:           {{colCoded, codedHasFieldMarshal}, {colBlob, 0}},                                     // FieldMarshal
	0x0E:           {{colFixed2, 0}, {colCoded, codedHasDeclSecurity}, {colBlob, 0}},                     // DeclSecurity
	0x0F:           {{colFixed2, 0}, {colFixed4, 0}, {colTable, tableTypeDef}},                           // ClassLayout
	0x10:           {{colFixed4, 0}, {colTable, tableField}},                                             // FieldLayout
	0x11:           {{colBlob, 0}},                                                                      // StandAloneSig
	0x12:           {{colTable, tableTypeDef}, {colTable, tableEvent}},                                   // EventMap
	0x13:           {{colTable, tableEvent}},                                                             // EventPtr
	tableEvent:     {{colFixed2, 0}, {colString, 0}, {colCoded, codedTypeDefOrRef}},
	0x15:           {{colTable, tableTypeDef}, {colTable, tableProperty}},                                // PropertyMap
	0x16:           {{colTable, tableProperty}},                                                         // PropertyPtr
	tableProperty:  {{colFixed2, 0}, {colString, 0}, {colBlob, 0}},
	0x18:           {{colFixed2, 0}, {colTable, tableMethodDef}, {colCoded, codedHasSemantics}},          // MethodSemantics
	0x19:           {{colTable, tableTypeDef}, {colCoded, codedMethodDefOrRef}, {colCoded, codedMethodDefOrRef}}, // MethodImpl
	tableModuleRef: {{colString, 0}},
	0x1B:           {{colBlob, 0}},                                                                      // TypeSpec
	0x1C:           {{colFixed2, 0}, {colCoded, codedMemberForwarded}, {colString, 0}, {colTable, tableModuleRef}}, // ImplMap
	0x1D:           {{colFixed4, 0}, {colTable, tableField}},                                            // FieldRVA
	0x1E:           {{colFixed4, 0}, {colFixed4, 0}},                                                    // EncLog
	0x1F:           {{colFixed4, 0}},                                                                    // EncMap
	tableAssembly:  {{colFixed4, 0}, {colFixed8, 0}, {colFixed4, 0}, {colBlob, 0}, {colString, 0}, {colString, 0}},
	0x21:           {{colFixed4, 0}},                                                                    // AssemblyProcessor
	0x22:           {{colFixed4, 0}, {colFixed4, 0}, {colFixed4, 0}},                                    // AssemblyOS
	tableAssemblyRef: {{colFixed8, 0}, {colFixed4, 0}, {colBlob, 0}, {colString, 0}, {colString, 0}, {colBlob, 0}},
	0x24:           {{colFixed4, 0}, {colTable, tableAssemblyRef}},                                      // AssemblyRefProcessor
	0x25:           {{colFixed4, 0}, {colFixed4, 0}, {colFixed4, 0}, {colTable, tableAssemblyRef}},      // AssemblyRefOS
	0x26:           {{colFixed4, 0}, {colString, 0}, {colBlob, 0}},                                      // File
	0x27:           {{colFixed4, 0}, {colFixed4, 0}, {colString, 0}, {colString, 0}, {colCoded, codedImplementation}}, // ExportedType
	0x28:           {{colFixed4, 0}, {colFixed4, 0}, {colString, 0}, {colCoded, codedImplementation}},   // ManifestResource
	0x29:           {{colTable, tableTypeDef}, {colTable, tableTypeDef}},                                // NestedClass
	0x2A:           {{colFixed2, 0}, {colFixed2, 0}, {colCoded, codedTypeOrMethodDef}, {colString, 0}},  // GenericParam
	0x2B:           {{colCoded, codedMethodDefOrRef}, {colBlob, 0}},                                     // MethodSpec
	0x2C:           {{colTable, 0x2A}, {colCoded, codedTypeDefOrRef}},                                   // GenericParamConstraint
}

// tableLayout carries everything needed to size and decode rows:
// heap-width flags and the row count of every table in the stream.
type tableLayout struct {
	wideString bool
	wideGUID   bool
	wideBlob   bool
	rowCounts  [tableCount]uint32
}

func (l *tableLayout) stringWidth() int {
	if l.wideString {
		return 4
	}
	return 2
}

func (l *tableLayout) guidWidth() int {
	if l.wideGUID {
		return 4
	}
	return 2
}

func (l *tableLayout) blobWidth() int {
	if l.wideBlob {
		return 4
	}
	return 2
}

// tableIndexWidth returns the byte width of a simple index into the
// given table: 2 bytes unless the table has 2^16 rows or more.
func (l *tableLayout) tableIndexWidth(table int) int {
	if l.rowCounts[table] >= 1<<16 {
		return 4
	}
	return 2
}

// codedIndexWidth returns the byte width of a coded index for the
// given group: 2 bytes unless any referenced table's row count does
// not fit in the 16 bits remaining after the tag.
func (l *tableLayout) codedIndexWidth(group int) int {
	g := codedGroups[group]
	tagBits := bits.Len(uint(len(g.tables) - 1))
	limit := uint32(1) << (16 - tagBits)
	for _, table := range g.tables {
		if table >= 0 && l.rowCounts[table] >= limit {
			return 4
		}
	}
	return 2
}

// rowSize returns the byte width of one row of the given table.
func (l *tableLayout) rowSize(table int) (int, error) {
	schema := tableSchemas[table]
	if schema == nil {
		return 0, fmt.Errorf("metadata table 0x%02X has no known schema", table)
	}
	size := 0
	for _, col := range schema {
		switch col.kind {
		case colFixed2:
			size += 2
		case colFixed4:
			size += 4
		case colFixed8:
			size += 8
		case colString:
			size += l.stringWidth()
		case colGUID:
			size += l.guidWidth()
		case colBlob:
			size += l.blobWidth()
		case colTable:
			size += l.tableIndexWidth(col.target)
		case colCoded:
			size += l.codedIndexWidth(col.target)
		}
	}
	return size, nil
}

// streams holds the raw heap bytes needed to decode Module and
// Assembly rows.
type streams struct {
	tables  []byte
	strings []byte
	guids   []byte
}

// parseMetadata parses the CLI metadata root and extracts module and
// assembly identity. ECMA-335 II.24.2.
func parseMetadata(metadata []byte) (*Info, error) {
	s, err := parseStreamHeaders(metadata)
	if err != nil {
		return nil, err
	}
	if s.tables == nil {
		return nil, fmt.Errorf("metadata has no tables stream")
	}
	return parseTables(s)
}

// parseStreamHeaders walks the metadata root's stream directory and
// slices out the streams this package decodes. Streams it does not
// need (#Blob, #US) are skipped.
func parseStreamHeaders(metadata []byte) (*streams, error) {
	if len(metadata) < 20 {
		return nil, fmt.Errorf("metadata root is %d bytes, want at least 20", len(metadata))
	}
	if binary.LittleEndian.Uint32(metadata[0:4]) != metadataSignature {
		return nil, fmt.Errorf("metadata root has invalid signature 0x%08x", binary.LittleEndian.Uint32(metadata[0:4]))
	}

	// Skip major/minor version and reserved word, then the version
	// string (length-prefixed, padded to a 4-byte boundary).
	versionLength := binary.LittleEndian.Uint32(metadata[12:16])
	offset := 16 + int(versionLength)
	if offset+4 > len(metadata) {
		return nil, fmt.Errorf("metadata version string extends past the root")
	}

	streamCount := int(binary.LittleEndian.Uint16(metadata[offset+2 : offset+4]))
	offset += 4

	result := &streams{}
	for i := 0; i < streamCount; i++ {
		if offset+8 > len(metadata) {
			return nil, fmt.Errorf("stream header %d extends past the metadata root", i)
		}
		streamOffset := binary.LittleEndian.Uint32(metadata[offset : offset+4])
		streamSize := binary.LittleEndian.Uint32(metadata[offset+4 : offset+8])
		offset += 8

		// Stream name: null-terminated ASCII, padded to 4 bytes.
		nameStart := offset
		for offset < len(metadata) && metadata[offset] != 0 {
			offset++
		}
		if offset >= len(metadata) {
			return nil, fmt.Errorf("stream header %d has an unterminated name", i)
		}
		name := string(metadata[nameStart:offset])
		offset = nameStart + (len(name)/4+1)*4

		if uint64(streamOffset)+uint64(streamSize) > uint64(len(metadata)) {
			return nil, fmt.Errorf("stream %s extends past the metadata root", name)
		}
		data := metadata[streamOffset : streamOffset+streamSize]

		switch name {
		case "#~", "#-":
			result.tables = data
		case "#Strings":
			result.strings = data
		case "#GUID":
			result.guids = data
		}
	}
	return result, nil
}

// parseTables decodes the tables stream header, sizes every present
// table, and reads the Module row (always first) and the Assembly row
// (reached by skipping every table in between).
func parseTables(s *streams) (*Info, error) {
	data := s.tables
	if len(data) < 24 {
		return nil, fmt.Errorf("tables stream is %d bytes, want at least 24", len(data))
	}

	layout := tableLayout{
		wideString: data[6]&0x01 != 0,
		wideGUID:   data[6]&0x02 != 0,
		wideBlob:   data[6]&0x04 != 0,
	}
	valid := binary.LittleEndian.Uint64(data[8:16])

	// Row counts follow the header, one uint32 per set bit in the
	// valid mask, in table-number order.
	offset := 24
	for table := 0; table < 64; table++ {
		if valid&(1<<table) == 0 {
			continue
		}
		if offset+4 > len(data) {
			return nil, fmt.Errorf("row count for table 0x%02X extends past the tables stream", table)
		}
		count := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
		if table >= tableCount {
			return nil, fmt.Errorf("metadata contains unsupported table 0x%02X", table)
		}
		layout.rowCounts[table] = count
	}

	if valid&(1<<tableModule) == 0 || layout.rowCounts[tableModule] == 0 {
		return nil, fmt.Errorf("metadata has no Module table")
	}

	info := &Info{}

	// Module is table 0, so its first row starts immediately after
	// the row counts. Generation(2) Name(S) Mvid(G) EncId(G) EncBaseId(G).
	row := data[offset:]
	moduleSize, err := layout.rowSize(tableModule)
	if err != nil {
		return nil, err
	}
	if len(row) < moduleSize {
		return nil, fmt.Errorf("Module row extends past the tables stream")
	}
	nameIndex := readIndex(row[2:], layout.stringWidth())
	mvidIndex := readIndex(row[2+layout.stringWidth():], layout.guidWidth())

	info.ModuleName, err = stringAt(s.strings, nameIndex)
	if err != nil {
		return nil, fmt.Errorf("reading module name: %w", err)
	}
	info.Mvid, err = guidAt(s.guids, mvidIndex)
	if err != nil {
		return nil, fmt.Errorf("reading module version identifier: %w", err)
	}

	if valid&(1<<tableAssembly) == 0 || layout.rowCounts[tableAssembly] == 0 {
		// Netmodule: no assembly identity to read.
		return info, nil
	}

	// Skip every table stored before Assembly.
	for table := tableModule; table < tableAssembly; table++ {
		if layout.rowCounts[table] == 0 {
			continue
		}
		size, err := layout.rowSize(table)
		if err != nil {
			return nil, err
		}
		offset += size * int(layout.rowCounts[table])
	}

	assemblySize, err := layout.rowSize(tableAssembly)
	if err != nil {
		return nil, err
	}
	if offset+assemblySize > len(data) {
		return nil, fmt.Errorf("Assembly row extends past the tables stream")
	}
	row = data[offset:]

	// HashAlgId(4) Major(2) Minor(2) Build(2) Revision(2) Flags(4)
	// PublicKey(B) Name(S) Culture(S).
	major := binary.LittleEndian.Uint16(row[4:6])
	minor := binary.LittleEndian.Uint16(row[6:8])
	build := binary.LittleEndian.Uint16(row[8:10])
	revision := binary.LittleEndian.Uint16(row[10:12])
	assemblyNameIndex := readIndex(row[16+layout.blobWidth():], layout.stringWidth())

	info.AssemblyName, err = stringAt(s.strings, assemblyNameIndex)
	if err != nil {
		return nil, fmt.Errorf("reading assembly name: %w", err)
	}
	info.AssemblyVersion = fmt.Sprintf("%d.%d.%d.%d", major, minor, build, revision)
	return info, nil
}

// readIndex reads a 2- or 4-byte little-endian heap or table index.
func readIndex(data []byte, width int) uint32 {
	if width == 4 {
		return binary.LittleEndian.Uint32(data)
	}
	return uint32(binary.LittleEndian.Uint16(data))
}

// stringAt reads the null-terminated UTF-8 string at the given byte
// offset in the #Strings heap.
func stringAt(heap []byte, index uint32) (string, error) {
	if uint64(index) >= uint64(len(heap)) {
		return "", fmt.Errorf("string heap index %d out of range (heap is %d bytes)", index, len(heap))
	}
	end := index
	for end < uint32(len(heap)) && heap[end] != 0 {
		end++
	}
	if end == uint32(len(heap)) {
		return "", fmt.Errorf("unterminated string at heap offset %d", index)
	}
	return string(heap[index:end]), nil
}

// guidAt reads the GUID at the given 1-based index in the #GUID heap.
func guidAt(heap []byte, index uint32) (ModuleID, error) {
	if index == 0 {
		return ModuleID{}, fmt.Errorf("module has a null MVID index")
	}
	start := uint64(index-1) * 16
	if start+16 > uint64(len(heap)) {
		return ModuleID{}, fmt.Errorf("GUID heap index %d out of range (heap is %d bytes)", index, len(heap))
	}
	var id ModuleID
	copy(id[:], heap[start:start+16])
	return id, nil
}
