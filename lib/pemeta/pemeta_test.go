// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package pemeta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compvault/compvault/lib/pemeta/pemetest"
)

var testMvid = [16]byte{
	0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04,
	0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C,
}

func TestReadAssemblyIdentity(t *testing.T) {
	image := pemetest.Assembly{
		ModuleName:   "app.dll",
		Mvid:         testMvid,
		AssemblyName: "app",
		Version:      [4]uint16{4, 2, 100, 7},
	}.Build()

	info, err := Read(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if info.ModuleName != "app.dll" {
		t.Errorf("ModuleName = %q, want %q", info.ModuleName, "app.dll")
	}
	if info.Mvid != ModuleID(testMvid) {
		t.Errorf("Mvid = %s, want %s", info.Mvid.Hex(), ModuleID(testMvid).Hex())
	}
	if info.AssemblyName != "app" {
		t.Errorf("AssemblyName = %q, want %q", info.AssemblyName, "app")
	}
	if info.AssemblyVersion != "4.2.100.7" {
		t.Errorf("AssemblyVersion = %q, want %q", info.AssemblyVersion, "4.2.100.7")
	}
	if got, want := info.Identity(), "app, Version=4.2.100.7"; got != want {
		t.Errorf("Identity() = %q, want %q", got, want)
	}
}

func TestReadSkipsIntermediateTables(t *testing.T) {
	// TypeRef and TypeDef rows sit between Module and Assembly; the
	// reader must size and skip them to land on the Assembly row.
	image := pemetest.Assembly{
		ModuleName:   "lib.dll",
		Mvid:         testMvid,
		AssemblyName: "lib",
		Version:      [4]uint16{1, 0, 0, 0},
		ExtraTables:  true,
	}.Build()

	info, err := Read(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.AssemblyName != "lib" {
		t.Errorf("AssemblyName = %q, want %q", info.AssemblyName, "lib")
	}
	if info.AssemblyVersion != "1.0.0.0" {
		t.Errorf("AssemblyVersion = %q, want %q", info.AssemblyVersion, "1.0.0.0")
	}
	if info.Mvid != ModuleID(testMvid) {
		t.Errorf("Mvid = %s, want %s", info.Mvid.Hex(), ModuleID(testMvid).Hex())
	}
}

func TestReadNetmodule(t *testing.T) {
	image := pemetest.Assembly{
		ModuleName: "part.netmodule",
		Mvid:       testMvid,
	}.Build()

	info, err := Read(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.AssemblyName != "" {
		t.Errorf("netmodule AssemblyName = %q, want empty", info.AssemblyName)
	}
	if got, want := info.Identity(), "part.netmodule"; got != want {
		t.Errorf("Identity() = %q, want %q", got, want)
	}
	if info.Mvid != ModuleID(testMvid) {
		t.Errorf("Mvid = %s, want %s", info.Mvid.Hex(), ModuleID(testMvid).Hex())
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := pemetest.Assembly{
		ModuleName:   "disk.dll",
		Mvid:         testMvid,
		AssemblyName: "disk",
		Version:      [4]uint16{2, 1, 0, 0},
	}.Write(t, dir, "disk.dll")

	info, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if info.AssemblyName != "disk" {
		t.Errorf("AssemblyName = %q, want %q", info.AssemblyName, "disk")
	}
}

func TestReadFileRejectsNonPE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("this is not a PE file"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	if _, err := ReadFile(path); err == nil {
		t.Fatal("ReadFile succeeded on a text file")
	}
}

func TestParseMetadataRejectsBadSignature(t *testing.T) {
	bad := make([]byte, 64)
	if _, err := parseMetadata(bad); err == nil {
		t.Fatal("parseMetadata accepted a zeroed metadata root")
	}
	if _, err := parseMetadata(bad); err != nil && !strings.Contains(err.Error(), "signature") {
		t.Errorf("error %q does not mention the signature", err)
	}
}

func TestParseModuleIDRoundtrip(t *testing.T) {
	original := ModuleID(testMvid)

	parsed, err := ParseModuleID(original.Hex())
	if err != nil {
		t.Fatalf("ParseModuleID: %v", err)
	}
	if parsed != original {
		t.Error("ParseModuleID did not reproduce the original identity")
	}

	if _, err := ParseModuleID("abcd"); err == nil {
		t.Error("ParseModuleID accepted a short string")
	}
}

func TestModuleIDTextRoundtrip(t *testing.T) {
	original := ModuleID(testMvid)

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var decoded ModuleID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != original {
		t.Error("text roundtrip did not reproduce the original identity")
	}
}
