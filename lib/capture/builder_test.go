// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compvault/compvault/lib/binhash"
	"github.com/compvault/compvault/lib/codec"
	"github.com/compvault/compvault/lib/invocation"
	"github.com/compvault/compvault/lib/pemeta"
	"github.com/compvault/compvault/lib/pemeta/pemetest"
)

// testMvid builds a distinct 16-byte identity from a seed.
func testMvid(seed byte) [16]byte {
	var m [16]byte
	for i := range m {
		m[i] = seed + byte(i)
	}
	return m
}

// testCompiler writes a synthetic compiler assembly and returns its
// path.
func testCompiler(t *testing.T) string {
	t.Helper()
	return pemetest.Assembly{
		ModuleName:   "csc.dll",
		Mvid:         testMvid(0xC0),
		AssemblyName: "csc",
		Version:      [4]uint16{4, 9, 0, 0},
	}.Write(t, t.TempDir(), "csc.dll")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// newInvocation builds a minimal valid invocation rooted at
// projectDir.
func newInvocation(projectDir, compilerPath string) *invocation.Invocation {
	return &invocation.Invocation{
		CompilerFilePath: compilerPath,
		ProjectFilePath:  filepath.Join(projectDir, "app.csproj"),
		WorkingDirectory: projectDir,
		Language:         invocation.CSharp,
		Kind:             invocation.KindRegular,
		Arguments:        []string{"/nologo", "/target:library"},
	}
}

// capture runs the given invocations through one builder and returns
// the archive's entries by name plus the diagnostics.
func capture(t *testing.T, invs ...*invocation.Invocation) (map[string][]byte, *DiagnosticList) {
	t.Helper()
	var buf bytes.Buffer
	diags := NewDiagnosticList()
	builder := NewBuilder(&buf, diags)
	for i, inv := range invs {
		if err := builder.Add(inv); err != nil {
			t.Fatalf("adding invocation %d: %v", i, err)
		}
	}
	if err := builder.Close(); err != nil {
		t.Fatalf("closing builder: %v", err)
	}
	return readEntries(t, buf.Bytes()), diags
}

func readEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	entries := make(map[string][]byte, len(reader.File))
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading entry %s: %v", file.Name, err)
		}
		entries[file.Name] = content
	}
	return entries
}

func decodeInfoPack(t *testing.T, entries map[string][]byte, index int) CompilationInfoPack {
	t.Helper()
	raw, ok := entries[CompilationEntryName(index)]
	if !ok {
		t.Fatalf("archive has no compilation entry %d", index)
	}
	var info CompilationInfoPack
	if err := codec.Unmarshal(raw, &info); err != nil {
		t.Fatalf("decoding compilation entry %d: %v", index, err)
	}
	return info
}

func decodeDataPack(t *testing.T, entries map[string][]byte, info CompilationInfoPack) CompilationDataPack {
	t.Helper()
	raw, ok := entries[ContentEntryName(info.DataPackDigest)]
	if !ok {
		t.Fatalf("archive has no content entry for data pack digest %s", info.DataPackDigest.Hex())
	}
	var data CompilationDataPack
	if err := codec.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decoding data pack: %v", err)
	}
	return data
}

func countPrefixed(entries map[string][]byte, prefix string) int {
	n := 0
	for name := range entries {
		if strings.HasPrefix(name, prefix) {
			n++
		}
	}
	return n
}

func contentsOfKind(data CompilationDataPack, kind ContentKind) []ContentPack {
	var packs []ContentPack
	for _, record := range data.Contents {
		if record.Kind == kind {
			packs = append(packs, record.Pack)
		}
	}
	return packs
}

func TestCaptureRoundTrip(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()

	sourceText := "class Program {}\n"
	writeFile(t, project, "Program.cs", sourceText)
	writeFile(t, project, "notes.txt", "analyzer additional input\n")
	writeFile(t, project, ".editorconfig", "root = true\n")
	writeFile(t, project, "strings.resources", "resource-bytes")
	refPath := pemetest.Assembly{
		ModuleName:   "lib.dll",
		Mvid:         testMvid(0x10),
		AssemblyName: "lib",
		Version:      [4]uint16{1, 2, 3, 4},
	}.Write(t, project, "lib.dll")

	inv := newInvocation(project, compiler)
	inv.Options = invocation.Options{
		ChecksumAlgorithm:   invocation.ChecksumSHA256,
		References:          []invocation.Reference{{FilePath: refPath, Kind: "assembly"}},
		AnalyzerConfigPaths: []string{".editorconfig"},
		SourcePaths:         []string{"Program.cs"},
		AdditionalPaths:     []string{"notes.txt"},
		Resources: []invocation.Resource{{
			LogicalName: "App.strings",
			FilePath:    "strings.resources",
		}},
		AssemblyFileName: "app.dll",
		OutputDirectory:  filepath.Join(project, "bin"),
		CompilationName:  "app",
	}

	entries, diags := capture(t, inv)
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}

	var metadata Metadata
	if err := codec.Unmarshal(entries[MetadataEntryName], &metadata); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	if metadata.FormatVersion != FormatVersion {
		t.Errorf("metadata format version = %d, want %d", metadata.FormatVersion, FormatVersion)
	}
	if metadata.InvocationCount != 1 {
		t.Errorf("metadata invocation count = %d, want 1", metadata.InvocationCount)
	}

	info := decodeInfoPack(t, entries, 0)
	if info.Language != string(invocation.CSharp) {
		t.Errorf("info language = %q, want %q", info.Language, invocation.CSharp)
	}
	if info.CompilerAssemblyName != "csc" {
		t.Errorf("compiler assembly name = %q, want csc", info.CompilerAssemblyName)
	}
	if info.CompilerVersion != "4.9.0.0" {
		t.Errorf("compiler version = %q, want 4.9.0.0", info.CompilerVersion)
	}
	if info.CompilerBuildID.IsZero() {
		t.Error("compiler build ID is zero")
	}
	if _, ok := entries[ContentEntryName(info.ArgumentsDigest)]; !ok {
		t.Error("arguments record missing from content store")
	}
	if _, ok := entries[ContentEntryName(info.OptionsDigest)]; !ok {
		t.Error("options record missing from content store")
	}

	data := decodeDataPack(t, entries, info)
	if data.ChecksumAlgorithm != string(invocation.ChecksumSHA256) {
		t.Errorf("checksum algorithm = %q, want sha256", data.ChecksumAlgorithm)
	}
	if data.Values[ValueAssemblyFileName] != "app.dll" {
		t.Errorf("value %s = %q, want app.dll", ValueAssemblyFileName, data.Values[ValueAssemblyFileName])
	}
	if data.Values[ValueCompilationName] != "app" {
		t.Errorf("value %s = %q, want app", ValueCompilationName, data.Values[ValueCompilationName])
	}

	sources := contentsOfKind(data, ContentSourceText)
	if len(sources) != 1 {
		t.Fatalf("got %d source records, want 1", len(sources))
	}
	if want := binhash.HashBytes([]byte(sourceText)); sources[0].Digest != want {
		t.Errorf("source digest = %s, want %s", sources[0].Digest.Hex(), want.Hex())
	}
	if got := string(entries[ContentEntryName(sources[0].Digest)]); got != sourceText {
		t.Errorf("source content = %q, want %q", got, sourceText)
	}
	if len(contentsOfKind(data, ContentAdditionalText)) != 1 {
		t.Error("missing additional-text record")
	}
	if len(contentsOfKind(data, ContentAnalyzerConfig)) != 1 {
		t.Error("missing analyzer-config record")
	}

	if len(data.References) != 1 {
		t.Fatalf("got %d references, want 1", len(data.References))
	}
	if want := pemeta.ModuleID(testMvid(0x10)); data.References[0].Mvid != want {
		t.Errorf("reference mvid = %s, want %s", data.References[0].Mvid.Hex(), want.Hex())
	}
	if _, ok := entries[ModuleEntryName(data.References[0].Mvid)]; !ok {
		t.Error("referenced module missing from module store")
	}

	if len(data.Resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(data.Resources))
	}
	if data.Resources[0].LogicalName != "App.strings" {
		t.Errorf("resource logical name = %q", data.Resources[0].LogicalName)
	}
	if got := string(entries[ContentEntryName(data.Resources[0].Digest)]); got != "resource-bytes" {
		t.Errorf("resource content = %q", got)
	}

	manifest := string(entries[ManifestEntryName])
	wantLine := "lib.dll:" + data.References[0].Mvid.Hex() + ":lib, Version=1.2.3.4\n"
	if manifest != wantLine {
		t.Errorf("manifest = %q, want %q", manifest, wantLine)
	}
}

func TestContentDeduplication(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	writeFile(t, project, "a.cs", "// same bytes\n")
	writeFile(t, project, "b.cs", "// same bytes\n")

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"a.cs", "b.cs"}

	// Adding the same invocation twice exercises cross-invocation
	// dedup as well: every artifact digest is already present.
	var buf bytes.Buffer
	diags := NewDiagnosticList()
	builder := NewBuilder(&buf, diags)
	if err := builder.Add(inv); err != nil {
		t.Fatalf("adding first invocation: %v", err)
	}
	if err := builder.Add(inv); err != nil {
		t.Fatalf("adding second invocation: %v", err)
	}
	if err := builder.Close(); err != nil {
		t.Fatalf("closing builder: %v", err)
	}
	entries := readEntries(t, buf.Bytes())

	info0 := decodeInfoPack(t, entries, 0)
	info1 := decodeInfoPack(t, entries, 1)
	if info0.DataPackDigest != info1.DataPackDigest {
		t.Error("identical invocations produced different data pack digests")
	}
	data := decodeDataPack(t, entries, info0)
	sources := contentsOfKind(data, ContentSourceText)
	if len(sources) != 2 {
		t.Fatalf("got %d source records, want 2", len(sources))
	}
	if sources[0].Digest != sources[1].Digest {
		t.Error("identical source bytes produced different digests")
	}

	// One unique source blob plus the serialized arguments, options,
	// and data pack: four distinct blobs total, no matter how often
	// each was presented.
	if got := countPrefixed(entries, "content/"); got != 4 {
		t.Errorf("content store holds %d entries, want 4", got)
	}
}

func TestModuleDeduplicationAcrossPaths(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	module := pemetest.Assembly{
		ModuleName:   "shared.dll",
		Mvid:         testMvid(0x40),
		AssemblyName: "shared",
		Version:      [4]uint16{1, 0, 0, 0},
	}
	pathA := module.Write(t, project, "shared.dll")
	subdir := filepath.Join(project, "copies")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatalf("creating copies dir: %v", err)
	}
	pathB := module.Write(t, subdir, "shared.dll")

	invA := newInvocation(project, compiler)
	invA.Options.References = []invocation.Reference{{FilePath: pathA}}
	invB := newInvocation(project, compiler)
	invB.Options.References = []invocation.Reference{{FilePath: pathB}}

	entries, diags := capture(t, invA, invB)
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}
	if got := countPrefixed(entries, "modules/"); got != 1 {
		t.Errorf("module store holds %d entries, want 1", got)
	}

	dataA := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	dataB := decodeDataPack(t, entries, decodeInfoPack(t, entries, 1))
	if dataA.References[0].Mvid != dataB.References[0].Mvid {
		t.Error("same module at two paths got two identities")
	}
	if lines := strings.Count(string(entries[ManifestEntryName]), "\n"); lines != 1 {
		t.Errorf("manifest has %d lines, want 1", lines)
	}
}

func TestManifestSorted(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	var refs []invocation.Reference
	for i, name := range []string{"zeta.dll", "alpha.dll", "mid.dll"} {
		path := pemetest.Assembly{
			ModuleName:   name,
			Mvid:         testMvid(byte(0x50 + 16*i)),
			AssemblyName: strings.TrimSuffix(name, ".dll"),
			Version:      [4]uint16{1, 0, 0, 0},
		}.Write(t, project, name)
		refs = append(refs, invocation.Reference{FilePath: path})
	}
	inv := newInvocation(project, compiler)
	inv.Options.References = refs

	entries, _ := capture(t, inv)
	manifest := strings.TrimSuffix(string(entries[ManifestEntryName]), "\n")
	lines := strings.Split(manifest, "\n")
	if len(lines) != 3 {
		t.Fatalf("manifest has %d lines, want 3", len(lines))
	}
	var names []string
	for _, line := range lines {
		fields := strings.SplitN(line, ":", 3)
		if len(fields) != 3 {
			t.Fatalf("malformed manifest line %q", line)
		}
		names = append(names, fields[0])
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("manifest not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestCloseSemantics(t *testing.T) {
	var buf bytes.Buffer
	builder := NewBuilder(&buf, NewDiagnosticList())
	if err := builder.Close(); err != nil {
		t.Fatalf("closing empty builder: %v", err)
	}
	if err := builder.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := builder.Add(newInvocation(t.TempDir(), "csc.dll")); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after Close = %v, want ErrClosed", err)
	}

	// An empty archive still carries metadata and an empty manifest.
	entries := readEntries(t, buf.Bytes())
	var metadata Metadata
	if err := codec.Unmarshal(entries[MetadataEntryName], &metadata); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	if metadata.InvocationCount != 0 {
		t.Errorf("invocation count = %d, want 0", metadata.InvocationCount)
	}
	if manifest, ok := entries[ManifestEntryName]; !ok || len(manifest) != 0 {
		t.Errorf("manifest = %q, want present and empty", manifest)
	}
}

func TestMissingSourceBecomesDiagnostic(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	writeFile(t, project, "present.cs", "class A {}\n")

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"present.cs", "missing.cs"}

	entries, diags := capture(t, inv)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", diags.Len(), diags.Entries())
	}
	if !strings.Contains(diags.Entries()[0], "missing.cs") {
		t.Errorf("diagnostic %q does not name the missing file", diags.Entries()[0])
	}

	// The invocation is still captured with the readable artifact.
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	sources := contentsOfKind(data, ContentSourceText)
	if len(sources) != 1 {
		t.Fatalf("got %d source records, want 1", len(sources))
	}
	if !strings.HasSuffix(sources[0].FilePath, "present.cs") {
		t.Errorf("captured source = %q, want present.cs", sources[0].FilePath)
	}
}

func TestGeneratedFilesIncomplete(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	good := writeFile(t, project, "obj", "// generated\n")

	inv := newInvocation(project, compiler)
	inv.Options.Generated = invocation.GeneratedRecord{
		EmbeddedInDebugData: true,
		Files: []invocation.GeneratedFile{
			{Name: "Good.g.cs", FilePath: good},
			{Name: "Gone.g.cs", FilePath: filepath.Join(project, "nope")},
		},
	}

	entries, diags := capture(t, inv)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", diags.Len(), diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if !data.GeneratedFromRecord {
		t.Error("generatedFromRecord = false, want true")
	}
	if data.GeneratedComplete {
		t.Error("generatedComplete = true, want false")
	}
	generated := contentsOfKind(data, ContentGeneratedText)
	if len(generated) != 1 {
		t.Fatalf("got %d generated records, want 1", len(generated))
	}
	if generated[0].FilePath != "Good.g.cs" {
		t.Errorf("generated record path = %q, want hint name Good.g.cs", generated[0].FilePath)
	}
}

func TestGeneratedNotEmbedded(t *testing.T) {
	compiler := testCompiler(t)
	inv := newInvocation(t.TempDir(), compiler)
	inv.Options.Generated = invocation.GeneratedRecord{
		Files: []invocation.GeneratedFile{{Name: "X.g.cs", FilePath: "/does/not/matter"}},
	}

	entries, diags := capture(t, inv)
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if data.GeneratedFromRecord || data.GeneratedComplete {
		t.Error("generated flags set without embedded debug data")
	}
	if len(contentsOfKind(data, ContentGeneratedText)) != 0 {
		t.Error("generated content captured without embedded debug data")
	}
}

func TestEmbeddedSourceLineDirectives(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	writeFile(t, project, "Designer.cs", "partial class F {}\n")
	source := "#line 1 \"Designer.cs\"\nclass F {}\n#line default\n"
	writeFile(t, project, "Form.cs", source)

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"Form.cs"}
	inv.Options.EmbeddedPaths = []string{"Form.cs"}

	entries, diags := capture(t, inv)
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if len(contentsOfKind(data, ContentEmbed)) != 1 {
		t.Error("missing embed record")
	}
	targets := contentsOfKind(data, ContentEmbedLine)
	if len(targets) != 1 {
		t.Fatalf("got %d embed-line records, want 1", len(targets))
	}
	if !strings.HasSuffix(targets[0].FilePath, "Designer.cs") {
		t.Errorf("embed-line target = %q, want Designer.cs", targets[0].FilePath)
	}
}

func TestAbsoluteLineDirectiveTarget(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	outside := writeFile(t, t.TempDir(), "machine.cs", "class M {}\n")
	source := "#line 1 \"" + outside + "\"\nclass F {}\n"
	writeFile(t, project, "Form.cs", source)

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"Form.cs"}
	inv.Options.EmbeddedPaths = []string{"Form.cs"}

	entries, diags := capture(t, inv)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want exactly 1: %v", diags.Len(), diags.Entries())
	}
	if !strings.Contains(diags.Entries()[0], outside) {
		t.Errorf("diagnostic %q does not name the target path", diags.Entries()[0])
	}

	// The target is readable, so it is still captured despite being
	// unrelocatable.
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	targets := contentsOfKind(data, ContentEmbedLine)
	if len(targets) != 1 {
		t.Fatalf("got %d embed-line records, want 1", len(targets))
	}
	if targets[0].FilePath != outside {
		t.Errorf("embed-line target = %q, want %q", targets[0].FilePath, outside)
	}
}

func TestUnreadableAbsoluteTargetSingleDiagnostic(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone.cs")
	source := "#line 1 \"" + missing + "\"\nclass F {}\n"
	writeFile(t, project, "Form.cs", source)

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"Form.cs"}
	inv.Options.EmbeddedPaths = []string{"Form.cs"}

	entries, diags := capture(t, inv)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want exactly 1: %v", diags.Len(), diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if len(contentsOfKind(data, ContentEmbedLine)) != 0 {
		t.Error("unreadable target produced an embed-line record")
	}
}

func TestPathMapReversal(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	writeFile(t, project, "Designer.cs", "partial class F {}\n")
	source := "#line 1 \"/_/Designer.cs\"\nclass F {}\n"
	writeFile(t, project, "Form.cs", source)

	inv := newInvocation(project, compiler)
	inv.Options.SourcePaths = []string{"Form.cs"}
	inv.Options.EmbeddedPaths = []string{"Form.cs"}
	inv.Options.PathMap = []invocation.PathMapEntry{{From: project, To: "/_"}}

	// The raw target is absolute, so export gets warned even though
	// the path map brings it back under the project directory; the
	// content is still captured.
	entries, diags := capture(t, inv)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", diags.Len(), diags.Entries())
	}
	if !strings.Contains(diags.Entries()[0], "/_/Designer.cs") {
		t.Errorf("diagnostic %q does not name the raw target", diags.Entries()[0])
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	targets := contentsOfKind(data, ContentEmbedLine)
	if len(targets) != 1 {
		t.Fatalf("got %d embed-line records, want 1", len(targets))
	}
	if want := filepath.Join(project, "Designer.cs"); targets[0].FilePath != want {
		t.Errorf("mapped target = %q, want %q", targets[0].FilePath, want)
	}
}

func TestUnreadableReference(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	notPE := writeFile(t, project, "bogus.dll", "not a portable executable")

	inv := newInvocation(project, compiler)
	inv.Options.References = []invocation.Reference{
		{FilePath: notPE},
		{FilePath: filepath.Join(project, "absent.dll")},
	}

	entries, diags := capture(t, inv)
	if diags.Len() != 2 {
		t.Fatalf("got %d diagnostics, want 2: %v", diags.Len(), diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if len(data.References) != 0 {
		t.Errorf("got %d reference records, want 0", len(data.References))
	}
	if got := countPrefixed(entries, "modules/"); got != 0 {
		t.Errorf("module store holds %d entries, want 0", got)
	}
}

func TestCompilerIdentityResolvedOnce(t *testing.T) {
	project := t.TempDir()
	badCompiler := writeFile(t, project, "csc.dll", "not a compiler")

	invA := newInvocation(project, badCompiler)
	invB := newInvocation(project, badCompiler)

	entries, diags := capture(t, invA, invB)
	if diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1 (memoized failure): %v", diags.Len(), diags.Entries())
	}
	for i := 0; i < 2; i++ {
		info := decodeInfoPack(t, entries, i)
		if info.CompilerAssemblyName != "" || !info.CompilerBuildID.IsZero() {
			t.Errorf("invocation %d has compiler identity despite unreadable binary", i)
		}
	}
}

func TestSingleOptionalFiles(t *testing.T) {
	compiler := testCompiler(t)
	project := t.TempDir()
	writeFile(t, project, "sourcelink.json", "{\"documents\":{}}\n")
	writeFile(t, project, "rules.ruleset", "<RuleSet/>\n")

	inv := newInvocation(project, compiler)
	inv.Options.SourceLinkPath = "sourcelink.json"
	inv.Options.RuleSetPath = "rules.ruleset"

	entries, diags := capture(t, inv)
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}
	data := decodeDataPack(t, entries, decodeInfoPack(t, entries, 0))
	if len(contentsOfKind(data, ContentSourceLink)) != 1 {
		t.Error("missing source-link record")
	}
	if len(contentsOfKind(data, ContentRuleSet)) != 1 {
		t.Error("missing rule-set record")
	}
	if len(contentsOfKind(data, ContentAppConfig)) != 0 {
		t.Error("unexpected app-config record for unset path")
	}
}
