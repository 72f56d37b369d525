// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"

	"github.com/compvault/compvault/lib/binhash"
	"github.com/compvault/compvault/lib/pemeta"
)

// FormatVersion is the archive format version written into the
// metadata entry. Readers refuse archives with a higher version.
const FormatVersion = 1

// Archive entry names. These are the interop contract: any
// implementation reading or writing capture archives uses exactly
// these names.
const (
	// MetadataEntryName holds the CBOR Metadata record.
	MetadataEntryName = "metadata"

	// ManifestEntryName holds the module manifest text.
	ManifestEntryName = "manifest"
)

// CompilationEntryName returns the entry name for the info pack of
// the invocation added at the given zero-based index.
func CompilationEntryName(index int) string {
	return fmt.Sprintf("compilations/%d", index)
}

// ContentEntryName returns the entry name for the content blob with
// the given digest.
func ContentEntryName(digest binhash.Digest) string {
	return "content/" + digest.Hex()
}

// ModuleEntryName returns the entry name for the module blob with
// the given identity.
func ModuleEntryName(id pemeta.ModuleID) string {
	return "modules/" + id.Hex()
}

// Metadata is the archive-level record written at Close.
type Metadata struct {
	FormatVersion   int `json:"formatVersion"`
	InvocationCount int `json:"invocationCount"`
}

// ContentKind classifies a raw-content record in a data pack.
type ContentKind string

const (
	ContentSourceText     ContentKind = "sourceText"
	ContentAdditionalText ContentKind = "additionalText"
	ContentAnalyzerConfig ContentKind = "analyzerConfig"
	ContentGeneratedText  ContentKind = "generatedText"
	ContentEmbed          ContentKind = "embed"
	ContentEmbedLine      ContentKind = "embedLine"
	ContentSourceLink     ContentKind = "sourceLink"
	ContentRuleSet        ContentKind = "ruleSet"
	ContentAppConfig      ContentKind = "appConfig"
	ContentWin32Resource  ContentKind = "win32Resource"
	ContentWin32Icon      ContentKind = "win32Icon"
	ContentWin32Manifest  ContentKind = "win32Manifest"
	ContentCryptoKeyFile  ContentKind = "cryptoKeyFile"
)

// ContentPack points at one blob in the content store. The digest is
// the identity; the file path is provenance only and never
// participates in identity or dedup.
type ContentPack struct {
	Digest   binhash.Digest `json:"digest"`
	FilePath string         `json:"filePath,omitempty"`
}

// ContentRecord is one (kind, content) pair in a data pack's ordered
// content list.
type ContentRecord struct {
	Kind ContentKind `json:"kind"`
	Pack ContentPack `json:"pack"`
}

// ReferencePack describes one metadata reference by module identity.
type ReferencePack struct {
	Mvid              pemeta.ModuleID `json:"mvid"`
	Kind              string          `json:"kind,omitempty"`
	EmbedInteropTypes bool            `json:"embedInteropTypes,omitempty"`
	Aliases           []string        `json:"aliases,omitempty"`
}

// AnalyzerPack describes one analyzer assembly by module identity.
type AnalyzerPack struct {
	Mvid     pemeta.ModuleID `json:"mvid"`
	FilePath string          `json:"filePath,omitempty"`
}

// ResourcePack describes one managed resource by content digest.
type ResourcePack struct {
	Digest      binhash.Digest `json:"digest"`
	LogicalName string         `json:"logicalName"`
	FileName    string         `json:"fileName,omitempty"`
	Public      bool           `json:"public,omitempty"`
}

// Value map keys in a data pack. The value map carries the scalar
// outputs an offline reader needs to reconstruct a compilation's
// shape without re-parsing options.
const (
	ValueAssemblyFileName = "assemblyFileName"
	ValueXmlDocPath       = "xmlDocPath"
	ValueOutputDirectory  = "outputDirectory"
	ValueCompilationName  = "compilationName"
)

// CompilationDataPack is the per-invocation record of every input
// artifact, written into the content store and referenced from the
// info pack. One instance per invocation; never mutated after write.
type CompilationDataPack struct {
	// Values is the scalar value map (see the Value* keys).
	Values map[string]string `json:"values"`

	// ChecksumAlgorithm is the configured source checksum algorithm.
	ChecksumAlgorithm string `json:"checksumAlgorithm,omitempty"`

	// References, Analyzers, and Resources are the descriptor lists,
	// in command-line order.
	References []ReferencePack `json:"references,omitempty"`
	Analyzers  []AnalyzerPack  `json:"analyzers,omitempty"`
	Resources  []ResourcePack  `json:"resources,omitempty"`

	// Contents is the ordered (kind, content) list covering every raw
	// artifact. Order follows the packer's fixed extraction order.
	Contents []ContentRecord `json:"contents,omitempty"`

	// GeneratedFromRecord reports whether generator output capture
	// was attempted from the invocation's own record (its companion
	// debug data), avoiding a generator re-run on replay.
	// GeneratedComplete reports whether that capture read every
	// generated document successfully.
	GeneratedFromRecord bool `json:"generatedFromRecord"`
	GeneratedComplete   bool `json:"generatedComplete"`
}

// CompilationInfoPack is the top-level per-invocation record stored
// as a compilations/<N> entry. The three digests point into the
// content store at the CBOR-serialized argument list, options bundle,
// and data pack.
type CompilationInfoPack struct {
	ProjectFilePath  string `json:"projectFilePath"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	CompilerFilePath string `json:"compilerFilePath"`
	Language         string `json:"language"`
	TargetFramework  string `json:"targetFramework,omitempty"`
	Kind             string `json:"kind,omitempty"`

	// Compiler identity, resolved once per compiler path. Zero/empty
	// when the compiler binary's metadata could not be read (a
	// diagnostic records why).
	CompilerAssemblyName string          `json:"compilerAssemblyName,omitempty"`
	CompilerVersion      string          `json:"compilerVersion,omitempty"`
	CompilerBuildID      pemeta.ModuleID `json:"compilerBuildId,omitempty"`

	ArgumentsDigest binhash.Digest `json:"argumentsDigest"`
	OptionsDigest   binhash.Digest `json:"optionsDigest"`
	DataPackDigest  binhash.Digest `json:"dataPackDigest"`
}
