// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package invocation

// Options is the structured form of a resolved argument list: the
// parse/compilation/emit option bundles plus every input artifact
// list. The capture builder serializes this whole struct (CBOR) into
// the archive's content store as the options bundle.
type Options struct {
	Parse       ParseOptions       `json:"parse"`
	Compilation CompilationOptions `json:"compilation"`
	Emit        EmitOptions        `json:"emit"`

	// ChecksumAlgorithm is the source checksum algorithm for debug
	// information.
	ChecksumAlgorithm ChecksumAlgorithm `json:"checksumAlgorithm,omitempty"`

	// References are the metadata references, in command-line order.
	References []Reference `json:"references,omitempty"`

	// Analyzers are the analyzer/generator assemblies.
	Analyzers []Analyzer `json:"analyzers,omitempty"`

	// AnalyzerConfigPaths are .editorconfig-style analyzer config
	// files.
	AnalyzerConfigPaths []string `json:"analyzerConfigPaths,omitempty"`

	// SourcePaths are the compiled source files.
	SourcePaths []string `json:"sourcePaths,omitempty"`

	// AdditionalPaths are non-compiled additional files visible to
	// analyzers.
	AdditionalPaths []string `json:"additionalPaths,omitempty"`

	// EmbeddedPaths are files embedded verbatim into the debug
	// output.
	EmbeddedPaths []string `json:"embeddedPaths,omitempty"`

	// Resources are the managed resources.
	Resources []Resource `json:"resources,omitempty"`

	// Generated records source-generator output captured by the
	// resolver from the invocation's companion debug data.
	Generated GeneratedRecord `json:"generated,omitempty"`

	// PathMap is the compiler's path-mapping rules (/pathmap), applied
	// when resolving line-directive targets.
	PathMap []PathMapEntry `json:"pathMap,omitempty"`

	// Scalar output values.
	AssemblyFileName string `json:"assemblyFileName,omitempty"`
	XmlDocPath       string `json:"xmlDocPath,omitempty"`
	OutputDirectory  string `json:"outputDirectory,omitempty"`
	CompilationName  string `json:"compilationName,omitempty"`

	// Single optional input files, each empty when the invocation did
	// not specify one.
	SourceLinkPath    string `json:"sourceLinkPath,omitempty"`
	RuleSetPath       string `json:"ruleSetPath,omitempty"`
	AppConfigPath     string `json:"appConfigPath,omitempty"`
	Win32ResourcePath string `json:"win32ResourcePath,omitempty"`
	Win32IconPath     string `json:"win32IconPath,omitempty"`
	Win32ManifestPath string `json:"win32ManifestPath,omitempty"`
	CryptoKeyFilePath string `json:"cryptoKeyFilePath,omitempty"`
}

// ParseOptions are the frontend parsing options.
type ParseOptions struct {
	// LanguageVersion is the language version label, e.g. "13.0" or
	// "latest".
	LanguageVersion string `json:"languageVersion,omitempty"`

	// PreprocessorSymbols are the defined conditional symbols.
	PreprocessorSymbols []string `json:"preprocessorSymbols,omitempty"`

	// DocumentationMode controls XML doc comment parsing: "none",
	// "parse", or "diagnose".
	DocumentationMode string `json:"documentationMode,omitempty"`

	// Features are experimental feature flags passed via /features.
	Features map[string]string `json:"features,omitempty"`
}

// CompilationOptions are the language-independent compilation options.
type CompilationOptions struct {
	// OutputKind is the produced binary kind: "exe", "winexe",
	// "library", "module", "winmdobj", "appcontainerexe".
	OutputKind string `json:"outputKind,omitempty"`

	// Platform is the target platform, e.g. "anycpu", "x64".
	Platform string `json:"platform,omitempty"`

	// OptimizationLevel is "debug" or "release".
	OptimizationLevel string `json:"optimizationLevel,omitempty"`

	// Deterministic reports whether /deterministic was in effect.
	Deterministic bool `json:"deterministic,omitempty"`

	// AllowUnsafe reports whether unsafe code was allowed (C# only).
	AllowUnsafe bool `json:"allowUnsafe,omitempty"`

	// Nullable is the nullable annotation context: "enable",
	// "disable", "warnings", "annotations" (C# only).
	Nullable string `json:"nullable,omitempty"`

	// RootNamespace is the project root namespace (VB only).
	RootNamespace string `json:"rootNamespace,omitempty"`

	// OptionStrict and OptionExplicit are the VB dialect switches.
	OptionStrict   bool `json:"optionStrict,omitempty"`
	OptionExplicit bool `json:"optionExplicit,omitempty"`

	// WarningLevel is the compiler warning level.
	WarningLevel int `json:"warningLevel,omitempty"`

	// PublicSign reports whether the output was public-signed.
	PublicSign bool `json:"publicSign,omitempty"`
}

// EmitOptions are the options controlling emitted artifacts.
type EmitOptions struct {
	// DebugInformationFormat is "full", "pdbonly", "portable", or
	// "embedded".
	DebugInformationFormat string `json:"debugInformationFormat,omitempty"`

	// PdbFilePath is the configured PDB output path.
	PdbFilePath string `json:"pdbFilePath,omitempty"`

	// HighEntropyVirtualAddressSpace mirrors /highentropyva.
	HighEntropyVirtualAddressSpace bool `json:"highEntropyVirtualAddressSpace,omitempty"`

	// SubsystemVersion is the PE subsystem version, e.g. "6.02".
	SubsystemVersion string `json:"subsystemVersion,omitempty"`

	// FileAlignment is the PE file alignment.
	FileAlignment int `json:"fileAlignment,omitempty"`

	// TolerateErrors reports whether emit continued past errors.
	TolerateErrors bool `json:"tolerateErrors,omitempty"`
}

// Reference is one metadata reference.
type Reference struct {
	// FilePath is the reference assembly or module path.
	FilePath string `json:"filePath"`

	// Kind is "assembly" or "module".
	Kind string `json:"kind,omitempty"`

	// EmbedInteropTypes mirrors /link vs /reference.
	EmbedInteropTypes bool `json:"embedInteropTypes,omitempty"`

	// Aliases are extern alias names, empty for the global alias.
	Aliases []string `json:"aliases,omitempty"`
}

// Analyzer is one analyzer or source-generator assembly.
type Analyzer struct {
	// FilePath is the analyzer assembly path.
	FilePath string `json:"filePath"`
}

// Resource is one managed resource.
type Resource struct {
	// LogicalName is the name the resource is visible under at
	// runtime.
	LogicalName string `json:"logicalName"`

	// FileName is the on-disk file name recorded for linked
	// resources.
	FileName string `json:"fileName,omitempty"`

	// Public reports whether the resource accessor is public.
	Public bool `json:"public,omitempty"`

	// FilePath is where the resource bytes come from.
	FilePath string `json:"filePath"`
}

// GeneratedRecord is the resolver's capture of source-generator
// output. When the build embedded generator output in the companion
// debug data, the resolver extracts it and records where each
// generated document's content lives; the capture builder then reads
// those files instead of re-running generators.
type GeneratedRecord struct {
	// EmbeddedInDebugData reports whether the invocation's debug data
	// carried generator output at all. When false, generated content
	// is simply not captured.
	EmbeddedInDebugData bool `json:"embeddedInDebugData,omitempty"`

	// Files are the extracted generated documents.
	Files []GeneratedFile `json:"files,omitempty"`
}

// GeneratedFile is one generated document.
type GeneratedFile struct {
	// Name is the generator-assigned hint name.
	Name string `json:"name"`

	// FilePath is where the resolver materialized the document's
	// content.
	FilePath string `json:"filePath"`
}

// PathMapEntry is one /pathmap:<from>=<to> rule.
type PathMapEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}
