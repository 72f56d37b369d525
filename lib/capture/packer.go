// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/compvault/compvault/lib/invocation"
)

// contentKindLabels are the human-readable artifact names used in
// diagnostics.
var contentKindLabels = map[ContentKind]string{
	ContentSourceText:     "source file",
	ContentAdditionalText: "additional file",
	ContentAnalyzerConfig: "analyzer config file",
	ContentGeneratedText:  "generated file",
	ContentEmbed:          "embedded file",
	ContentSourceLink:     "source link file",
	ContentRuleSet:        "rule set file",
	ContentAppConfig:      "app config file",
	ContentWin32Resource:  "win32 resource file",
	ContentWin32Icon:      "win32 icon file",
	ContentWin32Manifest:  "win32 manifest file",
	ContentCryptoKeyFile:  "crypto key file",
}

// packInvocation extracts every input category of inv into a
// CompilationDataPack, stores the serialized argument list, options
// bundle, and data pack in the content store, and returns the info
// pack referencing them.
//
// The category order below is fixed. It determines diagnostic order
// and makes repeated captures of the same invocation deterministic in
// what gets hashed; readers may also rely on the content-list layout.
// Do not reorder.
func (b *Builder) packInvocation(inv *invocation.Invocation) (*CompilationInfoPack, error) {
	opts := &inv.Options
	compiler := b.resolveCompiler(inv.CompilerFilePath)

	// 1. Scalar values and checksum algorithm.
	data := &CompilationDataPack{
		Values: map[string]string{
			ValueAssemblyFileName: opts.AssemblyFileName,
			ValueXmlDocPath:       opts.XmlDocPath,
			ValueOutputDirectory:  opts.OutputDirectory,
			ValueCompilationName:  opts.CompilationName,
		},
		ChecksumAlgorithm: string(opts.ChecksumAlgorithm),
	}

	// 2. References.
	for _, ref := range opts.References {
		path := inv.ResolvePath(ref.FilePath)
		id, err := b.addModule(path)
		if err != nil {
			if !isSourceReadError(err) {
				return nil, err
			}
			b.diags.Add("unable to read reference %s: %v", path, err)
			continue
		}
		data.References = append(data.References, ReferencePack{
			Mvid:              id,
			Kind:              ref.Kind,
			EmbedInteropTypes: ref.EmbedInteropTypes,
			Aliases:           ref.Aliases,
		})
	}

	// 3. Analyzers.
	for _, analyzer := range opts.Analyzers {
		path := inv.ResolvePath(analyzer.FilePath)
		id, err := b.addModule(path)
		if err != nil {
			if !isSourceReadError(err) {
				return nil, err
			}
			b.diags.Add("unable to read analyzer %s: %v", path, err)
			continue
		}
		data.Analyzers = append(data.Analyzers, AnalyzerPack{Mvid: id, FilePath: path})
	}

	// 4. Analyzer config files.
	for _, path := range opts.AnalyzerConfigPaths {
		if err := b.packFile(inv, data, ContentAnalyzerConfig, path); err != nil {
			return nil, err
		}
	}

	// 5. Generated files: attempted only when the invocation's own
	// record says generator output was embedded in its companion
	// debug data. A read failure degrades to "incomplete" with a
	// diagnostic rather than failing the invocation.
	if opts.Generated.EmbeddedInDebugData {
		data.GeneratedFromRecord = true
		data.GeneratedComplete = true
		for _, generated := range opts.Generated.Files {
			raw, readErr := os.ReadFile(generated.FilePath)
			if readErr != nil {
				b.diags.Add("unable to read generated file %s (%s): %v", generated.Name, generated.FilePath, readErr)
				data.GeneratedComplete = false
				continue
			}
			digest, err := b.addContent(raw)
			if err != nil {
				return nil, err
			}
			data.Contents = append(data.Contents, ContentRecord{
				Kind: ContentGeneratedText,
				Pack: ContentPack{Digest: digest, FilePath: generated.Name},
			})
		}
	}

	// 6. Source files.
	for _, path := range opts.SourcePaths {
		if err := b.packFile(inv, data, ContentSourceText, path); err != nil {
			return nil, err
		}
	}

	// 7. Additional files.
	for _, path := range opts.AdditionalPaths {
		if err := b.packFile(inv, data, ContentAdditionalText, path); err != nil {
			return nil, err
		}
	}

	// 8. Resources, each streamed once into the content store.
	for _, resource := range opts.Resources {
		if err := b.packResource(inv, data, resource); err != nil {
			return nil, err
		}
	}

	// 9. Embedded files, with line-directive target resolution.
	if err := b.packEmbeds(inv, data); err != nil {
		return nil, err
	}

	// 10. Single optional files, in fixed order.
	singles := []struct {
		kind ContentKind
		path string
	}{
		{ContentSourceLink, opts.SourceLinkPath},
		{ContentRuleSet, opts.RuleSetPath},
		{ContentAppConfig, opts.AppConfigPath},
		{ContentWin32Resource, opts.Win32ResourcePath},
		{ContentWin32Icon, opts.Win32IconPath},
		{ContentWin32Manifest, opts.Win32ManifestPath},
		{ContentCryptoKeyFile, opts.CryptoKeyFilePath},
	}
	for _, single := range singles {
		if single.path == "" {
			continue
		}
		if err := b.packFile(inv, data, single.kind, single.path); err != nil {
			return nil, err
		}
	}

	// Serialize the three records through the content store.
	argumentsDigest, err := b.marshalRecord(inv.Arguments)
	if err != nil {
		return nil, err
	}
	optionsDigest, err := b.marshalRecord(opts)
	if err != nil {
		return nil, err
	}
	dataDigest, err := b.marshalRecord(data)
	if err != nil {
		return nil, err
	}

	return &CompilationInfoPack{
		ProjectFilePath:      inv.ProjectFilePath,
		WorkingDirectory:     inv.WorkingDirectory,
		CompilerFilePath:     inv.CompilerFilePath,
		Language:             string(inv.Language),
		TargetFramework:      inv.TargetFramework,
		Kind:                 string(inv.Kind),
		CompilerAssemblyName: compiler.assemblyName,
		CompilerVersion:      compiler.version,
		CompilerBuildID:      compiler.buildID,
		ArgumentsDigest:      argumentsDigest,
		OptionsDigest:        optionsDigest,
		DataPackDigest:       dataDigest,
	}, nil
}

// packFile reads one artifact file, stores its bytes, and appends a
// content record. Unreadable files become diagnostics; only archive
// I/O fails the invocation.
func (b *Builder) packFile(inv *invocation.Invocation, data *CompilationDataPack, kind ContentKind, givenPath string) error {
	path := inv.ResolvePath(givenPath)
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		b.diags.Add("unable to read %s %s: %v", contentKindLabels[kind], path, readErr)
		return nil
	}
	digest, err := b.addContent(raw)
	if err != nil {
		return err
	}
	data.Contents = append(data.Contents, ContentRecord{
		Kind: kind,
		Pack: ContentPack{Digest: digest, FilePath: path},
	})
	return nil
}

// packResource streams one resource's byte provider into the content
// store and appends its descriptor.
func (b *Builder) packResource(inv *invocation.Invocation, data *CompilationDataPack, resource invocation.Resource) error {
	path := inv.ResolvePath(resource.FilePath)
	file, openErr := os.Open(path)
	if openErr != nil {
		b.diags.Add("unable to read resource %s (%s): %v", resource.LogicalName, path, openErr)
		return nil
	}
	defer file.Close()

	digest, err := b.addContentReader(file)
	if err != nil {
		if !isSourceReadError(err) {
			return err
		}
		b.diags.Add("unable to read resource %s (%s): %v", resource.LogicalName, path, err)
		return nil
	}
	data.Resources = append(data.Resources, ResourcePack{
		Digest:      digest,
		LogicalName: resource.LogicalName,
		FileName:    resource.FileName,
		Public:      resource.Public,
	})
	return nil
}

// packEmbeds stores every embedded file and, for embedded files that
// are also compiled sources, resolves their line-directive targets
// into embed-line records.
func (b *Builder) packEmbeds(inv *invocation.Invocation, data *CompilationDataPack) error {
	sourceSet := make(map[string]bool, len(inv.Options.SourcePaths))
	for _, path := range inv.Options.SourcePaths {
		sourceSet[inv.ResolvePath(path)] = true
	}

	for _, embedPath := range inv.Options.EmbeddedPaths {
		path := inv.ResolvePath(embedPath)
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			b.diags.Add("unable to read embedded file %s: %v", path, readErr)
			continue
		}
		digest, err := b.addContent(raw)
		if err != nil {
			return err
		}
		data.Contents = append(data.Contents, ContentRecord{
			Kind: ContentEmbed,
			Pack: ContentPack{Digest: digest, FilePath: path},
		})

		if !sourceSet[path] {
			continue
		}
		if err := b.packLineTargets(inv, data, path, raw); err != nil {
			return err
		}
	}
	return nil
}

// packLineTargets resolves and stores the line-directive targets of
// one embedded source file. A target whose raw form is absolute, or
// whose resolved form falls outside the project directory, gets a
// diagnostic — export will be unable to relocate it — but is still
// captured when readable.
func (b *Builder) packLineTargets(inv *invocation.Invocation, data *CompilationDataPack, embeddingPath string, source []byte) error {
	embeddingDir := filepath.Dir(embeddingPath)
	seen := make(map[string]bool)

	for _, rawTarget := range scanLineDirectiveTargets(inv.Language, source) {
		if seen[rawTarget] {
			continue
		}
		seen[rawTarget] = true

		resolved := resolveLineTarget(inv, embeddingDir, rawTarget)
		unsafe := false
		if filepath.IsAbs(rawTarget) {
			b.diags.Add("line directive target %s in %s is an absolute path; export will be unable to relocate it", rawTarget, embeddingPath)
			unsafe = true
		} else if !underDirectory(inv.ProjectDirectory(), resolved) {
			b.diags.Add("line directive target %s in %s resolves outside the project directory; export will be unable to relocate it", rawTarget, embeddingPath)
			unsafe = true
		}

		raw, readErr := os.ReadFile(resolved)
		if readErr != nil {
			// An unsafe target already has its diagnostic; don't
			// stack a second one for the failed read.
			if !unsafe {
				b.diags.Add("unable to read line directive target %s referenced by %s: %v", resolved, embeddingPath, readErr)
			}
			continue
		}
		digest, err := b.addContent(raw)
		if err != nil {
			return err
		}
		data.Contents = append(data.Contents, ContentRecord{
			Kind: ContentEmbedLine,
			Pack: ContentPack{Digest: digest, FilePath: resolved},
		})
	}
	return nil
}

// isSourceReadError reports whether err came from reading an
// artifact's bytes rather than writing the archive.
func isSourceReadError(err error) bool {
	var sourceErr *sourceReadError
	return errors.As(err, &sourceErr)
}
