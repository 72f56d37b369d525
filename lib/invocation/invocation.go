// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package invocation

import (
	"fmt"
	"path/filepath"
)

// Language selects the compiler frontend that produced an invocation.
type Language string

const (
	// CSharp is the C# compiler frontend.
	CSharp Language = "csharp"
	// VisualBasic is the Visual Basic compiler frontend.
	VisualBasic Language = "visualbasic"
)

// Kind classifies an invocation within a project build.
type Kind string

const (
	// KindRegular is the main compilation of a project.
	KindRegular Kind = "regular"
	// KindSatellite is a satellite (localized resource) assembly
	// compilation.
	KindSatellite Kind = "satellite"
)

// ChecksumAlgorithm names the source checksum algorithm the compiler
// was configured to use for debug information.
type ChecksumAlgorithm string

const (
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
)

// Invocation is one fully resolved compiler run. It is immutable
// input to the capture core.
type Invocation struct {
	// CompilerFilePath is the path to the compiler binary that ran.
	CompilerFilePath string `json:"compilerFilePath"`

	// ProjectFilePath is the project file the build invoked the
	// compiler for.
	ProjectFilePath string `json:"projectFilePath"`

	// WorkingDirectory is the directory the compiler ran in.
	WorkingDirectory string `json:"workingDirectory"`

	// Language is the source language of the invocation.
	Language Language `json:"language"`

	// TargetFramework is the framework label for multi-targeted
	// projects, e.g. "net9.0". Empty for single-target projects.
	TargetFramework string `json:"targetFramework,omitempty"`

	// Kind classifies the invocation.
	Kind Kind `json:"kind"`

	// Arguments is the fully expanded argument list (response files
	// resolved, no compiler executable).
	Arguments []string `json:"arguments"`

	// Options is the structured form of Arguments.
	Options Options `json:"options"`
}

// ProjectDirectory returns the directory containing the project file.
// Relative artifact paths resolve against this directory.
func (inv *Invocation) ProjectDirectory() string {
	return filepath.Dir(inv.ProjectFilePath)
}

// ResolvePath resolves a possibly-relative artifact path against the
// project directory. Absolute paths pass through cleaned.
func (inv *Invocation) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(inv.ProjectDirectory(), path)
}

// Validate checks the fields an external resolver must always supply.
func (inv *Invocation) Validate() error {
	if inv.CompilerFilePath == "" {
		return fmt.Errorf("invocation has no compiler file path")
	}
	if inv.ProjectFilePath == "" {
		return fmt.Errorf("invocation has no project file path")
	}
	switch inv.Language {
	case CSharp, VisualBasic:
	default:
		return fmt.Errorf("invocation has unsupported language %q", inv.Language)
	}
	switch inv.Kind {
	case KindRegular, KindSatellite, "":
	default:
		return fmt.Errorf("invocation has unsupported kind %q", inv.Kind)
	}
	return nil
}
