// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/compvault/compvault/lib/invocation"
)

// scanLineDirectiveTargets scans source with the frontend matching
// language and returns the raw target strings of every line directive
// that names a file, in order of appearance.
//
// C# line directives: `#line 200 "target.cs"` and the span form
// `#line (1, 1) - (5, 60) "target.cs"`. `#line default` and
// `#line hidden` carry no target. Visual Basic uses
// `#ExternalSource("target.vb", 30)`.
func scanLineDirectiveTargets(language invocation.Language, source []byte) []string {
	var targets []string
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch language {
		case invocation.CSharp:
			if !strings.HasPrefix(line, "#line") {
				continue
			}
		case invocation.VisualBasic:
			if !strings.HasPrefix(strings.ToLower(line), "#externalsource") {
				continue
			}
		default:
			return nil
		}
		if target, ok := quotedArgument(line); ok {
			targets = append(targets, target)
		}
	}
	// Scanner errors mean an over-long line in a file the compiler
	// already accepted; there is nothing useful to salvage from a
	// partial scan, so treat what was found as the result.
	return targets
}

// quotedArgument extracts the first double-quoted string on a
// directive line.
func quotedArgument(line string) (string, bool) {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}

// resolveLineTarget resolves a raw line-directive target against the
// embedding file's directory. Path-map rules apply first, in reverse:
// a target recorded under a mapped prefix (/pathmap:<from>=<to>) is
// translated back to its on-disk prefix before joining. The first
// matching rule wins.
func resolveLineTarget(inv *invocation.Invocation, embeddingDir, raw string) string {
	target := raw
	for _, rule := range inv.Options.PathMap {
		if strings.HasPrefix(target, rule.To) {
			target = rule.From + target[len(rule.To):]
			break
		}
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(embeddingDir, target)
	}
	return filepath.Clean(target)
}

// underDirectory reports whether path falls textually under dir. The
// check is on cleaned path text only — no symlink resolution — which
// matches how export decides whether a file can be relocated into a
// reconstructed project cone.
func underDirectory(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	if dir == path {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
