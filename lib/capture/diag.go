// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import "fmt"

// DiagnosticList is the append-only, ordered list of human-readable
// capture diagnostics. The caller constructs one, hands it to the
// builder, and owns it afterward: per-artifact failures (unreadable
// module, missing compiler identity, unresolvable embed target) land
// here instead of failing an Add.
//
// Order is significant — it follows the packer's fixed extraction
// order, so diagnostics read in the same sequence for every capture
// of the same invocation.
type DiagnosticList struct {
	entries []string
}

// NewDiagnosticList returns an empty diagnostic list.
func NewDiagnosticList() *DiagnosticList {
	return &DiagnosticList{}
}

// Add appends a formatted diagnostic.
func (d *DiagnosticList) Add(format string, args ...any) {
	d.entries = append(d.entries, fmt.Sprintf(format, args...))
}

// Entries returns the diagnostics in append order. The returned slice
// is the list's backing storage; callers must not modify it.
func (d *DiagnosticList) Entries() []string {
	return d.entries
}

// Len returns the number of diagnostics recorded so far.
func (d *DiagnosticList) Len() int {
	return len(d.entries)
}
