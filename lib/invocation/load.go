// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

package invocation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Set is a group of resolved invocations handed over by an external
// resolver, normally one build's worth.
type Set struct {
	// Resolver optionally names the tool (and version) that produced
	// the set. Recorded nowhere in the archive; useful in logs.
	Resolver string `json:"resolver,omitempty"`

	// Invocations are the resolved invocations in build order.
	Invocations []Invocation `json:"invocations"`
}

// LoadSet reads an invocation set from a JSONC file. Comments and
// trailing commas are allowed so resolver output stays annotatable
// by hand during diagnosis.
func LoadSet(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading invocation set %s: %w", path, err)
	}

	var set Set
	if err := json.Unmarshal(jsonc.ToJSON(raw), &set); err != nil {
		return nil, fmt.Errorf("parsing invocation set %s: %w", path, err)
	}
	if len(set.Invocations) == 0 {
		return nil, fmt.Errorf("invocation set %s contains no invocations", path)
	}
	for i := range set.Invocations {
		if err := set.Invocations[i].Validate(); err != nil {
			return nil, fmt.Errorf("invocation set %s, entry %d: %w", path, i, err)
		}
	}
	return &set, nil
}
