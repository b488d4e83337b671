// Package dump renders the compiler pipeline's intermediate tables to JSON
// and diffs consecutive stages with a JSON merge patch, so `flowc --dump`
// can show exactly what each stage changed rather than a final manifest.
package dump

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/flowforge/flowcore/internal/model"
)

// Stage is one named snapshot of the compiler pipeline: the gathered table,
// the collapsed table, the optimized table, or the final manifest.
type Stage struct {
	Name        string               `json:"name"`
	Functions   []*model.Function    `json:"functions,omitempty"`
	Connections []model.Connection   `json:"connections,omitempty"`
	Manifest    *model.Manifest      `json:"manifest,omitempty"`
}

// Dump is the ordered list of stages plus the merge patch from each stage to
// the next, so a reader can see precisely what the connector dropped, what
// the optimizer removed, and what the emitter produced.
type Dump struct {
	Stages []Stage           `json:"stages"`
	Diffs  []StageDiff       `json:"diffs"`
}

// StageDiff names the two stages it diffs and carries the RFC 7396 merge
// patch between their JSON serializations.
type StageDiff struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Patch json.RawMessage `json:"patch"`
}

// Build renders stages in order and diffs each consecutive pair.
func Build(stages ...Stage) (*Dump, error) {
	d := &Dump{Stages: stages}
	for i := 1; i < len(stages); i++ {
		prevJSON, err := json.Marshal(stages[i-1])
		if err != nil {
			return nil, fmt.Errorf("dump: marshal stage %q: %w", stages[i-1].Name, err)
		}
		nextJSON, err := json.Marshal(stages[i])
		if err != nil {
			return nil, fmt.Errorf("dump: marshal stage %q: %w", stages[i].Name, err)
		}
		patch, err := jsonpatch.CreateMergePatch(prevJSON, nextJSON)
		if err != nil {
			return nil, fmt.Errorf("dump: diff %q -> %q: %w", stages[i-1].Name, stages[i].Name, err)
		}
		d.Diffs = append(d.Diffs, StageDiff{
			From:  stages[i-1].Name,
			To:    stages[i].Name,
			Patch: patch,
		})
	}
	return d, nil
}

// JSON marshals the dump for the flowc --dump CLI flag.
func (d *Dump) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
