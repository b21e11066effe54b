package explorer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/eval"
	"github.com/ulysseB/Telamon/eventlog"
	"github.com/ulysseB/Telamon/space"
)

// bestDump is the JSON shape written to best_actions.json: the decision
// list that reconstructs the winning candidate, plus its measured score
// and model bound.
type bestDump struct {
	ScoreNs float64                 `json:"score_ns"`
	BoundNs float64                 `json:"bound_ns,omitempty"`
	Actions []eventlog.ActionRecord `json:"actions"`
}

// dumpMismatch writes a reference-mismatch diagnostic next to the other
// outputs; losing the dump (no output dir, write error) never aborts the
// search since the mismatch itself is already recorded.
func dumpMismatch(outputDir string, mismatch *eval.ReferenceMismatchError) {
	if outputDir == "" {
		return
	}
	name := fmt.Sprintf("mismatch_depth%d.json", mismatch.Candidate.Depth)
	_ = os.WriteFile(filepath.Join(outputDir, name), []byte(mismatch.Dump()), 0o644)
}

// persistBest writes the best candidate's artifacts under OutputDir: the
// action list, the generated source, and the control-flow-graph dump.
// A missing OutputDir disables persistence.
func persistBest(cfg Config, dev device.Device, best *space.Candidate, score float64) error {
	if cfg.OutputDir == "" {
		return nil
	}

	dump := bestDump{ScoreNs: score}
	if best.Bound != nil {
		dump.BoundNs = *best.Bound
	}
	for _, a := range best.Actions {
		rec, err := eventlog.EncodeAction(a)
		if err != nil {
			return fmt.Errorf("explorer: persist: %w", err)
		}
		dump.Actions = append(dump.Actions, rec)
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("explorer: persist: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "best_actions.json"), data, 0o644); err != nil {
		return fmt.Errorf("explorer: persist: %w", err)
	}

	kernel, err := dev.Compile(best.Space.Store().Function(), best.Space, 0)
	if err != nil {
		// The candidate measured fine earlier; a failure here only costs
		// the source/CFG dumps, not the search result.
		return nil
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "best.source"), []byte(kernel.Source), 0o644); err != nil {
		return fmt.Errorf("explorer: persist: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "best.cfg"), []byte(kernel.CFG), 0o644); err != nil {
		return fmt.Errorf("explorer: persist: %w", err)
	}
	return nil
}
