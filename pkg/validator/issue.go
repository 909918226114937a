package validator

import "github.com/pelosub/pelosub/pkg/library"

// IssueKind classifies a detected anomaly in the on-disk layout.
type IssueKind string

const (
	IssueMalformedName    IssueKind = "malformed-name"
	IssueSeasonMismatch   IssueKind = "season-mismatch"
	IssueDuplicateEpisode IssueKind = "duplicate-episode"
	IssueOrphanedParent   IssueKind = "orphaned-parent-directory"
)

// Issue is one detected anomaly. Issues live for a single pass; the repairer
// consumes them immediately and the next pass re-detects whatever remains.
type Issue struct {
	Kind    IssueKind       `json:"kind"`
	Path    string          `json:"path"`
	Related []library.Entry `json:"relatedEntries,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// ActionKind names a planned filesystem mutation.
type ActionKind string

const (
	ActionRename    ActionKind = "rename"
	ActionRemoveDir ActionKind = "remove-dir"
)

// Action is a planned repair. Applying an action twice is a no-op: once the
// source is gone and the target is in place there is nothing left to do, so a
// crash mid-repair leaves the tree safe to re-run from scratch.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Source string     `json:"source"`
	Target string     `json:"target,omitempty"`
	Issue  IssueKind  `json:"issue"`
	Reason string     `json:"reason"`
}

// Result summarizes one validator run across all passes.
type Result struct {
	Passes      int      `json:"passes"`
	IssuesFound int      `json:"issuesFound"`
	Repaired    int      `json:"repaired"`
	Failed      int      `json:"failed"`
	Converged   bool     `json:"converged"`
	Planned     []Action `json:"planned,omitempty"`
	Remaining   []Issue  `json:"remaining,omitempty"`
}
