package types

import (
	"fmt"
	"strings"
)

type DeletionStatus string

const (
	DeletionSucceeded DeletionStatus = "succeeded"
	DeletionFailed    DeletionStatus = "failed"
	DeletionSkipped   DeletionStatus = "skipped"
)

// Human-actionable failure reasons.
const (
	ReasonPermission       = "insufficient permission"
	ReasonNeedsAuth        = "administrator authorization required"
	ReasonAuthDeclined     = "administrator authorization was declined"
	ReasonAuthExpired      = "administrator authorization expired"
	ReasonNotFound         = "no longer exists"
	ReasonSIPProtected     = "protected by System Integrity Protection"
	ReasonForbidden        = "outside the locations this tool may delete"
	ReasonInUse            = "in use by a running process"
	ReasonCancelled        = "cancelled"
	ReasonInvalidPath      = "invalid path"
	ReasonCommandFailed    = "privileged command failed"
	reasonPermissionPlural = "require permission"
)

type DeletionOutcome struct {
	Path       string         `json:"path"`
	Size       int64          `json:"size"`
	Status     DeletionStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Privileged bool           `json:"privileged,omitempty"`
	Err        error          `json:"-"`
}

func (o DeletionOutcome) NeedsPermission() bool {
	switch o.Reason {
	case ReasonPermission, ReasonNeedsAuth, ReasonAuthDeclined, ReasonAuthExpired:
		return true
	}
	return false
}

type SummaryState string

const (
	SummaryNothing      SummaryState = "nothing"
	SummaryAllSucceeded SummaryState = "all-succeeded"
	SummaryPartial      SummaryState = "partial"
	SummaryTotalFailure SummaryState = "total-failure"
)

// DeletionSummary aggregates per-path outcomes in submission order.
type DeletionSummary struct {
	Outcomes   []DeletionOutcome `json:"outcomes"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	BytesFreed int64             `json:"bytes_freed"`
}

// Add appends an outcome and updates the counters.
func (s *DeletionSummary) Add(o DeletionOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case DeletionSucceeded:
		s.Succeeded++
		s.BytesFreed += o.Size
	case DeletionFailed:
		s.Failed++
	case DeletionSkipped:
		s.Skipped++
	}
}

func (s *DeletionSummary) Total() int {
	return len(s.Outcomes)
}

func (s *DeletionSummary) Failures() []DeletionOutcome {
	failures := make([]DeletionOutcome, 0, s.Failed)
	for _, o := range s.Outcomes {
		if o.Status == DeletionFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

func (s *DeletionSummary) State() SummaryState {
	switch {
	case len(s.Outcomes) == 0:
		return SummaryNothing
	case s.Succeeded == len(s.Outcomes):
		return SummaryAllSucceeded
	case s.Succeeded == 0:
		return SummaryTotalFailure
	default:
		return SummaryPartial
	}
}

// Message renders an honest one-line summary, e.g. "12 of 15 items removed, 3 require permission".
func (s *DeletionSummary) Message() string {
	if len(s.Outcomes) == 0 {
		return "nothing to remove"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d items removed", s.Succeeded, len(s.Outcomes))

	permission := 0
	for _, o := range s.Outcomes {
		if o.Status == DeletionFailed && o.NeedsPermission() {
			permission++
		}
	}
	if permission > 0 {
		fmt.Fprintf(&b, ", %d %s", permission, reasonPermissionPlural)
	}
	if other := s.Failed - permission; other > 0 {
		fmt.Fprintf(&b, ", %d failed", other)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.Skipped)
	}
	return b.String()
}
