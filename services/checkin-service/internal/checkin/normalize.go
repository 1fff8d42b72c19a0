package checkin

import (
	"math"
	"strings"

	"github.com/andino/pulso/internal/models"
)

// NormalizeEmail canonicalizes an employee email address so that case or
// whitespace variations never produce duplicate identities. Empty input
// yields the empty string.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// TaskInput is a reported task as it arrives from the inbound-message
// handler. Fields are optional and untrusted; Progress is any because
// employees report all kinds of values there.
type TaskInput struct {
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Progress  any     `json:"progress"`
	NextSteps *string `json:"next_steps"`
	Blocker   *string `json:"blocker"`
}

// Verdict says what normalization did with a reported task.
type Verdict int

const (
	// VerdictAccepted means the task was stored as reported.
	VerdictAccepted Verdict = iota
	// VerdictCoerced means a field was defaulted or clamped.
	VerdictCoerced
	// VerdictDropped means the task was silently discarded (blank title).
	VerdictDropped
)

// NormalizedTask is the outcome of normalizing one reported task. The
// verdict and reasons make the drop/coerce branches visible to callers and
// tests instead of hiding them in control flow.
type NormalizedTask struct {
	Task    models.Task
	Verdict Verdict
	Reasons []string
}

// NormalizeTask validates and clamps a reported task into canonical shape.
// It never fails: malformed input degrades to a minimal valid task, and a
// task whose title is blank after trimming is dropped entirely.
func NormalizeTask(in TaskInput) NormalizedTask {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return NormalizedTask{Verdict: VerdictDropped, Reasons: []string{"empty title"}}
	}

	out := NormalizedTask{Verdict: VerdictAccepted}

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !models.KnownStatus(status) {
		status = models.StatusEnProgreso
		if strings.TrimSpace(in.Status) != "" {
			out.Verdict = VerdictCoerced
			out.Reasons = append(out.Reasons, "unrecognized status")
		}
	}

	progress, ok := intProgress(in.Progress)
	if ok {
		if progress < 0 {
			progress = 0
			out.Verdict = VerdictCoerced
			out.Reasons = append(out.Reasons, "progress below 0")
		} else if progress > 100 {
			progress = 100
			out.Verdict = VerdictCoerced
			out.Reasons = append(out.Reasons, "progress above 100")
		}
	} else if in.Progress != nil {
		out.Verdict = VerdictCoerced
		out.Reasons = append(out.Reasons, "non-integer progress")
	}

	out.Task = models.Task{
		Title:     title,
		Status:    status,
		NextSteps: in.NextSteps,
		Blocker:   in.Blocker,
	}
	if ok {
		out.Task.Progress = &progress
	}
	return out
}

// intProgress extracts an integer progress value. JSON numbers arrive as
// float64; only integral values count, everything else is treated as absent.
func intProgress(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}
