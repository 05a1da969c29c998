package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Stage names one step of the canonical analysis sequence.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageCalculate Stage = "calculate"
	StageValidate  Stage = "validate"
	StageAnalyze   Stage = "analyze"
	StageFormat    Stage = "format"
)

// StageSequence is the canonical execution order. Stages never run out of
// this order and never repeat within a run.
var StageSequence = []Stage{StageExtract, StageCalculate, StageValidate, StageAnalyze, StageFormat}

// Ordinal returns the stage's position in the canonical sequence, or -1.
func (s Stage) Ordinal() int {
	for i, st := range StageSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Progress maps a completed stage to a 0-100 progress indicator for
// streaming clients.
func (s Stage) Progress() int {
	switch s {
	case StageExtract:
		return 20
	case StageCalculate:
		return 40
	case StageValidate:
		return 60
	case StageAnalyze:
		return 80
	case StageFormat:
		return 100
	}
	return 0
}

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Terminal reports whether the status is a final one.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// statusRank orders statuses along the allowed transition path.
func statusRank(s RunStatus) int {
	switch s {
	case RunStatusPending:
		return 0
	case RunStatusRunning:
		return 1
	case RunStatusComplete, RunStatusFailed:
		return 2
	}
	return -1
}

// AnalysisKey identifies a unique, cacheable analysis request: one subject
// analyzed with one extraction capability and one analysis capability.
type AnalysisKey struct {
	Symbol          string `json:"symbol"`
	ExtractionModel string `json:"extraction_model"`
	AnalysisModel   string `json:"analysis_model"`
}

// sanitizeKeyPart maps a model identifier to a filesystem/index safe token.
func sanitizeKeyPart(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// Encode returns the deterministic cache index for the key.
func (k AnalysisKey) Encode() string {
	return fmt.Sprintf("%s/%s_%s",
		strings.ToUpper(k.Symbol),
		sanitizeKeyPart(k.ExtractionModel),
		sanitizeKeyPart(k.AnalysisModel),
	)
}

// TokenUsage tracks capability token consumption.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates usage from another counter.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// StageResult records one stage execution. It is created once, appended to the
// ledger, and never mutated afterwards.
type StageResult struct {
	Stage Stage `json:"stage"`
	// Model is the resolved provider model ID for capability stages,
	// empty for local stages.
	Model      string     `json:"model,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Usage      TokenUsage `json:"usage"`
}

// Failed reports whether the stage recorded an error.
func (r StageResult) Failed() bool {
	return r.Error != ""
}

// Ledger is the append-only record of one run: the key, every stage result in
// canonical order, the typed data each stage produced, and the run status.
// Mutation goes through Append and Transition, which enforce ordering and
// monotonic status; callers hand out copies via Snapshot.
type Ledger struct {
	RunID  string        `json:"run_id"`
	Key    AnalysisKey   `json:"key"`
	Status RunStatus     `json:"status"`
	Stages []StageResult `json:"stages"`

	// Stage outputs, populated as each stage completes.
	Facts       *FinancialFacts   `json:"facts,omitempty"`
	Metrics     *DerivedMetrics   `json:"metrics,omitempty"`
	Validation  *ValidationResult `json:"validation,omitempty"`
	Narrative   *Narrative        `json:"narrative,omitempty"`
	FinalReport string            `json:"final_report,omitempty"`

	StockPrice *float64  `json:"stock_price,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewLedger creates a pending ledger for a key.
func NewLedger(runID string, key AnalysisKey) *Ledger {
	now := time.Now().UTC()
	return &Ledger{
		RunID:     runID,
		Key:       key,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records a stage result. The stage must be the next one in the
// canonical sequence and the ledger must not have reached a terminal status.
func (l *Ledger) Append(r StageResult) error {
	if l.Status.Terminal() {
		return eris.Errorf("ledger: run %s already %s, cannot append %s", l.RunID, l.Status, r.Stage)
	}
	ord := r.Stage.Ordinal()
	if ord < 0 {
		return eris.Errorf("ledger: unknown stage %q", r.Stage)
	}
	if ord != len(l.Stages) {
		return eris.Errorf("ledger: stage %s out of order, expected %s", r.Stage, StageSequence[len(l.Stages)])
	}
	l.Stages = append(l.Stages, r)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Transition moves the run status forward. Regressions and repeated terminal
// transitions are rejected.
func (l *Ledger) Transition(to RunStatus) error {
	if statusRank(to) < 0 {
		return eris.Errorf("ledger: unknown status %q", to)
	}
	if l.Status.Terminal() {
		return eris.Errorf("ledger: run %s already terminal (%s)", l.RunID, l.Status)
	}
	if statusRank(to) <= statusRank(l.Status) {
		return eris.Errorf("ledger: cannot transition %s -> %s", l.Status, to)
	}
	l.Status = to
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// TotalUsage sums usage counters across all recorded stages.
func (l *Ledger) TotalUsage() TokenUsage {
	var total TokenUsage
	for _, s := range l.Stages {
		total.Add(s.Usage)
	}
	return total
}

// Snapshot returns a copy safe to hand to readers while the run mutates the
// original. Stage payload pointers are shared; stage results are immutable
// once appended so sharing is safe.
func (l *Ledger) Snapshot() Ledger {
	cp := *l
	cp.Stages = make([]StageResult, len(l.Stages))
	copy(cp.Stages, l.Stages)
	return cp
}
