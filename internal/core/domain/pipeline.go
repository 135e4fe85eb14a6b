package domain

import (
	"fmt"
	"time"
)

// Stage is a state of one document-processing run.
// Runs move forward only: Uploaded, Chunked, Embedded, Indexed, Complete.
type Stage string

const (
	StageUploaded Stage = "uploaded"
	StageChunked  Stage = "chunked"
	StageEmbedded Stage = "embedded"
	StageIndexed  Stage = "indexed"
	StageComplete Stage = "complete"

	// StageFailed is absorbing. RunReport.FailedStage names where it happened.
	StageFailed Stage = "failed"
)

// Stages lists the non-terminal stages in execution order.
var Stages = []Stage{StageUploaded, StageChunked, StageEmbedded, StageIndexed}

// StageError reports the stage a run failed at and the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed(%s): %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IngestRequest describes one document to run through the pipeline.
type IngestRequest struct {
	// DocumentID is the external identifier. Derived from Filename when empty.
	DocumentID string

	// Filename is recorded in metadata and used to guess the content type.
	Filename string

	// ContentType overrides detection when set.
	ContentType string

	// Data is the raw uploaded bytes.
	Data []byte

	// Tags replace any tags from earlier runs of the same document.
	Tags []string
}

// RunReport is the outcome of one ingest run.
type RunReport struct {
	RunID       string                  `json:"run_id"`
	DocumentID  string                  `json:"document_id"`
	State       Stage                   `json:"state"`
	FailedStage Stage                   `json:"failed_stage,omitempty"`
	Err         error                   `json:"-"`
	ChunkCount  int                     `json:"chunk_count"`
	Pruned      int                     `json:"pruned"`
	StartedAt   time.Time               `json:"started_at"`
	FinishedAt  time.Time               `json:"finished_at"`
	Durations   map[Stage]time.Duration `json:"durations,omitempty"`
}

// Failed reports whether the run ended in the Failed state.
func (r *RunReport) Failed() bool {
	return r.State == StageFailed
}

// RetryPolicy is bounded exponential backoff for transient failures.
type RetryPolicy struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay after each failed retry.
	Multiplier float64

	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns 4 attempts starting at 500ms, doubling, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

// Validate checks the policy is usable.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: retry max_attempts must be at least 1", ErrInvalidInput)
	case p.BaseDelay < 0 || p.MaxDelay < 0:
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidInput)
	case p.Multiplier < 1:
		return fmt.Errorf("%w: retry multiplier must be at least 1", ErrInvalidInput)
	}
	return nil
}

// Delay returns the wait before the given retry (1 = first retry).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
