package history

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"mercator-hq/riskctl/pkg/engine"
)

// Record is one stored evaluation.
type Record struct {
	ID               string          `json:"id"`
	SystemID         string          `json:"system_id"`
	ModelRef         string          `json:"model_ref"`
	ModelVersion     string          `json:"model_version"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`
	ActivatedDomains []string        `json:"activated_domains"`
	DerivedControls  []string        `json:"derived_controls"`
	MissingAnswers   []string        `json:"missing_answers"`
	Result           json.RawMessage `json:"result,omitempty"`
}

// NewRecord summarises result into a record with a fresh id. The full result
// is kept as JSON alongside the summary columns. Domain and control ids are
// stored sorted.
func NewRecord(systemID, modelRef, modelVersion string, result engine.Result, at time.Time) (*Record, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Record{
		ID:               uuid.NewString(),
		SystemID:         systemID,
		ModelRef:         modelRef,
		ModelVersion:     modelVersion,
		EvaluatedAt:      at.UTC(),
		ActivatedDomains: sorted(result.ActivatedDomains),
		DerivedControls:  sorted(result.ControlIDs()),
		MissingAnswers:   nonNil(result.MissingQuestions()),
		Result:           data,
	}, nil
}

// Query filters stored records. Zero values match everything.
type Query struct {
	SystemID string
	ModelRef string
	// Since and Until bound EvaluatedAt inclusively.
	Since *time.Time
	Until *time.Time
	// Limit caps the number of records returned. 0 means no limit.
	Limit  int
	Offset int
}

// Validate checks the query for nonsensical bounds.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be non-negative, got %d", q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be non-negative, got %d", q.Offset))
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return NewQueryError(q, fmt.Errorf("until %s is before since %s", q.Until.Format(time.RFC3339), q.Since.Format(time.RFC3339)))
	}
	return nil
}

func (q *Query) matches(r *Record) bool {
	if q.SystemID != "" && r.SystemID != q.SystemID {
		return false
	}
	if q.ModelRef != "" && r.ModelRef != q.ModelRef {
		return false
	}
	if q.Since != nil && r.EvaluatedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.EvaluatedAt.After(*q.Until) {
		return false
	}
	return true
}

// Store persists evaluation records.
type Store interface {
	// Store persists a record. Records with an empty id are rejected.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching q, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring its limit
	// and offset.
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteBefore removes records evaluated strictly before cutoff and
	// returns how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

func sorted(s []string) []string {
	out := slices.Clone(nonNil(s))
	slices.Sort(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
