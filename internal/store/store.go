// Package store carries the latest score report across the navigation from the
// upload view to the results view. It holds at most one report per session.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"rentscore/internal/model"
)

// AnalysisKey is the single key the report is stored under.
const AnalysisKey = "rentscore:analysis"

var ErrNilReport = errors.New("report is nil")

// KV is the session-scoped key-value storage the result store writes to.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

// ResultStore reads and writes the score report of one session.
type ResultStore struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *ResultStore {
	return &ResultStore{kv: kv}
}

// Save serializes report, replacing any previously stored one.
func (s *ResultStore) Save(report *model.ScoreReport) error {
	if report == nil {
		return ErrNilReport
	}
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := s.kv.Set(AnalysisKey, b); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}

// Load returns the stored report. A missing or unparseable entry is reported as
// absent, not as an error.
func (s *ResultStore) Load() (*model.ScoreReport, bool) {
	b, ok := s.kv.Get(AnalysisKey)
	if !ok || len(b) == 0 {
		return nil, false
	}
	report, err := model.ParseScoreReport(b)
	if err != nil {
		return nil, false
	}
	return report, true
}

// Clear drops the stored report.
func (s *ResultStore) Clear() error {
	return s.kv.Delete(AnalysisKey)
}
