package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingTrustScore is returned when an analysis payload has no trust_score.
var ErrMissingTrustScore = errors.New("score report: trust_score is required")

// VerifiedPayment is one recurring outflow the analysis service matched to rent.
type VerifiedPayment struct {
	Month      string  `json:"month"`
	Amount     float64 `json:"amount"`
	Narrative  string  `json:"narrative"`
	Confidence float64 `json:"confidence"`
}

// ScoreReport is the analysis result as returned by the analysis service.
// It is never mutated by the client. The JSON it was decoded from is kept so the
// report can be sent back (e.g. to the certificate endpoint) exactly as received.
type ScoreReport struct {
	TrustScore       int               `json:"trust_score"`
	VerifiedPayments []VerifiedPayment `json:"verified_payments"`
	// Transactions are the parsed statement rows, shown for debugging only.
	Transactions []map[string]any `json:"transactions,omitempty"`

	raw json.RawMessage
}

type scoreReportWire struct {
	TrustScore       *int            `json:"trust_score"`
	VerifiedPayments json.RawMessage `json:"verified_payments,omitempty"`
	Transactions     json.RawMessage `json:"transactions,omitempty"`
}

// ParseScoreReport decodes an analysis payload. trust_score is the only field that
// must be present and well-formed. Optional fields are read leniently: a
// transactions list that does not decode is dropped, and payment entries with
// unexpected value types keep whatever can be read from them.
func ParseScoreReport(b []byte) (*ScoreReport, error) {
	var r ScoreReport
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ScoreReport) UnmarshalJSON(b []byte) error {
	var w scoreReportWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode score report: %w", err)
	}
	if w.TrustScore == nil {
		return ErrMissingTrustScore
	}
	*r = ScoreReport{
		TrustScore:       *w.TrustScore,
		VerifiedPayments: decodePayments(w.VerifiedPayments),
		Transactions:     decodeTransactions(w.Transactions),
		raw:              append(json.RawMessage(nil), bytes.TrimSpace(b)...),
	}
	return nil
}

func decodeTransactions(raw json.RawMessage) []map[string]any {
	var rows []map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &rows) != nil {
		return nil
	}
	return rows
}

func decodePayments(raw json.RawMessage) []VerifiedPayment {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return nil
	}
	payments := make([]VerifiedPayment, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if json.Unmarshal(item, &fields) != nil || fields == nil {
			continue
		}
		payments = append(payments, VerifiedPayment{
			Month:      text(fields["month"]),
			Amount:     number(fields["amount"]),
			Narrative:  text(fields["narrative"]),
			Confidence: number(fields["confidence"]),
		})
	}
	return payments
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// number accepts JSON numbers and numeric strings such as "15,000.00".
func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// MarshalJSON returns the verbatim payload when the report was decoded from one.
func (r ScoreReport) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	payments := r.VerifiedPayments
	if payments == nil {
		payments = []VerifiedPayment{}
	}
	return json.Marshal(struct {
		TrustScore       int               `json:"trust_score"`
		VerifiedPayments []VerifiedPayment `json:"verified_payments"`
		Transactions     []map[string]any  `json:"transactions,omitempty"`
	}{r.TrustScore, payments, r.Transactions})
}

// HasTransactions reports whether the debug view of parsed rows should be shown.
func (r *ScoreReport) HasTransactions() bool {
	return r != nil && len(r.Transactions) > 0
}
