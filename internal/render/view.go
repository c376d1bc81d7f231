// Package render turns the stored score report and the upload state into views.
// It never recomputes anything: every number shown comes from the report.
package render

import (
	"encoding/json"

	"rentscore/internal/model"
	"rentscore/internal/workflow"
)

const (
	NoDataTitle   = "No analysis found"
	NoDataHint    = "Upload a statement to generate a Trust Score."
	BackLabel     = "Back to upload"
	BackHref      = "/"
	NoPaymentsMsg = "No verified rent payments found in this statement."
)

// Loader is the read side of the result store.
type Loader interface {
	Load() (*model.ScoreReport, bool)
}

// PaymentRow is one verified payment as displayed.
type PaymentRow struct {
	Month     string
	Narrative string
	Amount    string
}

// ResultsView is everything the results page shows. When NoData is set the other
// fields are zero and the page is the terminal "nothing to show" view.
type ResultsView struct {
	NoData       bool
	TrustScore   int
	Payments     []PaymentRow
	Transactions string

	// CertificateError is the last export failure, shown under the download button.
	CertificateError string
}

// Results builds the results view from whatever the store holds.
func Results(store Loader) ResultsView {
	if store == nil {
		return ResultsView{NoData: true}
	}
	report, ok := store.Load()
	if !ok {
		return ResultsView{NoData: true}
	}
	return FromReport(report)
}

// FromReport builds the results view for report. A nil report is the no-data view.
func FromReport(report *model.ScoreReport) ResultsView {
	if report == nil {
		return ResultsView{NoData: true}
	}
	v := ResultsView{TrustScore: report.TrustScore}
	for _, p := range report.VerifiedPayments {
		v.Payments = append(v.Payments, PaymentRow{
			Month:     p.Month,
			Narrative: p.Narrative,
			Amount:    FormatKES(p.Amount),
		})
	}
	if report.HasTransactions() {
		if b, err := json.MarshalIndent(report.Transactions, "", "  "); err == nil {
			v.Transactions = string(b)
		}
	}
	return v
}

// IntakeView is the upload page for one snapshot of the workflow.
type IntakeView struct {
	Phase      string
	Heading    string
	Subheading string
	FileName   string
	Message    string
	Validation bool
	CanAnalyze bool
	Uploading  bool
	Succeeded  bool
}

// Intake builds the upload page view.
func Intake(s workflow.Snapshot) IntakeView {
	v := IntakeView{
		Phase:      s.Phase.String(),
		FileName:   s.FileName,
		Message:    s.Message,
		Validation: s.Validation,
		CanAnalyze: s.CanAnalyze(),
	}
	switch s.Phase {
	case workflow.PhaseUploading:
		v.Uploading = true
		v.Heading = "Analyzing Statement..."
		v.Subheading = "Calculating your RentScore"
	case workflow.PhaseSuccess:
		v.Succeeded = true
		v.Heading = "Analysis Complete!"
	case workflow.PhaseError:
		v.Heading = "Upload Failed"
		v.Subheading = "Please try again with a valid PDF."
	default:
		v.Heading = "Upload M-Pesa Statement"
		v.Subheading = "Drop your PDF statement here, or browse"
	}
	return v
}
