package render

import (
	"fmt"
	"io"
	"strings"
)

// WriteResultsText writes the results view as plain text for terminals.
func WriteResultsText(w io.Writer, v ResultsView) error {
	var b strings.Builder
	if v.NoData {
		b.WriteString(NoDataTitle + "\n")
		b.WriteString(NoDataHint + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(fmt.Sprintf("Trust Score: %d\n\n", v.TrustScore))
	b.WriteString("Verified payments\n")
	if len(v.Payments) == 0 {
		b.WriteString("  " + NoPaymentsMsg + "\n")
	}
	width := 0
	for _, p := range v.Payments {
		width = max(width, len(p.Month))
	}
	for _, p := range v.Payments {
		b.WriteString(fmt.Sprintf("  %-*s  %s", width, p.Month, p.Amount))
		if strings.TrimSpace(p.Narrative) != "" {
			b.WriteString("  " + p.Narrative)
		}
		b.WriteString("\n")
	}

	if v.Transactions != "" {
		b.WriteString("\nExtracted transactions\n")
		b.WriteString(v.Transactions + "\n")
	}
	if v.CertificateError != "" {
		b.WriteString("\n" + v.CertificateError + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
