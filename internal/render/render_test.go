package render

import (
	"bytes"
	"testing"

	"rentscore/internal/model"
	"rentscore/internal/store"
	"rentscore/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatKES(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{15000, "KES 15,000"},
		{0, "KES 0"},
		{999, "KES 999"},
		{1234.5, "KES 1,234.5"},
		{1234567.891, "KES 1,234,567.89"},
		{12.005, "KES 12.01"},
		{-2500, "KES -2,500"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatKES(tt.in))
		})
	}
}

func saved(t *testing.T, payload string) *store.ResultStore {
	t.Helper()
	report, err := model.ParseScoreReport([]byte(payload))
	require.NoError(t, err)
	s := store.New(store.NewMemoryKV())
	require.NoError(t, s.Save(report))
	return s
}

func TestResults_EmptyPayments(t *testing.T) {
	v := Results(saved(t, `{"trust_score":82,"verified_payments":[]}`))
	assert.False(t, v.NoData)
	assert.Equal(t, 82, v.TrustScore)
	assert.Empty(t, v.Payments)
	assert.Empty(t, v.Transactions)

	var buf bytes.Buffer
	require.NoError(t, WriteResultsHTML(&buf, v))
	assert.Contains(t, buf.String(), "Trust Score: 82")
	assert.Contains(t, buf.String(), NoPaymentsMsg)
	assert.NotContains(t, buf.String(), "Extracted transactions")
}

func TestResults_OneRow(t *testing.T) {
	v := Results(saved(t, `{"trust_score":90,"verified_payments":[{"month":"2024-01","amount":15000,"narrative":"Pay Bill to Landlord","confidence":0.9}]}`))
	require.Len(t, v.Payments, 1)
	assert.Equal(t, PaymentRow{Month: "2024-01", Narrative: "Pay Bill to Landlord", Amount: "KES 15,000"}, v.Payments[0])

	var buf bytes.Buffer
	require.NoError(t, WriteResultsHTML(&buf, v))
	assert.Contains(t, buf.String(), "2024-01")
	assert.Contains(t, buf.String(), "KES 15,000")
	assert.NotContains(t, buf.String(), NoPaymentsMsg)

	buf.Reset()
	require.NoError(t, WriteResultsText(&buf, v))
	assert.Contains(t, buf.String(), "2024-01  KES 15,000  Pay Bill to Landlord")
}

func TestResults_NoData(t *testing.T) {
	v := Results(store.New(store.NewMemoryKV()))
	assert.True(t, v.NoData)

	var buf bytes.Buffer
	require.NoError(t, WriteResultsHTML(&buf, v))
	assert.Contains(t, buf.String(), NoDataTitle)
	assert.Contains(t, buf.String(), NoDataHint)
	assert.Contains(t, buf.String(), `href="/"`)
	assert.NotContains(t, buf.String(), "Trust Score:")

	buf.Reset()
	require.NoError(t, WriteResultsText(&buf, v))
	assert.Equal(t, NoDataTitle+"\n"+NoDataHint+"\n", buf.String())
}

func TestResults_CorruptStoreIsNoData(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.AnalysisKey, []byte("{not json")))
	assert.True(t, Results(store.New(kv)).NoData)
	assert.True(t, Results(nil).NoData)
}

func TestResults_Transactions(t *testing.T) {
	v := Results(saved(t, `{"trust_score":60,"verified_payments":[],"transactions":[{"details":"Rent","withdrawn":"15000"}]}`))
	assert.Contains(t, v.Transactions, `"details": "Rent"`)

	var buf bytes.Buffer
	require.NoError(t, WriteResultsHTML(&buf, v))
	assert.Contains(t, buf.String(), "Extracted transactions")
	assert.Contains(t, buf.String(), "&#34;withdrawn&#34;: &#34;15000&#34;")
}

func TestIntake(t *testing.T) {
	v := Intake(workflow.Snapshot{Phase: workflow.PhaseIdle})
	assert.Equal(t, "Upload M-Pesa Statement", v.Heading)
	assert.False(t, v.CanAnalyze)

	v = Intake(workflow.Snapshot{Phase: workflow.PhaseIdle, FileName: "s.pdf"})
	assert.True(t, v.CanAnalyze)

	var buf bytes.Buffer
	require.NoError(t, WriteIntakeHTML(&buf, v))
	assert.Contains(t, buf.String(), "Selected: s.pdf")
	assert.NotContains(t, buf.String(), " disabled")

	v = Intake(workflow.Snapshot{Phase: workflow.PhaseError, Message: "File is larger than 15MB.", Validation: true})
	assert.Equal(t, "Upload Failed", v.Heading)
	buf.Reset()
	require.NoError(t, WriteIntakeHTML(&buf, v))
	assert.Contains(t, buf.String(), "File is larger than 15MB.")
	assert.Contains(t, buf.String(), "No file selected")
	assert.Contains(t, buf.String(), " disabled")
}
