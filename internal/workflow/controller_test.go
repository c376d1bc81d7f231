package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rentscore/internal/analysis"
	"rentscore/internal/analysis/mocks"
	"rentscore/internal/apperror"
	"rentscore/internal/intake"
	"rentscore/internal/model"
	"rentscore/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func pdfCandidate() *intake.Candidate {
	return intake.FromBytes("statement.pdf", "application/pdf", []byte("%PDF-1.4 test"))
}

func newController(t *testing.T, svc analysis.Service) (*Controller, *store.ResultStore) {
	t.Helper()
	results := store.New(store.NewMemoryKV())
	return New(svc, results), results
}

func TestController_Offer(t *testing.T) {
	c, _ := newController(t, new(mocks.MockService))

	c.DragEnter()
	assert.Equal(t, PhaseDragging, c.Snapshot().Phase)

	require.NoError(t, c.Offer(pdfCandidate()))
	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "statement.pdf", snap.FileName)
	assert.True(t, snap.CanAnalyze())

	err := c.Offer(intake.FromBytes("notes.txt", "text/plain", []byte("hi")))
	require.Error(t, err)
	snap = c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, intake.MsgNotPDF, snap.Message)
	assert.True(t, snap.Validation)
	assert.Empty(t, snap.FileName)
	assert.False(t, snap.CanAnalyze())
}

func TestController_AnalyzeSuccess(t *testing.T) {
	svc := new(mocks.MockService)
	c, results := newController(t, svc)
	require.NoError(t, c.Offer(pdfCandidate()))

	report := &model.ScoreReport{TrustScore: 82}
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(f *model.StagedFile) bool {
		return f.Name == "statement.pdf"
	}), "secret").Return(report, nil).Once()

	got, err := c.Analyze(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, 82, got.TrustScore)
	assert.Equal(t, PhaseSuccess, c.Snapshot().Phase)

	stored, ok := results.Load()
	require.True(t, ok)
	assert.Equal(t, 82, stored.TrustScore)
	svc.AssertExpectations(t)
}

func TestController_AnalyzeFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"upstream detail", apperror.Upstream("Password required", 400), "Password required"},
		{"payload", apperror.Payload(analysis.MsgAnalysisFailed, errors.New("no trust_score")), analysis.MsgAnalysisFailed},
		{"network", apperror.Network(analysis.MsgUploadFailed, errors.New("refused")), analysis.MsgUploadFailed},
		{"untyped", errors.New("boom"), analysis.MsgUploadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockService)
			c, results := newController(t, svc)
			require.NoError(t, c.Offer(pdfCandidate()))
			svc.On("Analyze", mock.Anything, mock.Anything, "").Return(nil, tt.err).Once()

			_, err := c.Analyze(context.Background(), "")
			require.Error(t, err)
			snap := c.Snapshot()
			assert.Equal(t, PhaseError, snap.Phase)
			assert.Equal(t, tt.want, snap.Message)
			assert.False(t, snap.Validation)

			_, ok := results.Load()
			assert.False(t, ok)
		})
	}
}

func TestController_AnalyzeNothingStaged(t *testing.T) {
	svc := new(mocks.MockService)
	c, _ := newController(t, svc)

	_, err := c.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, ErrNothingStaged)
	svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_SingleRequestInFlight(t *testing.T) {
	svc := new(mocks.MockService)
	c, _ := newController(t, svc)
	require.NoError(t, c.Offer(pdfCandidate()))

	started := make(chan struct{})
	release := make(chan struct{})
	svc.On("Analyze", mock.Anything, mock.Anything, "").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&model.ScoreReport{TrustScore: 50}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Analyze(context.Background(), "")
		assert.NoError(t, err)
	}()
	<-started

	assert.Equal(t, PhaseUploading, c.Snapshot().Phase)
	for i := 0; i < 5; i++ {
		_, err := c.Analyze(context.Background(), "")
		assert.ErrorIs(t, err, ErrInFlight)
	}
	assert.ErrorIs(t, c.Offer(pdfCandidate()), ErrInFlight)
	assert.ErrorIs(t, c.Reset(), ErrInFlight)

	close(release)
	wg.Wait()

	assert.Equal(t, PhaseSuccess, c.Snapshot().Phase)
	svc.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestController_Reset(t *testing.T) {
	svc := new(mocks.MockService)
	c, results := newController(t, svc)
	require.NoError(t, c.Offer(pdfCandidate()))
	svc.On("Analyze", mock.Anything, mock.Anything, "").Return(&model.ScoreReport{TrustScore: 70}, nil).Once()
	_, err := c.Analyze(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, c.Reset())
	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.FileName)
	assert.Empty(t, snap.Message)

	_, ok := results.Load()
	assert.False(t, ok)
}

func TestController_AnalyzeSpan(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"no password", "", false},
		{"blank password", "   ", false},
		{"password", " 1234 ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

			svc := new(mocks.MockService)
			svc.On("Analyze", mock.Anything, mock.Anything, tt.password).Return(&model.ScoreReport{TrustScore: 77}, nil).Once()
			c := New(svc, store.New(store.NewMemoryKV()), WithTracerProvider(tp))
			require.NoError(t, c.Offer(pdfCandidate()))

			_, err := c.Analyze(context.Background(), tt.password)
			require.NoError(t, err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, "workflow.analyze", spans[0].Name())
			attrs := attribute.NewSet(spans[0].Attributes()...)
			supplied, ok := attrs.Value("statement.password_supplied")
			require.True(t, ok)
			assert.Equal(t, tt.want, supplied.AsBool())
			score, _ := attrs.Value("report.trust_score")
			assert.Equal(t, int64(77), score.AsInt64())
		})
	}
}
