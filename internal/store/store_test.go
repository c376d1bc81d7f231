package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentscore/internal/model"
)

type failingKV struct{ MemoryKV }

func (*failingKV) Set(string, []byte) error { return errors.New("quota exceeded") }

func TestResultStore_SaveLoad(t *testing.T) {
	s := New(NewMemoryKV())

	_, ok := s.Load()
	assert.False(t, ok, "empty store reports absent")

	first, err := model.ParseScoreReport([]byte(`{"trust_score":82,"verified_payments":[]}`))
	require.NoError(t, err)
	require.NoError(t, s.Save(first))

	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, 82, got.TrustScore)

	second, err := model.ParseScoreReport([]byte(`{"trust_score":40,"verified_payments":[],"transactions":[{"Details":"x"}]}`))
	require.NoError(t, err)
	require.NoError(t, s.Save(second))

	got, ok = s.Load()
	require.True(t, ok)
	assert.Equal(t, 40, got.TrustScore, "save overwrites")
	assert.True(t, got.HasTransactions())

	require.NoError(t, s.Clear())
	_, ok = s.Load()
	assert.False(t, ok)
}

func TestResultStore_CorruptEntryIsAbsent(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{not-json"},
		{"missing trust score", `{"verified_payments":[]}`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(AnalysisKey, []byte(tt.value)))

			r, ok := New(kv).Load()
			assert.False(t, ok)
			assert.Nil(t, r)
		})
	}
}

func TestResultStore_SaveErrors(t *testing.T) {
	assert.ErrorIs(t, New(NewMemoryKV()).Save(nil), ErrNilReport)

	err := New(&failingKV{}).Save(&model.ScoreReport{TrustScore: 1})
	assert.ErrorContains(t, err, "store report: quota exceeded")
}
