package mocks

import (
	"context"
	"io"

	"rentscore/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Analyze(ctx context.Context, file *model.StagedFile, password string) (*model.ScoreReport, error) {
	args := m.Called(ctx, file, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScoreReport), args.Error(1)
}

func (m *MockService) Certificate(ctx context.Context, report *model.ScoreReport) (io.ReadCloser, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
