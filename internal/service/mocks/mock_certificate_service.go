package mocks

import (
	"context"
	"io"

	"rentscore/internal/model"
	"rentscore/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockCertificateService struct {
	mock.Mock
}

func (m *MockCertificateService) Archive(ctx context.Context, report *model.ScoreReport, r io.Reader, size int64) (*model.CertificateRecord, error) {
	args := m.Called(ctx, report, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateRecord), args.Error(1)
}

func (m *MockCertificateService) Verify(ctx context.Context, id string) (*service.Verification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Verification), args.Error(1)
}

func (m *MockCertificateService) Open(ctx context.Context, id string) (io.ReadCloser, *model.CertificateRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.CertificateRecord), args.Error(2)
}

func (m *MockCertificateService) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ service.CertificateService = (*MockCertificateService)(nil)
