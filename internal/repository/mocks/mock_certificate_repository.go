package mocks

import (
	"context"

	"rentscore/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockCertificateRepository struct {
	mock.Mock
}

func (m *MockCertificateRepository) Create(ctx context.Context, rec *model.CertificateRecord) (*model.CertificateRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateRecord), args.Error(1)
}

func (m *MockCertificateRepository) FindByID(ctx context.Context, id string) (*model.CertificateRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateRecord), args.Error(1)
}

func (m *MockCertificateRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCertificateRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
