package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"rentscore/internal/model"
	repoMocks "rentscore/internal/repository/mocks"
	"rentscore/internal/storage"
	storeMocks "rentscore/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const certID = "6f1c1a52-7c57-4a39-8f4e-9d7fbd6f0b11"

func TestCertificateService_Archive(t *testing.T) {
	ctx := context.Background()
	report := &model.ScoreReport{
		TrustScore:       82,
		VerifiedPayments: []model.VerifiedPayment{{Month: "2024-01", Amount: 15000}, {Month: "2024-02", Amount: 15000}},
	}

	tests := []struct {
		name       string
		report     *model.ScoreReport
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader
		wantErr    error
		wantErrMsg string
	}{
		{
			name:   "happy path",
			report: report,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "certificates/") && strings.HasSuffix(key, ".pdf")
				}), r, storage.PutObjectOptions{
					Size:        8,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"trust-score": "82"},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					return storage.ObjectInfo{Key: key, Size: 8, ContentType: "application/pdf"}
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(rec *model.CertificateRecord) bool {
					return rec.TrustScore == 82 && rec.PaymentCount == 2 &&
						rec.StoragePath == storage.CertificateKey(rec.ID)
				})).Return(&model.CertificateRecord{ID: certID, TrustScore: 82}, nil)

				return r
			},
		},
		{
			name:   "nil report",
			report: nil,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				return strings.NewReader("x")
			},
			wantErr: ErrReportNil,
		},
		{
			name:   "nil reader",
			report: report,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:   "storage error",
			report: report,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:   "repository error with successful rollback",
			report: report,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return r
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:   "repository error with failed rollback",
			report: report,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockCertificateRepository) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockCertificateRepository)
			svc := NewCertificateService(mStore, mRepo, time.Minute)

			r := tt.setupMocks(mStore, mRepo)
			rec, err := svc.Archive(ctx, tt.report, r, 8)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.Nil(t, rec)
			default:
				require.NoError(t, err)
				assert.Equal(t, certID, rec.ID)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestCertificateService_Verify(t *testing.T) {
	ctx := context.Background()
	rec := &model.CertificateRecord{ID: certID, TrustScore: 82, StoragePath: storage.CertificateKey(certID)}

	t.Run("found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mRepo.On("FindByID", ctx, certID).Return(rec, nil)
		mStore.On("PresignGet", ctx, rec.StoragePath, 10*time.Minute).Return("https://minio/certificates/x.pdf?sig", nil)

		svc := NewCertificateService(mStore, mRepo, 10*time.Minute)
		v, err := svc.Verify(ctx, certID)

		require.NoError(t, err)
		assert.Equal(t, 82, v.Certificate.TrustScore)
		assert.Equal(t, "https://minio/certificates/x.pdf?sig", v.DownloadURL)
		assert.False(t, v.ExpiresAt.IsZero())
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockCertificateRepository)
		mRepo.On("FindByID", ctx, certID).Return(nil, sql.ErrNoRows)

		svc := NewCertificateService(new(storeMocks.MockStorage), mRepo, time.Minute)
		_, err := svc.Verify(ctx, certID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := NewCertificateService(new(storeMocks.MockStorage), new(repoMocks.MockCertificateRepository), time.Minute)
		_, err := svc.Verify(ctx, "../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidID)

		_, err = svc.Verify(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestCertificateService_Open(t *testing.T) {
	ctx := context.Background()
	rec := &model.CertificateRecord{ID: certID, StoragePath: storage.CertificateKey(certID)}

	t.Run("streams object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mRepo.On("FindByID", ctx, certID).Return(rec, nil)
		mStore.On("Get", ctx, rec.StoragePath).
			Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{Size: 4}, nil)

		rc, got, err := NewCertificateService(mStore, mRepo, 0).Open(ctx, certID)
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "%PDF", string(b))
		assert.Equal(t, certID, got.ID)
	})

	t.Run("object gone", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mRepo.On("FindByID", ctx, certID).Return(rec, nil)
		mStore.On("Get", ctx, rec.StoragePath).Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, _, err := NewCertificateService(mStore, mRepo, 0).Open(ctx, certID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCertificateService_Ready(t *testing.T) {
	mRepo := new(repoMocks.MockCertificateRepository)
	mRepo.On("Ping", mock.Anything).Return(errors.New("down"))

	err := NewCertificateService(new(storeMocks.MockStorage), mRepo, 0).Ready(context.Background())
	assert.Error(t, err)
}
