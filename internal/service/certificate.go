package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rentscore/internal/model"
	"rentscore/internal/repository"
	"rentscore/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrInvalidID  = errors.New("id is not a valid certificate id")
	ErrNotFound   = errors.New("certificate not found")
	ErrReaderNil  = errors.New("reader is nil")
	ErrReportNil  = errors.New("report is nil")
)

// Verification is what a landlord sees when checking a certificate ID.
type Verification struct {
	Certificate model.CertificateRecord `json:"certificate"`
	DownloadURL string                  `json:"download_url"`
	ExpiresAt   time.Time               `json:"download_expires_at"`
}

// CertificateService keeps issued certificates so they can be verified later.
type CertificateService interface {
	// Archive uploads the certificate to object storage and registers it. The object
	// is removed again when the registry write fails.
	Archive(ctx context.Context, report *model.ScoreReport, r io.Reader, size int64) (*model.CertificateRecord, error)

	// Verify returns the registry entry and a short-lived download URL.
	Verify(ctx context.Context, id string) (*Verification, error)

	// Open streams an archived certificate. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.CertificateRecord, error)

	// Ready reports whether the registry is reachable.
	Ready(ctx context.Context) error
}

type certificateService struct {
	store      storage.Storage
	repo       repository.CertificateRepository
	presignTTL time.Duration
	now        func() time.Time
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(store storage.Storage, repo repository.CertificateRepository, presignTTL time.Duration) CertificateService {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &certificateService{
		store:      store,
		repo:       repo,
		presignTTL: presignTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *certificateService) Archive(ctx context.Context, report *model.ScoreReport, r io.Reader, size int64) (*model.CertificateRecord, error) {
	if report == nil {
		return nil, ErrReportNil
	}
	if r == nil {
		return nil, ErrReaderNil
	}

	id := uuid.New().String()
	key := storage.CertificateKey(id)

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: "application/pdf",
		Metadata: map[string]string{
			"trust-score": strconv.Itoa(report.TrustScore),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec := &model.CertificateRecord{
		ID:           id,
		TrustScore:   report.TrustScore,
		PaymentCount: len(report.VerifiedPayments),
		StoragePath:  objInfo.Key,
		Size:         objInfo.Size,
		ContentType:  objInfo.ContentType,
		CreatedAt:    s.now(),
	}
	stored, err := s.repo.Create(ctx, rec)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *certificateService) Verify(ctx context.Context, id string) (*Verification, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, rec.StoragePath, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign certificate: %w", err)
	}
	return &Verification{
		Certificate: *rec,
		DownloadURL: u,
		ExpiresAt:   s.now().Add(s.presignTTL),
	}, nil
}

func (s *certificateService) Open(ctx context.Context, id string) (io.ReadCloser, *model.CertificateRecord, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, rec.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open certificate: %w", err)
	}
	return rc, rec, nil
}

func (s *certificateService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *certificateService) find(ctx context.Context, id string) (*model.CertificateRecord, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}
