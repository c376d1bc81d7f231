package postgres

import (
	"context"
	"database/sql"

	"rentscore/internal/model"
	"rentscore/internal/repository"
)

// CertificatePostgres is a PostgreSQL implementation of repository.CertificateRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CertificatePostgres struct {
	db *sql.DB
}

// NewCertificatePostgres creates a new CertificatePostgres repository.
func NewCertificatePostgres(db *sql.DB) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

var _ repository.CertificateRepository = (*CertificatePostgres)(nil)

const certificateColumns = `id, trust_score, payment_count, storage_path, size, content_type, created_at`

// Create inserts a new certificate row and returns the stored record.
func (r *CertificatePostgres) Create(ctx context.Context, rec *model.CertificateRecord) (*model.CertificateRecord, error) {
	const q = `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + certificateColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.TrustScore,
		rec.PaymentCount,
		rec.StoragePath,
		rec.Size,
		rec.ContentType,
		rec.CreatedAt,
	)
	return scanCertificate(row)
}

// FindByID fetches a single certificate by its ID.
func (r *CertificatePostgres) FindByID(ctx context.Context, id string) (*model.CertificateRecord, error) {
	const q = `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE id = $1
	`
	return scanCertificate(r.db.QueryRowContext(ctx, q, id))
}

// Delete removes a certificate by ID. It does not return an error if the row does not exist.
func (r *CertificatePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM certificates WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// Ping verifies the database is reachable.
func (r *CertificatePostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanCertificate(row *sql.Row) (*model.CertificateRecord, error) {
	var c model.CertificateRecord
	if err := row.Scan(
		&c.ID,
		&c.TrustScore,
		&c.PaymentCount,
		&c.StoragePath,
		&c.Size,
		&c.ContentType,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
