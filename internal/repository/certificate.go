package repository

import (
	"context"

	"rentscore/internal/model"
)

// CertificateRepository is data access for the certificate registry using SQL
// queries only. No business logic here.
type CertificateRepository interface {
	// Create inserts a new record and returns it as stored.
	Create(ctx context.Context, rec *model.CertificateRecord) (*model.CertificateRecord, error)

	// FindByID returns a record by its ID. A missing row is sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.CertificateRecord, error)

	// Delete removes a record by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error

	// Ping checks the connection for readiness probes.
	Ping(ctx context.Context) error
}
