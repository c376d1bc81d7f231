package model

import "time"

// CertificateRecord is the registry entry of an archived certificate that a
// landlord can verify by ID.
type CertificateRecord struct {
	ID           string    `json:"id"`
	TrustScore   int       `json:"trust_score"`
	PaymentCount int       `json:"payment_count"`
	StoragePath  string    `json:"-"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}
