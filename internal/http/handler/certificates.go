package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"rentscore/internal/certificate"
	"rentscore/internal/service"
)

// VerifyCertificate returns the registry entry of an archived certificate with a
// short-lived download URL.
func VerifyCertificate(certs service.CertificateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := certs.Verify(c.UserContext(), c.Params("id"))
		if err != nil {
			return certificateError(c, err)
		}
		return c.JSON(v)
	}
}

// CertificateFile streams an archived certificate.
func CertificateFile(certs service.CertificateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, rec, err := certs.Open(c.UserContext(), c.Params("id"))
		if err != nil {
			return certificateError(c, err)
		}
		c.Attachment(certificate.FileName)
		c.Set(fiber.HeaderContentType, certificate.ContentType)
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, int(rec.Size))
	}
}

func certificateError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired), errors.Is(err, service.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "certificate not found")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
