package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentscore/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. certs may be nil
// when no certificate archive is configured; the verification routes then answer
// 404 through the default handler.
func RegisterRoutes(app *fiber.App, web *Web, certs service.CertificateService, gatherer prometheus.Gatherer) {
	app.Get("/", web.Intake)
	app.Post("/upload", web.Upload)
	app.Post("/analyze", web.Analyze)
	app.Post("/reset", web.Reset)
	app.Get("/results", web.Results)
	app.Post("/results/certificate", web.DownloadCertificate)

	var ready Pinger
	if certs != nil {
		ready = certs
		app.Get("/certificates/:id", VerifyCertificate(certs))
		app.Get("/certificates/:id/file", CertificateFile(certs))
	}

	app.Get("/health", HealthCheck(ready))
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
