// Command rentscore scores an M-Pesa statement from the terminal: it submits the
// PDF to the analysis service, prints the results and optionally saves the
// certificate.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"rentscore/internal/analysis"
	"rentscore/internal/apperror"
	"rentscore/internal/certificate"
	"rentscore/internal/config"
	"rentscore/internal/intake"
	"rentscore/internal/logging"
	"rentscore/internal/render"
	"rentscore/internal/store"
	"rentscore/internal/workflow"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("rentscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", cfg.Analysis.BaseURL, "Base URL of the analysis service")
	password := fs.String("password", "", "Statement PDF password, if any")
	certDir := fs.String("certificate-dir", "", "Save the Trust Score certificate into this directory")
	timeout := fs.Duration("timeout", cfg.Analysis.Timeout(), "Client-side deadline of each request")
	verbose := fs.Bool("v", false, "Log workflow events to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rentscore [flags] statement.pdf")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	log := logging.Discard()
	if *verbose {
		log = logging.New(stderr, cfg.Location())
	}

	candidate, err := intake.FromPath(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, "rentscore:", err)
		return 1
	}

	client := analysis.NewClient(*apiURL, *timeout)
	results := store.New(store.NewMemoryKV())
	ctrl := workflow.New(client, results, workflow.WithLogger(log))

	if err := ctrl.Offer(candidate); err != nil {
		fmt.Fprintln(stderr, "rentscore:", ctrl.Snapshot().Message)
		return 1
	}

	start := time.Now()
	if _, err := ctrl.Analyze(ctx, *password); err != nil {
		fmt.Fprintln(stderr, "rentscore:", ctrl.Snapshot().Message)
		return 1
	}
	log.Info("analysis_finished", map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	view := render.Results(results)
	if err := render.WriteResultsText(stdout, view); err != nil {
		fmt.Fprintln(stderr, "rentscore:", err)
		return 1
	}

	if *certDir == "" {
		return 0
	}
	report, _ := results.Load()
	sink := &certificate.DirSink{Dir: *certDir}
	if _, err := certificate.NewExporter(client, certificate.WithLogger(log)).Export(ctx, report, sink); err != nil {
		fmt.Fprintln(stderr, "rentscore:", apperror.Message(err, analysis.MsgDownloadFailed))
		return 1
	}
	fmt.Fprintln(stdout, "Certificate saved to", sink.Path)
	return 0
}
