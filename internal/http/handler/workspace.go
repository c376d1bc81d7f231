package handler

import (
	"context"
	"sync"
	"time"

	"rentscore/internal/certificate"
	"rentscore/internal/store"
	"rentscore/internal/workflow"
)

// Workspace is the per-session state of the upload and results pages.
type Workspace struct {
	Controller *workflow.Controller
	Exporter   *certificate.Exporter
	Results    *store.ResultStore

	mu       sync.Mutex
	certErr  string
	lastSeen time.Time
}

// CertificateError is the message of the last failed export, if any.
func (w *Workspace) CertificateError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.certErr
}

func (w *Workspace) setCertificateError(msg string) {
	w.mu.Lock()
	w.certErr = msg
	w.mu.Unlock()
}

func (w *Workspace) busy() bool {
	return w.Controller.Snapshot().Phase == workflow.PhaseUploading || w.Exporter.InFlight()
}

// Workspaces maps session IDs to workspaces. Idle workspaces are evicted by Sweep.
type Workspaces struct {
	ttl   time.Duration
	build func() *Workspace
	now   func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces creates a registry whose workspaces come from build.
func NewWorkspaces(ttl time.Duration, build func() *Workspace) *Workspaces {
	return &Workspaces{
		ttl:   ttl,
		build: build,
		now:   time.Now,
		items: make(map[string]*Workspace),
	}
}

// Get returns the workspace of session id, creating it on first use.
func (ws *Workspaces) Get(id string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.items[id]
	if !ok {
		w = ws.build()
		ws.items[id] = w
	}
	w.mu.Lock()
	w.lastSeen = ws.now()
	w.mu.Unlock()
	return w
}

// Len is the number of live workspaces.
func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// Sweep drops workspaces idle for longer than the TTL. A workspace with a request
// in flight is kept. It returns the number evicted.
func (ws *Workspaces) Sweep() int {
	cutoff := ws.now().Add(-ws.ttl)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	n := 0
	for id, w := range ws.items {
		w.mu.Lock()
		idle := w.lastSeen.Before(cutoff)
		w.mu.Unlock()
		if idle && !w.busy() {
			delete(ws.items, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (ws *Workspaces) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ws.Sweep()
		}
	}
}
