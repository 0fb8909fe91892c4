// Package generation runs document-generation jobs: it plans the jobs a
// document type fans out to, renders them one at a time, stores each
// artifact, writes the work log and applies the document's stage change.
package generation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/internal/render"
	"github.com/aldoetobex/pi-case-backend/internal/storage"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/sanitize"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
)

// Renderer turns a payload into a PDF.
type Renderer interface {
	Render(ctx context.Context, body any) (render.Document, error)
}

// Records is the slice of the record store a run needs.
type Records interface {
	LoadBundle(ctx context.Context, caseID uuid.UUID) (bundle.Case, error)
	CreateDocument(ctx context.Context, doc *models.CaseFile) error
	AppendWorkLog(ctx context.Context, entry *models.WorkLogEntry) error
	UpdateStage(ctx context.Context, caseID uuid.UUID, to models.StageStatus) error
}

// Observer sees every job status change, in order.
type Observer func(Job)

// Transition reports the stage side effect of a run.
type Transition struct {
	From    models.StageStatus `json:"from"`
	To      models.StageStatus `json:"to"`
	Applied bool               `json:"applied"`
	Warning string             `json:"warning,omitempty"`
}

// RunResult summarizes a finished run. A partly failed run is not rolled
// back.
type RunResult struct {
	DocumentType string      `json:"document_type"`
	Jobs         []Job       `json:"jobs"`
	Succeeded    int         `json:"succeeded"`
	Failed       int         `json:"failed"`
	Transition   *Transition `json:"transition,omitempty"`
}

type Orchestrator struct {
	builder   *payload.Builder
	renderer  Renderer
	artifacts storage.Store
	records   Records
	gate      Gate
	observer  Observer
	now       func() time.Time
	log       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGate replaces the default in-memory gate.
func WithGate(g Gate) Option {
	return func(o *Orchestrator) {
		o.gate = g
	}
}

// WithObserver registers a job progress observer.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func New(b *payload.Builder, r Renderer, artifacts storage.Store, records Records, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		builder:   b,
		renderer:  r,
		artifacts: artifacts,
		records:   records,
		gate:      NewMemoryGate(),
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Preview plans a request without rendering anything. Missing recipients
// are allowed so staff can inspect the payload before fixing the data.
func (o *Orchestrator) Preview(ctx context.Context, req Request) (*Plan, error) {
	c, err := o.records.LoadBundle(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	return plan(o.builder, c, req, o.now(), false)
}

// Run executes a request end to end. Validation failures return an error
// before any job starts; per-job failures are reported in the result.
// Jobs run strictly one after another, in target order.
func (o *Orchestrator) Run(ctx context.Context, req Request, actor utils.Actor) (*RunResult, error) {
	// a run always finishes once started
	ctx = context.WithoutCancel(ctx)

	release, err := o.gate.Acquire(ctx, req.CaseID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := o.records.LoadBundle(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	p, err := plan(o.builder, c, req, o.now(), true)
	if err != nil {
		return nil, err
	}

	log := o.log.With("case_id", c.ID, "document_type", p.Type.Key)
	log.Info("generation run started", "jobs", len(p.Jobs))

	res := &RunResult{DocumentType: p.Type.Key}
	for _, j := range p.Jobs {
		o.notify(j)
		o.execute(ctx, p, j, actor)

		if j.Status == StatusSuccess {
			res.Succeeded++
			log.Info("generation job finished", "job", j.Index, "target", j.Name, "status", j.Status, "document_id", j.DocumentID)
		} else {
			res.Failed++
			log.Warn("generation job finished", "job", j.Index, "target", j.Name, "status", j.Status, "error", sanitize.RedactPII(j.Error))
		}
		res.Jobs = append(res.Jobs, j.snapshot())
	}

	if res.Succeeded > 0 && p.Type.Transition != nil {
		res.Transition = o.applyTransition(ctx, p, actor)
	}

	log.Info("generation run finished", "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}

func (o *Orchestrator) notify(j *Job) {
	if o.observer != nil {
		o.observer(j.snapshot())
	}
}

// execute drives one job to a terminal status.
func (o *Orchestrator) execute(ctx context.Context, p *Plan, j *Job, actor utils.Actor) {
	_ = j.moveTo(StatusGenerating)
	o.notify(j)

	defer o.notify(j)
	fail := func(msg string) { _ = j.fail(msg) }

	doc, err := o.renderer.Render(ctx, j.payload)
	if err != nil {
		fail(err.Error())
		return
	}

	filename := strings.TrimSpace(doc.Filename)
	if filename == "" {
		filename = DefaultFilename(p.Type.Title, j.Name, p.Now)
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	mime := doc.MIME
	if mime == "" || mime == "application/octet-stream" {
		mime = "application/pdf"
	}

	key := storage.ObjectKey(p.Case.ID, filename)
	url, err := o.artifacts.Upload(ctx, key, bytes.NewReader(doc.Data), mime, int64(len(doc.Data)))
	if err != nil {
		fail(err.Error())
		return
	}

	note := fmt.Sprintf("Generated %s for %s", p.Type.Title, j.Name)
	if email := j.payload[string(payload.RecipientEmail)]; email != "" {
		note += " (to " + email + ")"
	}
	file := &models.CaseFile{
		CaseID:     p.Case.ID,
		Key:        key,
		URL:        url,
		Filename:   filename,
		Mime:       mime,
		Size:       len(doc.Data),
		Category:   models.CategoryGenerated,
		UploadedBy: actor.DisplayName(),
		Note:       note,
	}
	if err := o.records.CreateDocument(ctx, file); err != nil {
		_ = o.artifacts.Delete(ctx, key)
		fail(err.Error())
		return
	}

	entry := &models.WorkLogEntry{
		CaseID:    p.Case.ID,
		ActorID:   actor.ID,
		ActorName: actor.DisplayName(),
		Action:    models.ActionDocumentGenerated,
		Note:      note,
	}
	if err := o.records.AppendWorkLog(ctx, entry); err != nil {
		j.warn("work log entry not saved: " + err.Error())
	}

	id := file.ID
	j.DocumentID = &id
	j.Filename = filename
	j.URL = url
	_ = j.moveTo(StatusSuccess)
}

// applyTransition moves the case to the document's stage/status unless it
// is already there, and logs the change.
func (o *Orchestrator) applyTransition(ctx context.Context, p *Plan, actor utils.Actor) *Transition {
	from := models.StageStatus{Stage: p.Case.Stage, Status: p.Case.Status}
	to := *p.Type.Transition
	t := &Transition{From: from, To: to}
	if from == to {
		return t
	}

	if err := o.records.UpdateStage(ctx, p.Case.ID, to); err != nil {
		t.Warning = "stage not updated: " + err.Error()
		o.log.Warn("stage side effect failed", "case_id", p.Case.ID, "to", to.String(), "error", err)
		return t
	}
	t.Applied = true

	entry := utils.StageEntry(p.Case.ID, actor, from, to, "Automatic after generating "+p.Type.Title)
	if err := o.records.AppendWorkLog(ctx, entry); err != nil {
		t.Warning = "work log entry not saved: " + err.Error()
	}
	return t
}
