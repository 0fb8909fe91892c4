package generation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/internal/render"
	"github.com/aldoetobex/pi-case-backend/pkg/config"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
)

var pdf = []byte("%PDF-1.4\n%%EOF\n")

/* ------------------------------- fakes ---------------------------------- */

type fakeRenderer struct {
	mu     sync.Mutex
	calls  []payload.Payload
	failOn func(payload.Payload) error
}

func (r *fakeRenderer) Render(_ context.Context, body any) (render.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := body.(payload.Payload)
	r.calls = append(r.calls, p)
	if r.failOn != nil {
		if err := r.failOn(p); err != nil {
			return render.Document{}, err
		}
	}
	return render.Document{Data: pdf, MIME: "application/pdf"}, nil
}

type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	err     error
}

func (a *fakeArtifacts) Upload(_ context.Context, key string, r io.Reader, _ string, _ int64) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	data, _ := io.ReadAll(r)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return "https://files.test/" + key, nil
}

func (a *fakeArtifacts) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key + "?signed", nil
}

func (a *fakeArtifacts) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	a.deleted = append(a.deleted, key)
	return nil
}

type fakeRecords struct {
	mu        sync.Mutex
	c         bundle.Case
	docs      []models.CaseFile
	log       []models.WorkLogEntry
	stage     models.StageStatus
	docErr    error
	logErr    error
	stageErr  error
	loadCount int
}

func (f *fakeRecords) LoadBundle(_ context.Context, id uuid.UUID) (bundle.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCount++
	if id != f.c.ID {
		return bundle.Case{}, errors.New("case not found")
	}
	return f.c, nil
}

func (f *fakeRecords) CreateDocument(_ context.Context, doc *models.CaseFile) error {
	if f.docErr != nil {
		return f.docErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.ID = uuid.New()
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeRecords) AppendWorkLog(_ context.Context, e *models.WorkLogEntry) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, *e)
	return nil
}

func (f *fakeRecords) UpdateStage(_ context.Context, _ uuid.UUID, to models.StageStatus) error {
	if f.stageErr != nil {
		return f.stageErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stage = to
	return nil
}

/* ------------------------------ fixtures -------------------------------- */

type env struct {
	records   *fakeRecords
	renderer  *fakeRenderer
	artifacts *fakeArtifacts
	orch      *Orchestrator
	events    []Job
	clients   []uuid.UUID
}

var fixedNow = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	clinic := uuid.New()
	c := bundle.Case{
		ID:     uuid.New(),
		Stage:  models.StageIntake,
		Status: "Signed Up",
		Clients: []bundle.Client{
			{ID: ids[0], Position: 0, FirstName: "Luis", LastName: "Reyes", Email: "luis@mail.com"},
			{ID: ids[1], Position: 1, FirstName: "Ana", LastName: "Reyes", IsDriver: true, Email: "ana@mail.com"},
			{ID: ids[2], Position: 2, FirstName: "Eva", LastName: "Reyes", Email: "eva@mail.com"},
		},
		Providers: []bundle.Provider{{ID: clinic, Name: "Bayou Chiro", Email: "records@bayou.com"}},
		Bills: []bundle.Bill{
			{ClientID: ids[0], ProviderID: clinic},
			{ClientID: ids[1], ProviderID: clinic},
			{ClientID: ids[2], ProviderID: clinic},
		},
		Claims: []bundle.Claim{{Party: models.ThirdParty, AdjusterEmail: "tp@acme.com"}},
	}

	e := &env{
		records:   &fakeRecords{c: c},
		renderer:  &fakeRenderer{},
		artifacts: &fakeArtifacts{objects: map[string][]byte{}},
		clients:   ids,
	}
	b := payload.NewBuilder(config.Firm{Name: "Cotton Law Firm"}, decimal.RequireFromString("0.67"))
	all := append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithObserver(func(j Job) { e.events = append(e.events, j) }),
	}, opts...)
	e.orch = New(b, e.renderer, e.artifacts, e.records, all...)
	return e
}

func (e *env) request(docType string, clients ...uuid.UUID) Request {
	return Request{CaseID: e.records.c.ID, DocumentType: docType, ClientIDs: clients}
}

var staff = utils.Actor{ID: uuid.New(), Name: "Dana Cotton"}

/* -------------------------------- tests --------------------------------- */

func TestRun_PerClientPartialFailure(t *testing.T) {
	e := newEnv(t)
	e.renderer.failOn = func(p payload.Payload) error {
		if p["client_first_name"] == "Luis" {
			return &render.Error{Kind: render.KindTransport, Message: "render endpoint returned 500: boom"}
		}
		return nil
	}

	res, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients...), staff)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Jobs, 3)

	// driver first, then entry order
	assert.Equal(t, "Ana Reyes", res.Jobs[0].Name)
	assert.Equal(t, "Luis Reyes", res.Jobs[1].Name)
	assert.Equal(t, "Eva Reyes", res.Jobs[2].Name)

	assert.Equal(t, StatusSuccess, res.Jobs[0].Status)
	assert.Equal(t, StatusError, res.Jobs[1].Status)
	assert.Contains(t, res.Jobs[1].Error, "boom")
	assert.Equal(t, StatusSuccess, res.Jobs[2].Status)

	require.NotNil(t, res.Transition)
	assert.True(t, res.Transition.Applied)
	assert.Equal(t, models.StageStatus{Stage: models.StageProcessing, Status: "Treating"}, e.records.stage)

	assert.Len(t, e.records.docs, 2)
	assert.Len(t, e.artifacts.objects, 2)
	// two document entries plus the stage change, in run order
	require.Len(t, e.records.log, 3)
	assert.Contains(t, e.records.log[0].Note, "Ana Reyes")
	assert.Contains(t, e.records.log[1].Note, "Eva Reyes")
	assert.Equal(t, models.ActionStageChanged, e.records.log[2].Action)
	assert.Equal(t, "Dana Cotton", e.records.log[2].ActorName)
}

func TestRun_DocumentRecord(t *testing.T) {
	e := newEnv(t)
	res, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[1]), staff)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)

	doc := e.records.docs[0]
	assert.Equal(t, "HIPAA Request - Ana Reyes - 2025-01-02.pdf", doc.Filename)
	assert.Equal(t, models.CategoryGenerated, doc.Category)
	assert.Equal(t, "application/pdf", doc.Mime)
	assert.Equal(t, len(pdf), doc.Size)
	assert.Equal(t, "Dana Cotton", doc.UploadedBy)
	assert.Contains(t, doc.Note, "records@bayou.com")
	assert.True(t, strings.HasPrefix(doc.Key, "case/"+e.records.c.ID.String()+"/"))
	assert.Equal(t, "https://files.test/"+doc.Key, res.Jobs[0].URL)
	assert.Equal(t, doc.ID, *res.Jobs[0].DocumentID)
}

func TestRun_FilenameFromRenderer(t *testing.T) {
	e := newEnv(t)
	e.orch.renderer = rendererFunc(func(context.Context, any) (render.Document, error) {
		return render.Document{Data: pdf, Filename: "Demand Letter Reyes"}, nil
	})
	res, err := e.orch.Run(context.Background(), e.request(documents.DemandLetter), staff)
	require.NoError(t, err)
	assert.Equal(t, "Demand Letter Reyes.pdf", res.Jobs[0].Filename)
	assert.Equal(t, "application/pdf", e.records.docs[0].Mime)
}

type rendererFunc func(context.Context, any) (render.Document, error)

func (f rendererFunc) Render(ctx context.Context, body any) (render.Document, error) {
	return f(ctx, body)
}

func TestRun_AllClientsIsOneJob(t *testing.T) {
	e := newEnv(t)
	res, err := e.orch.Run(context.Background(), e.request(documents.DemandLetter), staff)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Reyes Family", res.Jobs[0].Name)
	assert.Nil(t, res.Jobs[0].TargetID)
	assert.Equal(t, "tp@acme.com", e.renderer.calls[0]["recipient_email"])
	assert.Equal(t, models.StageStatus{Stage: models.StageDemand, Status: "Demand Sent"}, e.records.stage)
}

func TestRun_Preconditions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.orch.Run(ctx, e.request(documents.HIPAARequest), staff)
	assert.ErrorIs(t, err, ErrNoClientSelected)

	_, err = e.orch.Run(ctx, e.request("cotton_nope"), staff)
	assert.ErrorIs(t, err, ErrUnknownDocumentType)

	_, err = e.orch.Run(ctx, e.request(documents.HIPAARequest, uuid.New()), staff)
	assert.ErrorIs(t, err, ErrUnknownClient)

	// no first-party claim on file
	_, err = e.orch.Run(ctx, e.request(documents.LORFirstParty), staff)
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.True(t, IsValidation(err))

	e.records.c.Clients = nil
	_, err = e.orch.Run(ctx, e.request(documents.DemandLetter), staff)
	assert.ErrorIs(t, err, ErrNoClients)

	assert.Empty(t, e.renderer.calls, "nothing renders when a precondition fails")
	assert.Empty(t, e.records.log)
}

func TestRun_CaseLevelWithoutClients(t *testing.T) {
	e := newEnv(t)
	e.records.c.Clients = nil
	res, err := e.orch.Run(context.Background(), e.request(documents.CaseSummary), staff)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, "Unknown", res.Jobs[0].Name)
	assert.Nil(t, res.Transition)
}

func TestRun_NoTransitionWhenAllFail(t *testing.T) {
	e := newEnv(t)
	e.renderer.failOn = func(payload.Payload) error {
		return &render.Error{Kind: render.KindInactive, Message: "document workflow is not active"}
	}
	res, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients...), staff)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	assert.Nil(t, res.Transition)
	assert.Equal(t, models.StageStatus{}, e.records.stage)
}

func TestRun_TransitionSkippedWhenAlreadyThere(t *testing.T) {
	e := newEnv(t)
	e.records.c.Stage, e.records.c.Status = models.StageIntake, "Signed Up"
	res, err := e.orch.Run(context.Background(), e.request(documents.RetainerAgreement, e.clients[0]), staff)
	require.NoError(t, err)
	require.NotNil(t, res.Transition)
	assert.False(t, res.Transition.Applied)
	assert.Equal(t, models.StageStatus{}, e.records.stage, "UpdateStage not called")
}

func TestRun_UploadAndRecordFailures(t *testing.T) {
	e := newEnv(t)
	e.artifacts.err = errors.New("supabase upload error: 404 Not Found | Bucket not found")
	res, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0]), staff)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Jobs[0].Status)
	assert.Equal(t, "supabase upload error: 404 Not Found | Bucket not found", res.Jobs[0].Error)

	e = newEnv(t)
	e.records.docErr = errors.New(`duplicate key value violates unique constraint "case_files_pkey"`)
	res, err = e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0]), staff)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Jobs[0].Status)
	assert.Equal(t, `duplicate key value violates unique constraint "case_files_pkey"`, res.Jobs[0].Error)
	assert.Empty(t, e.artifacts.objects, "orphaned upload removed")
	assert.Len(t, e.artifacts.deleted, 1)
}

func TestRun_WorkLogFailureIsWarning(t *testing.T) {
	e := newEnv(t)
	e.records.logErr = errors.New("connection reset")
	res, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0]), staff)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Jobs[0].Status)
	require.Len(t, res.Jobs[0].Warnings, 1)
	assert.Contains(t, res.Jobs[0].Warnings[0], "connection reset")
	require.NotNil(t, res.Transition)
	assert.True(t, res.Transition.Applied)
	assert.Contains(t, res.Transition.Warning, "connection reset")
}

func TestRun_ObserverSeesOrderedLifecycle(t *testing.T) {
	e := newEnv(t)
	_, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0], e.clients[1]), staff)
	require.NoError(t, err)

	var got []string
	for _, j := range e.events {
		got = append(got, j.Name+":"+string(j.Status))
	}
	assert.Equal(t, []string{
		"Ana Reyes:pending", "Ana Reyes:generating", "Ana Reyes:success",
		"Luis Reyes:pending", "Luis Reyes:generating", "Luis Reyes:success",
	}, got)
}

func TestRun_SequentialRendering(t *testing.T) {
	e := newEnv(t)
	var inFlight, maxInFlight int
	var mu sync.Mutex
	e.orch.renderer = rendererFunc(func(context.Context, any) (render.Document, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return render.Document{Data: pdf}, nil
	})
	_, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients...), staff)
	require.NoError(t, err)
	assert.Equal(t, 1, maxInFlight)
}

func TestRun_GateRejectsConcurrentRun(t *testing.T) {
	gate := NewMemoryGate()
	e := newEnv(t, WithGate(gate))

	started := make(chan struct{})
	unblock := make(chan struct{})
	e.orch.renderer = rendererFunc(func(context.Context, any) (render.Document, error) {
		close(started)
		<-unblock
		return render.Document{Data: pdf}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0]), staff)
		done <- err
	}()
	<-started

	_, err := e.orch.Run(context.Background(), e.request(documents.HIPAARequest, e.clients[0]), staff)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, gate.Held(e.records.c.ID.String()), "released after the run")
}

func TestRun_CancelledContextStillFinishes(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	e.orch.renderer = rendererFunc(func(ctx context.Context, _ any) (render.Document, error) {
		cancel()
		if ctx.Err() != nil {
			return render.Document{}, ctx.Err()
		}
		return render.Document{Data: pdf}, nil
	})
	res, err := e.orch.Run(ctx, e.request(documents.HIPAARequest, e.clients[0]), staff)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}

func TestPreview_AllowsMissingRecipient(t *testing.T) {
	e := newEnv(t)
	p, err := e.orch.Preview(context.Background(), e.request(documents.LORFirstParty))
	require.NoError(t, err)
	require.Len(t, p.Jobs, 1)
	assert.Equal(t, "", p.Jobs[0].Payload()["recipient_email"])
	assert.Equal(t, StatusPending, p.Jobs[0].Status)
	assert.Empty(t, e.renderer.calls)
}

func TestJobTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusGenerating))
	assert.True(t, CanTransition(StatusGenerating, StatusSuccess))
	assert.True(t, CanTransition(StatusGenerating, StatusError))
	assert.False(t, CanTransition(StatusPending, StatusSuccess))
	assert.False(t, CanTransition(StatusSuccess, StatusGenerating))
	assert.False(t, CanTransition(StatusError, StatusGenerating))

	j := &Job{Status: StatusPending}
	assert.ErrorIs(t, j.fail("x"), ErrInvalidTransition)
	require.NoError(t, j.moveTo(StatusGenerating))
	require.NoError(t, j.fail("boom"))
	assert.True(t, j.Status.Terminal())
	assert.ErrorIs(t, j.moveTo(StatusSuccess), ErrInvalidTransition)
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "Demand Letter - Reyes Family - 2025-01-02.pdf", DefaultFilename("Demand Letter", "Reyes Family", fixedNow))
}
