package generation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/casemetrics"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// Request asks for one document type to be generated on a case.
type Request struct {
	CaseID       uuid.UUID
	DocumentType string
	// ClientIDs selects the targets of a per-client document.
	ClientIDs     []uuid.UUID
	ProviderID    *uuid.UUID
	SelectedParty models.ClaimParty
}

// Plan is the ordered job list for one run, with payloads already built.
type Plan struct {
	Type documents.Type
	Case bundle.Case
	Jobs []*Job
	Now  time.Time
}

var recipientLabel = map[documents.Recipient]string{
	documents.ToMedicalProvider:  "medical provider",
	documents.ToFirstParty:       "first-party adjuster",
	documents.ToThirdParty:       "third-party adjuster",
	documents.ToHealthAdjuster:   "health insurance adjuster",
	documents.ToClient:           "client",
	documents.ToSelectedAdjuster: "selected adjuster",
}

// plan resolves the fan-out rule into jobs. With requireRecipient every job
// must resolve a recipient email before anything runs.
func plan(b *payload.Builder, c bundle.Case, req Request, now time.Time, requireRecipient bool) (*Plan, error) {
	dt, ok := documents.Lookup(req.DocumentType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, req.DocumentType)
	}

	p := &Plan{Type: dt, Case: c, Now: now}
	caseName := casemetrics.DisplayName(c.Clients)

	switch dt.FanOut {
	case documents.PerClient:
		if len(req.ClientIDs) == 0 {
			return nil, ErrNoClientSelected
		}
		selected := map[uuid.UUID]bool{}
		for _, id := range req.ClientIDs {
			if _, ok := c.ClientByID(id); !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownClient, id)
			}
			selected[id] = true
		}
		// targets follow case order (driver first), not selection order
		for _, cl := range casemetrics.OrderClients(c.Clients) {
			if !selected[cl.ID] {
				continue
			}
			id := cl.ID
			name := cl.FullName()
			if name == "" {
				name = fmt.Sprintf("Client %d", len(p.Jobs)+1)
			}
			p.Jobs = append(p.Jobs, &Job{TargetID: &id, Name: name})
		}
	case documents.AllClients:
		if len(c.Clients) == 0 {
			return nil, ErrNoClients
		}
		p.Jobs = []*Job{{Name: caseName}}
	default:
		p.Jobs = []*Job{{Name: caseName}}
	}

	for i, j := range p.Jobs {
		j.Index = i
		j.Status = StatusPending
		body, err := b.Build(dt, c, payload.Options{
			ClientID:      j.TargetID,
			ProviderID:    req.ProviderID,
			SelectedParty: req.SelectedParty,
			Now:           now,
		})
		if err != nil {
			return nil, err
		}
		if requireRecipient && dt.NeedsRecipient() && body[string(payload.RecipientEmail)] == "" {
			return nil, fmt.Errorf("%w for %s (%s): add the %s email", ErrNoRecipient, dt.Title, j.Name, recipientLabel[dt.Recipient])
		}
		j.payload = body
	}
	return p, nil
}

// DefaultFilename names a document when the render endpoint did not.
func DefaultFilename(title, name string, now time.Time) string {
	return fmt.Sprintf("%s - %s - %s.pdf", title, name, now.Format("2006-01-02"))
}
