// Package recipient picks the email address a generated document is sent to.
package recipient

import (
	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/sanitize"
)

// Parties is the set of related records a recipient can come from. Any of
// them may be nil.
type Parties struct {
	FirstParty *bundle.Claim
	ThirdParty *bundle.Claim
	Health     *bundle.HealthClaim
	Provider   *bundle.Provider
	Client     *bundle.Client
}

// PartiesFor collects the parties of c relevant to one client (nil for the
// whole case) and an optional explicit provider.
func PartiesFor(c bundle.Case, client *bundle.Client, provider *bundle.Provider) Parties {
	p := Parties{
		FirstParty: c.ClaimFor(models.FirstParty),
		ThirdParty: c.ClaimFor(models.ThirdParty),
		Provider:   provider,
		Client:     client,
	}
	clientID := clientIDOf(client)
	p.Health = c.HealthClaimFor(clientID)
	if p.Provider == nil {
		p.Provider = c.PrimaryProvider(clientID)
	}
	return p
}

func clientIDOf(c *bundle.Client) *uuid.UUID {
	if c == nil {
		return nil
	}
	id := c.ID
	return &id
}

// Resolve returns the recipient email for dt, or "" when the relevant
// party or its email is missing, blank, or "N/A". selected only matters for
// document types that can go to either adjuster; it defaults to the third
// party.
func Resolve(dt documents.Type, p Parties, selected models.ClaimParty) string {
	switch dt.Recipient {
	case documents.ToMedicalProvider:
		if p.Provider != nil {
			return sanitize.Value(p.Provider.Email)
		}
	case documents.ToFirstParty:
		return adjusterEmail(p.FirstParty)
	case documents.ToThirdParty:
		return adjusterEmail(p.ThirdParty)
	case documents.ToHealthAdjuster:
		if p.Health != nil {
			return sanitize.Value(p.Health.AdjusterEmail)
		}
	case documents.ToClient:
		if p.Client != nil {
			return sanitize.Value(p.Client.Email)
		}
	case documents.ToSelectedAdjuster:
		if selected == models.FirstParty {
			return adjusterEmail(p.FirstParty)
		}
		return adjusterEmail(p.ThirdParty)
	}
	return ""
}

func adjusterEmail(c *bundle.Claim) string {
	if c == nil {
		return ""
	}
	return sanitize.Value(c.AdjusterEmail)
}
