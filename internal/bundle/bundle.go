// Package bundle holds the canonical, read-only shape of a case and its
// related parties. Upstream rows are normalized once in FromModel; nothing
// downstream looks at raw field spellings again.
package bundle

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldoetobex/pi-case-backend/internal/finance"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

type Client struct {
	ID         uuid.UUID
	Position   int
	IsDriver   bool
	FirstName  string
	MiddleName string
	LastName   string
	DOB        *time.Time
	SSN        string
	Street     string
	City       string
	State      string
	Zip        string
	Phone      string
	Email      string
}

// FullName joins first, middle and last, skipping blanks.
func (c Client) FullName() string {
	return joinNonEmpty(" ", c.FirstName, c.MiddleName, c.LastName)
}

type Defendant struct {
	ID                       uuid.UUID
	FirstName                string
	LastName                 string
	PolicyholderName         string
	PolicyholderRelationship string
	Vehicle                  string
}

func (d Defendant) FullName() string { return joinNonEmpty(" ", d.FirstName, d.LastName) }

type Provider struct {
	ID     uuid.UUID
	Name   string
	Street string
	City   string
	State  string
	Zip    string
	Phone  string
	Fax    string
	Email  string
}

type Bill struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	ProviderID uuid.UUID
	finance.Bill
}

type Claim struct {
	ID            uuid.UUID
	Party         models.ClaimParty
	Carrier       string
	ClaimNumber   string
	PolicyNumber  string
	PolicyLimits  string
	AdjusterName  string
	AdjusterEmail string
	AdjusterPhone string
	AdjusterFax   string
}

type HealthClaim struct {
	ID            uuid.UUID
	ClientID      *uuid.UUID
	Carrier       string
	ClaimNumber   string
	MemberID      string
	GroupNumber   string
	AdjusterName  string
	AdjusterEmail string
	AdjusterPhone string
}

type Mileage struct {
	ClientID uuid.UUID
	Miles    decimal.Decimal
}

type Settlement struct {
	Gross           decimal.Decimal
	FeePercentage   decimal.Decimal
	CaseExpenses    decimal.Decimal
	MedicalLiens    decimal.Decimal
	LiensOverridden bool
}

type Wreck struct {
	Location     string
	City         string
	State        string
	Description  string
	PoliceReport string
}

// Case is the canonical aggregate. Clients are in entry order.
type Case struct {
	ID             uuid.UUID
	Title          string
	DateOfLoss     *time.Time
	Stage          models.Stage
	Status         string
	Wreck          Wreck
	Clients        []Client
	Defendants     []Defendant
	Providers      []Provider
	Bills          []Bill
	Claims         []Claim
	HealthClaims   []HealthClaim
	Mileage        []Mileage
	Settlement     *Settlement
	GeneralDamages *finance.GeneralDamages
}

// ClientByID finds a client on the case.
func (c Case) ClientByID(id uuid.UUID) (Client, bool) {
	for _, cl := range c.Clients {
		if cl.ID == id {
			return cl, true
		}
	}
	return Client{}, false
}

// ProviderByID finds a provider on the case.
func (c Case) ProviderByID(id uuid.UUID) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// ClaimFor returns the first claim of the given party, if any.
func (c Case) ClaimFor(party models.ClaimParty) *Claim {
	for i := range c.Claims {
		if c.Claims[i].Party == party {
			cl := c.Claims[i]
			return &cl
		}
	}
	return nil
}

// HealthClaimFor prefers the client's own health claim, then a case-wide one.
// With a nil clientID the first health claim on file is returned.
func (c Case) HealthClaimFor(clientID *uuid.UUID) *HealthClaim {
	var caseWide *HealthClaim
	for i := range c.HealthClaims {
		hc := c.HealthClaims[i]
		if clientID == nil {
			return &hc
		}
		if hc.ClientID != nil && *hc.ClientID == *clientID {
			return &hc
		}
		if hc.ClientID == nil && caseWide == nil {
			caseWide = &hc
		}
	}
	return caseWide
}

// FinanceBills returns the bills of one client, or of the whole case when
// clientID is nil.
func (c Case) FinanceBills(clientID *uuid.UUID) []finance.Bill {
	out := make([]finance.Bill, 0, len(c.Bills))
	for _, b := range c.Bills {
		if clientID != nil && b.ClientID != *clientID {
			continue
		}
		out = append(out, b.Bill)
	}
	return out
}

// TotalMiles sums mileage for one client, or for the case when clientID is nil.
func (c Case) TotalMiles(clientID *uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, m := range c.Mileage {
		if clientID != nil && m.ClientID != *clientID {
			continue
		}
		total = total.Add(m.Miles)
	}
	return total
}

// Distribution splits the case settlement. Liens come from the outstanding
// bill balances unless they were entered by hand. Nil without a settlement.
func (c Case) Distribution() *finance.Distribution {
	s := c.Settlement
	if s == nil {
		return nil
	}
	liens := s.MedicalLiens
	if !s.LiensOverridden {
		liens = finance.MedicalLiens(c.FinanceBills(nil))
	}
	d := finance.SettlementNet(s.Gross, s.FeePercentage, s.CaseExpenses, liens)
	return &d
}

// PrimaryProvider picks the provider a document is about: the first provider
// billed to the client, else the first billed on the case, else the first
// provider on file.
func (c Case) PrimaryProvider(clientID *uuid.UUID) *Provider {
	if clientID != nil {
		for _, b := range c.Bills {
			if b.ClientID == *clientID {
				if p, ok := c.ProviderByID(b.ProviderID); ok {
					return &p
				}
			}
		}
	}
	for _, b := range c.Bills {
		if p, ok := c.ProviderByID(b.ProviderID); ok {
			return &p
		}
	}
	if len(c.Providers) > 0 {
		p := c.Providers[0]
		return &p
	}
	return nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
