// Package payload assembles the flat key/value body sent to the render
// endpoint for one document.
package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/casemetrics"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/internal/finance"
	"github.com/aldoetobex/pi-case-backend/internal/recipient"
	"github.com/aldoetobex/pi-case-backend/pkg/config"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/sanitize"
)

var (
	ErrUnknownClient   = errors.New("client does not belong to this case")
	ErrUnknownProvider = errors.New("provider does not belong to this case")
)

const (
	shortDate = "01/02/2006"
	longDate  = "January 2, 2006"
)

// Payload is the flat render body. encoding/json writes map keys sorted, so
// the encoded form is stable.
type Payload map[string]string

// Options narrows a payload to one target.
type Options struct {
	// ClientID is the job's client. Nil means the whole case; the first
	// ordered client is then used for the client fields.
	ClientID *uuid.UUID
	// ProviderID overrides the primary provider.
	ProviderID    *uuid.UUID
	SelectedParty models.ClaimParty
	Now           time.Time
}

// Builder holds the firm-wide inputs every payload needs.
type Builder struct {
	firm        config.Firm
	mileageRate decimal.Decimal
}

func NewBuilder(firm config.Firm, mileageRate decimal.Decimal) *Builder {
	return &Builder{firm: firm, mileageRate: mileageRate}
}

// values accumulates canonical fields before alias expansion.
type values struct {
	text  map[Field]string
	money map[Field]decimal.Decimal
}

func (v values) set(f Field, s string) { v.text[f] = s }
func (v values) amount(f Field, d decimal.Decimal) { v.money[f] = d }

func (v values) date(f Field, t *time.Time, layout string) {
	if t != nil {
		v.text[f] = t.Format(layout)
	}
}

// Build assembles the payload for dt against c. It does not modify c.
func (b *Builder) Build(dt documents.Type, c bundle.Case, opt Options) (Payload, error) {
	v := values{text: map[Field]string{}, money: map[Field]decimal.Decimal{}}
	ordered := casemetrics.OrderClients(c.Clients)

	var client *bundle.Client
	if opt.ClientID != nil {
		cl, ok := c.ClientByID(*opt.ClientID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClient, *opt.ClientID)
		}
		client = &cl
	} else if len(ordered) > 0 {
		client = &ordered[0]
	}

	var provider *bundle.Provider
	if opt.ProviderID != nil {
		p, ok := c.ProviderByID(*opt.ProviderID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, *opt.ProviderID)
		}
		provider = &p
	}
	parties := recipient.PartiesFor(c, client, provider)

	v.set(DocumentType, dt.Key)
	v.set(DocumentTitle, dt.Title)
	v.date(TodayDate, &opt.Now, longDate)
	v.set(CaseID, c.ID.String())
	v.set(CaseName, casemetrics.DisplayName(c.Clients))
	b.firmFields(v)

	if client != nil {
		clientFields(v, *client)
	}
	names := make([]string, 0, len(ordered))
	for _, cl := range ordered {
		if n := cl.FullName(); n != "" {
			names = append(names, n)
		}
	}
	v.set(AllClientNames, strings.Join(names, ", "))

	wreckFields(v, c)
	if len(c.Defendants) > 0 {
		defendantFields(v, c.Defendants[0])
	}
	if cl := parties.FirstParty; cl != nil {
		v.set(FPCarrier, cl.Carrier)
		v.set(FPClaimNumber, cl.ClaimNumber)
		v.set(FPPolicyNumber, cl.PolicyNumber)
		v.set(FPPolicyLimits, cl.PolicyLimits)
		v.set(FPAdjusterName, cl.AdjusterName)
		v.set(FPAdjusterEmail, cl.AdjusterEmail)
		v.set(FPAdjusterPhone, sanitize.FormatPhone(cl.AdjusterPhone))
		v.set(FPAdjusterFax, sanitize.FormatPhone(cl.AdjusterFax))
	}
	if cl := parties.ThirdParty; cl != nil {
		v.set(TPCarrier, cl.Carrier)
		v.set(TPClaimNumber, cl.ClaimNumber)
		v.set(TPPolicyNumber, cl.PolicyNumber)
		v.set(TPPolicyLimits, cl.PolicyLimits)
		v.set(TPAdjusterName, cl.AdjusterName)
		v.set(TPAdjusterEmail, cl.AdjusterEmail)
		v.set(TPAdjusterPhone, sanitize.FormatPhone(cl.AdjusterPhone))
		v.set(TPAdjusterFax, sanitize.FormatPhone(cl.AdjusterFax))
	}
	if h := parties.Health; h != nil {
		v.set(HealthCarrier, h.Carrier)
		v.set(HealthClaimNumber, h.ClaimNumber)
		v.set(HealthMemberID, h.MemberID)
		v.set(HealthGroupNumber, h.GroupNumber)
		v.set(HealthAdjusterName, h.AdjusterName)
		v.set(HealthAdjusterEmail, h.AdjusterEmail)
		v.set(HealthAdjusterPhone, sanitize.FormatPhone(h.AdjusterPhone))
	}
	if p := parties.Provider; p != nil {
		providerFields(v, *p)
	}

	b.financialFields(v, c, opt.ClientID)
	v.set(RecipientEmail, recipient.Resolve(dt, parties, opt.SelectedParty))

	return v.expand(), nil
}

func (b *Builder) firmFields(v values) {
	v.set(FirmName, b.firm.Name)
	v.set(FirmAddress, b.firm.Address)
	v.set(FirmCityStateZip, b.firm.CityStateZip)
	v.set(FirmPhone, b.firm.Phone)
	v.set(FirmFax, b.firm.Fax)
	v.set(FirmEmail, b.firm.Email)
	v.set(AttorneyName, b.firm.AttorneyName)
	v.set(AttorneyBar, b.firm.BarNumber)
}

func clientFields(v values, cl bundle.Client) {
	v.set(ClientName, cl.FullName())
	v.set(ClientFirstName, cl.FirstName)
	v.set(ClientLastName, cl.LastName)
	v.date(ClientDOB, cl.DOB, shortDate)
	v.set(ClientSSN, sanitize.FormatSSN(cl.SSN))
	v.set(ClientAddress, cl.Street)
	v.set(ClientCity, cl.City)
	v.set(ClientState, cl.State)
	v.set(ClientZip, cl.Zip)
	v.set(ClientCityStateZip, cityStateZip(cl.City, cl.State, cl.Zip))
	v.set(ClientPhone, sanitize.FormatPhone(cl.Phone))
	v.set(ClientEmail, cl.Email)
}

func wreckFields(v values, c bundle.Case) {
	v.date(DateOfLoss, c.DateOfLoss, shortDate)
	v.date(StatuteDeadline, casemetrics.StatuteDeadlinePtr(c.DateOfLoss), shortDate)
	if c.DateOfLoss != nil {
		two := casemetrics.TwoYearsAfterAccident(*c.DateOfLoss)
		v.date(TwoYearsAfter, &two, shortDate)
	}
	v.set(AccidentLocation, c.Wreck.Location)
	v.set(AccidentCity, c.Wreck.City)
	v.set(AccidentState, c.Wreck.State)
	v.set(AccidentDescription, c.Wreck.Description)
	v.set(PoliceReport, c.Wreck.PoliceReport)
}

func defendantFields(v values, d bundle.Defendant) {
	v.set(DefendantName, d.FullName())
	v.set(DefendantFirstName, d.FirstName)
	v.set(DefendantLastName, d.LastName)
	holder := d.PolicyholderName
	if holder == "" {
		holder = d.FullName()
	}
	v.set(PolicyholderName, holder)
	v.set(PolicyholderRelationship, d.PolicyholderRelationship)
	v.set(DefendantVehicle, d.Vehicle)
}

func providerFields(v values, p bundle.Provider) {
	v.set(ProviderName, p.Name)
	v.set(ProviderAddress, p.Street)
	v.set(ProviderCity, p.City)
	v.set(ProviderState, p.State)
	v.set(ProviderZip, p.Zip)
	v.set(ProviderCityStateZip, cityStateZip(p.City, p.State, p.Zip))
	v.set(ProviderPhone, sanitize.FormatPhone(p.Phone))
	v.set(ProviderFax, sanitize.FormatPhone(p.Fax))
	v.set(ProviderEmail, p.Email)
}

// financialFields fills bill totals for the target (client or case),
// general damages, mileage and the case settlement.
func (b *Builder) financialFields(v values, c bundle.Case, clientID *uuid.UUID) {
	totals := finance.Aggregate(c.FinanceBills(clientID))
	v.amount(TotalBilled, totals.AmountBilled)
	v.amount(TotalInsurancePaid, totals.InsurancePaid)
	v.amount(TotalInsuranceAdjusted, totals.InsuranceAdjusted)
	v.amount(TotalMedpayPaid, totals.MedpayPaid)
	v.amount(TotalPatientPaid, totals.PatientPaid)
	v.amount(TotalReduction, totals.Reduction)
	v.amount(TotalExpense, totals.Expense)
	v.amount(TotalBalanceDue, totals.BalanceDue)
	v.set(BillCount, strconv.Itoa(totals.Count))

	general := decimal.Zero
	if g := c.GeneralDamages; g != nil {
		v.amount(EmotionalDistress, g.EmotionalDistress)
		v.amount(DutiesUnderDuress, g.DutiesUnderDuress)
		v.amount(PainAndSuffering, g.PainAndSuffering)
		v.amount(LossOfEnjoyment, g.LossOfEnjoyment)
		v.amount(LossOfConsortium, g.LossOfConsortium)
		general = g.Total()
		v.amount(GeneralDamagesTotal, general)
	}

	miles := c.TotalMiles(clientID)
	mileage := finance.MileageAmount(miles, b.mileageRate)
	v.set(TotalMiles, miles.StringFixed(1))
	v.set(MileageRate, b.mileageRate.String())
	v.amount(MileageAmount, mileage)
	v.amount(TotalDamages, totals.AmountBilled.Add(general).Add(mileage))

	if d := c.Distribution(); d != nil {
		v.amount(SettlementGross, d.Gross)
		v.set(FeePercentage, d.FeePercentage.String())
		v.amount(AttorneyFee, d.AttorneyFee)
		v.amount(CaseExpenses, d.CaseExpenses)
		v.amount(MedicalLiens, d.MedicalLiens)
		v.amount(ClientNet, d.ClientNet)
	}
}

// expand writes every table field under its canonical key and aliases.
// Fields that were never set still appear, empty or 0.00.
func (v values) expand() Payload {
	out := make(Payload, len(table)*4)
	for _, e := range table {
		var s string
		if e.money {
			d := v.money[e.field]
			s = d.StringFixed(2)
			out[string(e.field)+"_formatted"] = Currency(d)
		} else {
			s = v.text[e.field]
		}
		out[string(e.field)] = s
		for _, k := range e.aliases {
			out[k] = s
		}
	}
	return out
}

// Currency renders d as $1,234.56.
func Currency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func cityStateZip(city, state, zip string) string {
	cs := city
	if state != "" {
		if cs != "" {
			cs += ", "
		}
		cs += state
	}
	if zip != "" {
		if cs != "" {
			cs += " "
		}
		cs += zip
	}
	return cs
}
