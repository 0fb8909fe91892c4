package bundle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldoetobex/pi-case-backend/internal/finance"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/sanitize"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "1/2/2006", "2006-01-02T15:04:05"}

// details is a raw intake map. Intake details are written by two generations
// of forms, one camelCase and one snake_case. Typed columns win; details are
// consulted in key order.
type details map[string]any

// str returns the first non-blank of col and the detail keys.
func (d details) str(col string, keys ...string) string {
	if v := sanitize.Value(col); v != "" {
		return v
	}
	for _, k := range keys {
		raw, ok := d[k]
		if !ok || raw == nil {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case float64:
			s = decimal.NewFromFloat(v).String()
		default:
			s = fmt.Sprint(v)
		}
		if v := sanitize.Value(s); v != "" {
			return v
		}
	}
	return ""
}

func (d details) date(col *time.Time, keys ...string) *time.Time {
	if col != nil && !col.IsZero() {
		t := *col
		return &t
	}
	s := d.str("", keys...)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (d details) flag(col bool, keys ...string) bool {
	if col {
		return true
	}
	for _, k := range keys {
		switch v := d[k].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") {
				return true
			}
		}
	}
	return false
}

func amount(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// FinanceBill reads a bill row's amounts; NULL amounts become zero.
func FinanceBill(b models.Bill) finance.Bill {
	return finance.Bill{
		AmountBilled:      amount(b.AmountBilled),
		InsurancePaid:     amount(b.InsurancePaid),
		InsuranceAdjusted: amount(b.InsuranceAdjusted),
		MedpayPaid:        amount(b.MedpayPaid),
		PatientPaid:       amount(b.PatientPaid),
		Reduction:         amount(b.Reduction),
		Expense:           amount(b.Expense),
	}
}

// FromModel canonicalizes a preloaded case row and its relations.
func FromModel(m *models.Case) Case {
	cd := details(m.Details)
	out := Case{
		ID:         m.ID,
		Title:      m.Title,
		DateOfLoss: cd.date(m.DateOfLoss, "date_of_loss", "dateOfLoss", "accident_date", "accidentDate"),
		Stage:      m.Stage,
		Status:     m.Status,
		Wreck: Wreck{
			Location:     cd.str(m.WreckLocation, "wreck_location", "wreckLocation", "accident_location", "accidentLocation"),
			City:         cd.str(m.WreckCity, "wreck_city", "wreckCity"),
			State:        cd.str(m.WreckState, "wreck_state", "wreckState"),
			Description:  cd.str(m.WreckDescription, "wreck_description", "wreckDescription", "accident_description", "accidentDescription"),
			PoliceReport: cd.str(m.PoliceReportNumber, "police_report_number", "policeReportNumber"),
		},
	}

	clients := append([]models.Client(nil), m.Clients...)
	sort.SliceStable(clients, func(i, j int) bool {
		if clients[i].Position != clients[j].Position {
			return clients[i].Position < clients[j].Position
		}
		return clients[i].CreatedAt.Before(clients[j].CreatedAt)
	})
	for _, c := range clients {
		d := details(c.Details)
		out.Clients = append(out.Clients, Client{
			ID:         c.ID,
			Position:   c.Position,
			IsDriver:   d.flag(c.IsDriver, "is_driver", "isDriver"),
			FirstName:  d.str(c.FirstName, "first_name", "firstName"),
			MiddleName: d.str(c.MiddleName, "middle_name", "middleName"),
			LastName:   d.str(c.LastName, "last_name", "lastName"),
			DOB:        d.date(c.DOB, "date_of_birth", "dateOfBirth", "dob"),
			SSN:        d.str(c.SSN, "ssn", "social_security_number", "socialSecurityNumber"),
			Street:     d.str(c.Street, "street", "address", "street_address", "streetAddress"),
			City:       d.str(c.City, "city"),
			State:      d.str(c.State, "state"),
			Zip:        d.str(c.Zip, "zip", "zip_code", "zipCode"),
			Phone:      d.str(c.Phone, "phone", "phone_number", "phoneNumber"),
			Email:      d.str(c.Email, "email", "email_address", "emailAddress"),
		})
	}

	defendants := append([]models.Defendant(nil), m.Defendants...)
	sort.SliceStable(defendants, func(i, j int) bool { return defendants[i].Position < defendants[j].Position })
	for _, df := range defendants {
		d := details(df.Details)
		out.Defendants = append(out.Defendants, Defendant{
			ID:                       df.ID,
			FirstName:                d.str(df.FirstName, "first_name", "firstName"),
			LastName:                 d.str(df.LastName, "last_name", "lastName"),
			PolicyholderName:         d.str(df.PolicyholderName, "policyholder_name", "policyholderName", "policy_holder", "policyHolder"),
			PolicyholderRelationship: d.str(df.PolicyholderRelationship, "policyholder_relationship", "policyholderRelationship", "relationship_to_policyholder", "relationshipToPolicyholder"),
			Vehicle:                  d.str(df.VehicleDescription, "vehicle_description", "vehicleDescription", "vehicle"),
		})
	}

	for _, p := range m.Providers {
		d := details(p.Details)
		out.Providers = append(out.Providers, Provider{
			ID:     p.ID,
			Name:   d.str(p.Name, "provider_name", "providerName", "name"),
			Street: d.str(p.Street, "street", "address", "street_address", "streetAddress"),
			City:   d.str(p.City, "city"),
			State:  d.str(p.State, "state"),
			Zip:    d.str(p.Zip, "zip", "zip_code", "zipCode"),
			Phone:  d.str(p.Phone, "phone", "phone_number", "phoneNumber"),
			Fax:    d.str(p.Fax, "fax", "fax_number", "faxNumber"),
			Email:  d.str(p.Email, "email", "records_email", "recordsEmail"),
		})
	}

	for _, b := range m.Bills {
		out.Bills = append(out.Bills, Bill{
			ID:         b.ID,
			ClientID:   b.ClientID,
			ProviderID: b.ProviderID,
			Bill:       FinanceBill(b),
		})
	}

	for _, c := range m.Claims {
		d := details(c.Details)
		out.Claims = append(out.Claims, Claim{
			ID:            c.ID,
			Party:         c.Party,
			Carrier:       d.str(c.Carrier, "insurance_company", "insuranceCompany", "carrier"),
			ClaimNumber:   d.str(c.ClaimNumber, "claim_number", "claimNumber"),
			PolicyNumber:  d.str(c.PolicyNumber, "policy_number", "policyNumber"),
			PolicyLimits:  d.str(c.PolicyLimits, "policy_limits", "policyLimits"),
			AdjusterName:  d.str(c.AdjusterName, "adjuster_name", "adjusterName"),
			AdjusterEmail: d.str(c.AdjusterEmail, "adjuster_email", "adjusterEmail"),
			AdjusterPhone: d.str(c.AdjusterPhone, "adjuster_phone", "adjusterPhone"),
			AdjusterFax:   d.str(c.AdjusterFax, "adjuster_fax", "adjusterFax"),
		})
	}

	for _, h := range m.HealthClaims {
		d := details(h.Details)
		out.HealthClaims = append(out.HealthClaims, HealthClaim{
			ID:            h.ID,
			ClientID:      h.ClientID,
			Carrier:       d.str(h.Carrier, "insurance_company", "insuranceCompany", "carrier"),
			ClaimNumber:   d.str(h.ClaimNumber, "claim_number", "claimNumber"),
			MemberID:      d.str(h.MemberID, "member_id", "memberId"),
			GroupNumber:   d.str(h.GroupNumber, "group_number", "groupNumber"),
			AdjusterName:  d.str(h.AdjusterName, "adjuster_name", "adjusterName"),
			AdjusterEmail: d.str(h.AdjusterEmail, "adjuster_email", "adjusterEmail"),
			AdjusterPhone: d.str(h.AdjusterPhone, "adjuster_phone", "adjusterPhone"),
		})
	}

	for _, mi := range m.Mileage {
		out.Mileage = append(out.Mileage, Mileage{ClientID: mi.ClientID, Miles: mi.Miles})
	}

	if s := m.Settlement; s != nil {
		out.Settlement = &Settlement{
			Gross:           s.Gross,
			FeePercentage:   s.FeePercentage,
			CaseExpenses:    s.CaseExpenses,
			MedicalLiens:    s.MedicalLiens,
			LiensOverridden: s.LiensOverridden,
		}
	}
	if g := m.GeneralDamages; g != nil {
		out.GeneralDamages = &finance.GeneralDamages{
			EmotionalDistress: g.EmotionalDistress,
			DutiesUnderDuress: g.DutiesUnderDuress,
			PainAndSuffering:  g.PainAndSuffering,
			LossOfEnjoyment:   g.LossOfEnjoyment,
			LossOfConsortium:  g.LossOfConsortium,
		}
	}
	return out
}
