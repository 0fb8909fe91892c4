package casemetrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/finance"
)

// Financials is the case-wide money picture shown on the case page.
type Financials struct {
	Bills          finance.Totals        `json:"bills"`
	GeneralDamages decimal.Decimal       `json:"general_damages_total"`
	TotalMiles     decimal.Decimal       `json:"total_miles"`
	MileageAmount  decimal.Decimal       `json:"mileage_amount"`
	TotalDamages   decimal.Decimal       `json:"total_damages"`
	Settlement     *finance.Distribution `json:"settlement,omitempty"`
}

// Summary collects the derived figures of a case.
type Summary struct {
	DisplayName      string     `json:"display_name"`
	StatuteDeadline  *time.Time `json:"statute_deadline"`
	DaysUntilStatute *int       `json:"days_until_statute"`
	Financials       Financials `json:"financials"`
}

// Summarize derives the display name, statute figures and case-wide
// financials. Total damages are medical billed plus general damages plus
// mileage.
func Summarize(c bundle.Case, mileageRate decimal.Decimal, now time.Time) Summary {
	deadline := StatuteDeadlinePtr(c.DateOfLoss)

	f := Financials{
		Bills:      finance.Aggregate(c.FinanceBills(nil)),
		TotalMiles: c.TotalMiles(nil),
		Settlement: c.Distribution(),
	}
	if c.GeneralDamages != nil {
		f.GeneralDamages = c.GeneralDamages.Total()
	}
	f.MileageAmount = finance.MileageAmount(f.TotalMiles, mileageRate)
	f.TotalDamages = f.Bills.AmountBilled.Add(f.GeneralDamages).Add(f.MileageAmount)

	return Summary{
		DisplayName:      DisplayName(c.Clients),
		StatuteDeadline:  deadline,
		DaysUntilStatute: DaysUntil(deadline, now),
		Financials:       f,
	}
}
