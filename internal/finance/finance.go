// Package finance computes bill balances, bill rollups, settlement
// distributions and general-damages totals. Everything here is pure.
package finance

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Bill is one provider's charges for one client. Zero values stand in for
// amounts that were never entered.
type Bill struct {
	AmountBilled      decimal.Decimal `json:"amount_billed"`
	InsurancePaid     decimal.Decimal `json:"insurance_paid"`
	InsuranceAdjusted decimal.Decimal `json:"insurance_adjusted"`
	MedpayPaid        decimal.Decimal `json:"medpay_paid"`
	PatientPaid       decimal.Decimal `json:"patient_paid"`
	Reduction         decimal.Decimal `json:"reduction"`
	Expense           decimal.Decimal `json:"expense"`
}

// Totals is the column-wise sum of a bill collection.
type Totals struct {
	AmountBilled      decimal.Decimal `json:"amount_billed"`
	InsurancePaid     decimal.Decimal `json:"insurance_paid"`
	InsuranceAdjusted decimal.Decimal `json:"insurance_adjusted"`
	MedpayPaid        decimal.Decimal `json:"medpay_paid"`
	PatientPaid       decimal.Decimal `json:"patient_paid"`
	Reduction         decimal.Decimal `json:"reduction"`
	Expense           decimal.Decimal `json:"expense"`
	BalanceDue        decimal.Decimal `json:"balance_due"`
	Count             int             `json:"count"`
}

// BillBalance is what remains uncollected on a bill, floored at zero.
func BillBalance(b Bill) decimal.Decimal {
	bal := b.AmountBilled.
		Sub(b.InsurancePaid).
		Sub(b.InsuranceAdjusted).
		Sub(b.MedpayPaid).
		Sub(b.PatientPaid).
		Sub(b.Reduction).
		Sub(b.Expense)
	if bal.IsNegative() {
		return decimal.Zero
	}
	return bal
}

// Aggregate sums every column across bills. BalanceDue is the sum of the
// clamped per-bill balances, not the balance of the column sums.
func Aggregate(bills []Bill) Totals {
	var t Totals
	for _, b := range bills {
		t.AmountBilled = t.AmountBilled.Add(b.AmountBilled)
		t.InsurancePaid = t.InsurancePaid.Add(b.InsurancePaid)
		t.InsuranceAdjusted = t.InsuranceAdjusted.Add(b.InsuranceAdjusted)
		t.MedpayPaid = t.MedpayPaid.Add(b.MedpayPaid)
		t.PatientPaid = t.PatientPaid.Add(b.PatientPaid)
		t.Reduction = t.Reduction.Add(b.Reduction)
		t.Expense = t.Expense.Add(b.Expense)
		t.BalanceDue = t.BalanceDue.Add(BillBalance(b))
		t.Count++
	}
	return t
}

// Distribution is the split of a gross settlement.
type Distribution struct {
	Gross         decimal.Decimal `json:"gross"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	AttorneyFee   decimal.Decimal `json:"attorney_fee"`
	CaseExpenses  decimal.Decimal `json:"case_expenses"`
	MedicalLiens  decimal.Decimal `json:"medical_liens"`
	ClientNet     decimal.Decimal `json:"client_net"`
}

// SettlementNet computes the attorney fee and the client's net proceeds.
// The net is not clamped: liens exceeding proceeds show up as a negative net.
func SettlementNet(gross, feePct, expenses, liens decimal.Decimal) Distribution {
	fee := gross.Mul(feePct).Div(hundred)
	return Distribution{
		Gross:         gross,
		FeePercentage: feePct,
		AttorneyFee:   fee,
		CaseExpenses:  expenses,
		MedicalLiens:  liens,
		ClientNet:     gross.Sub(fee).Sub(expenses).Sub(liens),
	}
}

// MedicalLiens is the lien figure derived from outstanding bill balances.
func MedicalLiens(bills []Bill) decimal.Decimal {
	return Aggregate(bills).BalanceDue
}

// GeneralDamages holds the non-economic categories of a case.
type GeneralDamages struct {
	EmotionalDistress decimal.Decimal `json:"emotional_distress"`
	DutiesUnderDuress decimal.Decimal `json:"duties_under_duress"`
	PainAndSuffering  decimal.Decimal `json:"pain_and_suffering"`
	LossOfEnjoyment   decimal.Decimal `json:"loss_of_enjoyment"`
	LossOfConsortium  decimal.Decimal `json:"loss_of_consortium"`
}

// Total is the plain sum of the categories.
func (g GeneralDamages) Total() decimal.Decimal {
	return g.EmotionalDistress.
		Add(g.DutiesUnderDuress).
		Add(g.PainAndSuffering).
		Add(g.LossOfEnjoyment).
		Add(g.LossOfConsortium)
}

// MileageAmount is the reimbursement for miles at rate per mile.
func MileageAmount(miles, rate decimal.Decimal) decimal.Decimal {
	return miles.Mul(rate).Round(2)
}
