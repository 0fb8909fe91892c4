// Package documents is the static registry of document types the firm can
// generate: how many jobs each produces, who receives it, and which case
// stage it moves the case to.
package documents

import (
	"sort"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// FanOut decides how many generation jobs one request produces.
type FanOut string

const (
	PerClient  FanOut = "per_client"  // one job per selected client
	AllClients FanOut = "all_clients" // one job for the whole case; needs at least one client
	CaseLevel  FanOut = "case_level"  // one job, no client dependency
)

// Recipient names which party's email a document is sent to.
type Recipient string

const (
	ToNone             Recipient = ""
	ToMedicalProvider  Recipient = "medical_provider"
	ToFirstParty       Recipient = "first_party_adjuster"
	ToThirdParty       Recipient = "third_party_adjuster"
	ToHealthAdjuster   Recipient = "health_adjuster"
	ToClient           Recipient = "client"
	ToSelectedAdjuster Recipient = "selected_adjuster" // first or third party, chosen by the caller
)

// Type describes one generatable document.
type Type struct {
	Key        string              `json:"key"`
	Title      string              `json:"title"`
	FanOut     FanOut              `json:"fan_out"`
	Recipient  Recipient           `json:"recipient"`
	Transition *models.StageStatus `json:"transition,omitempty"`
}

// Ambiguous reports whether the caller has to pick the adjuster.
func (t Type) Ambiguous() bool { return t.Recipient == ToSelectedAdjuster }

// NeedsRecipient reports whether generation requires a resolved email.
func (t Type) NeedsRecipient() bool { return t.Recipient != ToNone }

const (
	HIPAARequest          = "cotton_hipaa_request"
	MedicalRecordsRequest = "cotton_medical_records_request"
	LORFirstParty         = "cotton_lor_first_party"
	LORThirdParty         = "cotton_lor_third_party"
	SubrogationLetter     = "cotton_subrogation_letter"
	LienRequest           = "cotton_lien_request"
	DemandLetter          = "cotton_demand_letter"
	CounterDemand         = "cotton_counter_demand"
	OfferAcceptance       = "cotton_offer_acceptance"
	PaymentInstructions   = "cotton_payment_instructions"
	SettlementStatement   = "cotton_settlement_statement"
	RetainerAgreement     = "cotton_retainer_agreement"
	CaseSummary           = "cotton_case_summary"
)

func to(stage models.Stage, status string) *models.StageStatus {
	return &models.StageStatus{Stage: stage, Status: status}
}

var registry = map[string]Type{
	HIPAARequest:          {Title: "HIPAA Request", FanOut: PerClient, Recipient: ToMedicalProvider, Transition: to(models.StageProcessing, "Treating")},
	MedicalRecordsRequest: {Title: "Medical Records Request", FanOut: PerClient, Recipient: ToMedicalProvider},
	LORFirstParty:         {Title: "Letter of Representation (First Party)", FanOut: AllClients, Recipient: ToFirstParty},
	LORThirdParty:         {Title: "Letter of Representation (Third Party)", FanOut: AllClients, Recipient: ToThirdParty},
	SubrogationLetter:     {Title: "Subrogation Letter", FanOut: PerClient, Recipient: ToHealthAdjuster},
	LienRequest:           {Title: "Lien Request", FanOut: PerClient, Recipient: ToHealthAdjuster},
	DemandLetter:          {Title: "Demand Letter", FanOut: AllClients, Recipient: ToThirdParty, Transition: to(models.StageDemand, "Demand Sent")},
	CounterDemand:         {Title: "Counter Demand", FanOut: CaseLevel, Recipient: ToSelectedAdjuster, Transition: to(models.StageNegotiation, "Counter Sent")},
	OfferAcceptance:       {Title: "Offer Acceptance", FanOut: CaseLevel, Recipient: ToSelectedAdjuster, Transition: to(models.StageSettlement, "Awaiting Funds")},
	PaymentInstructions:   {Title: "Payment Instructions", FanOut: CaseLevel, Recipient: ToSelectedAdjuster},
	SettlementStatement:   {Title: "Settlement Statement", FanOut: PerClient, Recipient: ToClient, Transition: to(models.StageSettlement, "Disbursement")},
	RetainerAgreement:     {Title: "Retainer Agreement", FanOut: PerClient, Recipient: ToClient, Transition: to(models.StageIntake, "Signed Up")},
	CaseSummary:           {Title: "Case Summary", FanOut: CaseLevel},
}

// Lookup returns the registered type for key.
func Lookup(key string) (Type, bool) {
	t, ok := registry[key]
	if !ok {
		return Type{}, false
	}
	t.Key = key
	return t, true
}

// All returns every registered type ordered by key.
func All() []Type {
	out := make([]Type, 0, len(registry))
	for k := range registry {
		t, _ := Lookup(k)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
