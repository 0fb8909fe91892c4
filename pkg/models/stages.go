package models

// Stage is the coarse lifecycle phase of a case.
type Stage string

const (
	StageIntake      Stage = "Intake"
	StageProcessing  Stage = "Processing"
	StageDemand      Stage = "Demand"
	StageNegotiation Stage = "Negotiation"
	StageSettlement  Stage = "Settlement"
	StageLitigation  Stage = "Litigation"
)

// StageStatus is a stage together with one of its allowed statuses.
type StageStatus struct {
	Stage  Stage  `json:"stage"`
	Status string `json:"status"`
}

// stageStatuses lists the allowed statuses per stage, in display order.
var stageStatuses = map[Stage][]string{
	StageIntake:      {"New Lead", "Signed Up", "Awaiting Documents"},
	StageProcessing:  {"Treating", "Treatment Complete", "Gathering Records"},
	StageDemand:      {"Drafting Demand", "Demand Sent"},
	StageNegotiation: {"Offer Received", "Counter Sent", "Offer Accepted"},
	StageSettlement:  {"Awaiting Funds", "Disbursement", "Closed"},
	StageLitigation:  {"Filed", "Discovery", "Trial"},
}

// Stages returns every stage in lifecycle order.
func Stages() []Stage {
	return []Stage{StageIntake, StageProcessing, StageDemand, StageNegotiation, StageSettlement, StageLitigation}
}

// StatusesFor returns the allowed statuses of a stage (nil for unknown stages).
func StatusesFor(s Stage) []string {
	out := make([]string, len(stageStatuses[s]))
	copy(out, stageStatuses[s])
	if len(out) == 0 {
		return nil
	}
	return out
}

// Valid reports whether the status belongs to the stage.
func (p StageStatus) Valid() bool {
	for _, st := range stageStatuses[p.Stage] {
		if st == p.Status {
			return true
		}
	}
	return false
}

func (p StageStatus) String() string { return string(p.Stage) + " / " + p.Status }
