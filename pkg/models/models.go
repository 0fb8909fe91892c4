package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

/* =============================== Enums ================================== */

// Role defines the type of firm staff using the system.
type Role string

const (
	RoleAttorney  Role = "attorney"
	RoleParalegal Role = "paralegal"
	RoleAdmin     Role = "admin"
)

// ClaimParty distinguishes the client's own carrier from the at-fault carrier.
type ClaimParty string

const (
	FirstParty ClaimParty = "first_party"
	ThirdParty ClaimParty = "third_party"
)

// Document categories stored on CaseFile.
const (
	CategoryGenerated = "generated"
	CategoryUpload    = "upload"
)

// Work log actions.
const (
	ActionDocumentGenerated = "document_generated"
	ActionDocumentUploaded  = "document_uploaded"
	ActionStageChanged      = "stage_changed"
	ActionBillCreated       = "bill_created"
	ActionBillUpdated       = "bill_updated"
	ActionSettlementSaved   = "settlement_saved"
	ActionDamagesSaved      = "general_damages_saved"
)

/* =============================== Entities =============================== */

// User represents a staff member of the firm.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"type:varchar(20);not null"`
	Name         string
	BarNumber    string
	CreatedAt    time.Time
}

// Case is the casefile aggregate: clients, defendants, bills, claims,
// settlement, general damages, documents and the work log all hang off it.
type Case struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string
	DateOfLoss *time.Time `gorm:"type:date"`
	Stage      Stage      `gorm:"type:varchar(40);not null;default:'Intake'"`
	Status     string     `gorm:"type:varchar(40);not null;default:'New Lead'"`

	// Wreck facts
	WreckLocation      string
	WreckCity          string
	WreckState         string
	WreckDescription   string `gorm:"type:text"`
	PoliceReportNumber string

	// Raw intake answers; keys may be snake_case or camelCase.
	Details datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Clients        []Client
	Defendants     []Defendant
	Providers      []Provider
	Bills          []Bill
	Claims         []Claim
	HealthClaims   []HealthClaim
	Mileage        []MileageEntry
	Settlement     *Settlement
	GeneralDamages *GeneralDamages
	Files          []CaseFile
	WorkLog        []WorkLogEntry
}

// Client is an injured person represented on a case.
type Client struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Position   int       `gorm:"not null;default:0"` // entry order on the intake form
	IsDriver   bool
	FirstName  string
	MiddleName string
	LastName   string
	DOB        *time.Time `gorm:"type:date"`
	SSN        string
	Street     string
	City       string
	State      string
	Zip        string
	Phone      string
	Email      string
	Details    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

// Defendant is the at-fault party.
type Defendant struct {
	ID                       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID                   uuid.UUID `gorm:"type:uuid;not null;index"`
	Position                 int       `gorm:"not null;default:0"`
	FirstName                string
	LastName                 string
	PolicyholderName         string
	PolicyholderRelationship string
	VehicleDescription       string
	Details                  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt                time.Time
}

// Provider is a medical provider treating one or more clients.
type Provider struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Street    string
	City      string
	State     string
	Zip       string
	Phone     string
	Fax       string
	Email     string
	Details   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// Bill is one provider's charges for one client. Amounts are nullable;
// a NULL amount counts as zero.
type Bill struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID            uuid.UUID           `gorm:"type:uuid;not null;index"`
	ClientID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProviderID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	AmountBilled      decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	InsurancePaid     decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	InsuranceAdjusted decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	MedpayPaid        decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	PatientPaid       decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	Reduction         decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	Expense           decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Claim is an auto claim with a carrier, first or third party.
type Claim struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Party         ClaimParty `gorm:"type:varchar(20);not null"`
	Carrier       string
	ClaimNumber   string
	PolicyNumber  string
	PolicyLimits  string
	AdjusterName  string
	AdjusterEmail string
	AdjusterPhone string
	AdjusterFax   string
	Details       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

// HealthClaim is the client's health insurer, which may assert subrogation.
type HealthClaim struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index"`
	Carrier       string
	ClaimNumber   string
	MemberID      string
	GroupNumber   string
	AdjusterName  string
	AdjusterEmail string
	AdjusterPhone string
	Details       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

// MileageEntry records treatment travel for a client.
type MileageEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Miles       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TravelDate  *time.Time      `gorm:"type:date"`
	Description string
	CreatedAt   time.Time
}

// Settlement is the single active settlement record of a case. Fee, liens
// and net are derived and stored on save.
type Settlement struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Gross           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FeePercentage   decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	AttorneyFee     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CaseExpenses    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MedicalLiens    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LiensOverridden bool            `gorm:"not null;default:false"`
	ClientNet       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GeneralDamages holds the non-economic damage categories of a case.
type GeneralDamages struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	EmotionalDistress decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DutiesUnderDuress decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PainAndSuffering  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LossOfEnjoyment   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LossOfConsortium  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt         time.Time
}

// CaseFile represents a document stored for a case, uploaded or generated.
type CaseFile struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Key        string    `gorm:"not null"`
	URL        string
	Filename   string `gorm:"not null"`
	Mime       string `gorm:"not null"`
	Size       int    `gorm:"not null"`
	Category   string `gorm:"type:varchar(20);not null;default:'upload'"`
	UploadedBy string
	Note       string `gorm:"type:text"`
	CreatedAt  time.Time

	// Relation back to case
	Case Case `gorm:"foreignKey:CaseID;references:ID" json:"-"`
}

// WorkLogEntry is an audit entry on a case ("work log").
type WorkLogEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID `gorm:"type:uuid;index"`           // zero for system actions
	ActorName string    `gorm:"type:varchar(120)"`         // display identity at time of action
	Action    string    `gorm:"type:varchar(50);not null"` // e.g. document_generated, stage_changed, settlement_saved
	OldStage  Stage     `gorm:"type:varchar(40)"`
	OldStatus string    `gorm:"type:varchar(40)"`
	NewStage  Stage     `gorm:"type:varchar(40)"`
	NewStatus string    `gorm:"type:varchar(40)"`
	Note      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// All lists every entity for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Case{}, &Client{}, &Defendant{}, &Provider{}, &Bill{},
		&Claim{}, &HealthClaim{}, &MileageEntry{}, &Settlement{},
		&GeneralDamages{}, &CaseFile{}, &WorkLogEntry{},
	}
}
