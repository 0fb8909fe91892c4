package payload

// Field is a canonical payload key. The render templates were written at
// different times and read the same value under different names, so every
// canonical field is also emitted under each of its aliases.
type Field string

type entry struct {
	field   Field
	money   bool
	aliases []string
}

const (
	DocumentType  Field = "document_type"
	DocumentTitle Field = "document_title"
	TodayDate     Field = "today_date"
	CaseID        Field = "case_id"
	CaseName      Field = "case_name"

	FirmName         Field = "firm_name"
	FirmAddress      Field = "firm_address"
	FirmCityStateZip Field = "firm_city_state_zip"
	FirmPhone        Field = "firm_phone"
	FirmFax          Field = "firm_fax"
	FirmEmail        Field = "firm_email"
	AttorneyName     Field = "attorney_name"
	AttorneyBar      Field = "attorney_bar_number"

	ClientName         Field = "client_name"
	ClientFirstName    Field = "client_first_name"
	ClientLastName     Field = "client_last_name"
	ClientDOB          Field = "client_dob"
	ClientSSN          Field = "client_ssn"
	ClientAddress      Field = "client_address"
	ClientCity         Field = "client_city"
	ClientState        Field = "client_state"
	ClientZip          Field = "client_zip"
	ClientCityStateZip Field = "client_city_state_zip"
	ClientPhone        Field = "client_phone"
	ClientEmail        Field = "client_email"
	AllClientNames     Field = "all_client_names"

	DateOfLoss          Field = "date_of_loss"
	AccidentLocation    Field = "accident_location"
	AccidentCity        Field = "accident_city"
	AccidentState       Field = "accident_state"
	AccidentDescription Field = "accident_description"
	PoliceReport        Field = "police_report_number"
	StatuteDeadline     Field = "statute_deadline"
	TwoYearsAfter       Field = "two_years_after_accident"

	DefendantName            Field = "defendant_name"
	DefendantFirstName       Field = "defendant_first_name"
	DefendantLastName        Field = "defendant_last_name"
	PolicyholderName         Field = "policyholder_name"
	PolicyholderRelationship Field = "policyholder_relationship"
	DefendantVehicle         Field = "defendant_vehicle"

	FPCarrier       Field = "fp_insurance_company"
	FPClaimNumber   Field = "fp_claim_number"
	FPPolicyNumber  Field = "fp_policy_number"
	FPPolicyLimits  Field = "fp_policy_limits"
	FPAdjusterName  Field = "fp_adjuster_name"
	FPAdjusterEmail Field = "fp_adjuster_email"
	FPAdjusterPhone Field = "fp_adjuster_phone"
	FPAdjusterFax   Field = "fp_adjuster_fax"

	TPCarrier       Field = "tp_insurance_company"
	TPClaimNumber   Field = "tp_claim_number"
	TPPolicyNumber  Field = "tp_policy_number"
	TPPolicyLimits  Field = "tp_policy_limits"
	TPAdjusterName  Field = "tp_adjuster_name"
	TPAdjusterEmail Field = "tp_adjuster_email"
	TPAdjusterPhone Field = "tp_adjuster_phone"
	TPAdjusterFax   Field = "tp_adjuster_fax"

	HealthCarrier       Field = "health_insurance_company"
	HealthClaimNumber   Field = "health_claim_number"
	HealthMemberID      Field = "health_member_id"
	HealthGroupNumber   Field = "health_group_number"
	HealthAdjusterName  Field = "health_adjuster_name"
	HealthAdjusterEmail Field = "health_adjuster_email"
	HealthAdjusterPhone Field = "health_adjuster_phone"

	ProviderName         Field = "provider_name"
	ProviderAddress      Field = "provider_address"
	ProviderCity         Field = "provider_city"
	ProviderState        Field = "provider_state"
	ProviderZip          Field = "provider_zip"
	ProviderCityStateZip Field = "provider_city_state_zip"
	ProviderPhone        Field = "provider_phone"
	ProviderFax          Field = "provider_fax"
	ProviderEmail        Field = "provider_email"

	TotalBilled            Field = "total_billed"
	TotalInsurancePaid     Field = "total_insurance_paid"
	TotalInsuranceAdjusted Field = "total_insurance_adjusted"
	TotalMedpayPaid        Field = "total_medpay_paid"
	TotalPatientPaid       Field = "total_patient_paid"
	TotalReduction         Field = "total_reduction"
	TotalExpense           Field = "total_expense"
	TotalBalanceDue        Field = "total_balance_due"
	BillCount              Field = "bill_count"

	EmotionalDistress   Field = "emotional_distress"
	DutiesUnderDuress   Field = "duties_under_duress"
	PainAndSuffering    Field = "pain_and_suffering"
	LossOfEnjoyment     Field = "loss_of_enjoyment"
	LossOfConsortium    Field = "loss_of_consortium"
	GeneralDamagesTotal Field = "general_damages_total"
	TotalMiles          Field = "total_miles"
	MileageRate         Field = "mileage_rate"
	MileageAmount       Field = "mileage_amount"
	TotalDamages        Field = "total_damages"
	SettlementGross     Field = "settlement_gross"
	FeePercentage       Field = "attorney_fee_percentage"
	AttorneyFee         Field = "attorney_fee"
	CaseExpenses        Field = "case_expenses"
	MedicalLiens        Field = "medical_liens"
	ClientNet           Field = "client_net"
	RecipientEmail      Field = "recipient_email"
)

// table lists every field the payload carries, in emission order, with the
// extra keys each one is copied to. Money fields default to 0.00 and also
// get a "<field>_formatted" currency string.
var table = []entry{
	{field: DocumentType, aliases: []string{"documentType", "template"}},
	{field: DocumentTitle, aliases: []string{"documentTitle"}},
	{field: TodayDate, aliases: []string{"date", "current_date", "letter_date", "todayDate"}},
	{field: CaseID, aliases: []string{"caseId", "casefile_id"}},
	{field: CaseName, aliases: []string{"caseName", "display_name", "case_display_name"}},

	{field: FirmName, aliases: []string{"law_firm_name", "firmName"}},
	{field: FirmAddress, aliases: []string{"firmAddress", "law_firm_address"}},
	{field: FirmCityStateZip, aliases: []string{"firmCityStateZip"}},
	{field: FirmPhone, aliases: []string{"firmPhone", "attorney_phone"}},
	{field: FirmFax, aliases: []string{"firmFax", "attorney_fax"}},
	{field: FirmEmail, aliases: []string{"firmEmail", "attorney_email"}},
	{field: AttorneyName, aliases: []string{"attorneyName", "attorney"}},
	{field: AttorneyBar, aliases: []string{"barNumber", "bar_number"}},

	{field: ClientName, aliases: []string{"clientName", "client_full_name", "patient_name", "patientName", "plaintiff_name"}},
	{field: ClientFirstName, aliases: []string{"clientFirstName", "first_name"}},
	{field: ClientLastName, aliases: []string{"clientLastName", "last_name"}},
	{field: ClientDOB, aliases: []string{"clientDob", "date_of_birth", "dob", "patient_dob"}},
	{field: ClientSSN, aliases: []string{"clientSsn", "ssn", "social_security_number"}},
	{field: ClientAddress, aliases: []string{"clientAddress", "client_street"}},
	{field: ClientCity, aliases: []string{"clientCity"}},
	{field: ClientState, aliases: []string{"clientState"}},
	{field: ClientZip, aliases: []string{"clientZip"}},
	{field: ClientCityStateZip, aliases: []string{"clientCityStateZip"}},
	{field: ClientPhone, aliases: []string{"clientPhone", "phone"}},
	{field: ClientEmail, aliases: []string{"clientEmail"}},
	{field: AllClientNames, aliases: []string{"clientNames", "clients"}},

	{field: DateOfLoss, aliases: []string{"dateOfLoss", "accident_date", "accidentDate", "date_of_injury", "doi"}},
	{field: AccidentLocation, aliases: []string{"wreck_location", "accidentLocation", "location"}},
	{field: AccidentCity, aliases: []string{"wreck_city", "accidentCity"}},
	{field: AccidentState, aliases: []string{"wreck_state", "accidentState"}},
	{field: AccidentDescription, aliases: []string{"wreck_description", "accidentDescription", "facts"}},
	{field: PoliceReport, aliases: []string{"policeReportNumber", "report_number"}},
	{field: StatuteDeadline, aliases: []string{"statuteDeadline", "sol_date"}},
	{field: TwoYearsAfter, aliases: []string{"twoYearsAfterAccident", "two_year_date"}},

	{field: DefendantName, aliases: []string{"defendantName", "at_fault_party", "tortfeasor"}},
	{field: DefendantFirstName, aliases: []string{"defendantFirstName"}},
	{field: DefendantLastName, aliases: []string{"defendantLastName"}},
	{field: PolicyholderName, aliases: []string{"policyholderName", "insured_name", "insured"}},
	{field: PolicyholderRelationship, aliases: []string{"policyholderRelationship", "relationship_to_insured"}},
	{field: DefendantVehicle, aliases: []string{"vehicle_description", "defendantVehicle"}},

	{field: FPCarrier, aliases: []string{"first_party_insurance", "firstPartyCarrier"}},
	{field: FPClaimNumber, aliases: []string{"first_party_claim_number", "firstPartyClaimNumber"}},
	{field: FPPolicyNumber, aliases: []string{"first_party_policy_number", "firstPartyPolicyNumber"}},
	{field: FPPolicyLimits, aliases: []string{"first_party_policy_limits", "firstPartyPolicyLimits"}},
	{field: FPAdjusterName, aliases: []string{"first_party_adjuster", "firstPartyAdjusterName"}},
	{field: FPAdjusterEmail, aliases: []string{"first_party_adjuster_email", "firstPartyAdjusterEmail"}},
	{field: FPAdjusterPhone, aliases: []string{"first_party_adjuster_phone", "firstPartyAdjusterPhone"}},
	{field: FPAdjusterFax, aliases: []string{"first_party_adjuster_fax", "firstPartyAdjusterFax"}},

	{field: TPCarrier, aliases: []string{"third_party_insurance", "thirdPartyCarrier", "defendant_insurance"}},
	{field: TPClaimNumber, aliases: []string{"third_party_claim_number", "thirdPartyClaimNumber", "claim_number"}},
	{field: TPPolicyNumber, aliases: []string{"third_party_policy_number", "thirdPartyPolicyNumber"}},
	{field: TPPolicyLimits, aliases: []string{"third_party_policy_limits", "thirdPartyPolicyLimits", "policy_limits"}},
	{field: TPAdjusterName, aliases: []string{"third_party_adjuster", "thirdPartyAdjusterName", "adjuster_name"}},
	{field: TPAdjusterEmail, aliases: []string{"third_party_adjuster_email", "thirdPartyAdjusterEmail"}},
	{field: TPAdjusterPhone, aliases: []string{"third_party_adjuster_phone", "thirdPartyAdjusterPhone"}},
	{field: TPAdjusterFax, aliases: []string{"third_party_adjuster_fax", "thirdPartyAdjusterFax"}},

	{field: HealthCarrier, aliases: []string{"health_carrier", "healthInsurance"}},
	{field: HealthClaimNumber, aliases: []string{"healthClaimNumber"}},
	{field: HealthMemberID, aliases: []string{"member_id", "healthMemberId"}},
	{field: HealthGroupNumber, aliases: []string{"group_number", "healthGroupNumber"}},
	{field: HealthAdjusterName, aliases: []string{"healthAdjusterName", "subrogation_adjuster"}},
	{field: HealthAdjusterEmail, aliases: []string{"healthAdjusterEmail"}},
	{field: HealthAdjusterPhone, aliases: []string{"healthAdjusterPhone"}},

	{field: ProviderName, aliases: []string{"providerName", "medical_provider", "facility_name"}},
	{field: ProviderAddress, aliases: []string{"providerAddress", "provider_street"}},
	{field: ProviderCity, aliases: []string{"providerCity"}},
	{field: ProviderState, aliases: []string{"providerState"}},
	{field: ProviderZip, aliases: []string{"providerZip"}},
	{field: ProviderCityStateZip, aliases: []string{"providerCityStateZip"}},
	{field: ProviderPhone, aliases: []string{"providerPhone"}},
	{field: ProviderFax, aliases: []string{"providerFax", "records_fax"}},
	{field: ProviderEmail, aliases: []string{"providerEmail", "records_email"}},

	{field: TotalBilled, money: true, aliases: []string{"medical_bills_total", "totalMedicalBills", "total_medical_bills", "medical_specials"}},
	{field: TotalInsurancePaid, money: true, aliases: []string{"totalInsurancePaid"}},
	{field: TotalInsuranceAdjusted, money: true, aliases: []string{"totalInsuranceAdjusted"}},
	{field: TotalMedpayPaid, money: true, aliases: []string{"totalMedpayPaid", "medpay_total"}},
	{field: TotalPatientPaid, money: true, aliases: []string{"totalPatientPaid"}},
	{field: TotalReduction, money: true, aliases: []string{"totalReduction", "reductions_total"}},
	{field: TotalExpense, money: true, aliases: []string{"totalExpense"}},
	{field: TotalBalanceDue, money: true, aliases: []string{"balance_due", "balanceDue", "outstanding_balance"}},
	{field: BillCount, aliases: []string{"billCount", "number_of_bills"}},

	{field: EmotionalDistress, money: true, aliases: []string{"emotionalDistress"}},
	{field: DutiesUnderDuress, money: true, aliases: []string{"dutiesUnderDuress"}},
	{field: PainAndSuffering, money: true, aliases: []string{"painAndSuffering"}},
	{field: LossOfEnjoyment, money: true, aliases: []string{"lossOfEnjoyment"}},
	{field: LossOfConsortium, money: true, aliases: []string{"lossOfConsortium"}},
	{field: GeneralDamagesTotal, money: true, aliases: []string{"generalDamagesTotal", "non_economic_damages"}},
	{field: TotalMiles, aliases: []string{"totalMiles", "mileage"}},
	{field: MileageRate, aliases: []string{"mileageRate"}},
	{field: MileageAmount, money: true, aliases: []string{"mileageAmount", "mileage_total", "mileage_reimbursement"}},
	{field: TotalDamages, money: true, aliases: []string{"totalDamages", "demand_total"}},

	{field: SettlementGross, money: true, aliases: []string{"gross_settlement", "settlement_amount", "settlementAmount"}},
	{field: FeePercentage, aliases: []string{"fee_percentage", "feePercentage"}},
	{field: AttorneyFee, money: true, aliases: []string{"attorneyFee", "attorney_fees"}},
	{field: CaseExpenses, money: true, aliases: []string{"caseExpenses"}},
	{field: MedicalLiens, money: true, aliases: []string{"medicalLiens", "liens"}},
	{field: ClientNet, money: true, aliases: []string{"clientNet", "net_to_client"}},

	{field: RecipientEmail, aliases: []string{"recipientEmail", "to_email", "email_to"}},
}
