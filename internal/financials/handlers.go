// Package financials serves the money side of a case: provider bills, the
// settlement and general damages. Derived figures are always recomputed
// on the server.
package financials

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/pi-case-backend/internal/auth"
	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/finance"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
	"github.com/aldoetobex/pi-case-backend/pkg/validation"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* ================================ DTOs ================================= */

// CreateBillRequest adds a provider's bill for one client. Amounts left
// out stay NULL until billing is known.
type CreateBillRequest struct {
	ClientID          string              `json:"client_id" validate:"required,uuid"`
	ProviderID        string              `json:"provider_id" validate:"required,uuid"`
	AmountBilled      decimal.NullDecimal `json:"amount_billed" validate:"omitempty,gte=0"`
	InsurancePaid     decimal.NullDecimal `json:"insurance_paid" validate:"omitempty,gte=0"`
	InsuranceAdjusted decimal.NullDecimal `json:"insurance_adjusted" validate:"omitempty,gte=0"`
	MedpayPaid        decimal.NullDecimal `json:"medpay_paid" validate:"omitempty,gte=0"`
	PatientPaid       decimal.NullDecimal `json:"patient_paid" validate:"omitempty,gte=0"`
	Reduction         decimal.NullDecimal `json:"reduction" validate:"omitempty,gte=0"`
	Expense           decimal.NullDecimal `json:"expense" validate:"omitempty,gte=0"`
}

// AmendBillRequest changes only the amounts present in the body.
type AmendBillRequest struct {
	AmountBilled      *decimal.Decimal `json:"amount_billed" validate:"omitempty,gte=0"`
	InsurancePaid     *decimal.Decimal `json:"insurance_paid" validate:"omitempty,gte=0"`
	InsuranceAdjusted *decimal.Decimal `json:"insurance_adjusted" validate:"omitempty,gte=0"`
	MedpayPaid        *decimal.Decimal `json:"medpay_paid" validate:"omitempty,gte=0"`
	PatientPaid       *decimal.Decimal `json:"patient_paid" validate:"omitempty,gte=0"`
	Reduction         *decimal.Decimal `json:"reduction" validate:"omitempty,gte=0"`
	Expense           *decimal.Decimal `json:"expense" validate:"omitempty,gte=0"`
}

type BillRow struct {
	models.Bill
	Balance decimal.Decimal `json:"balance"`
}

type BillsResponse struct {
	Items  []BillRow      `json:"items"`
	Totals finance.Totals `json:"totals"`
}

// SettlementRequest saves the settlement inputs. MedicalLiens is only read
// with LiensOverridden; otherwise liens follow the bills.
type SettlementRequest struct {
	Gross           decimal.Decimal     `json:"gross" validate:"gte=0"`
	FeePercentage   decimal.Decimal     `json:"fee_percentage" validate:"gte=0,lte=100"`
	CaseExpenses    decimal.Decimal     `json:"case_expenses" validate:"gte=0"`
	MedicalLiens    decimal.NullDecimal `json:"medical_liens" validate:"omitempty,gte=0"`
	LiensOverridden bool                `json:"liens_overridden"`
}

type SettlementResponse struct {
	Settlement   *models.Settlement    `json:"settlement"`
	DerivedLiens decimal.Decimal       `json:"derived_medical_liens"`
	Distribution *finance.Distribution `json:"distribution"`
}

type GeneralDamagesRequest struct {
	EmotionalDistress decimal.Decimal `json:"emotional_distress" validate:"gte=0"`
	DutiesUnderDuress decimal.Decimal `json:"duties_under_duress" validate:"gte=0"`
	PainAndSuffering  decimal.Decimal `json:"pain_and_suffering" validate:"gte=0"`
	LossOfEnjoyment   decimal.Decimal `json:"loss_of_enjoyment" validate:"gte=0"`
	LossOfConsortium  decimal.Decimal `json:"loss_of_consortium" validate:"gte=0"`
}

type GeneralDamagesResponse struct {
	GeneralDamages models.GeneralDamages `json:"general_damages"`
	Total          decimal.Decimal       `json:"total"`
}

/* =============================== Helpers ================================ */

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

func notFoundOr500(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrNotFound
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	return fiber.ErrInternalServerError
}

// lockCase takes a row lock on the case for the rest of tx.
func lockCase(tx *gorm.DB, caseID uuid.UUID) error {
	var cs models.Case
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").First(&cs, "id = ?", caseID).Error
}

func caseBills(tx *gorm.DB, caseID uuid.UUID) ([]models.Bill, error) {
	var bills []models.Bill
	err := tx.Where("case_id = ?", caseID).Order("created_at ASC").Find(&bills).Error
	return bills, err
}

func financeBills(rows []models.Bill) []finance.Bill {
	out := make([]finance.Bill, 0, len(rows))
	for _, b := range rows {
		out = append(out, bundle.FinanceBill(b))
	}
	return out
}

func money(d decimal.Decimal) string { return payload.Currency(d) }

/* ================================ Bills ================================= */

// List Bills godoc
// @Summary      Case bills
// @Description  Provider bills of a case with per-bill balance and column totals
// @Tags         financials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  BillsResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/bills [get]
func (h *Handler) ListBills(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var cs models.Case
	if err := h.db.Select("id").First(&cs, "id = ?", caseID).Error; err != nil {
		return notFoundOr500(err)
	}

	rows, err := caseBills(h.db, caseID)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	items := make([]BillRow, 0, len(rows))
	for _, b := range rows {
		items = append(items, BillRow{Bill: b, Balance: finance.BillBalance(bundle.FinanceBill(b))})
	}
	return c.JSON(BillsResponse{Items: items, Totals: finance.Aggregate(financeBills(rows))})
}

// Create Bill godoc
// @Summary      Add bill
// @Description  Adds a provider's bill for a client on the case
// @Tags         financials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "case id (uuid)"
// @Param        payload  body  CreateBillRequest  true  "Bill payload"
// @Success      201  {object}  BillRow
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/bills [post]
func (h *Handler) CreateBill(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in CreateBillRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	clientID, _ := uuid.Parse(in.ClientID)
	providerID, _ := uuid.Parse(in.ProviderID)

	ctx := c.UserContext()
	actor := auth.Actor(c)
	bill := models.Bill{
		CaseID:            caseID,
		ClientID:          clientID,
		ProviderID:        providerID,
		AmountBilled:      in.AmountBilled,
		InsurancePaid:     in.InsurancePaid,
		InsuranceAdjusted: in.InsuranceAdjusted,
		MedpayPaid:        in.MedpayPaid,
		PatientPaid:       in.PatientPaid,
		Reduction:         in.Reduction,
		Expense:           in.Expense,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := lockCase(tx, caseID); err != nil {
			return err
		}

		var cl models.Client
		if err := tx.First(&cl, "id = ? AND case_id = ?", clientID, caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "client is not on this case")
			}
			return err
		}
		var p models.Provider
		if err := tx.First(&p, "id = ? AND case_id = ?", providerID, caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "provider is not on this case")
			}
			return err
		}

		if err := tx.Create(&bill).Error; err != nil {
			return err
		}
		return utils.LogWork(ctx, tx, &models.WorkLogEntry{
			CaseID:    caseID,
			ActorID:   actor.ID,
			ActorName: actor.DisplayName(),
			Action:    models.ActionBillCreated,
			Note:      fmt.Sprintf("Added %s bill for %s %s (%s billed)", p.Name, cl.FirstName, cl.LastName, money(bundle.FinanceBill(bill).AmountBilled)),
		})
	})
	if err != nil {
		return notFoundOr500(err)
	}
	return c.Status(fiber.StatusCreated).JSON(BillRow{Bill: bill, Balance: finance.BillBalance(bundle.FinanceBill(bill))})
}

// Amend Bill godoc
// @Summary      Amend bill
// @Description  Updates the amounts present in the body; bills are never deleted
// @Tags         financials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string            true  "case id (uuid)"
// @Param        billID   path  string            true  "bill id (uuid)"
// @Param        payload  body  AmendBillRequest  true  "Amounts to change"
// @Success      200  {object}  BillRow
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/bills/{billID} [put]
func (h *Handler) AmendBill(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	billID, err := parseID(c, "billID")
	if err != nil {
		return err
	}
	var in AmendBillRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	updates := map[string]any{}
	for col, v := range map[string]*decimal.Decimal{
		"amount_billed":      in.AmountBilled,
		"insurance_paid":     in.InsurancePaid,
		"insurance_adjusted": in.InsuranceAdjusted,
		"medpay_paid":        in.MedpayPaid,
		"patient_paid":       in.PatientPaid,
		"reduction":          in.Reduction,
		"expense":            in.Expense,
	} {
		if v != nil {
			updates[col] = *v
		}
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no amounts to update")
	}
	updates["updated_at"] = time.Now()

	ctx := c.UserContext()
	actor := auth.Actor(c)
	var bill models.Bill

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&bill, "id = ? AND case_id = ?", billID, caseID).Error; err != nil {
			return err
		}
		before := finance.BillBalance(bundle.FinanceBill(bill))

		if err := tx.Model(&bill).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&bill, "id = ?", billID).Error; err != nil {
			return err
		}
		after := finance.BillBalance(bundle.FinanceBill(bill))

		return utils.LogWork(ctx, tx, &models.WorkLogEntry{
			CaseID:    caseID,
			ActorID:   actor.ID,
			ActorName: actor.DisplayName(),
			Action:    models.ActionBillUpdated,
			Note:      fmt.Sprintf("Bill updated; balance %s -> %s", money(before), money(after)),
		})
	})
	if err != nil {
		return notFoundOr500(err)
	}
	return c.JSON(BillRow{Bill: bill, Balance: finance.BillBalance(bundle.FinanceBill(bill))})
}

/* ============================== Settlement ============================== */

// Get Settlement godoc
// @Summary      Settlement
// @Description  Saved settlement with the current distribution; liens follow the bills unless overridden
// @Tags         financials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  SettlementResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/settlement [get]
func (h *Handler) GetSettlement(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var cs models.Case
	if err := h.db.Preload("Bills").Preload("Settlement").First(&cs, "id = ?", caseID).Error; err != nil {
		return notFoundOr500(err)
	}

	b := bundle.FromModel(&cs)
	return c.JSON(SettlementResponse{
		Settlement:   cs.Settlement,
		DerivedLiens: finance.MedicalLiens(b.FinanceBills(nil)),
		Distribution: b.Distribution(),
	})
}

// Save Settlement godoc
// @Summary      Save settlement
// @Description  Creates or replaces the case settlement. Fee, liens and net are recomputed server-side.
// @Tags         financials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "case id (uuid)"
// @Param        payload  body  SettlementRequest  true  "Settlement payload"
// @Success      200  {object}  SettlementResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/settlement [put]
func (h *Handler) SaveSettlement(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in SettlementRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	if in.LiensOverridden && !in.MedicalLiens.Valid {
		return validation.Respond(c, map[string][]string{
			"medical_liens": {"This field is required when liens_overridden is set"},
		})
	}

	ctx := c.UserContext()
	actor := auth.Actor(c)

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// 1) Lock the case so concurrent saves serialize
	if err := lockCase(tx, caseID); err != nil {
		tx.Rollback()
		return notFoundOr500(err)
	}

	// 2) Liens follow the bills unless entered by hand
	rows, err := caseBills(tx, caseID)
	if err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	derived := finance.MedicalLiens(financeBills(rows))
	liens := derived
	if in.LiensOverridden {
		liens = in.MedicalLiens.Decimal
	}
	d := finance.SettlementNet(in.Gross, in.FeePercentage, in.CaseExpenses, liens)

	// 3) Upsert the single settlement row
	var s models.Settlement
	err = tx.Where("case_id = ?", caseID).First(&s).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s = models.Settlement{CaseID: caseID}
	case err != nil:
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	s.Gross = d.Gross
	s.FeePercentage = d.FeePercentage
	s.AttorneyFee = d.AttorneyFee.Round(2)
	s.CaseExpenses = d.CaseExpenses
	s.MedicalLiens = d.MedicalLiens
	s.LiensOverridden = in.LiensOverridden
	s.ClientNet = d.ClientNet.Round(2)
	if err := tx.Save(&s).Error; err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}

	// 4) Work log
	if err := utils.LogWork(ctx, tx, &models.WorkLogEntry{
		CaseID:    caseID,
		ActorID:   actor.ID,
		ActorName: actor.DisplayName(),
		Action:    models.ActionSettlementSaved,
		Note:      fmt.Sprintf("Settlement saved: gross %s, fee %s, net %s", money(d.Gross), money(d.AttorneyFee), money(d.ClientNet)),
	}); err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}

	if err := tx.Commit().Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(SettlementResponse{Settlement: &s, DerivedLiens: derived, Distribution: &d})
}

/* ============================ General damages =========================== */

// Save General Damages godoc
// @Summary      Save general damages
// @Description  Creates or replaces the non-economic damage categories of a case
// @Tags         financials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "case id (uuid)"
// @Param        payload  body  GeneralDamagesRequest  true  "General damages payload"
// @Success      200  {object}  GeneralDamagesResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/general-damages [put]
func (h *Handler) SaveGeneralDamages(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in GeneralDamagesRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	actor := auth.Actor(c)
	var g models.GeneralDamages
	total := finance.GeneralDamages{
		EmotionalDistress: in.EmotionalDistress,
		DutiesUnderDuress: in.DutiesUnderDuress,
		PainAndSuffering:  in.PainAndSuffering,
		LossOfEnjoyment:   in.LossOfEnjoyment,
		LossOfConsortium:  in.LossOfConsortium,
	}.Total()

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := lockCase(tx, caseID); err != nil {
			return err
		}
		err := tx.Where("case_id = ?", caseID).First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g = models.GeneralDamages{CaseID: caseID}
		} else if err != nil {
			return err
		}
		g.EmotionalDistress = in.EmotionalDistress
		g.DutiesUnderDuress = in.DutiesUnderDuress
		g.PainAndSuffering = in.PainAndSuffering
		g.LossOfEnjoyment = in.LossOfEnjoyment
		g.LossOfConsortium = in.LossOfConsortium
		g.UpdatedAt = time.Now()
		if err := tx.Save(&g).Error; err != nil {
			return err
		}
		return utils.LogWork(ctx, tx, &models.WorkLogEntry{
			CaseID:    caseID,
			ActorID:   actor.ID,
			ActorName: actor.DisplayName(),
			Action:    models.ActionDamagesSaved,
			Note:      "General damages saved: total " + money(total),
		})
	})
	if err != nil {
		return notFoundOr500(err)
	}
	return c.JSON(GeneralDamagesResponse{GeneralDamages: g, Total: total})
}
