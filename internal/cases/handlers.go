package cases

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/pi-case-backend/internal/auth"
	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/internal/casemetrics"
	"github.com/aldoetobex/pi-case-backend/internal/casestore"
	"github.com/aldoetobex/pi-case-backend/internal/generation"
	"github.com/aldoetobex/pi-case-backend/internal/storage"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
	"github.com/aldoetobex/pi-case-backend/pkg/validation"
)

// ===== DTOs =====

type CaseListItem struct {
	ID               uuid.UUID    `json:"id"`
	Title            string       `json:"title"`
	DisplayName      string       `json:"display_name"`
	Stage            models.Stage `json:"stage"`
	Status           string       `json:"status"`
	DateOfLoss       *time.Time   `json:"date_of_loss"`
	StatuteDeadline  *time.Time   `json:"statute_deadline"`
	DaysUntilStatute *int         `json:"days_until_statute"`
	CreatedAt        time.Time    `json:"created_at"`
}

type PageCases struct {
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int64          `json:"total"`
	Pages    int            `json:"pages"`
	Items    []CaseListItem `json:"items"`
}

// CaseDetail is the case row plus its derived metrics.
type CaseDetail struct {
	Case *models.Case `json:"case"`
	casemetrics.Summary
}

type UpdateStageRequest struct {
	Stage  string `json:"stage" validate:"required,stage"`
	Status string `json:"status" validate:"required,max=40"`
	Note   string `json:"note" validate:"max=500"`
}

type StageChangeResponse struct {
	From    models.StageStatus `json:"from"`
	To      models.StageStatus `json:"to"`
	Changed bool               `json:"changed"`
}

type PageWorkLog struct {
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Total    int64                 `json:"total"`
	Pages    int                   `json:"pages"`
	Items    []models.WorkLogEntry `json:"items"`
}

type StageOption struct {
	Stage    models.Stage `json:"stage"`
	Statuses []string     `json:"statuses"`
}

type Handler struct {
	db          *gorm.DB
	store       *casestore.Store
	files       storage.Store
	engine      *generation.Orchestrator
	mileageRate decimal.Decimal
	now         func() time.Time
}

func NewHandler(db *gorm.DB, files storage.Store, engine *generation.Orchestrator, mileageRate decimal.Decimal) *Handler {
	return &Handler{
		db:          db,
		store:       casestore.New(db),
		files:       files,
		engine:      engine,
		mileageRate: mileageRate,
		now:         time.Now,
	}
}

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

// caseExists answers 404 for unknown cases.
func (h *Handler) caseExists(caseID uuid.UUID) error {
	var n int64
	if err := h.db.Model(&models.Case{}).Where("id = ?", caseID).Count(&n).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if n == 0 {
		return fiber.ErrNotFound
	}
	return nil
}

// List Cases godoc
// @Summary      List cases
// @Description  Staff lists cases with display name and statute countdown (paginated)
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        stage     query string false "stage filter"
// @Success      200  {object}  PageCases
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	page, size := parsePage(c)
	stage := strings.TrimSpace(c.Query("stage"))

	q := h.db.Model(&models.Case{})
	if stage != "" {
		if models.StatusesFor(models.Stage(stage)) == nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid stage filter")
		}
		q = q.Where("stage = ?", stage)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var list []models.Case
	if err := q.
		Preload("Clients", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	now := h.now()
	items := make([]CaseListItem, 0, len(list))
	for i := range list {
		b := bundle.FromModel(&list[i])
		deadline := casemetrics.StatuteDeadlinePtr(b.DateOfLoss)
		items = append(items, CaseListItem{
			ID:               b.ID,
			Title:            b.Title,
			DisplayName:      casemetrics.DisplayName(b.Clients),
			Stage:            b.Stage,
			Status:           b.Status,
			DateOfLoss:       b.DateOfLoss,
			StatuteDeadline:  deadline,
			DaysUntilStatute: casemetrics.DaysUntil(deadline, now),
			CreatedAt:        list[i].CreatedAt,
		})
	}

	return c.JSON(PageCases{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	})
}

// Get Case Detail godoc
// @Summary      Case detail
// @Description  Case with parties, bills, claims, settlement and derived metrics
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  CaseDetail
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [get]
func (h *Handler) GetDetail(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	cs, err := h.store.Load(c.UserContext(), caseID)
	if err != nil {
		if errors.Is(err, casestore.ErrCaseNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	return c.JSON(CaseDetail{
		Case:    cs,
		Summary: casemetrics.Summarize(bundle.FromModel(cs), h.mileageRate, h.now()),
	})
}

// Update Stage godoc
// @Summary      Change stage/status
// @Description  Moves a case to a stage and one of that stage's statuses; every change is written to the work log
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string              true  "case id (uuid)"
// @Param        payload  body  UpdateStageRequest  true  "Stage payload"
// @Success      200  {object}  StageChangeResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/stage [put]
func (h *Handler) UpdateStage(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var in UpdateStageRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Status = strings.TrimSpace(in.Status)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	to := models.StageStatus{Stage: models.Stage(in.Stage), Status: in.Status}
	if !to.Valid() {
		return validation.Respond(c, map[string][]string{
			"status": {"Status is not allowed for stage " + in.Stage},
		})
	}

	ctx := c.UserContext()
	actor := auth.Actor(c)
	var out StageChangeResponse

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cs, "id = ?", caseID).Error; err != nil {
			return err
		}
		out.From = models.StageStatus{Stage: cs.Stage, Status: cs.Status}
		out.To = to
		if out.From == to {
			return nil
		}

		if err := casestore.New(tx).UpdateStage(ctx, caseID, to); err != nil {
			return err
		}
		note := strings.TrimSpace(in.Note)
		if note == "" {
			note = "Manual update"
		}
		if err := utils.LogWork(ctx, tx, utils.StageEntry(caseID, actor, out.From, to, note)); err != nil {
			return err
		}
		out.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(out)
}

// Work Log godoc
// @Summary      Case work log
// @Description  Audit entries of a case, newest first (paginated)
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id        path  string true  "case id (uuid)"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  PageWorkLog
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/worklog [get]
func (h *Handler) WorkLog(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.caseExists(caseID); err != nil {
		return err
	}
	page, size := parsePage(c)

	q := h.db.Model(&models.WorkLogEntry{}).Where("case_id = ?", caseID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]models.WorkLogEntry, 0, size)
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&items).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(PageWorkLog{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	})
}

// Stages godoc
// @Summary      Stage/status table
// @Description  Every stage in lifecycle order with its allowed statuses
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  StageOption
// @Router       /stages [get]
func (h *Handler) Stages(c *fiber.Ctx) error {
	out := make([]StageOption, 0, len(models.Stages()))
	for _, s := range models.Stages() {
		out = append(out, StageOption{Stage: s, Statuses: models.StatusesFor(s)})
	}
	return c.JSON(out)
}
