package cases

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/internal/auth"
	"github.com/aldoetobex/pi-case-backend/internal/casestore"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/internal/generation"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/validation"
)

// GenerateRequest asks for one document type on a case.
type GenerateRequest struct {
	DocumentType  string   `json:"document_type" validate:"required,doctype"`
	ClientIDs     []string `json:"client_ids" validate:"omitempty,max=20,dive,uuid"`
	ProviderID    string   `json:"provider_id" validate:"omitempty,uuid"`
	SelectedParty string   `json:"selected_party" validate:"omitempty,oneof=first_party third_party"`
}

type PreviewJob struct {
	Index    int             `json:"index"`
	TargetID *uuid.UUID      `json:"target_id,omitempty"`
	Name     string          `json:"name"`
	Payload  payload.Payload `json:"payload"`
}

type PreviewResponse struct {
	DocumentType string       `json:"document_type"`
	Title        string       `json:"title"`
	Jobs         []PreviewJob `json:"jobs"`
}

// parseGenerate reads and validates the body. A non-nil map means a 400
// with field errors.
func parseGenerate(c *fiber.Ctx, caseID uuid.UUID) (generation.Request, map[string][]string, error) {
	var in GenerateRequest
	if err := c.BodyParser(&in); err != nil {
		return generation.Request{}, nil, fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	if errs, _ := validation.Validate(in); errs != nil {
		return generation.Request{}, errs, nil
	}

	req := generation.Request{
		CaseID:        caseID,
		DocumentType:  in.DocumentType,
		SelectedParty: models.ClaimParty(in.SelectedParty),
	}
	for _, s := range in.ClientIDs {
		id, _ := uuid.Parse(s)
		req.ClientIDs = append(req.ClientIDs, id)
	}
	if in.ProviderID != "" {
		id, _ := uuid.Parse(in.ProviderID)
		req.ProviderID = &id
	}
	return req, nil, nil
}

// engineError maps generation errors to HTTP errors.
func engineError(err error) error {
	switch {
	case errors.Is(err, casestore.ErrCaseNotFound):
		return fiber.ErrNotFound
	case errors.Is(err, generation.ErrRunInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case generation.IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.ErrInternalServerError
	}
}

// Document Types godoc
// @Summary      Document types
// @Description  Every generatable document with its fan-out rule, recipient and stage side effect
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  documents.Type
// @Router       /document-types [get]
func (h *Handler) DocumentTypes(c *fiber.Ctx) error {
	return c.JSON(documents.All())
}

// List Documents godoc
// @Summary      Case documents
// @Description  Generated and uploaded documents of a case, newest first
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id        path   string true  "case id (uuid)"
// @Param        category  query  string false "generated | upload"
// @Success      200  {array}   models.CaseFile
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/documents [get]
func (h *Handler) ListDocuments(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.caseExists(caseID); err != nil {
		return err
	}

	q := h.db.Where("case_id = ?", caseID)
	switch cat := strings.TrimSpace(c.Query("category")); cat {
	case "":
	case models.CategoryGenerated, models.CategoryUpload:
		q = q.Where("category = ?", cat)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid category filter")
	}

	files := []models.CaseFile{}
	if err := q.Order("created_at DESC").Find(&files).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(files)
}

// Generate Documents godoc
// @Summary      Generate documents
// @Description  Runs one document type on a case. Jobs render one at a time; per-job failures are reported in the result and do not fail the request.
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "case id (uuid)"
// @Param        payload  body  GenerateRequest  true  "Generation request"
// @Success      200  {object}  generation.RunResult
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "a run is already in progress"
// @Router       /cases/{id}/generate [post]
func (h *Handler) Generate(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req, errs, err := parseGenerate(c, caseID)
	if err != nil {
		return err
	}
	if errs != nil {
		return validation.Respond(c, errs)
	}

	res, err := h.engine.Run(c.UserContext(), req, auth.Actor(c))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(res)
}

// Preview Payload godoc
// @Summary      Preview payload
// @Description  Builds the render payload of each job without rendering anything
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "case id (uuid)"
// @Param        payload  body  GenerateRequest  true  "Generation request"
// @Success      200  {object}  PreviewResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/payload-preview [post]
func (h *Handler) PreviewPayload(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req, errs, err := parseGenerate(c, caseID)
	if err != nil {
		return err
	}
	if errs != nil {
		return validation.Respond(c, errs)
	}

	p, err := h.engine.Preview(c.UserContext(), req)
	if err != nil {
		return engineError(err)
	}

	out := PreviewResponse{DocumentType: p.Type.Key, Title: p.Type.Title, Jobs: make([]PreviewJob, 0, len(p.Jobs))}
	for _, j := range p.Jobs {
		out.Jobs = append(out.Jobs, PreviewJob{Index: j.Index, TargetID: j.TargetID, Name: j.Name, Payload: j.Payload()})
	}
	return c.JSON(out)
}
