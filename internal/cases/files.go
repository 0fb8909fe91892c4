package cases

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/internal/auth"
	"github.com/aldoetobex/pi-case-backend/internal/storage"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
)

const (
	maxUploadFiles = 10
	maxUploadSize  = 10 * 1024 * 1024
	signedURLTTL   = 60 * time.Second
)

var allowedUploads = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Upload Case Files godoc
// @Summary      Upload case documents (PDF/PNG/JPEG)
// @Description  Staff uploads up to 10 files to the artifact store; each file is sniffed, stored, recorded and written to the work log
// @Tags         files
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      string   true   "case id (uuid)"
// @Param        files  formData  []file   true   "PDF/PNG/JPEG (max 10)"
// @Param        note   formData  string   false  "note stored with each file"
// @Success      201    {object}  map[string]any  "results: id, key, name, size, error"
// @Failure      400    {object}  models.ErrorResponse
// @Failure      404    {object}  models.ErrorResponse
// @Router       /cases/{id}/files [post]
func (h *Handler) UploadFile(c *fiber.Ctx) error {
	caseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.caseExists(caseID); err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required; use files[]")
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "files are required (use key: files[])")
	}
	if len(files) > maxUploadFiles {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("max %d files allowed", maxUploadFiles))
	}

	ctx := c.UserContext()
	actor := auth.Actor(c)
	note := c.FormValue("note")
	results := make([]fiber.Map, 0, len(files))

	for _, fh := range files {
		res := fiber.Map{
			"name": fh.Filename,
			"size": fh.Size,
		}

		if fh.Size <= 0 {
			res["error"] = "empty file"
			results = append(results, res)
			continue
		}
		if fh.Size > maxUploadSize {
			res["error"] = "max 10MB per file"
			results = append(results, res)
			continue
		}

		f, err := fh.Open()
		if err != nil {
			res["error"] = "open failed"
			results = append(results, res)
			continue
		}

		// trust the bytes, not the client's Content-Type
		mt, err := mimetype.DetectReader(f)
		if err != nil || !allowedUploads[mt.String()] {
			f.Close()
			res["error"] = "only PDF, PNG or JPEG are allowed"
			results = append(results, res)
			continue
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			res["error"] = "open failed"
			results = append(results, res)
			continue
		}

		key := storage.ObjectKey(caseID, fh.Filename)
		url, err := h.files.Upload(ctx, key, f, mt.String(), fh.Size)
		f.Close()
		if err != nil {
			res["error"] = "upload failed"
			results = append(results, res)
			continue
		}

		rec := models.CaseFile{
			CaseID:     caseID,
			Key:        key,
			URL:        url,
			Filename:   fh.Filename,
			Mime:       mt.String(),
			Size:       int(fh.Size),
			Category:   models.CategoryUpload,
			UploadedBy: actor.DisplayName(),
			Note:       note,
		}
		if err := h.db.Create(&rec).Error; err != nil {
			_ = h.files.Delete(ctx, key)
			res["error"] = "database error"
			results = append(results, res)
			continue
		}
		_ = utils.LogWork(ctx, h.db, &models.WorkLogEntry{
			CaseID:    caseID,
			ActorID:   actor.ID,
			ActorName: actor.DisplayName(),
			Action:    models.ActionDocumentUploaded,
			Note:      "Uploaded " + fh.Filename,
		})

		res["id"] = rec.ID
		res["key"] = rec.Key
		results = append(results, res)
	}

	// 201 even when some files failed; callers check "error" per item
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": results})
}

// Signed Download URL godoc
// @Summary      Get signed URL
// @Description  Staff obtains a short-lived signed URL for a case document
// @Tags         files
// @Security     BearerAuth
// @Produce      json
// @Param        fileID  path string true "file id (uuid)"
// @Success      200  {object}  map[string]any  "url, expires_in, now"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /files/{fileID}/signed-url [get]
func (h *Handler) SignedDownloadURL(c *fiber.Ctx) error {
	fileID, err := parseID(c, "fileID")
	if err != nil {
		return err
	}

	var cf models.CaseFile
	if err := h.db.First(&cf, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	url, err := h.files.SignedURL(c.UserContext(), cf.Key, signedURLTTL)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": int(signedURLTTL.Seconds()), "now": time.Now().UTC()})
}
