package cases

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/internal/casestore"
	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/internal/generation"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/internal/render"
	"github.com/aldoetobex/pi-case-backend/internal/storage"
	"github.com/aldoetobex/pi-case-backend/pkg/config"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

// openTestDB loads TEST_DATABASE_URL, opens a real Postgres connection,
// runs migrations, and registers a cleanup that truncates test tables after run.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Truncate AFTER each test (data survives within a single test).
	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	work_log_entries,
	case_files,
	general_damages,
	settlements,
	mileage_entries,
	health_claims,
	claims,
	bills,
	providers,
	defendants,
	clients,
	cases,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

// withTx wraps a function in a DB transaction and commits it at the end.
// If the function panics, the transaction is rolled back and the panic is rethrown.
func withTx(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB)) {
	t.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	fn(tx)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit tx: %v", err)
	}
}

// injectAuth puts the auth locals into Fiber context without a real JWT.
func injectAuth(userID uuid.UUID, role, name string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		c.Locals("userName", name)
		return c.Next()
	}
}

// newTestApp registers routes in a safe order for tests.
// Static paths are added BEFORE parameterized ones so they don't get shadowed.
func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(injectAuth(userID, role, "Pat Lee"))

	app.Get("/api/stages", h.Stages)
	app.Get("/api/document-types", h.DocumentTypes)
	app.Get("/api/files/:fileID/signed-url", h.SignedDownloadURL)
	app.Get("/api/cases", h.List)

	app.Put("/api/cases/:id/stage", h.UpdateStage)
	app.Get("/api/cases/:id/worklog", h.WorkLog)
	app.Get("/api/cases/:id/documents", h.ListDocuments)
	app.Post("/api/cases/:id/files", h.UploadFile)
	app.Post("/api/cases/:id/generate", h.Generate)
	app.Post("/api/cases/:id/payload-preview", h.PreviewPayload)

	// Parameterized routes last
	app.Get("/api/cases/:id", h.GetDetail)
	return app
}

// pdfServer is a render endpoint answering every request with a tiny PDF,
// except for payloads whose client_last_name is in fail.
func pdfServer(t *testing.T, fail ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, f := range fail {
			if body["client_last_name"] == f {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"message":"workflow crashed"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4\n%test\n%%EOF"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newHandler wires a handler over tx with a local artifact store and the
// given render endpoint.
func newHandler(t *testing.T, tx *gorm.DB, renderURL string) (*Handler, *storage.Local) {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatal(err)
	}
	rate := decimal.RequireFromString("0.67")
	engine := generation.New(
		payload.NewBuilder(config.Firm{Name: "Cotton Law Firm"}, rate),
		render.NewClient(renderURL, 5*time.Second),
		files,
		casestore.New(tx),
	)
	return NewHandler(tx, files, engine, rate), files
}

type seedResult struct {
	StaffID     uuid.UUID
	CaseID      uuid.UUID
	DriverID    uuid.UUID
	PassengerID uuid.UUID
	ProviderID  uuid.UUID
}

// seedCase inserts a staff user and an Intake case with two clients (driver
// and passenger), one provider with an email, and one bill per client.
func seedCase(t *testing.T, tx *gorm.DB) seedResult {
	t.Helper()
	staff := models.User{Email: "staff_" + uuid.NewString()[:8] + "@x.com", Role: models.RoleParalegal, Name: "Pat Lee", PasswordHash: "x"}
	if err := tx.Create(&staff).Error; err != nil {
		t.Fatal(err)
	}

	dol := time.Now().AddDate(0, -1, 0)
	cs := models.Case{Title: "Reyes MVA", DateOfLoss: &dol, Stage: models.StageIntake, Status: "New Lead"}
	if err := tx.Create(&cs).Error; err != nil {
		t.Fatal(err)
	}

	driver := models.Client{CaseID: cs.ID, Position: 0, IsDriver: true, FirstName: "Ana", LastName: "Reyes", Email: "ana@x.com"}
	passenger := models.Client{CaseID: cs.ID, Position: 1, FirstName: "Luis", LastName: "Ortiz"}
	for _, cl := range []*models.Client{&driver, &passenger} {
		if err := tx.Create(cl).Error; err != nil {
			t.Fatal(err)
		}
	}

	prov := models.Provider{CaseID: cs.ID, Name: "Spine Clinic", Email: "records@spine.test"}
	if err := tx.Create(&prov).Error; err != nil {
		t.Fatal(err)
	}
	for _, id := range []uuid.UUID{driver.ID, passenger.ID} {
		b := models.Bill{
			CaseID: cs.ID, ClientID: id, ProviderID: prov.ID,
			AmountBilled:  decimal.NewNullDecimal(decimal.NewFromInt(1000)),
			InsurancePaid: decimal.NewNullDecimal(decimal.NewFromInt(250)),
		}
		if err := tx.Create(&b).Error; err != nil {
			t.Fatal(err)
		}
	}

	return seedResult{StaffID: staff.ID, CaseID: cs.ID, DriverID: driver.ID, PassengerID: passenger.ID, ProviderID: prov.ID}
}

func jsonBody(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func doJSON(app *fiber.App, method, url string, body any) *http.Response {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, jsonBody(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	resp, _ := app.Test(req, 10_000)
	return resp
}

/* ============================================================================
   Tests: case list, detail and stage changes
   ============================================================================ */

// List shows the family display name and a statute countdown.
func Test_List_DisplayNameAndStatute(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		resp := doJSON(app, "GET", "/api/cases?page=1&pageSize=5", nil)
		if resp.StatusCode != 200 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out PageCases
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Total != 1 || len(out.Items) != 1 {
			t.Fatalf("want 1 case, got total=%d items=%d", out.Total, len(out.Items))
		}
		it := out.Items[0]
		if it.DisplayName != "Reyes-Ortiz" {
			t.Fatalf("display name %q", it.DisplayName)
		}
		if it.DaysUntilStatute == nil || *it.DaysUntilStatute < 695 || *it.DaysUntilStatute > 705 {
			t.Fatalf("days until statute %v", it.DaysUntilStatute)
		}

		resp = doJSON(app, "GET", "/api/cases?stage=Limbo", nil)
		if resp.StatusCode != 400 {
			t.Fatalf("want 400 for unknown stage, got %d", resp.StatusCode)
		}
	})
}

// Detail carries the bill rollup and total damages.
func Test_GetDetail_Financials(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		resp := doJSON(app, "GET", "/api/cases/"+seed.CaseID.String(), nil)
		if resp.StatusCode != 200 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out struct {
			DisplayName string `json:"display_name"`
			Financials  struct {
				Bills struct {
					BalanceDue decimal.Decimal `json:"balance_due"`
					Count      int             `json:"count"`
				} `json:"bills"`
				TotalDamages decimal.Decimal `json:"total_damages"`
			} `json:"financials"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Financials.Bills.Count != 2 {
			t.Fatalf("want 2 bills, got %d", out.Financials.Bills.Count)
		}
		if !out.Financials.Bills.BalanceDue.Equal(decimal.NewFromInt(1500)) {
			t.Fatalf("balance due %s", out.Financials.Bills.BalanceDue)
		}
		if !out.Financials.TotalDamages.Equal(decimal.NewFromInt(2000)) {
			t.Fatalf("total damages %s", out.Financials.TotalDamages)
		}
	})
}

// Unknown and malformed ids.
func Test_GetDetail_NotFoundAndBadID(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, uuid.New(), string(models.RoleAttorney))

		if resp := doJSON(app, "GET", "/api/cases/"+uuid.NewString(), nil); resp.StatusCode != 404 {
			t.Fatalf("want 404, got %d", resp.StatusCode)
		}
		if resp := doJSON(app, "GET", "/api/cases/not-a-uuid", nil); resp.StatusCode != 400 {
			t.Fatalf("want 400, got %d", resp.StatusCode)
		}
	})
}

// A valid change updates the case and writes one work log entry with the actor.
func Test_UpdateStage_WritesWorkLog(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		url := "/api/cases/" + seed.CaseID.String() + "/stage"
		resp := doJSON(app, "PUT", url, UpdateStageRequest{Stage: "Intake", Status: "Signed Up"})
		if resp.StatusCode != 200 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out StageChangeResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if !out.Changed || out.From.Status != "New Lead" || out.To.Status != "Signed Up" {
			t.Fatalf("unexpected change %#v", out)
		}

		// Same pairing again: no-op, no second entry
		resp = doJSON(app, "PUT", url, UpdateStageRequest{Stage: "Intake", Status: "Signed Up"})
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Changed {
			t.Fatalf("repeat change should be a no-op")
		}

		var entries []models.WorkLogEntry
		tx.Where("case_id = ?", seed.CaseID).Find(&entries)
		if len(entries) != 1 {
			t.Fatalf("want 1 work log entry, got %d", len(entries))
		}
		e := entries[0]
		if e.Action != models.ActionStageChanged || e.ActorName != "Pat Lee" || e.ActorID != seed.StaffID {
			t.Fatalf("bad entry %#v", e)
		}
		if e.OldStatus != "New Lead" || e.NewStatus != "Signed Up" {
			t.Fatalf("bad from/to %q -> %q", e.OldStatus, e.NewStatus)
		}
	})
}

// A status from another stage is rejected with a field error.
func Test_UpdateStage_RejectsMismatchedStatus(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		resp := doJSON(app, "PUT", "/api/cases/"+seed.CaseID.String()+"/stage", UpdateStageRequest{Stage: "Demand", Status: "Closed"})
		if resp.StatusCode != 400 {
			t.Fatalf("want 400, got %d", resp.StatusCode)
		}
		var out models.ValidationErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if len(out.Errors["status"]) == 0 {
			t.Fatalf("want status error, got %#v", out.Errors)
		}

		var cs models.Case
		tx.First(&cs, "id = ?", seed.CaseID)
		if cs.Status != "New Lead" {
			t.Fatalf("case should be unchanged, got %q", cs.Status)
		}
	})
}

/* ============================================================================
   Tests: document generation
   ============================================================================ */

// HIPAA for both clients with one render failure: 1 success, 1 error, and the
// case still moves to Processing / Treating.
func Test_Generate_PartialFailureStillTransitions(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		srv := pdfServer(t, "Ortiz")
		h, _ := newHandler(t, tx, srv.URL)
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		resp := doJSON(app, "POST", "/api/cases/"+seed.CaseID.String()+"/generate", GenerateRequest{
			DocumentType: documents.HIPAARequest,
			ClientIDs:    []string{seed.PassengerID.String(), seed.DriverID.String()},
		})
		if resp.StatusCode != 200 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out generation.RunResult
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Succeeded != 1 || out.Failed != 1 {
			t.Fatalf("want 1/1, got %d/%d", out.Succeeded, out.Failed)
		}
		// driver first regardless of selection order
		if out.Jobs[0].Name != "Ana Reyes" || out.Jobs[0].Status != generation.StatusSuccess {
			t.Fatalf("job 0 %#v", out.Jobs[0])
		}
		if !strings.Contains(out.Jobs[1].Error, "workflow crashed") {
			t.Fatalf("job 1 error %q", out.Jobs[1].Error)
		}
		if out.Transition == nil || !out.Transition.Applied {
			t.Fatalf("transition should be applied: %#v", out.Transition)
		}

		var cs models.Case
		tx.First(&cs, "id = ?", seed.CaseID)
		if cs.Stage != models.StageProcessing || cs.Status != "Treating" {
			t.Fatalf("case at %s / %s", cs.Stage, cs.Status)
		}

		var docs []models.CaseFile
		tx.Where("case_id = ? AND category = ?", seed.CaseID, models.CategoryGenerated).Find(&docs)
		if len(docs) != 1 {
			t.Fatalf("want 1 generated document, got %d", len(docs))
		}
		if !strings.Contains(docs[0].Note, "records@spine.test") || docs[0].UploadedBy != "Pat Lee" {
			t.Fatalf("document record %#v", docs[0])
		}

		var n int64
		tx.Model(&models.WorkLogEntry{}).Where("case_id = ?", seed.CaseID).Count(&n)
		if n != 2 {
			t.Fatalf("want generated + stage entries, got %d", n)
		}
	})
}

// Per-client documents need a selection; unknown types fail validation.
func Test_Generate_Validation(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, pdfServer(t).URL)
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))
		url := "/api/cases/" + seed.CaseID.String() + "/generate"

		resp := doJSON(app, "POST", url, GenerateRequest{DocumentType: documents.HIPAARequest})
		if resp.StatusCode != 400 {
			t.Fatalf("no client selected: want 400, got %d", resp.StatusCode)
		}
		resp = doJSON(app, "POST", url, GenerateRequest{DocumentType: "cotton_birthday_card"})
		if resp.StatusCode != 400 {
			t.Fatalf("unknown type: want 400, got %d", resp.StatusCode)
		}
		resp = doJSON(app, "POST", url, GenerateRequest{DocumentType: documents.HIPAARequest, ClientIDs: []string{uuid.NewString()}})
		if resp.StatusCode != 400 {
			t.Fatalf("foreign client: want 400, got %d", resp.StatusCode)
		}
		// no third-party claim on file, so the demand letter has no recipient
		resp = doJSON(app, "POST", url, GenerateRequest{DocumentType: documents.DemandLetter})
		if resp.StatusCode != 400 {
			t.Fatalf("missing recipient: want 400, got %d", resp.StatusCode)
		}
		resp = doJSON(app, "POST", "/api/cases/"+uuid.NewString()+"/generate", GenerateRequest{DocumentType: documents.CaseSummary})
		if resp.StatusCode != 404 {
			t.Fatalf("unknown case: want 404, got %d", resp.StatusCode)
		}

		var n int64
		tx.Model(&models.CaseFile{}).Where("case_id = ?", seed.CaseID).Count(&n)
		if n != 0 {
			t.Fatalf("rejected runs must not create documents, got %d", n)
		}
	})
}

// Preview returns one payload per job with the resolved recipient.
func Test_PreviewPayload(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		resp := doJSON(app, "POST", "/api/cases/"+seed.CaseID.String()+"/payload-preview", GenerateRequest{
			DocumentType: documents.RetainerAgreement,
			ClientIDs:    []string{seed.DriverID.String()},
		})
		if resp.StatusCode != 200 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out PreviewResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if len(out.Jobs) != 1 {
			t.Fatalf("want 1 job, got %d", len(out.Jobs))
		}
		if got := out.Jobs[0].Payload["recipient_email"]; got != "ana@x.com" {
			t.Fatalf("recipient %q", got)
		}

		var n int64
		tx.Model(&models.CaseFile{}).Where("case_id = ?", seed.CaseID).Count(&n)
		if n != 0 {
			t.Fatalf("preview must not store documents")
		}
	})
}

func Test_DocumentTypes(t *testing.T) {
	h := &Handler{}
	app := newTestApp(h, uuid.New(), string(models.RoleAdmin))
	resp := doJSON(app, "GET", "/api/document-types", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out []documents.Type
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if len(out) != len(documents.All()) {
		t.Fatalf("want %d types, got %d", len(documents.All()), len(out))
	}
}

/* ============================================================================
   Tests: uploads and signed URLs
   ============================================================================ */

func multipartFiles(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, data := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files[]"; filename="`+name+`"`)
		hdr.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	_ = w.WriteField("note", "from intake")
	_ = w.Close()
	return buf, w.FormDataContentType()
}

// Files are sniffed by content: a text file claiming to be a PDF is rejected
// while the real PDF is stored, recorded and signed.
func Test_UploadFile_SniffsAndSigns(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h, _ := newHandler(t, tx, "")
		app := newTestApp(h, seed.StaffID, string(models.RoleParalegal))

		body, ct := multipartFiles(t, map[string][]byte{
			"police-report.pdf": []byte("%PDF-1.4\n%report\n%%EOF"),
			"fake.pdf":          []byte("just some text"),
		})
		req := httptest.NewRequest("POST", "/api/cases/"+seed.CaseID.String()+"/files", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req, 10_000)
		if resp.StatusCode != 201 {
			t.Fatalf("status %d", resp.StatusCode)
		}
		var out struct {
			Results []map[string]any `json:"results"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if len(out.Results) != 2 {
			t.Fatalf("want 2 results, got %d", len(out.Results))
		}

		var docs []models.CaseFile
		tx.Where("case_id = ? AND category = ?", seed.CaseID, models.CategoryUpload).Find(&docs)
		if len(docs) != 1 || docs[0].Filename != "police-report.pdf" || docs[0].Note != "from intake" {
			t.Fatalf("want only the real PDF recorded, got %#v", docs)
		}

		resp = doJSON(app, "GET", "/api/files/"+docs[0].ID.String()+"/signed-url", nil)
		if resp.StatusCode != 200 {
			t.Fatalf("signed url status %d", resp.StatusCode)
		}
		var signed map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&signed)
		if u, _ := signed["url"].(string); !strings.HasPrefix(u, "/files/case/"+seed.CaseID.String()+"/") {
			t.Fatalf("signed url %v", signed["url"])
		}

		resp = doJSON(app, "GET", "/api/files/"+uuid.NewString()+"/signed-url", nil)
		if resp.StatusCode != 404 {
			t.Fatalf("unknown file: want 404, got %d", resp.StatusCode)
		}
	})
}
