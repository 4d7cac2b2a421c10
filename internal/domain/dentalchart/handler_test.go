package dentalchart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *Service, *mockRepo) {
	svc, repo := newTestService()
	return NewHandler(svc), echo.New(), svc, repo
}

func chartContext(e *echo.Echo, method, target, body string, patient string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient")
	c.SetParamValues(patient)
	return c, rec
}

func TestHandler_OpenSession(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New().String()

	c, rec := chartContext(e, http.MethodPost, "/", "", patient)
	if err := h.OpenSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body struct {
		UI uiResponse `json:"ui"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UI.Mode != ModeSurface || body.UI.SelectedTooth != nil {
		t.Errorf("unexpected ui %+v", body.UI)
	}
	if svc.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", svc.SessionCount())
	}
}

func TestHandler_InvalidPatient(t *testing.T) {
	h, e, _, _ := newTestHandler()
	c, _ := chartContext(e, http.MethodGet, "/", "", "not-a-uuid")
	err := h.GetChart(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_RegionWithoutSession(t *testing.T) {
	h, e, _, _ := newTestHandler()
	c, _ := chartContext(e, http.MethodPost, "/", `{"key":"tooth:1"}`, uuid.New().String())
	err := h.Region(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_RegionClickMutates(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New()
	if _, err := svc.OpenSession(context.Background(), patient); err != nil {
		t.Fatalf("open: %v", err)
	}

	c, rec := chartContext(e, http.MethodPost, "/", `{"key":"surface:3:occlusal"}`, patient.String())
	if err := h.Region(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp inputResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Mutated || resp.Entry == nil || resp.Entry.ToothID != "16" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.UI.SelectedTooth == nil || *resp.UI.SelectedTooth != "16" {
		t.Errorf("expected tooth 16 selected, got %v", resp.UI.SelectedTooth)
	}
	if resp.UI.SelectedSurface == nil || *resp.UI.SelectedSurface != "occlusal" {
		t.Errorf("expected occlusal selected, got %v", resp.UI.SelectedSurface)
	}
}

func TestHandler_RejectedClickIsNoOp(t *testing.T) {
	h, e, svc, repo := newTestHandler()
	patient := uuid.New()
	stored := NewChartState()
	stored.Teeth[0].WholeCondition = Missing
	repo.charts[patient] = stored
	if _, err := svc.OpenSession(context.Background(), patient); err != nil {
		t.Fatalf("open: %v", err)
	}

	c, rec := chartContext(e, http.MethodPost, "/", `{"key":"surface:1:mesial"}`, patient.String())
	if err := h.Region(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp inputResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mutated || resp.Rejected == "" {
		t.Errorf("expected rejected no-op, got %+v", resp)
	}
}

func TestHandler_BadRegionKey(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New()
	if _, err := svc.OpenSession(context.Background(), patient); err != nil {
		t.Fatalf("open: %v", err)
	}
	c, _ := chartContext(e, http.MethodPost, "/", `{"key":"elbow:1"}`, patient.String())
	err := h.Region(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ModeAndCondition(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New()
	if _, err := svc.OpenSession(context.Background(), patient); err != nil {
		t.Fatalf("open: %v", err)
	}

	c, rec := chartContext(e, http.MethodPut, "/", `{"mode":"whole"}`, patient.String())
	if err := h.SetMode(c); err != nil {
		t.Fatalf("mode: %v", err)
	}
	var ui uiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &ui)
	if ui.Mode != ModeWhole || ui.ActiveCondition != string(Crown) {
		t.Errorf("unexpected ui %+v", ui)
	}

	c, _ = chartContext(e, http.MethodPut, "/", `{"condition":"caries"}`, patient.String())
	err := h.SetCondition(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for surface condition in whole mode, got %v", err)
	}

	c, _ = chartContext(e, http.MethodPut, "/", `{"mode":"diagonal"}`, patient.String())
	if err := h.SetMode(c); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestHandler_KeyAndNote(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New()
	ctx := context.Background()
	if _, err := svc.OpenSession(ctx, patient); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.HandleRegion(ctx, patient, "tooth:9"); err != nil {
		t.Fatalf("select: %v", err)
	}

	c, rec := chartContext(e, http.MethodPost, "/", `{"key":"5"}`, patient.String())
	if err := h.Key(c); err != nil {
		t.Fatalf("key: %v", err)
	}
	var ui uiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &ui)
	if ui.SelectedSurface == nil || *ui.SelectedSurface != "occlusal" {
		t.Errorf("expected occlusal, got %v", ui.SelectedSurface)
	}

	c, rec = chartContext(e, http.MethodPut, "/", `{"note":"watch distal margin"}`, patient.String())
	if err := h.CommitNote(c); err != nil {
		t.Fatalf("note: %v", err)
	}
	var resp inputResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Mutated || resp.Entry.ToothID != "21" || resp.Entry.Description != "note updated" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_ReplaceAndGetChart(t *testing.T) {
	h, e, _, repo := newTestHandler()
	patient := uuid.New()

	c, rec := chartContext(e, http.MethodPut, "/", `{"teeth":{"30":{"whole_condition":"implant","mobility":1}}}`, patient.String())
	if err := h.ReplaceChart(c); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := repo.tooth(patient, 30); got.WholeCondition != Implant || got.Mobility != 1 {
		t.Errorf("unexpected stored tooth %+v", got)
	}

	c, rec = chartContext(e, http.MethodGet, "/", "", patient.String())
	if err := h.GetChart(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	var state ChartState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Teeth[29].WholeCondition != Implant {
		t.Errorf("expected implant on tooth 30, got %q", state.Teeth[29].WholeCondition)
	}

	c, _ = chartContext(e, http.MethodPut, "/", `{"teeth":{"33":{}}}`, patient.String())
	if err := h.ReplaceChart(c); err == nil {
		t.Fatal("expected error for tooth 33")
	}
}

func TestHandler_History(t *testing.T) {
	h, e, svc, _ := newTestHandler()
	patient := uuid.New()
	ctx := context.Background()
	if _, err := svc.OpenSession(ctx, patient); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, key := range []string{"surface:3:occlusal", "surface:3:mesial", "surface:4:distal"} {
		if _, err := svc.HandleRegion(ctx, patient, key); err != nil {
			t.Fatalf("click %s: %v", key, err)
		}
	}

	c, rec := chartContext(e, http.MethodGet, "/?limit=2", "", patient.String())
	if err := h.ListHistory(c); err != nil {
		t.Fatalf("history: %v", err)
	}
	var page struct {
		Data    []HistoryEntry `json:"data"`
		Total   int            `json:"total"`
		HasMore bool           `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 2 || !page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Data[0].ToothID != "15" {
		t.Errorf("expected newest entry first, got %s", page.Data[0].ToothID)
	}
}

func TestHandler_Views(t *testing.T) {
	h, e, _, _ := newTestHandler()
	patient := uuid.New().String()

	c, rec := chartContext(e, http.MethodGet, "/", "", patient)
	if err := h.GetSVG(c); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/svg+xml" {
		t.Errorf("expected svg content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("expected svg document")
	}

	c, rec = chartContext(e, http.MethodGet, "/?scale=1", "", patient)
	if err := h.GetPNG(c); err != nil {
		t.Fatalf("png: %v", err)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("expected png signature")
	}

	c, _ = chartContext(e, http.MethodGet, "/?scale=9", "", patient)
	if err := h.GetPNG(c); err == nil {
		t.Error("expected error for out of range scale")
	}
}

func TestHandler_CatalogAndNumbering(t *testing.T) {
	h, e, _, _ := newTestHandler()

	c, rec := chartContext(e, http.MethodGet, "/", "", "")
	if err := h.GetCatalog(c); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var cat struct {
		Entries []CatalogEntry `json:"entries"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &cat)
	if len(cat.Entries) != len(Catalog) {
		t.Errorf("expected %d entries, got %d", len(Catalog), len(cat.Entries))
	}

	c, rec = chartContext(e, http.MethodGet, "/", "", "")
	if err := h.GetNumbering(c); err != nil {
		t.Fatalf("numbering: %v", err)
	}
	var nums []numberingEntry
	_ = json.Unmarshal(rec.Body.Bytes(), &nums)
	if len(nums) != ToothCount {
		t.Fatalf("expected %d teeth, got %d", ToothCount, len(nums))
	}
	if nums[0].Display != "18" || nums[0].Type != Molar || nums[31].Display != "48" {
		t.Errorf("unexpected numbering %+v ... %+v", nums[0], nums[31])
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e, _, _ := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"POST /api/v1/charts/:patient/session":  false,
		"GET /api/v1/charts/:patient/view.svg":  false,
		"POST /api/v1/charts/:patient/pointer":  false,
		"GET /api/v1/dental/catalog":            false,
		"GET /api/v1/charts/:patient/history":   false,
		"PUT /api/v1/charts/:patient/condition": false,
	}
	for _, r := range e.Routes() {
		k := r.Method + " " + r.Path
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("route %s not registered", k)
		}
	}
}
