package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/config"
	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const referenceRequest = `{"animal":{"bodyWeightKg":650,"milkYieldKg":45,"daysInMilk":75,"targetDMIKg":31}}`

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	handler, err := NewHandler(zap.NewNop(), opts)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func perform(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func performUpload(t *testing.T, handler http.Handler, path, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandleFormulateSuccess(t *testing.T) {
	handler := newTestHandler(t, Options{})

	rr := perform(t, handler, http.MethodPost, "/api/formulate", referenceRequest)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp formulateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report == nil || resp.Report.Summary == nil || resp.Report.Solution == nil {
		t.Fatalf("expected full report, got %+v", resp.Report)
	}
	if math.Abs(resp.Report.Summary.TotalCost-4.2068) > 1e-3 {
		t.Fatalf("expected reference cost of about 4.2068, got %v", resp.Report.Summary.TotalCost)
	}
	if math.Abs(resp.Report.Summary.TotalDMKg-31) > 1e-6 {
		t.Fatalf("expected 31 kg DM, got %v", resp.Report.Summary.TotalDMKg)
	}
	if len(resp.Report.Constraints) != 7 {
		t.Fatalf("expected 7 constraint statuses, got %d", len(resp.Report.Constraints))
	}
	if !strings.HasPrefix(resp.CSV, `"ingredient"`) {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
}

func TestHandleFormulateWithFeeds(t *testing.T) {
	handler := newTestHandler(t, Options{})

	body := `{
  "animal": {"bodyWeightKg": 600, "milkYieldKg": 30, "daysInMilk": 150, "targetDMIKg": 10},
  "feeds": [
    {"name": "grass_hay", "pricePerKgDM": 0.10, "nelMcalPerKg": 1.0, "crudeProteinPct": 18, "ndfPct": 30, "starchPct": 0, "fatPct": 0, "minKgDM": 0, "maxKgDM": null},
    {"name": "oat_hay", "category": "forage", "pricePerKgDM": 0.12, "nelMcalPerKg": 0.9, "crudeProteinPct": 18, "ndfPct": 32, "starchPct": 1, "fatPct": 0, "minKgDM": 0, "maxKgDM": null}
  ],
  "options": {"skipDiagnosis": false}
}`
	rr := perform(t, handler, http.MethodPost, "/api/formulate", body)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeError(t, rr)
	if resp.Error != "no feasible ration found" {
		t.Fatalf("expected no feasible ration message, got %q", resp.Error)
	}
	if len(resp.Relaxable) != 1 || resp.Relaxable[0] != string(domain.ConstraintEnergy) {
		t.Fatalf("expected energy to be the only relaxable class, got %v", resp.Relaxable)
	}
}

func TestHandleFormulateErrors(t *testing.T) {
	handler := newTestHandler(t, Options{})

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed JSON", http.MethodPost, "{", http.StatusBadRequest},
		{"missing animal", http.MethodPost, `{}`, http.StatusBadRequest},
		{"negative milk", http.MethodPost, `{"animal":{"bodyWeightKg":650,"milkYieldKg":-1,"daysInMilk":75,"targetDMIKg":31}}`, http.StatusBadRequest},
		{"forage fraction above one", http.MethodPost, `{"animal":{"bodyWeightKg":650,"milkYieldKg":45,"daysInMilk":75,"targetDMIKg":31},"options":{"forageMinFraction":1.5}}`, http.StatusBadRequest},
		{"negative forage fraction", http.MethodPost, `{"animal":{"bodyWeightKg":650,"milkYieldKg":45,"daysInMilk":75,"targetDMIKg":31},"options":{"forageMinFraction":-0.3}}`, http.StatusBadRequest},
		{"invalid feed", http.MethodPost, `{"animal":{"bodyWeightKg":650,"milkYieldKg":45,"daysInMilk":75,"targetDMIKg":31},"feeds":[{"name":"corn","category":"concentrate","pricePerKgDM":-1}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, handler, tt.method, "/api/formulate", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleFormulateConfigSuccess(t *testing.T) {
	handler := newTestHandler(t, Options{})

	data, err := os.ReadFile(filepath.Join("..", "..", "config.yaml.example"))
	if err != nil {
		t.Fatalf("failed to read example config: %v", err)
	}

	rr := performUpload(t, handler, "/api/formulate/config", string(data), "config.yaml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp formulateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if math.Abs(resp.Report.Summary.TotalCost-4.2068) > 1e-3 {
		t.Fatalf("expected reference cost of about 4.2068, got %v", resp.Report.Summary.TotalCost)
	}
}

func TestHandleFormulateConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		handler := newTestHandler(t, Options{})
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		if err := writer.Close(); err != nil {
			t.Fatalf("failed to close writer: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/formulate/config", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		if resp := decodeError(t, rr); resp.Error != "missing configuration file" {
			t.Fatalf("unexpected error %q", resp.Error)
		}
	})

	t.Run("upload too large", func(t *testing.T) {
		handler := newTestHandler(t, Options{MaxUploadSize: 64})
		rr := performUpload(t, handler, "/api/formulate/config", strings.Repeat("a", 128), "config.yaml")
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d", rr.Code)
		}
		if resp := decodeError(t, rr); !strings.Contains(resp.Error, "upload exceeds limit") {
			t.Fatalf("expected upload limit error message, got %q", resp.Error)
		}
	})

	t.Run("malformed YAML", func(t *testing.T) {
		handler := newTestHandler(t, Options{})
		rr := performUpload(t, handler, "/api/formulate/config", "animal: [unclosed", "config.yaml")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		handler := newTestHandler(t, Options{})
		rr := perform(t, handler, http.MethodGet, "/api/formulate/config", "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status 405, got %d", rr.Code)
		}
	})
}

func TestConfigSolver(t *testing.T) {
	h := &handler{logger: zap.NewNop(), options: ration.Options{Timeout: 3 * time.Second}}

	tolerance := 1e-8
	cfg, err := config.LoadConfigurationFromReader(strings.NewReader("solver:\n  tolerance: 1e-8\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	cfg.Solver.Timeout = 0

	simplex, opts, err := h.configSolver(cfg)
	if err != nil {
		t.Fatalf("configSolver() error = %v", err)
	}
	if simplex.Tolerance != tolerance {
		t.Errorf("Tolerance = %v, expected %v from the upload", simplex.Tolerance, tolerance)
	}
	if opts.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, expected the server default", opts.Timeout)
	}

	negative := -0.3
	cfg.Ration.ForageMinFraction = &negative
	if _, _, err := h.configSolver(cfg); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a negative forage fraction, got %v", err)
	}
}

func TestHandleFormulateConfigRejectsNegativeForageFraction(t *testing.T) {
	handler := newTestHandler(t, Options{})

	data, err := os.ReadFile(filepath.Join("..", "..", "config.yaml.example"))
	if err != nil {
		t.Fatalf("failed to read example config: %v", err)
	}
	upload := strings.Replace(string(data), "forageMinFraction: 0.20", "forageMinFraction: -0.3", 1)
	if upload == string(data) {
		t.Fatal("example config no longer sets forageMinFraction: 0.20")
	}

	rr := performUpload(t, handler, "/api/formulate/config", upload, "config.yaml")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestReservedFeedNames(t *testing.T) {
	handler := newTestHandler(t, Options{})
	exportFeed := `{"name":"export","category":"concentrate","pricePerKgDM":0.19,"nelMcalPerKg":1.95,"crudeProteinPct":12,"ndfPct":20,"starchPct":55,"fatPct":2,"minKgDM":0,"maxKgDM":5}`

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"add", http.MethodPost, "/api/feeds", exportFeed},
		{"add mixed case", http.MethodPost, "/api/feeds", strings.Replace(exportFeed, `"export"`, `"Import"`, 1)},
		{"upsert", http.MethodPut, "/api/feeds/Export", exportFeed},
		{"replace", http.MethodPut, "/api/feeds", "[" + exportFeed + "]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, handler, tt.method, tt.path, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}

	rr := perform(t, handler, http.MethodGet, "/api/feeds", "")
	var feeds []feed.Ingredient
	if err := json.Unmarshal(rr.Body.Bytes(), &feeds); err != nil {
		t.Fatalf("failed to decode feeds: %v", err)
	}
	if len(feeds) != len(feed.DefaultLibrary()) {
		t.Fatalf("catalog changed after rejected edits: %d feeds", len(feeds))
	}
}

func TestFeedCatalogEditing(t *testing.T) {
	handler := newTestHandler(t, Options{})

	rr := perform(t, handler, http.MethodGet, "/api/feeds", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var feeds []feed.Ingredient
	if err := json.Unmarshal(rr.Body.Bytes(), &feeds); err != nil {
		t.Fatalf("failed to decode feeds: %v", err)
	}
	if len(feeds) != len(feed.DefaultLibrary()) {
		t.Fatalf("expected default library, got %d feeds", len(feeds))
	}

	barley := `{"name":"barley","category":"concentrate","pricePerKgDM":0.19,"nelMcalPerKg":1.95,"crudeProteinPct":12,"ndfPct":20,"starchPct":55,"fatPct":2,"minKgDM":0,"maxKgDM":5}`
	if rr := perform(t, handler, http.MethodPost, "/api/feeds", barley); rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201 on add, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := perform(t, handler, http.MethodPost, "/api/feeds", barley); rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409 on duplicate, got %d", rr.Code)
	}

	rr = perform(t, handler, http.MethodGet, "/api/feeds/barley", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on get, got %d", rr.Code)
	}
	var got feed.Ingredient
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode feed: %v", err)
	}
	if limit, ok := got.MaxKgDM.Value(); !ok || limit != 5 {
		t.Fatalf("expected max 5 kg, got %v", got.MaxKgDM)
	}

	updated := strings.Replace(barley, `"maxKgDM":5`, `"maxKgDM":null`, 1)
	if rr := perform(t, handler, http.MethodPut, "/api/feeds/barley", updated); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on update, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := perform(t, handler, http.MethodPut, "/api/feeds/oats", strings.Replace(barley, `"barley"`, `""`, 1)); rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201 on upsert of new feed, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := perform(t, handler, http.MethodPut, "/api/feeds/oats", barley); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 on name mismatch, got %d", rr.Code)
	}

	if rr := perform(t, handler, http.MethodDelete, "/api/feeds/oats", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 on delete, got %d", rr.Code)
	}
	if rr := perform(t, handler, http.MethodDelete, "/api/feeds/oats", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second delete, got %d", rr.Code)
	}
	if rr := perform(t, handler, http.MethodGet, "/api/feeds/oats", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on missing feed, got %d", rr.Code)
	}
	if rr := perform(t, handler, http.MethodPut, "/api/feeds", "[]"); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 on empty catalog, got %d", rr.Code)
	}
	if rr := perform(t, handler, http.MethodPatch, "/api/feeds", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestCatalogEditsAffectLaterFormulations(t *testing.T) {
	handler := newTestHandler(t, Options{})

	var concentrates []string
	for _, ingredient := range feed.DefaultLibrary() {
		if ingredient.IsForage() {
			continue
		}
		ingredient.MaxKgDM = feed.Unbounded()
		data, err := json.Marshal(ingredient)
		if err != nil {
			t.Fatalf("failed to marshal feed: %v", err)
		}
		concentrates = append(concentrates, string(data))
	}
	body := "[" + strings.Join(concentrates, ",") + "]"
	if rr := perform(t, handler, http.MethodPut, "/api/feeds", body); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on replace, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := perform(t, handler, http.MethodPost, "/api/formulate", referenceRequest)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeError(t, rr)
	if len(resp.Relaxable) != 1 || resp.Relaxable[0] != string(domain.ConstraintForage) {
		t.Fatalf("expected forage to be the only relaxable class, got %v", resp.Relaxable)
	}
}

func TestFeedsExportAndImport(t *testing.T) {
	handler := newTestHandler(t, Options{})

	rr := perform(t, handler, http.MethodGet, "/api/feeds/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	exported := rr.Body.String()
	for _, want := range []string{"feeds:", "name: corn_silage", "maxKgDM: 20", "category: supplement"} {
		if !strings.Contains(exported, want) {
			t.Fatalf("export missing %q:\n%s", want, exported)
		}
	}

	library := `feeds:
  - name: corn_silage
    category: forage
    price: 0.08
    nel: 1.45
    cp: 8.5
    ndf: 42
    starch: 30
    fat: 3.5
  - name: sbm48
    price: 0.35
    nel: 1.8
    cp: 48
    ndf: 7
    starch: 1
    fat: 1
`
	rr = performUpload(t, handler, "/api/feeds/import", library, "feeds.yaml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on import, got %d: %s", rr.Code, rr.Body.String())
	}
	var feeds []feed.Ingredient
	if err := json.Unmarshal(rr.Body.Bytes(), &feeds); err != nil {
		t.Fatalf("failed to decode feeds: %v", err)
	}
	if len(feeds) != 2 || feeds[1].Category != feed.CategoryConcentrate {
		t.Fatalf("unexpected imported catalog: %+v", feeds)
	}

	rr = performUpload(t, handler, "/api/feeds/import", "animal:\n  targetDMIKg: 20\n", "feeds.yaml")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for config without feeds, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	handler := newTestHandler(t, Options{Version: " 1.2.3 "})

	rr := perform(t, handler, http.MethodGet, "/api/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode version response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}

	if rr := perform(t, handler, http.MethodPost, "/api/version", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t, Options{})

	if rr := perform(t, handler, http.MethodPost, "/api/formulate", referenceRequest); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr := perform(t, handler, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`tmr_formulations_total{outcome="optimal",source="json"} 1`,
		"tmr_formulation_duration_seconds_count",
		"tmr_catalog_feeds 8",
		`tmr_build_info{version="dev"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestMetricsObserve(t *testing.T) {
	m := newMetrics("test")
	m.observe("json", time.Millisecond, nil)
	m.observe("json", time.Millisecond, &domain.InfeasibleError{})
	m.observe("config", time.Millisecond, fmt.Errorf("wrapped: %w", domain.ErrSolverTimeout))

	if got := testutil.ToFloat64(m.formulations.WithLabelValues("json", outcomeOptimal)); got != 1 {
		t.Fatalf("expected 1 optimal formulation, got %v", got)
	}
	if got := testutil.ToFloat64(m.formulations.WithLabelValues("json", outcomeInfeasible)); got != 1 {
		t.Fatalf("expected 1 infeasible formulation, got %v", got)
	}
	if got := testutil.ToFloat64(m.formulations.WithLabelValues("config", outcomeTimeout)); got != 1 {
		t.Fatalf("expected 1 timed out formulation, got %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.InvalidInputf("bad"), http.StatusBadRequest},
		{&domain.InfeasibleError{}, http.StatusUnprocessableEntity},
		{fmt.Errorf("solve: %w", domain.ErrSolverTimeout), http.StatusGatewayTimeout},
		{domain.ErrUnbounded, http.StatusInternalServerError},
		{domain.ErrDivisionUndefined, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
