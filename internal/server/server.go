package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/config"
	"github.com/iwvelando/tmr-formulator/internal/domain"
	"github.com/iwvelando/tmr-formulator/internal/feed"
	"github.com/iwvelando/tmr-formulator/internal/formulation"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/requirement"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/lp"
	"github.com/iwvelando/tmr-formulator/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	catalog       *feed.Catalog
	options       ration.Options
	metrics       *metrics
}

// Options configure the HTTP handler. Zero values select defaults.
type Options struct {
	MaxUploadSize int64
	Version       string
	// Catalog is the session feed catalog edited through /api/feeds. A nil
	// catalog starts from the built-in library.
	Catalog *feed.Catalog
	// Optimizer holds the defaults for every formulation request.
	Optimizer ration.Options
}

// NewHandler constructs the HTTP handler that serves the formulation API.
func NewHandler(logger *zap.Logger, opts Options) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = feed.NewCatalog(feed.DefaultLibrary()); err != nil {
			return nil, err
		}
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		catalog:       catalog,
		options:       opts.Optimizer,
		metrics:       newMetrics(trimmedVersion),
	}
	h.metrics.catalogFeeds.Set(float64(catalog.Len()))

	mux := http.NewServeMux()

	// Formulation from a JSON request, falling back to the session catalog
	mux.HandleFunc("/api/formulate", h.handleFormulate)

	// Formulation from an uploaded YAML configuration
	mux.HandleFunc("/api/formulate/config", h.handleFormulateConfig)

	// Session catalog editing
	mux.HandleFunc("/api/feeds", h.handleFeeds)
	mux.HandleFunc("/api/feeds/export", h.handleFeedsExport)
	mux.HandleFunc("/api/feeds/import", h.handleFeedsImport)
	mux.HandleFunc("/api/feeds/{name}", h.handleFeed)

	mux.HandleFunc("/api/version", h.handleVersion)
	mux.Handle("/metrics", h.metrics.handler())

	return mux, nil
}

type formulateOptions struct {
	ForageMinFraction *float64 `json:"forageMinFraction,omitempty"`
	SkipDiagnosis     *bool    `json:"skipDiagnosis,omitempty"`
}

type formulateRequest struct {
	Animal  requirement.Animal `json:"animal"`
	Feeds   []feed.Ingredient  `json:"feeds,omitempty"`
	Options formulateOptions   `json:"options"`
}

type formulateResponse struct {
	Report   *formulation.Report `json:"report"`
	CSV      string              `json:"csv"`
	Warnings []string            `json:"warnings,omitempty"`
	Duration string              `json:"duration"`
}

type errorResponse struct {
	Error     string   `json:"error"`
	Relaxable []string `json:"relaxable,omitempty"`
}

func (h *handler) handleFormulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFormulate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var req formulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	ingredients := req.Feeds
	var warnings []string
	if len(ingredients) == 0 {
		ingredients = h.catalog.Snapshot()
	} else {
		warnings = normalizeFeeds(ingredients)
	}

	opts := h.options
	if req.Options.ForageMinFraction != nil {
		fraction, err := ration.ParseForageFraction(*req.Options.ForageMinFraction)
		if err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		opts.ForageMinFraction = fraction
	}
	if req.Options.SkipDiagnosis != nil {
		opts.SkipDiagnosis = *req.Options.SkipDiagnosis
	}

	runner := formulation.NewRunner(h.logger, requirement.NewPlaceholder(), ration.New(h.logger, nil, opts))
	h.runFormulation(r.Context(), w, runner, formulation.Input{Animal: req.Animal, Ingredients: ingredients}, warnings, start, op, "json")
}

func (h *handler) handleFormulateConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFormulateConfig"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()
	ingredients, _, err := cfg.Ingredients()
	if err != nil {
		h.respondFormulationError(w, err, op)
		return
	}
	solver, opts, err := h.configSolver(cfg)
	if err != nil {
		h.respondFormulationError(w, err, op)
		return
	}
	runner := formulation.NewRunner(h.logger, cfg.Policy(), ration.New(h.logger, solver, opts))
	h.runFormulation(r.Context(), w, runner, formulation.Input{Animal: cfg.AnimalInput(), Ingredients: ingredients}, warnings, start, op, "config")
}

// configSolver returns the solver and optimizer options an uploaded
// configuration asks for. The server solve timeout applies when the upload
// sets none.
func (h *handler) configSolver(cfg *config.Configuration) (*lp.Simplex, ration.Options, error) {
	opts, err := cfg.OptimizerOptions()
	if err != nil {
		return nil, ration.Options{}, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = h.options.Timeout
	}
	return lp.NewSimplex(cfg.Solver.Tolerance), opts, nil
}

func (h *handler) runFormulation(ctx context.Context, w http.ResponseWriter, runner *formulation.Runner, in formulation.Input, warnings []string, start time.Time, op, source string) {
	report, err := runner.Run(ctx, in)
	elapsed := time.Since(start)
	h.metrics.observe(source, elapsed, err)
	if err != nil {
		h.respondFormulationError(w, err, op)
		return
	}

	var csv bytes.Buffer
	output.CsvFormat(&csv, report)

	h.logger.Info("ration formulated",
		zap.String("op", op),
		zap.Int("feeds", len(in.Ingredients)),
		zap.Float64("cost", report.Summary.TotalCost),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, formulateResponse{
		Report:   report,
		CSV:      csv.String(),
		Warnings: warnings,
		Duration: elapsed.String(),
	})
}

func (h *handler) handleFeeds(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFeeds"
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.catalog.Snapshot())
	case http.MethodPost:
		var ingredient feed.Ingredient
		if !h.decodeJSON(w, r, &ingredient, op) {
			return
		}
		ingredient.Normalize()
		if err := checkFeedNames(ingredient); err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		if _, exists := h.catalog.Get(ingredient.Name); exists {
			h.respondErrorWithOp(w, http.StatusConflict, fmt.Sprintf("feed %q already exists", ingredient.Name), op)
			return
		}
		if err := h.catalog.Add(ingredient); err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		h.catalogChanged(op, "added", ingredient.Name)
		h.writeJSON(w, http.StatusCreated, ingredient)
	case http.MethodPut:
		var ingredients []feed.Ingredient
		if !h.decodeJSON(w, r, &ingredients, op) {
			return
		}
		normalizeFeeds(ingredients)
		if err := checkFeedNames(ingredients...); err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		if err := h.catalog.Replace(ingredients); err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		h.catalogChanged(op, "replaced", "")
		h.writeJSON(w, http.StatusOK, h.catalog.Snapshot())
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFeed"
	name := r.PathValue("name")
	switch r.Method {
	case http.MethodGet:
		ingredient, ok := h.catalog.Get(name)
		if !ok {
			h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("feed %q not found", name), op)
			return
		}
		h.writeJSON(w, http.StatusOK, ingredient)
	case http.MethodPut:
		var ingredient feed.Ingredient
		if !h.decodeJSON(w, r, &ingredient, op) {
			return
		}
		if strings.TrimSpace(ingredient.Name) == "" {
			ingredient.Name = name
		}
		ingredient.Normalize()
		if !strings.EqualFold(ingredient.Name, name) {
			h.respondErrorWithOp(w, http.StatusBadRequest,
				fmt.Sprintf("feed name %q does not match path %q", ingredient.Name, name), op)
			return
		}
		if err := checkFeedNames(ingredient); err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		created, err := h.catalog.Upsert(ingredient)
		if err != nil {
			h.respondFormulationError(w, err, op)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		h.catalogChanged(op, "upserted", ingredient.Name)
		h.writeJSON(w, status, ingredient)
	case http.MethodDelete:
		if !h.catalog.Remove(name) {
			h.respondErrorWithOp(w, http.StatusNotFound, fmt.Sprintf("feed %q not found", name), op)
			return
		}
		h.catalogChanged(op, "removed", name)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleFeedsExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFeedsExport"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	payload := struct {
		Feeds []config.FeedConfig `yaml:"feeds"`
	}{Feeds: config.FromIngredients(h.catalog.Snapshot())}
	yamlBytes, err := yaml.Marshal(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode feeds: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(yamlBytes); err != nil {
		h.logger.Error("failed to write YAML response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleFeedsImport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFeedsImport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	configBytes, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if len(cfg.Feeds) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "uploaded configuration has no feeds", op)
		return
	}
	ingredients, _, err := cfg.Ingredients()
	if err != nil {
		h.respondFormulationError(w, err, op)
		return
	}
	if err := checkFeedNames(ingredients...); err != nil {
		h.respondFormulationError(w, err, op)
		return
	}
	if err := h.catalog.Replace(ingredients); err != nil {
		h.respondFormulationError(w, err, op)
		return
	}
	h.catalogChanged(op, "imported", "")
	h.writeJSON(w, http.StatusOK, h.catalog.Snapshot())
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// readUpload returns the multipart "file" field of r.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return nil, false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return nil, false
	}
	return buf.Bytes(), true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) catalogChanged(op, action, name string) {
	h.metrics.catalogFeeds.Set(float64(h.catalog.Len()))
	h.logger.Info("feed catalog "+action,
		zap.String("op", op),
		zap.String("feed", name),
		zap.Int("feeds", h.catalog.Len()),
	)
}

// reservedFeedNames are /api/feeds subpaths that shadow /api/feeds/{name}.
var reservedFeedNames = []string{"export", "import"}

// checkFeedNames rejects catalog entries that could not be addressed by
// name under /api/feeds.
func checkFeedNames(ingredients ...feed.Ingredient) error {
	for _, ingredient := range ingredients {
		for _, reserved := range reservedFeedNames {
			if strings.EqualFold(strings.TrimSpace(ingredient.Name), reserved) {
				return domain.InvalidInputf("feed name %q is reserved", ingredient.Name)
			}
		}
	}
	return nil
}

// normalizeFeeds normalizes every ingredient in place and returns a warning
// for each inferred category.
func normalizeFeeds(ingredients []feed.Ingredient) []string {
	var warnings []string
	for i := range ingredients {
		if ingredients[i].Normalize() {
			warnings = append(warnings, fmt.Sprintf("feed '%s' has no category, classified as %s from its name",
				ingredients[i].Name, ingredients[i].Category))
		}
	}
	return warnings
}

func (h *handler) respondFormulationError(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var infeasible *domain.InfeasibleError
	if errors.As(err, &infeasible) {
		resp.Error = constants.NoFeasibleRationMessage
		for _, class := range infeasible.Relaxable {
			resp.Relaxable = append(resp.Relaxable, string(class))
		}
		h.logger.Warn("no feasible ration",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Strings("relaxable", resp.Relaxable),
		)
		h.writeJSON(w, status, resp)
		return
	}

	h.logger.Error("formulation request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err),
	)
	h.writeJSON(w, status, resp)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
