package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/contractiq/contract-ocr-service/internal/ai"
	"github.com/contractiq/contract-ocr-service/internal/auth"
	"github.com/contractiq/contract-ocr-service/internal/db"
	"github.com/contractiq/contract-ocr-service/internal/extract"
	"github.com/contractiq/contract-ocr-service/internal/models"
	"github.com/contractiq/contract-ocr-service/internal/ocr"
	"github.com/contractiq/contract-ocr-service/internal/pdf"
	"github.com/contractiq/contract-ocr-service/internal/services"
	"github.com/contractiq/contract-ocr-service/internal/storage"
)

const (
	// MaxUploadSize limits uploaded contract documents to 20MB
	MaxUploadSize = 20 * 1024 * 1024

	// Version of the service
	Version = "1.0.0"
)

var startTime = time.Now()

// Handler handles HTTP requests for contract processing
type Handler struct {
	config     *models.Config
	rasterizer *pdf.Rasterizer
	engine     *ocr.TesseractOCR
	assembler  *extract.Assembler
	validator  *services.ContractValidator
	provider   ai.Provider
}

// NewHandler creates a new API handler with all processing dependencies
func NewHandler(config *models.Config) *Handler {
	return &Handler{
		config:     config,
		rasterizer: pdf.NewRasterizer(config.PDF.DPI),
		engine:     ocr.NewTesseractOCR(config.OCR.Language, config.OCR.PageSegMode),
		assembler:  extract.NewAssembler(),
		validator:  services.NewContractValidator(),
		provider:   ai.NewProvider(config.AI),
	}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	router.HandleFunc("/api/extract-contract", h.ExtractContract).Methods("POST")
	router.HandleFunc("/api/contracts", h.GetContracts).Methods("GET")
	router.HandleFunc("/api/contract/{id}", h.GetContract).Methods("GET")
	router.HandleFunc("/api/contract/{id}", h.UpdateContract).Methods("PUT")
	router.HandleFunc("/api/contract/{id}", h.DeleteContract).Methods("DELETE")
	router.HandleFunc("/api/contract/{id}/reprocess", h.ReprocessContract).Methods("POST")
	router.HandleFunc("/api/contract/{id}/document", h.GetContractDocument).Methods("GET")
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")
}

// ServiceStatus describes one dependency in the health response
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MemoryStats holds process memory figures for the health response
type MemoryStats struct {
	AllocMB      float64 `json:"allocMb"`
	TotalAllocMB float64 `json:"totalAllocMb"`
	SysMB        float64 `json:"sysMb"`
	NumGC        uint32  `json:"numGc"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Memory      MemoryStats   `json:"memory"`
	Tesseract   ServiceStatus `json:"tesseract"`
	Poppler     ServiceStatus `json:"poppler"`
	ImageMagick ServiceStatus `json:"imagemagick"`
	Database    ServiceStatus `json:"database"`
	Storage     ServiceStatus `json:"storage"`
	AIProvider  ServiceStatus `json:"aiProvider"`
}

// HealthCheck reports service status and dependency availability
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := HealthResponse{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Memory: MemoryStats{
			AllocMB:      float64(mem.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(mem.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(mem.Sys) / 1024 / 1024,
			NumGC:        mem.NumGC,
		},
		Tesseract:   h.checkTesseract(ctx),
		Poppler:     h.checkPoppler(ctx),
		ImageMagick: checkImageMagick(ctx),
		Database:    checkDatabase(),
		Storage:     checkStorage(),
		AIProvider:  h.checkAIProvider(),
	}

	// without OCR tooling the service cannot do its one job
	if !resp.Tesseract.Available || !resp.Poppler.Available {
		resp.Status = "degraded"
	}

	sendJSON(w, http.StatusOK, resp)
}

func (h *Handler) checkTesseract(ctx context.Context) ServiceStatus {
	if !h.engine.Available() {
		return ServiceStatus{Available: false, Error: "tesseract binary not found"}
	}
	version, err := h.engine.Version(ctx)
	if err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: version}
}

func (h *Handler) checkPoppler(ctx context.Context) ServiceStatus {
	if !h.rasterizer.Available() {
		return ServiceStatus{Available: false, Error: "pdftoppm binary not found"}
	}
	// pdftoppm prints its version banner on stderr
	out, err := exec.CommandContext(ctx, "pdftoppm", "-v").CombinedOutput()
	if err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	return ServiceStatus{Available: true, Version: line}
}

func checkImageMagick(ctx context.Context) ServiceStatus {
	for _, binary := range []string{"magick", "convert"} {
		out, err := exec.CommandContext(ctx, binary, "-version").CombinedOutput()
		if err == nil {
			line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
			return ServiceStatus{Available: true, Version: line}
		}
	}
	return ServiceStatus{Available: false, Error: "imagemagick not found, preprocessing disabled"}
}

func checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{Available: false, Error: "not configured, running in extract-only mode"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.Pool.Ping(ctx); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true}
}

func checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{Available: false, Error: "not configured, document archive disabled"}
	}
	return ServiceStatus{Available: true}
}

func (h *Handler) checkAIProvider() ServiceStatus {
	if h.provider == nil {
		return ServiceStatus{Available: false, Error: "no fallback provider configured"}
	}
	return ServiceStatus{Available: true, Version: h.provider.Name()}
}

// processResult bundles everything one pipeline run produces
type processResult struct {
	Record     *models.ContractRecord
	Validation *services.ValidationResult
	RawText    string
	OCRSecs    float64
	ExtractSec float64
	AIUsed     bool
}

// processContract runs the full pipeline over raw PDF bytes: rasterize,
// OCR every page, assemble the record, validate, and optionally merge an
// AI re-extraction when confidence falls below the configured threshold.
func (h *Handler) processContract(ctx context.Context, pdfBytes []byte) (*processResult, error) {
	ocrStart := time.Now()
	pages, err := h.rasterizer.Pages(ctx, pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("rasterizing document: %w", err)
	}
	rawText, err := h.engine.ExtractPages(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("running ocr: %w", err)
	}
	ocrSecs := time.Since(ocrStart).Seconds()

	extractStart := time.Now()
	record, err := h.assembler.FromText(rawText)
	if err != nil {
		return nil, err
	}
	extractSec := time.Since(extractStart).Seconds()

	validation := h.validator.Validate(record)

	aiUsed := false
	if h.config.Extraction.AIFallback && h.provider != nil &&
		validation.Confidence < h.config.Extraction.ConfidenceThreshold {
		aiRecord, aiErr := ai.NewExtractor(h.provider).Extract(ctx, extract.Normalize(rawText))
		if aiErr != nil {
			log.Warn().Err(aiErr).Str("provider", h.provider.Name()).
				Msg("ai fallback failed, keeping rule-based result")
		} else {
			record.FillFrom(aiRecord)
			validation = h.validator.Validate(record)
			aiUsed = true
		}
	}

	return &processResult{
		Record:     record,
		Validation: validation,
		RawText:    rawText,
		OCRSecs:    ocrSecs,
		ExtractSec: extractSec,
		AIUsed:     aiUsed,
	}, nil
}

// ExtractContract handles POST /api/extract-contract. It accepts one PDF
// in a multipart field named "file", runs the extraction pipeline, and
// always answers with the fixed record schema. Pipeline failures come
// back as success:false in a 200 response; only malformed requests 4xx.
func (h *Handler) ExtractContract(w http.ResponseWriter, r *http.Request) {
	totalStart := time.Now()

	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		sendError(w, http.StatusBadRequest, "could not parse multipart form, is the file under 20MB?")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("document")
		if err != nil {
			sendError(w, http.StatusBadRequest, "no file provided in 'file' field")
			return
		}
	}
	defer file.Close()

	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		sendError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	if !isPDF(header.Filename, pdfBytes) {
		sendError(w, http.StatusBadRequest, "only PDF documents are accepted")
		return
	}

	log.Info().
		Str("user", claims.Email).
		Str("filename", header.Filename).
		Int("size", len(pdfBytes)).
		Msg("processing contract upload")

	// archive the original first so a failed extraction can be retried
	documentKey := ""
	contractID := uuid.New()
	if storage.Client != nil {
		objectName := fmt.Sprintf("%s_%s.pdf", time.Now().Format("20060102T150405"), contractID.String()[:8])
		key, upErr := storage.UploadContractPDF(r.Context(), claims.UserID, objectName,
			bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
		if upErr != nil {
			log.Warn().Err(upErr).Msg("document archive failed, continuing without it")
		} else {
			documentKey = key
		}
	}

	result, err := h.processContract(r.Context(), pdfBytes)
	if err != nil {
		msg := "contract processing failed"
		if errors.Is(err, extract.ErrNoExtractableText) {
			msg = "could not extract text from document"
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("extraction pipeline failed")
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"success":       false,
			"message":       msg,
			"extraction":    nil,
			"totalDuration": time.Since(totalStart).Seconds(),
		})
		return
	}

	savedToDB := false
	if db.Pool != nil {
		userID, parseErr := uuid.Parse(claims.UserID)
		if parseErr != nil {
			log.Warn().Err(parseErr).Msg("invalid user id in token, skipping save")
		} else {
			contract := &db.Contract{
				ID:          contractID,
				UserID:      userID,
				Record:      result.Record,
				RawText:     result.RawText,
				Confidence:  result.Validation.Confidence,
				DocumentKey: documentKey,
			}
			if saveErr := db.SaveContract(r.Context(), contract); saveErr != nil {
				log.Warn().Err(saveErr).Msg("saving contract failed, returning extraction anyway")
			} else {
				savedToDB = true
			}
		}
	}

	response := map[string]interface{}{
		"success":         true,
		"message":         "contract processed",
		"extraction":      result.Record,
		"validation":      result.Validation,
		"aiFallbackUsed":  result.AIUsed,
		"saved_to_db":     savedToDB,
		"ocrDuration":     result.OCRSecs,
		"extractDuration": result.ExtractSec,
		"totalDuration":   time.Since(totalStart).Seconds(),
	}
	if savedToDB {
		response["id"] = contractID.String()
		if documentKey != "" {
			response["documentUrl"] = fmt.Sprintf("/api/contract/%s/document", contractID)
		}
	}

	log.Info().
		Str("filename", header.Filename).
		Float64("confidence", result.Validation.Confidence).
		Bool("aiFallback", result.AIUsed).
		Bool("saved", savedToDB).
		Msg("contract processed")

	sendJSON(w, http.StatusOK, response)
}

// isPDF accepts a file when either the name or the magic bytes say PDF.
// Scans arrive from many upload clients with unreliable content types.
func isPDF(filename string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding response failed")
	}
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
