package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/contractiq/contract-ocr-service/internal/auth"
	"github.com/contractiq/contract-ocr-service/internal/db"
	"github.com/contractiq/contract-ocr-service/internal/extract"
	"github.com/contractiq/contract-ocr-service/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// requestIDs resolves the authenticated user and the {id} path variable.
// A nil error means both are valid and the database is reachable.
func requestIDs(w http.ResponseWriter, r *http.Request) (contractID, userID uuid.UUID, err error) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, uuid.Nil, err
	}
	userID, err = uuid.Parse(claims.UserID)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "invalid user id in token")
		return uuid.Nil, uuid.Nil, err
	}
	if db.Pool == nil {
		sendError(w, http.StatusServiceUnavailable, "database not available")
		return uuid.Nil, uuid.Nil, errors.New("database not available")
	}
	contractID, err = uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid contract id")
		return uuid.Nil, uuid.Nil, err
	}
	return contractID, userID, nil
}

// GetContracts handles GET /api/contracts with ?page= and ?pageSize=
func (h *Handler) GetContracts(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "invalid user id in token")
		return
	}
	if db.Pool == nil {
		sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	contracts, total, err := db.GetContractsPaginated(r.Context(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error().Err(err).Msg("listing contracts failed")
		sendError(w, http.StatusInternalServerError, "could not list contracts")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"contracts": contracts,
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
	})
}

// GetContract handles GET /api/contract/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	contractID, userID, err := requestIDs(w, r)
	if err != nil {
		return
	}

	contract, err := db.GetContractByID(r.Context(), contractID, userID)
	if errors.Is(err, db.ErrContractNotFound) {
		sendError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("fetching contract failed")
		sendError(w, http.StatusInternalServerError, "could not fetch contract")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contract": contract,
	})
}

// UpdateContract handles PUT /api/contract/{id}. Only a fixed set of
// record fields can be corrected manually; anything else is rejected.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	contractID, userID, err := requestIDs(w, r)
	if err != nil {
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		sendError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	err = db.UpdateContract(r.Context(), contractID, userID, updates)
	if errors.Is(err, db.ErrContractNotFound) {
		sendError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("updating contract failed")
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "contract updated",
	})
}

// DeleteContract handles DELETE /api/contract/{id}. The archived PDF is
// removed too; a storage failure there is logged but not fatal.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	contractID, userID, err := requestIDs(w, r)
	if err != nil {
		return
	}

	contract, err := db.GetContractByID(r.Context(), contractID, userID)
	if errors.Is(err, db.ErrContractNotFound) {
		sendError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("fetching contract failed")
		sendError(w, http.StatusInternalServerError, "could not delete contract")
		return
	}

	if err := db.DeleteContract(r.Context(), contractID, userID); err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("deleting contract failed")
		sendError(w, http.StatusInternalServerError, "could not delete contract")
		return
	}

	if contract.DocumentKey != "" && storage.Client != nil {
		if err := storage.DeleteObject(r.Context(), contract.DocumentKey); err != nil {
			log.Warn().Err(err).Str("key", contract.DocumentKey).Msg("deleting archived document failed")
		}
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "contract deleted",
	})
}

// ReprocessContract handles POST /api/contract/{id}/reprocess. It re-runs
// the full pipeline over the archived PDF, useful after rule improvements.
func (h *Handler) ReprocessContract(w http.ResponseWriter, r *http.Request) {
	totalStart := time.Now()

	contractID, userID, err := requestIDs(w, r)
	if err != nil {
		return
	}

	contract, err := db.GetContractByID(r.Context(), contractID, userID)
	if errors.Is(err, db.ErrContractNotFound) {
		sendError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("fetching contract failed")
		sendError(w, http.StatusInternalServerError, "could not fetch contract")
		return
	}
	if contract.DocumentKey == "" {
		sendError(w, http.StatusConflict, "no archived document for this contract")
		return
	}
	if storage.Client == nil {
		sendError(w, http.StatusServiceUnavailable, "document storage not available")
		return
	}

	obj, err := storage.GetObject(r.Context(), contract.DocumentKey)
	if err != nil {
		log.Error().Err(err).Str("key", contract.DocumentKey).Msg("fetching archived document failed")
		sendError(w, http.StatusInternalServerError, "could not fetch archived document")
		return
	}
	defer obj.Close()

	pdfBytes, err := io.ReadAll(obj)
	if err != nil {
		log.Error().Err(err).Str("key", contract.DocumentKey).Msg("reading archived document failed")
		sendError(w, http.StatusInternalServerError, "could not read archived document")
		return
	}

	result, err := h.processContract(r.Context(), pdfBytes)
	if err != nil {
		msg := "contract processing failed"
		if errors.Is(err, extract.ErrNoExtractableText) {
			msg = "could not extract text from document"
		}
		log.Error().Err(err).Str("id", contractID.String()).Msg("reprocess pipeline failed")
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"success":       false,
			"message":       msg,
			"extraction":    nil,
			"totalDuration": time.Since(totalStart).Seconds(),
		})
		return
	}

	if err := db.ReplaceContractRecord(r.Context(), contractID, userID,
		result.Record, result.RawText, result.Validation.Confidence); err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("storing reprocessed record failed")
		sendError(w, http.StatusInternalServerError, "could not store reprocessed record")
		return
	}

	log.Info().
		Str("id", contractID.String()).
		Float64("confidence", result.Validation.Confidence).
		Bool("aiFallback", result.AIUsed).
		Msg("contract reprocessed")

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "contract reprocessed",
		"extraction":      result.Record,
		"validation":      result.Validation,
		"aiFallbackUsed":  result.AIUsed,
		"ocrDuration":     result.OCRSecs,
		"extractDuration": result.ExtractSec,
		"totalDuration":   time.Since(totalStart).Seconds(),
	})
}

// GetContractDocument handles GET /api/contract/{id}/document, streaming
// the archived PDF back to the client.
func (h *Handler) GetContractDocument(w http.ResponseWriter, r *http.Request) {
	contractID, userID, err := requestIDs(w, r)
	if err != nil {
		return
	}

	contract, err := db.GetContractByID(r.Context(), contractID, userID)
	if errors.Is(err, db.ErrContractNotFound) {
		sendError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", contractID.String()).Msg("fetching contract failed")
		sendError(w, http.StatusInternalServerError, "could not fetch contract")
		return
	}
	if contract.DocumentKey == "" {
		sendError(w, http.StatusNotFound, "no archived document for this contract")
		return
	}
	if storage.Client == nil {
		sendError(w, http.StatusServiceUnavailable, "document storage not available")
		return
	}

	obj, err := storage.GetObject(r.Context(), contract.DocumentKey)
	if err != nil {
		log.Error().Err(err).Str("key", contract.DocumentKey).Msg("fetching archived document failed")
		sendError(w, http.StatusInternalServerError, "could not fetch archived document")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="contract.pdf"`)
	if _, err := io.Copy(w, obj); err != nil {
		log.Warn().Err(err).Str("id", contractID.String()).Msg("streaming document interrupted")
	}
}

// GetStats handles GET /api/stats with per-month processing aggregates
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "invalid user id in token")
		return
	}
	if db.Pool == nil {
		sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	stats, err := db.GetMonthlyStats(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("querying stats failed")
		sendError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
