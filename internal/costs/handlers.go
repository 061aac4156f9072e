package costs

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/protoplan/costs-api/internal/common"
	"github.com/protoplan/costs-api/internal/obs"
	"github.com/protoplan/costs-api/internal/protocol"
)

// maxRequestBody caps the accepted payload size at 2 MiB.
const maxRequestBody = 2 << 20

// Handler exposes the cost calculation endpoints.
type Handler struct {
	Engine   *Engine
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// CalculateRequest is the payload for POST /v1/protocols/costs.
type CalculateRequest struct {
	Rows []protocol.Row `json:"rows" validate:"required,min=1,max=500"`
	// IncludeBaseTax folds the flat base tax into the unit price instead of
	// amortising it as a per-order fee.
	IncludeBaseTax bool `json:"includeBaseTax"`
	// Sort orders the response rows by ascending priority.
	Sort bool `json:"sort"`
}

// CalculateResponse wraps the derived rows and protocol totals.
type CalculateResponse struct {
	Rows   []protocol.Derived `json:"rows"`
	Totals protocol.Totals    `json:"totals"`
}

// Costs handles POST /v1/protocols/costs.
func (h *Handler) Costs(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cost engine not configured", nil)
		return
	}

	req, err := h.decode(w, r)
	if err != nil {
		common.RenderError(w, err)
		return
	}

	batchID := uuid.NewString()
	logger := h.Logger.With().Str("batchId", batchID).Int("rows", len(req.Rows)).Logger()

	rows := req.Rows
	if req.Sort {
		rows = protocol.SortRows(rows)
	}

	eng := *h.Engine
	eng.IncludeBaseTaxInPrice = req.IncludeBaseTax
	eng.Logger = &logger

	start := time.Now()
	derived, totals, err := eng.Calculate(r.Context(), rows)
	obs.ObserveBatchDuration(obs.DurationMillis(time.Since(start)))
	if err != nil {
		obs.CountBatch("error")
		logger.Error().Err(err).Msg("cost calculation failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cost calculation failed", nil)
		return
	}
	obs.CountBatch("ok")

	skipped := 0
	for _, d := range derived {
		if d.Skipped != "" {
			skipped++
		}
	}
	logger.Info().
		Int("skipped", skipped).
		Float64("costPerMonth", totals.CostPerMonth).
		Float64("feesPerMonth", totals.FeesPerMonth).
		Msg("protocol costs calculated")

	common.JSON(w, http.StatusOK, map[string]any{
		"data": CalculateResponse{Rows: derived, Totals: totals},
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CalculateRequest, error) {
	var req CalculateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, common.NewAppError("INVALID_PAYLOAD", "request body is empty", http.StatusBadRequest, err)
		}
		return req, common.NewAppError("INVALID_PAYLOAD", "malformed JSON payload", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			return req, common.NewAppError("VALIDATION", "invalid request", http.StatusUnprocessableEntity, err)
		}
	}
	return req, nil
}
