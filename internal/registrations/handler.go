// Package registrations handles course registrations that skip payment.
package registrations

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/internal/validation"
	"github.com/vestige-studio/payments-bridge/pkg/metrics"
	"github.com/vestige-studio/payments-bridge/pkg/response"
)

// FreeRequest is the body for POST /register-free.
type FreeRequest struct {
	models.Registrant
	Course models.Course `json:"course"`
}

// Forwarder delivers a record to the spreadsheet.
type Forwarder interface {
	Forward(ctx context.Context, rec models.Record) (sheets.Result, error)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	forwarder Forwarder
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(forwarder Forwarder, m *metrics.Metrics, logger *zap.Logger) *Handler {
	validation.Register()
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Handler{forwarder: forwarder, metrics: m, logger: logger}
}

// RegisterFree handles POST /register-free. The record goes straight to the
// spreadsheet and the endpoint's reply is returned as the message.
func (h *Handler) RegisterFree(c *gin.Context) {
	var req FreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.Forwards.WithLabelValues(string(models.FlowCourse), metrics.OutcomeInvalid).Inc()
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rec, err := records.FreeRegistration(req.Registrant, req.Course)
	if err != nil {
		h.metrics.Forwards.WithLabelValues(string(models.FlowCourse), metrics.OutcomeInvalid).Inc()
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.forwarder.Forward(c.Request.Context(), rec)
	if err != nil {
		h.metrics.Forwards.WithLabelValues(string(models.FlowCourse), metrics.OutcomeFailed).Inc()
		h.logger.Error("free registration forward failed",
			zap.Error(err),
			zap.String("email", req.Email),
			zap.Int("status", res.Status),
		)
		response.Internal(c, err.Error())
		return
	}

	h.metrics.Forwards.WithLabelValues(string(models.FlowCourse), metrics.OutcomeForwarded).Inc()
	h.logger.Info("free registration forwarded", zap.String("email", req.Email), zap.String("style", req.Course.Style))
	response.Message(c, res.Body)
}
