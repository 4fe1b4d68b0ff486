package checkout

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/validation"
	"github.com/vestige-studio/payments-bridge/pkg/metrics"
	"github.com/vestige-studio/payments-bridge/pkg/response"
)

// Handler handles payment session HTTP endpoints.
type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler creates a checkout handler.
func NewHandler(svc *Service, m *metrics.Metrics, logger *zap.Logger) *Handler {
	validation.Register()
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Handler{svc: svc, metrics: m, logger: logger}
}

// CreateCheckoutSession handles POST /create-checkout-session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req CourseCheckout
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, models.FlowCourse, err)
		return
	}
	sess, err := h.svc.CreateCourseSession(c.Request.Context(), req)
	h.reply(c, models.FlowCourse, req.Email, sess, err)
}

// StartCheckout handles POST /start-checkout for flat inscriptions.
func (h *Handler) StartCheckout(c *gin.Context) {
	var req Inscription
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, models.FlowCourse, err)
		return
	}
	sess, err := h.svc.CreateInscriptionSession(c.Request.Context(), req)
	h.reply(c, models.FlowCourse, req.Email, sess, err)
}

// CreateDonationIntent handles POST /create-donation-intent.
func (h *Handler) CreateDonationIntent(c *gin.Context) {
	var req models.Donation
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, models.FlowDonation, err)
		return
	}
	sess, err := h.svc.CreateDonationIntent(c.Request.Context(), req)
	h.reply(c, models.FlowDonation, req.DonorEmail, sess, err)
}

func (h *Handler) invalid(c *gin.Context, flow models.Flow, err error) {
	h.metrics.Sessions.WithLabelValues(string(flow), metrics.OutcomeInvalid).Inc()
	response.BadRequest(c, "invalid request: "+err.Error())
}

func (h *Handler) reply(c *gin.Context, flow models.Flow, email string, sess *models.PaymentSession, err error) {
	switch {
	case err == nil:
		h.metrics.Sessions.WithLabelValues(string(flow), metrics.OutcomeCreated).Inc()
		h.logger.Info("payment session created",
			zap.String("flow", string(flow)),
			zap.String("session_id", sess.ID),
			zap.String("email", email),
		)
		response.OK(c, sess)
	case errors.Is(err, ErrValidation):
		h.invalid(c, flow, err)
	default:
		h.metrics.Sessions.WithLabelValues(string(flow), metrics.OutcomeProcessorKO).Inc()
		h.logger.Error("create payment session failed",
			zap.Error(err),
			zap.String("flow", string(flow)),
			zap.String("email", email),
		)
		response.Internal(c, "failed to create payment session")
	}
}
