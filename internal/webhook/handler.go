package webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/pkg/metrics"
	"github.com/vestige-studio/payments-bridge/pkg/queue"
	"github.com/vestige-studio/payments-bridge/pkg/response"
)

const maxPayloadBytes = 1 << 20

// Forwarder delivers a record to the spreadsheet.
type Forwarder interface {
	Forward(ctx context.Context, rec models.Record) (sheets.Result, error)
}

// FailureSink keeps records that could not be forwarded for manual reconciliation.
type FailureSink interface {
	Push(ctx context.Context, rec queue.FailedRecord) error
}

// Outcome is what happened to one confirmed payment after verification.
type Outcome struct {
	Event   models.PaymentEvent
	Record  models.Record
	Result  sheets.Result
	Skipped bool
	Err     error
}

// Forwarded reports whether the record reached the spreadsheet.
func (o Outcome) Forwarded() bool {
	return !o.Skipped && o.Err == nil
}

// Handler handles POST /webhook.
type Handler struct {
	verifier  *Verifier
	forwarder Forwarder
	sink      FailureSink
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHandler creates a webhook handler. sink may be nil.
func NewHandler(verifier *Verifier, forwarder Forwarder, sink FailureSink, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Handler{verifier: verifier, forwarder: forwarder, sink: sink, metrics: m, logger: logger}
}

// Handle verifies the signature over the raw body, then classifies, normalizes
// and forwards. Once verified, a completion event is always acknowledged with
// 200: the payment is settled and must not be redelivered over bookkeeping.
func (h *Handler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)
	payload, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("webhook body unreadable", zap.Error(err))
		response.BadRequest(c, "unreadable body")
		return
	}

	ev, err := h.verifier.Verify(payload, c.GetHeader(SignatureHeader))
	if err != nil {
		h.metrics.Webhooks.WithLabelValues("unknown", metrics.OutcomeUnsigned).Inc()
		h.logger.Warn("webhook signature rejected", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		response.BadRequest(c, "invalid signature")
		return
	}

	pe, err := Classify(ev)
	if err != nil {
		if errors.Is(err, ErrUnhandledEvent) {
			h.metrics.Webhooks.WithLabelValues(string(ev.Type), metrics.OutcomeUnhandled).Inc()
			h.logger.Info("webhook event not handled", zap.String("event_id", ev.ID), zap.String("event_type", string(ev.Type)))
			response.BadRequest(c, "unhandled event type")
			return
		}
		h.metrics.Webhooks.WithLabelValues(string(ev.Type), metrics.OutcomeRejected).Inc()
		h.logger.Error("webhook event undecodable", zap.Error(err), zap.String("event_id", ev.ID))
		response.BadRequest(c, "undecodable event")
		return
	}

	out := h.Process(c.Request.Context(), pe)
	h.metrics.Webhooks.WithLabelValues(pe.Type, out.metricOutcome()).Inc()
	response.Received(c)
}

// metricOutcome labels the delivery. Only a forward that was attempted and
// lost counts as failed.
func (o Outcome) metricOutcome() string {
	var fe *sheets.ForwardError
	switch {
	case o.Skipped:
		return metrics.OutcomeSkipped
	case o.Err == nil:
		return metrics.OutcomeForwarded
	case errors.As(o.Err, &fe):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeInvalid
	}
}

// Process normalizes and forwards a classified event. Failures are logged,
// counted and sent to the failure sink; they are returned in the Outcome only.
func (h *Handler) Process(ctx context.Context, pe models.PaymentEvent) Outcome {
	out := Outcome{Event: pe}
	log := h.logger.With(
		zap.String("event_id", pe.ID),
		zap.String("event_type", pe.Type),
		zap.String("flow", string(pe.Flow)),
		zap.String("reference", pe.SessionID),
	)

	// Intents opened by hosted checkout carry no metadata; their session event does the work.
	if pe.Type == models.EventPaymentIntentSucceeded && len(pe.Metadata) == 0 {
		log.Info("payment intent without metadata ignored")
		out.Skipped = true
		return out
	}

	rec, err := records.Normalize(pe)
	if err != nil {
		out.Err = err
		h.metrics.Forwards.WithLabelValues(string(pe.Flow), metrics.OutcomeInvalid).Inc()
		log.Error("normalize payment failed", zap.Error(err), zap.String("email", pe.CustomerEmail))
		return out
	}
	out.Record = rec
	log = log.With(zap.String("email", rec[models.KeyEmail]))

	res, err := h.forwarder.Forward(ctx, rec)
	out.Result = res
	if err != nil {
		out.Err = err
		h.metrics.Forwards.WithLabelValues(string(pe.Flow), metrics.OutcomeFailed).Inc()
		log.Error("forward to spreadsheet failed", zap.Error(err), zap.Int("status", res.Status), zap.String("body", res.Body))
		h.keep(ctx, log, pe, rec, err)
		return out
	}

	h.metrics.Forwards.WithLabelValues(string(pe.Flow), metrics.OutcomeForwarded).Inc()
	log.Info("payment confirmed and forwarded", zap.Int("status", res.Status), zap.String("response", res.Body))
	return out
}

func (h *Handler) keep(ctx context.Context, log *zap.Logger, pe models.PaymentEvent, rec models.Record, cause error) {
	if h.sink == nil {
		return
	}
	err := h.sink.Push(context.WithoutCancel(ctx), queue.FailedRecord{
		Reference: pe.SessionID,
		Flow:      string(pe.Flow),
		Email:     rec[models.KeyEmail],
		Record:    rec,
		Error:     cause.Error(),
	})
	if err != nil {
		log.Error("failure sink push failed", zap.Error(err))
	}
}
