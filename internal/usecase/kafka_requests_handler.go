package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"AutoValue/internal/domain/models"
	domrepo "AutoValue/internal/domain/repository"
	xhttp "AutoValue/pkg/http"
	pkgkafka "AutoValue/pkg/kafka"
	applogger "AutoValue/pkg/logger"
)

// Result statuses published on the result topic.
const (
	StatusOK               = "ok"
	StatusInvalid          = "ERR_VALIDATION"
	StatusModelUnavailable = "ERR_MODEL_UNAVAILABLE"
	StatusPrediction       = "ERR_PREDICTION"
	StatusInternal         = "ERR_INTERNAL"
)

// KafkaRequestsHandler answers valuation requests arriving on a Kafka topic.
// Every decodable request gets exactly one result message; only payloads that
// are not JSON are returned as errors so the consumer can dead-letter them.
type KafkaRequestsHandler struct {
	topic     string
	service   *ValuationService
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewKafkaRequestsHandler(topic string, service *ValuationService, publisher domrepo.EventPublisher, metrics domrepo.Metrics, logger *applogger.Logger) *KafkaRequestsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &KafkaRequestsHandler{topic: topic, service: service, publisher: publisher, metrics: metrics, logger: logger}
}

func (h *KafkaRequestsHandler) Topic() string { return h.topic }

func (h *KafkaRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var msg models.ValuationMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode valuation request: %w", err)
	}

	res := h.evaluate(ctx, &msg)
	if err := h.publisher.PublishResult(ctx, res); err != nil {
		h.metrics.RecordError("publish_result")
		return fmt.Errorf("publish result %s: %w", res.RequestID, err)
	}
	return nil
}

func (h *KafkaRequestsHandler) evaluate(ctx context.Context, msg *models.ValuationMessage) *models.ValuationResultMessage {
	res := &models.ValuationResultMessage{RequestID: msg.RequestID}

	if verrs := xhttp.ValidateStruct(ctx, msg); len(verrs) > 0 {
		res.Status = StatusInvalid
		res.Error = joinValidation(verrs)
		return res
	}

	v, err := h.service.Evaluate(ctx, msg.Vehicle, msg.CurrentYear)
	var perr *PredictionError
	switch {
	case err == nil:
		res.Status = StatusOK
		res.Valuation = v
	case errors.Is(err, ErrModelUnavailable):
		res.Status = StatusModelUnavailable
		res.Error = err.Error()
	case errors.As(err, &perr):
		res.Status = StatusPrediction
		res.Error = err.Error()
	default:
		res.Status = StatusInternal
		res.Error = err.Error()
	}
	if err != nil {
		h.logger.Warn("valuation request failed",
			applogger.String("request_id", msg.RequestID),
			applogger.String("status", res.Status),
			applogger.String("trace_id", pkgkafka.TraceID(ctx)),
			applogger.Error(err),
		)
	}
	return res
}

func joinValidation(verrs []xhttp.ValidationError) string {
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

var _ pkgkafka.MessageHandler = (*KafkaRequestsHandler)(nil)
