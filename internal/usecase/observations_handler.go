package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/ingest"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ObservationsHandler consumes scraper snapshot messages and writes the
// cleaned observations to the store.
type ObservationsHandler struct {
	topic   string
	store   domrepo.ObservationStore
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewObservationsHandler(topic string, store domrepo.ObservationStore, metrics domrepo.Metrics, logger *applogger.Logger) *ObservationsHandler {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &ObservationsHandler{topic: topic, store: store, metrics: metrics, logger: logger}
}

func (h *ObservationsHandler) Topic() string { return h.topic }

// Handle rejects undecodable or invalid batches as permanent. Rows whose
// price or date cannot be parsed are dropped; store errors are retried by
// the consumer.
func (h *ObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var batch models.ObservationBatch
	if err := json.Unmarshal(b, &batch); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode observation batch: %v", pkgkafka.ErrPermanent, err)
	}
	if err := validate.StructCtx(ctx, &batch); err != nil {
		h.recordError("consumer_validate")
		return fmt.Errorf("%w: invalid observation batch: %v", pkgkafka.ErrPermanent, err)
	}

	obs, skipped := ConvertMessages(batch.Observations)
	if skipped > 0 {
		h.logger.Warn("dropped unparseable observations",
			applogger.String("store", batch.Store),
			applogger.Int("skipped", skipped),
			applogger.Int("kept", len(obs)),
		)
	}
	if len(obs) == 0 {
		return nil
	}

	if err := h.store.SaveObservations(ctx, obs); err != nil {
		h.recordError("consumer_store")
		return fmt.Errorf("save observations: %w", err)
	}
	if h.metrics != nil {
		h.metrics.RecordObservations("kafka", len(obs))
	}
	return nil
}

// ConvertMessages cleans raw scraper rows the same way CSV ingestion does.
func ConvertMessages(msgs []models.ObservationMessage) ([]models.Observation, int) {
	out := make([]models.Observation, 0, len(msgs))
	skipped := 0
	for _, m := range msgs {
		name := strings.TrimSpace(m.Name)
		price := ingest.ParsePrice(m.Price)
		date, ok := util.ParseDate(m.Date)
		if name == "" || !price.Valid || !ok {
			skipped++
			continue
		}
		out = append(out, models.Observation{
			Key:    models.EntityKey{Brand: strings.TrimSpace(m.Brand), Name: name},
			Date:   util.Day(date),
			Price:  price.Decimal,
			Weight: ingest.CleanWeight(m.Weight),
		})
	}
	return out, skipped
}

func (h *ObservationsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*ObservationsHandler)(nil)
