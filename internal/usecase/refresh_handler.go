package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"SignalDesk/internal/domain/models"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/logger"
)

// RefreshRequest asks the service to recompute a symbol's analysis.
type RefreshRequest struct {
	Symbol     string `json:"symbol"`
	Invalidate bool   `json:"invalidate"`
}

// RefreshHandler consumes refresh requests from Kafka.
type RefreshHandler struct {
	topic    string
	analyzer *Analyzer
	log      *logger.Logger
}

func NewRefreshHandler(topic string, a *Analyzer, log *logger.Logger) *RefreshHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshHandler{topic: topic, analyzer: a, log: log}
}

func (h *RefreshHandler) Topic() string { return h.topic }

// Handle drops the cached result when asked and recomputes it. Malformed
// payloads and known data failures are not retried.
func (h *RefreshHandler) Handle(ctx context.Context, b []byte) error {
	var req RefreshRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return backoff.Permanent(fmt.Errorf("decode refresh request: %w", err))
	}
	sym := h.analyzer.Symbol(req.Symbol)
	if req.Invalidate {
		if err := h.analyzer.Invalidate(ctx, sym); err != nil {
			return fmt.Errorf("invalidate %s: %w", sym, err)
		}
	}
	_, err := h.analyzer.Analyze(ctx, sym, 0)
	switch {
	case err == nil:
		h.log.Debug("refresh done", logger.String("symbol", sym), logger.Bool("invalidated", req.Invalidate))
		return nil
	case errors.Is(err, models.ErrAnalysisUnavailable):
		return err
	default:
		return backoff.Permanent(err)
	}
}

var _ pkgkafka.MessageHandler = (*RefreshHandler)(nil)
