package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Archive stores price snapshots.
type Archive interface {
	RecordPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error
}

// Recorder archives every quote returned by the wrapped Quoter. A failed
// write is logged and the quote is still returned.
type Recorder struct {
	next    Quoter
	archive Archive
	logger  *slog.Logger
}

func NewRecorder(next Quoter, archive Archive, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{next: next, archive: archive, logger: logger}
}

func (r *Recorder) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	q, err := r.next.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := r.archive.RecordPrice(ctx, q.Symbol, q.Price, q.At); err != nil {
		r.logger.Warn("Failed to record price snapshot", "symbol", q.Symbol, "error", err)
	}
	return q, nil
}
