package rates

import (
	"context"
	"time"
)

// Provider supplies current and historical exchange rates. Implementations
// are injected into consumers so tests can substitute a deterministic fake.
type Provider interface {
	CurrentTable(ctx context.Context) (*Table, error)
	HistoricalSeries(ctx context.Context, code string, start, end time.Time) ([]HistoricalRate, error)
}
