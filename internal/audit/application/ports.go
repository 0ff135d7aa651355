package application

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
)

// Sink accepts audit facts. Implementations must not hold up the caller for long.
type Sink interface {
	Record(ctx context.Context, f domain.Fact) error
}

type LogRepository interface {
	Insert(ctx context.Context, f domain.Fact) error
	Latest(ctx context.Context, limit int) ([]domain.Fact, error)
}
