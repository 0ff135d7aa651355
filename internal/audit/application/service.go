package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// MaxListed mirrors the retention window operators browse.
const MaxListed = 1000

type Service struct {
	repo LogRepository
}

func NewService(repo LogRepository) *Service {
	return &Service{repo: repo}
}

// Ingest persists a fact received from the event stream.
func (s *Service) Ingest(ctx context.Context, f domain.Fact) error {
	if f.Action == "" || f.EntityType == "" || f.EntityID == "" {
		return fmt.Errorf("%w: audit fact needs action, entity type and entity id", apperr.ErrValidation)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.ActorID == "" {
		f.ActorID = domain.SystemActor
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	if f.Metadata == nil {
		f.Metadata = map[string]any{}
	}
	return s.repo.Insert(ctx, f)
}

func (s *Service) Latest(ctx context.Context, limit int) ([]domain.Fact, error) {
	if limit <= 0 || limit > MaxListed {
		limit = MaxListed
	}
	return s.repo.Latest(ctx, limit)
}
