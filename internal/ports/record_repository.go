package ports

import (
	"context"

	"github.com/jkalmus/defifolio/internal/domain"
)

type RecordRepository interface {
	// List returns records in insertion order.
	List(ctx context.Context) ([]domain.Record, error)
	Insert(ctx context.Context, record domain.Record) error
	Delete(ctx context.Context, id domain.RecordID) error
}
