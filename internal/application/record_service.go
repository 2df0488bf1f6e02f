package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

type RecordService struct {
	repo  ports.RecordRepository
	clock ports.Clock
}

func NewRecordService(repo ports.RecordRepository, clock ports.Clock) *RecordService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &RecordService{repo: repo, clock: clock}
}

// AddRecord appends a record stamped with now, or the clock time when now is zero.
func (s *RecordService) AddRecord(ctx context.Context, now time.Time) (domain.Record, error) {
	if now.IsZero() {
		now = s.clock.Now()
	}

	record, err := domain.NewRecord(now)
	if err != nil {
		return domain.Record{}, err
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return domain.Record{}, fmt.Errorf("insert record: %w", err)
	}

	return record, nil
}

func (s *RecordService) ListRecords(ctx context.Context) ([]domain.Record, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return records, nil
}

// DeleteRecords removes the records at the given positions of a single
// snapshot. Positions are resolved to IDs first, so nothing is deleted when
// any index is out of range.
func (s *RecordService) DeleteRecords(ctx context.Context, indices []int) ([]domain.Record, error) {
	snapshot, err := s.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := resolveIndices(indices, len(snapshot))
	if err != nil {
		return nil, err
	}

	targets := make([]domain.Record, 0, len(positions))
	for _, position := range positions {
		targets = append(targets, snapshot[position])
	}

	deleted := make([]domain.Record, 0, len(targets))
	for _, record := range targets {
		if err := s.repo.Delete(ctx, record.ID); err != nil {
			return deleted, fmt.Errorf("delete record %s: %w", record.ID, err)
		}
		deleted = append(deleted, record)
	}

	return deleted, nil
}

func (s *RecordService) DeleteRecordsByID(ctx context.Context, ids []domain.RecordID) error {
	seen := make(map[domain.RecordID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete record %s: %w", id, err)
		}
	}

	return nil
}

func resolveIndices(indices []int, size int) ([]int, error) {
	unique := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, index := range indices {
		if index < 0 || index >= size {
			return nil, fmt.Errorf("%w: %d (records: %d)", domain.ErrIndexOutOfRange, index, size)
		}
		if _, ok := seen[index]; ok {
			continue
		}
		seen[index] = struct{}{}
		unique = append(unique, index)
	}

	sort.Ints(unique)
	return unique, nil
}
