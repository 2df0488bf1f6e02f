package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAddRecordAppendsOne(t *testing.T) {
	t.Parallel()

	repo := &inMemoryRecordRepo{}
	svc := NewRecordService(repo, nil)
	ctx := context.Background()

	first, err := svc.AddRecord(ctx, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := svc.AddRecord(ctx, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	records, err := svc.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAddRecordUsesClockWhenTimeIsZero(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(now).Once()

	svc := NewRecordService(&inMemoryRecordRepo{}, clock)
	record, err := svc.AddRecord(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now, record.Timestamp)
}

func TestAddRecordWrapsRepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Insert(mock.Anything, mock.AnythingOfType("domain.Record")).Return(boom).Once()

	svc := NewRecordService(repo, nil)
	_, err := svc.AddRecord(context.Background(), time.Now())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "insert record")
}

func TestDeleteRecordsRemovesExactlyThoseIndices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		indices   []int
		survivors []int
	}{
		{name: "single", indices: []int{1}, survivors: []int{0, 2, 3, 4}},
		{name: "unsorted", indices: []int{4, 0, 2}, survivors: []int{1, 3}},
		{name: "duplicates", indices: []int{3, 3}, survivors: []int{0, 1, 2, 4}},
		{name: "none", indices: nil, survivors: []int{0, 1, 2, 3, 4}},
		{name: "all", indices: []int{0, 1, 2, 3, 4}, survivors: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, seeded := seededRecordRepo(t, 5)
			svc := NewRecordService(repo, nil)

			deleted, err := svc.DeleteRecords(context.Background(), tc.indices)
			require.NoError(t, err)
			assert.Len(t, deleted, 5-len(tc.survivors))

			want := make([]domain.RecordID, 0, len(tc.survivors))
			for _, index := range tc.survivors {
				want = append(want, seeded[index].ID)
			}
			assert.Equal(t, want, repo.ids())
		})
	}
}

func TestDeleteRecordsOutOfRangeDeletesNothing(t *testing.T) {
	t.Parallel()

	repo, seeded := seededRecordRepo(t, 3)
	svc := NewRecordService(repo, nil)

	for _, indices := range [][]int{{0, 3}, {-1}, {2, 1, 7}} {
		deleted, err := svc.DeleteRecords(context.Background(), indices)
		require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
		assert.Empty(t, deleted)
	}

	assert.Equal(t, []domain.RecordID{seeded[0].ID, seeded[1].ID, seeded[2].ID}, repo.ids())
}

func TestDeleteRecordsReportsPartialFailure(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		{ID: "0192f0a0-0000-7000-8000-000000000001"},
		{ID: "0192f0a0-0000-7000-8000-000000000002"},
	}
	boom := errors.New("locked")

	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().List(mock.Anything).Return(records, nil).Once()
	repo.EXPECT().Delete(mock.Anything, records[0].ID).Return(nil).Once()
	repo.EXPECT().Delete(mock.Anything, records[1].ID).Return(boom).Once()

	svc := NewRecordService(repo, nil)
	deleted, err := svc.DeleteRecords(context.Background(), []int{1, 0})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, records[:1], deleted)
}

func TestDeleteRecordsByID(t *testing.T) {
	t.Parallel()

	repo, seeded := seededRecordRepo(t, 3)
	svc := NewRecordService(repo, nil)

	require.NoError(t, svc.DeleteRecordsByID(context.Background(), []domain.RecordID{seeded[2].ID, seeded[2].ID}))
	assert.Equal(t, []domain.RecordID{seeded[0].ID, seeded[1].ID}, repo.ids())

	err := svc.DeleteRecordsByID(context.Background(), []domain.RecordID{seeded[2].ID})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func seededRecordRepo(t *testing.T, n int) (*inMemoryRecordRepo, []domain.Record) {
	t.Helper()

	repo := &inMemoryRecordRepo{}
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		record, err := domain.NewRecord(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, err)
		repo.records = append(repo.records, record)
	}

	return repo, append([]domain.Record(nil), repo.records...)
}

type inMemoryRecordRepo struct {
	records []domain.Record
}

func (r *inMemoryRecordRepo) List(_ context.Context) ([]domain.Record, error) {
	return append([]domain.Record(nil), r.records...), nil
}

func (r *inMemoryRecordRepo) Insert(_ context.Context, record domain.Record) error {
	r.records = append(r.records, record)
	return nil
}

func (r *inMemoryRecordRepo) Delete(_ context.Context, id domain.RecordID) error {
	for i, record := range r.records {
		if record.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

func (r *inMemoryRecordRepo) ids() []domain.RecordID {
	ids := make([]domain.RecordID, 0, len(r.records))
	for _, record := range r.records {
		ids = append(ids, record.ID)
	}
	return ids
}
