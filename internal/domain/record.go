package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecordID string

type Record struct {
	ID        RecordID
	Timestamp time.Time
}

// NewRecord stamps a record with a time-ordered identifier.
func NewRecord(timestamp time.Time) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("generate record id: %w", err)
	}

	return Record{ID: RecordID(id.String()), Timestamp: timestamp}, nil
}

func ParseRecordID(raw string) (RecordID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse record id %q: %w", raw, err)
	}

	return RecordID(id.String()), nil
}
