package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/metadata"
)

// BlobKey is the metadata key holding the serialized collection.
const BlobKey = "measurements_blob"

var (
	ErrLocalRead  = errors.New("local storage read failed")
	ErrLocalWrite = errors.New("local storage write failed")
)

type LocalStore struct {
	kv metadata.Repository
}

func NewLocalStore(kv metadata.Repository) *LocalStore {
	return &LocalStore{kv: kv}
}

func (s *LocalStore) Load(ctx context.Context) ([]models.Record, error) {
	blob, err := s.kv.Get(ctx, BlobKey)
	if err != nil {
		return []models.Record{}, fmt.Errorf("%w: %w", ErrLocalRead, err)
	}
	if len(blob) == 0 {
		return []models.Record{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return []models.Record{}, fmt.Errorf("%w: %w", ErrLocalRead, err)
	}

	out := make([]models.Record, 0, len(raw))
	for i, item := range raw {
		r := models.DefaultRecord()
		if err := json.Unmarshal(item, &r); err != nil {
			return []models.Record{}, fmt.Errorf("%w: record %d: %w", ErrLocalRead, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *LocalStore) Save(ctx context.Context, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	if err := s.kv.Set(ctx, BlobKey, blob); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	return nil
}
