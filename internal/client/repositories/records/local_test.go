package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/metadata"
)

func newStore(t *testing.T) (*LocalStore, metadata.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	kv := metadata.NewSQLiteRepository(db)
	return NewLocalStore(kv), kv
}

type failingKV struct {
	metadata.Repository
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error  { return f.err }

func TestLoad_Missing_ReturnsEmpty(t *testing.T) {
	s, _ := newStore(t)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	in := []models.Record{
		{ID: "a", Name: "Ada", MeasurementDate: "2024-01-01", Unit: models.UnitCM, Chest: "92", RowIndex: 3},
		{ID: "b", Name: "Bo", MeasurementDate: "2024-02-01", Unit: models.UnitInch, Notes: "line1\nline2"},
	}
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_Nil_StoresEmptyArray(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, nil))

	blob, err := kv.Get(ctx, BlobKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(blob))
}

func TestLoad_FillsMissingFieldsFromDefault(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, BlobKey, []byte(`[{"id":"old","name":"Old Customer"}]`)))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.UnitCM, got[0].Unit)
	assert.Equal(t, "Old Customer", got[0].Name)
	assert.Equal(t, 0, got[0].RowIndex)
}

func TestLoad_Corrupt_ReturnsEmptyAndReadError(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, BlobKey, []byte(`{not json`)))

	got, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrLocalRead)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoad_BadRecord_ReturnsReadError(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, BlobKey, []byte(`[{"id":"a"},{"id":42}]`)))

	got, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrLocalRead)
	assert.Empty(t, got)
}

func TestBackendFailures_AreWrapped(t *testing.T) {
	boom := errors.New("disk full")
	s := NewLocalStore(failingKV{err: boom})
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrLocalRead)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, got)

	err = s.Save(ctx, []models.Record{{ID: "a"}})
	require.ErrorIs(t, err, ErrLocalWrite)
	require.ErrorIs(t, err, boom)
}
