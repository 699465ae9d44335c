package outcome

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anc-caregap-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	return store
}

func testProfile(age int) domain.PatientProfile {
	return domain.PatientProfile{
		Age:            age,
		Parity:         2,
		LateInitiator:  true,
		Education:      domain.PRIMARY,
		HasInsurance:   false,
		EverGivenBirth: true,
		MaritalStatus:  domain.COHABITING,
	}
}

func testAssessment() *domain.RiskAssessment {
	return &domain.RiskAssessment{
		Score:  0.62,
		Tier:   domain.MEDIUM_RISK,
		Scorer: domain.ScorerInfo{Name: "heuristic", Version: "balanced-0000abcd"},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "outcomes.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	o := New(testProfile(24), testAssessment(), 2, 5, "missed HIV test")
	require.NoError(t, store.Save(ctx, o))

	assert.NotZero(t, o.ID, "ID should be assigned")
	assert.False(t, o.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.True(t, o.CareGap)
	assert.Equal(t, "heuristic:balanced-0000abcd", o.Scorer)
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := New(testProfile(24), testAssessment(), 2, 5, "")
	require.NoError(t, store.Save(ctx, first))

	second := New(testProfile(24), testAssessment(), 5, 5, "completed later")
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID, "same profile and scorer updates in place")

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ComponentsReceived)
	assert.False(t, got.CareGap)
	assert.Equal(t, "completed later", got.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Save_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	o := New(testProfile(24), testAssessment(), 6, 5, "")
	err := store.Save(context.Background(), o)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	o = New(testProfile(12), testAssessment(), 1, 5, "")
	assert.ErrorIs(t, store.Save(context.Background(), o), domain.ErrInvalidInput)
}

func TestSQLiteStore_Get(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	o := New(testProfile(31), testAssessment(), 4, 5, "")
	require.NoError(t, store.Save(ctx, o))

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, testProfile(31), got.Profile())
	assert.Equal(t, domain.MEDIUM_RISK, got.PredictedTier)
	assert.InDelta(t, 0.62, got.PredictedScore, 1e-12)
	assert.False(t, got.CareGap)

	found, err := store.Find(ctx, testProfile(31).Key(), o.Scorer)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Find(ctx, "missing", "heuristic")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for age := 20; age < 25; age++ {
		require.NoError(t, store.Save(ctx, New(testProfile(age), testAssessment(), 3, 5, "")))
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	o := New(testProfile(27), testAssessment(), 1, 5, "")
	require.NoError(t, store.Save(ctx, o))

	require.NoError(t, store.Delete(ctx, o.ID))
	_, err := store.Get(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, o.ID), domain.ErrNotFound)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, New(testProfile(22), testAssessment(), 1, 5, "")))
	require.NoError(t, store.Save(ctx, New(testProfile(23), testAssessment(), 5, 5, "")))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Outcomes, 2)
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	target := createTestStore(t)
	defer target.Close()
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, New(testProfile(22), testAssessment(), 1, 5, "")))
	require.NoError(t, source.Save(ctx, New(testProfile(23), testAssessment(), 5, 5, "")))
	require.NoError(t, target.Save(ctx, New(testProfile(22), testAssessment(), 2, 5, "already here")))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	imported, skipped, err := target.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ImportJSON_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, _, err := store.ImportJSON(ctx, bytes.NewBufferString("{not json"))
	assert.Error(t, err)

	body := `{"version":"1.0","outcomes":[{"age":70,"education":"HIGHER","marital_status":"MARRIED","components_tracked":5}]}`
	_, _, err = store.ImportJSON(ctx, bytes.NewBufferString(body))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLiteStore_ImportJSON_InvalidRecordWritesNothing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	body := `{"version":"1.0","outcomes":[
  {"age":28,"parity":1,"education":"HIGHER","marital_status":"MARRIED","components_received":5,"components_tracked":5,"scorer":"heuristic:v1"},
  {"age":30,"parity":2,"education":"PRIMARY","marital_status":"COHABITING","components_received":1,"components_tracked":5,"scorer":"heuristic:v1"},
  {"age":70,"education":"HIGHER","marital_status":"MARRIED","components_tracked":5}
]}`
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewBufferString(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "index 2")
	assert.Zero(t, imported)
	assert.Zero(t, skipped)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewOutcomeDerivesCareGap(t *testing.T) {
	tests := []struct {
		received, tracked int
		gap               bool
	}{
		{5, 5, false},
		{4, 5, false},
		{3, 5, true},
		{0, 4, true},
	}
	for _, tt := range tests {
		o := New(testProfile(25), nil, tt.received, tt.tracked, "")
		assert.Equal(t, tt.gap, o.CareGap, "received %d of %d", tt.received, tt.tracked)
		assert.Empty(t, o.Scorer)
	}
}
