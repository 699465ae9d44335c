package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/outcome"
)

func newTestOutcomeService(t *testing.T) *OutcomeService {
	t.Helper()
	store, err := outcome.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewOutcomeService(store, newTestService(t), testLogger())
}

func TestOutcomeServiceRecord(t *testing.T) {
	svc := newTestOutcomeService(t)
	ctx := context.Background()

	o, err := svc.Record(ctx, highRiskProfile(), 2, 5, "missed HIV test")
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.True(t, o.CareGap)
	assert.Equal(t, domain.HIGH_RISK, o.PredictedTier)
	assert.Contains(t, o.Scorer, "heuristic:balanced-")

	again, err := svc.Record(ctx, highRiskProfile(), 5, 5, "")
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID, "same profile and scorer updates the record")
	assert.False(t, again.CareGap)

	page, err := svc.List(ctx, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, DefaultOutcomePageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
}

func TestOutcomeServiceRecordErrors(t *testing.T) {
	svc := newTestOutcomeService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.PatientProfile{Age: 60}, 1, 5, "")
	assert.Equal(t, domain.CodeInvalidInput, domain.ErrorCode(err))

	_, err = svc.Record(ctx, balancedProfile(), 6, 5, "")
	assert.Equal(t, domain.CodeInvalidInput, domain.ErrorCode(err))

	_, err = svc.Get(ctx, 404)
	assert.Equal(t, domain.CodeNotFound, domain.ErrorCode(err))
	assert.Equal(t, domain.CodeNotFound, domain.ErrorCode(svc.Delete(ctx, 404)))
}

func TestOutcomeServiceExportImport(t *testing.T) {
	src := newTestOutcomeService(t)
	ctx := context.Background()

	_, err := src.Record(ctx, highRiskProfile(), 1, 5, "")
	require.NoError(t, err)
	_, err = src.Record(ctx, balancedProfile(), 5, 5, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf))

	dst := newTestOutcomeService(t)
	imported, skipped, err := dst.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	imported, skipped, err = dst.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)

	_, _, err = dst.Import(ctx, bytes.NewBufferString("{not json"))
	assert.Equal(t, domain.CodeInvalidInput, domain.ErrorCode(err))
	assert.NoError(t, dst.Health(ctx))
}

// partialImportStore fails an import after some records were written.
type partialImportStore struct {
	outcome.Store
}

func (partialImportStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return 2, 1, errors.New("failed to save: disk full")
}

func TestOutcomeServiceImportReportsPartialProgress(t *testing.T) {
	svc := NewOutcomeService(partialImportStore{}, newTestService(t), testLogger())

	imported, skipped, err := svc.Import(context.Background(), bytes.NewBufferString("{}"))
	require.Error(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 1, skipped)

	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.CodeStorage, se.Code)
	assert.Contains(t, se.Details, "imported 2, skipped 1 before the failure")
}
