package store

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/flowcheck/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, workflow string, created time.Time) Record {
	return Record{
		ID:        id,
		Workflow:  workflow,
		CreatedAt: created,
		Report: flow.Report{
			Workflow: workflow,
			Findings: []flow.Finding{
				{
					Severity: flow.SeverityWarning,
					Kind:     flow.KindOrphanedNode,
					Node:     "C",
					Msg:      `node "C": no incoming connections`,
				},
			},
		},
	}
}

func TestMemStore_SaveAndLoad(t *testing.T) {
	st := NewMemStore()
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	rec := sampleRecord("run-1", "orders", time.Now().UTC())
	require.NoError(t, st.SaveReport(ctx, rec))

	got, err := st.LoadReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Workflow, got.Workflow)
	require.Len(t, got.Report.Findings, 1)
	assert.Equal(t, flow.KindOrphanedNode, got.Report.Findings[0].Kind)
}

func TestMemStore_LoadMissing(t *testing.T) {
	st := NewMemStore()
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	_, err := st.LoadReport(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.LoadLatest(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_SaveReplacesExistingID(t *testing.T) {
	st := NewMemStore()
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, st.SaveReport(ctx, sampleRecord("run-1", "orders", base)))

	updated := sampleRecord("run-1", "orders", base.Add(time.Minute))
	updated.Report.Findings = nil
	require.NoError(t, st.SaveReport(ctx, updated))

	got, err := st.LoadReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got.Report.Findings)

	recs, err := st.ListReports(ctx, "orders", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemStore_LatestAndList(t *testing.T) {
	st := NewMemStore()
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, st.SaveReport(ctx, sampleRecord("run-1", "orders", base)))
	require.NoError(t, st.SaveReport(ctx, sampleRecord("run-2", "orders", base.Add(time.Minute))))
	require.NoError(t, st.SaveReport(ctx, sampleRecord("run-3", "orders", base.Add(2*time.Minute))))
	require.NoError(t, st.SaveReport(ctx, sampleRecord("other-1", "billing", base)))

	latest, err := st.LoadLatest(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.ID)

	recs, err := st.ListReports(ctx, "orders", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "run-3", recs[0].ID)
	assert.Equal(t, "run-2", recs[1].ID)
	assert.Equal(t, "run-1", recs[2].ID)

	limited, err := st.ListReports(ctx, "orders", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	empty, err := st.ListReports(ctx, "unknown", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemStore_Closed(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	require.NoError(t, st.Close())
	require.NoError(t, st.Close()) // double-close is a no-op

	assert.Error(t, st.SaveReport(ctx, sampleRecord("run-1", "orders", time.Now())))
	_, err := st.LoadReport(ctx, "run-1")
	assert.Error(t, err)
	_, err = st.ListReports(ctx, "orders", 0)
	assert.Error(t, err)
}
