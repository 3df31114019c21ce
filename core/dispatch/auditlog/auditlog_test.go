package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

func sampleRecords(now time.Time) []Record {
	return []Record{
		{Timestamp: now.Add(-time.Hour), CallID: "1", Operation: events.OpReserve, Result: "success", ReservationID: "R1"},
		{Timestamp: now, CallID: "2", Operation: events.OpRemoteStart, Result: "success", SessionID: "S1"},
		{Timestamp: now.Add(time.Minute), CallID: "3", Operation: events.OpRemoteStop, Result: "invalid_session_id", SessionID: "S1"},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, r := range sampleRecords(now) {
		require.NoError(t, s.Append(ctx, r))
	}
	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	out, err := s.Query(ctx, Query{SessionID: "S1"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = s.Query(ctx, Query{Start: now.Add(-time.Second), Result: "success"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].CallID)

	out, err = s.Query(ctx, Query{Operation: events.OpReserve})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.ReservationID("R1"), out[0].ReservationID)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "audit.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:audit_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)
	_, err = Open(Config{Backend: "kafka"})
	assert.Error(t, err)
	s, err = Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "a.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	_ = s.Close()
}

func TestRecorderKeepsPostEvents(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	rec := NewRecorder(s, 4, nil)

	ev := events.OperationEvent{
		CallID:     "c1",
		Operation:  events.OpReserve,
		Phase:      events.PhasePre,
		Time:       time.Now(),
		Target:     model.EVSE("DE*GEF", "1"),
		AnsweredBy: model.OperatorOwner("DE*GEF"),
	}
	rec.Observe(ev)
	ev.Phase = events.PhasePost
	ev.Outcome = model.Outcome{Code: model.ResultSuccess}
	ev.Elapsed = 1500 * time.Microsecond
	rec.Observe(ev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	out, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "success", out[0].Result)
	assert.Equal(t, "operator:DE*GEF", out[0].AnsweredBy)
	assert.Equal(t, model.EVSE("DE*GEF", "1"), out[0].Target)
	assert.InDelta(t, 1.5, out[0].ElapsedMS, 0.001)

	for i := 0; i < 6; i++ {
		rec.Observe(ev)
	}
	assert.Equal(t, uint64(2), rec.Dropped())
}
