package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecordAndStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	visits := []Visit{
		{HashedIP: "aaaa", Path: "/", Timestamp: now.Add(-time.Hour)},
		{HashedIP: "aaaa", Path: "/", Timestamp: now.Add(-2 * time.Hour)},
		{HashedIP: "bbbb", Path: "/contact-form", Timestamp: now.AddDate(0, 0, -3)},
		{HashedIP: "cccc", Path: "/", Timestamp: now.AddDate(0, 0, -30)},
	}
	for _, v := range visits {
		require.NoError(t, s.RecordVisit(ctx, v))
	}
	require.NoError(t, s.SetPreference(ctx, "v1", "theme", "light"))
	require.NoError(t, s.SetPreference(ctx, "v2", "theme", "dark"))
	require.NoError(t, s.SetPreference(ctx, "v3", "theme", "dark"))

	stats, err := s.Stats(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalVisitors)
	assert.EqualValues(t, 3, stats.UniqueVisitors)
	assert.EqualValues(t, 2, stats.VisitorsToday)
	assert.EqualValues(t, 3, stats.VisitorsThisWeek)
	require.NotEmpty(t, stats.TopPaths)
	assert.Equal(t, PathStat{Path: "/", Visits: 3}, stats.TopPaths[0])
	assert.Equal(t, map[string]int64{"light": 1, "dark": 2}, stats.ThemeCounts)
	require.Len(t, stats.RecentVisitors, 4)
	assert.Equal(t, now.Add(-time.Hour), stats.RecentVisitors[0].Timestamp)
}

func TestDeleteVisitsBefore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.RecordVisit(ctx, Visit{HashedIP: "old", Timestamp: now.AddDate(-2, 0, 0)}))
	require.NoError(t, s.RecordVisit(ctx, Visit{HashedIP: "new", Timestamp: now}))

	n, err := s.DeleteVisitsBefore(ctx, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.RecentVisits(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].HashedIP)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.GetPreference(ctx, "v1", "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPreference(ctx, "v1", "theme", "light"))
	require.NoError(t, s.SetPreference(ctx, "v1", "theme", "dark"))

	v, ok, err := s.GetPreference(ctx, "v1", "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestVisitRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.RecordVisit(ctx, Visit{HashedIP: "cccc", UserAgent: "curl/8", Path: "/privacy", Timestamp: at}))

	visits, err := s.RecentVisits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	got := visits[0]
	got.ID = 0
	assert.Equal(t, Visit{HashedIP: "cccc", UserAgent: "curl/8", Path: "/privacy", Timestamp: at}, got)

	// every column is written by RecordVisit
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('visitors') ORDER BY cid`)
	require.NoError(t, err)
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"id", "hashed_ip", "user_agent", "path", "timestamp"}, cols)
}
