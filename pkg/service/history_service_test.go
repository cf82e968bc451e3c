package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-verify/config"
	"tweet-verify/pkg/db"
	"tweet-verify/pkg/model"
)

type failingStore struct{}

func (failingStore) Save(context.Context, *model.AnalysisRecord) error {
	return errors.New("connection refused")
}

func (failingStore) Recent(context.Context, int) ([]model.AnalysisRecord, error) {
	return nil, errors.New("connection refused")
}

func recordAt(text string, ts time.Time) *model.AnalysisRecord {
	r := model.NewAnalysisRecord(text, &model.Verdict{IsFakeNews: true, ConfidenceScore: 0.75})
	r.Timestamp = ts
	return r
}

func TestMemoryHistoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, store.Save(ctx, recordAt(text, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Text)
	assert.Equal(t, "second", got[1].Text)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistoryServiceFallback(t *testing.T) {
	ctx := context.Background()
	svc := NewHistoryServiceWithStore(failingStore{}, 10)

	rec := model.NewAnalysisRecord("shocking", &model.Verdict{IsFakeNews: true, ConfidenceScore: 0.6})
	require.NoError(t, svc.Save(ctx, rec))

	got, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestNewHistoryServiceMemory(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.History.Driver = config.HistoryDriverMemory
	cfg.History.Limit = 1
	svc := NewHistoryService(cfg)

	ctx := context.Background()
	require.NoError(t, svc.Save(ctx, recordAt("a", time.Now().Add(-time.Minute))))
	require.NoError(t, svc.Save(ctx, recordAt("b", time.Now())))
	got, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)
}

func TestDuckDBHistoryStore(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenDuckDB(filepath.Join(t.TempDir(), "history.duckdb"))
	require.NoError(t, err)
	defer conn.Close()

	store, err := NewDuckDBHistoryStore(ctx, conn)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := recordAt("older", base)
	newer := recordAt("newer", base.Add(time.Hour))
	newer.IsFakeNews = false
	newer.ConfidenceScore = 0.25
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, "newer", got[0].Text)
	assert.False(t, got[0].IsFakeNews)
	assert.InDelta(t, 0.25, got[0].ConfidenceScore, 1e-12)
	assert.True(t, newer.Timestamp.Equal(got[0].Timestamp))
	assert.Equal(t, older.ID, got[1].ID)

	// 重复主键写入失败
	assert.Error(t, store.Save(ctx, older))

	// 表已存在时可以再次创建 store
	_, err = NewDuckDBHistoryStore(ctx, conn)
	assert.NoError(t, err)
}

func TestNilConnections(t *testing.T) {
	_, err := NewDuckDBHistoryStore(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewGormHistoryStore(nil)
	assert.Error(t, err)
}

func TestHistoryServiceCloseDuckDB(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.History.Enabled = true
	cfg.DuckDBConfig.DBPath = filepath.Join(t.TempDir(), "history.duckdb")
	ctx := context.Background()

	svc := NewHistoryService(cfg)
	rec := recordAt("persisted", time.Now())
	require.NoError(t, svc.Save(ctx, rec))
	require.NoError(t, svc.Close())
	assert.Nil(t, db.GetDuckDB())
	assert.NoError(t, svc.Close())

	// 关闭后重新打开同一个文件，记录仍然存在
	reopened := NewHistoryService(cfg)
	defer reopened.Close()
	got, err := reopened.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestHistoryServiceCloseMemory(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.History.Driver = config.HistoryDriverMemory
	assert.NoError(t, NewHistoryService(cfg).Close())
	assert.NoError(t, NewHistoryServiceWithStore(NewMemoryHistoryStore(), 10).Close())
}
