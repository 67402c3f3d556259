package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

func TestDeadLetterRepo_Insert(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewDeadLetterRepo(pool)

	err := repo.Insert(context.Background(), domain.DeadLetter{
		Topic:   domain.DLQTopicCallInitiation,
		Payload: json.RawMessage(`{"call_id":"call-1"}`),
		Error:   "provider unreachable",
	})
	require.NoError(t, err)
	require.Len(t, pool.execArgs, 1)
	assert.Equal(t, domain.DLQTopicCallInitiation, pool.execArgs[0][0])
	createdAt, ok := pool.execArgs[0][5].(time.Time)
	require.True(t, ok)
	assert.False(t, createdAt.IsZero())
}

func TestDeadLetterRepo_ListUnprocessed(t *testing.T) {
	created := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	pool := &poolStub{
		query: func(sql string, args ...any) (pgx.Rows, error) {
			assert.Contains(t, sql, "NOT processed AND retry_count < $1")
			require.Len(t, args, 2)
			assert.Equal(t, 3, args[0])
			return &rowsStub{rows: [][]any{
				{int64(1), "callback", json.RawMessage(`{"call_id":"call-1","status":"PICKED"}`), "db down", 1, false, created, nil, nil},
			}}, nil
		},
	}
	repo := postgres.NewDeadLetterRepo(pool)

	out, err := repo.ListUnprocessed(context.Background(), 3, 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "callback", out[0].Topic)
	assert.Equal(t, 1, out[0].RetryCount)
	assert.Nil(t, out[0].ProcessedAt)
	assert.JSONEq(t, `{"call_id":"call-1","status":"PICKED"}`, string(out[0].Payload))
}

func TestDeadLetterRepo_MarkProcessed(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewDeadLetterRepo(pool)

	require.NoError(t, repo.MarkProcessed(context.Background(), 5))
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "processed=TRUE")
	assert.Equal(t, int64(5), pool.execArgs[0][0])
}

func TestDeadLetterRepo_IncrementRetry(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewDeadLetterRepo(pool)

	require.NoError(t, repo.IncrementRetry(context.Background(), 5))
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "retry_count = retry_count + 1")
}

func TestDeadLetterRepo_DeleteProcessedOlderThan(t *testing.T) {
	pool := &poolStub{
		exec: func(sql string, _ ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "processed AND processed_at < $1")
			return tag("DELETE", 12), nil
		},
	}
	repo := postgres.NewDeadLetterRepo(pool)

	n, err := repo.DeleteProcessedOlderThan(context.Background(), time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
