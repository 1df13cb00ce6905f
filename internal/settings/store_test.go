package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, pgxmock.PgxPoolIface, *miniredis.Miniredis) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(mock, client, ttl, nil), mock, mr
}

func TestGetCachesValue(t *testing.T) {
	store, mock, mr := newTestStore(t, time.Minute)

	mock.ExpectQuery("SELECT value FROM system_settings").
		WithArgs(SystemPromptKey).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("custom persona"))

	value, ok, err := store.Get(context.Background(), SystemPromptKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "custom persona", value)

	// Second read is served from redis; no further DB expectation.
	value, ok, err = store.Get(context.Background(), SystemPromptKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "custom persona", value)

	require.True(t, mr.Exists("settings:" + SystemPromptKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrDefaultWhenUnset(t *testing.T) {
	store, mock, _ := newTestStore(t, 0)

	mock.ExpectQuery("SELECT value FROM system_settings").
		WithArgs(SystemPromptKey).
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	value := store.GetOrDefault(context.Background(), SystemPromptKey, "fallback persona")
	require.Equal(t, "fallback persona", value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetInvalidatesCache(t *testing.T) {
	store, mock, mr := newTestStore(t, time.Minute)

	require.NoError(t, mr.Set("settings:"+SystemPromptKey, "stale"))

	mock.ExpectExec("INSERT INTO system_settings").
		WithArgs(SystemPromptKey, "fresh persona").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), SystemPromptKey, "fresh persona"))
	require.False(t, mr.Exists("settings:"+SystemPromptKey))
	require.NoError(t, mock.ExpectationsWereMet())
}
