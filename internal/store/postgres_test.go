package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

func configWithDriver(driver string) config.StoreConfig {
	return config.StoreConfig{Driver: driver}
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_SaveCycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO cycles`).
		WithArgs(pgxmock.AnyArg(), 2.0, 0.42, 0.95, true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cr := testCycle(2, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	err := s.SaveCycle(context.Background(), cr)
	require.NoError(t, err)
	assert.NotEmpty(t, cr.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestCycle_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result FROM cycles`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LatestCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestCycle_DecodesJSON(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	raw := []byte(`{"phase":{"phase":3,"name":"Brace"},"hopi":{"composite":0.5,"confidence":0.9},"phase_changed":false}`)
	mock.ExpectQuery(`SELECT result FROM cycles`).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(raw))

	got, err := s.LatestCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Phase.Phase)
	assert.Equal(t, 0.5, got.HOPI.Composite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveTransition(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO transitions`).
		WithArgs(pgxmock.AnyArg(), 0.0, 2.0, "up", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveTransition(context.Background(), model.Transition{
		From: 0, To: 2, Direction: model.DirectionUp,
		At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListTransitions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT from_phase, to_phase, direction, at FROM transitions`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"from_phase", "to_phase", "direction", "at"}).
			AddRow(0.0, 2.0, "up", at).
			AddRow(2.0, 0.0, "down", at.Add(100*time.Hour)))

	trs, err := s.ListTransitions(context.Background(), at.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, model.DirectionUp, trs[0].Direction)
	assert.Equal(t, 0.0, trs[1].To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cycles`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
