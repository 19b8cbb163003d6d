package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dishdash-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

func seedEvent(t *testing.T, repo *Repository, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCommissionPaymentCreated,
		AggregateType: enums.AggregateCommissionPayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.Insert(repo.db, row))
	return row
}

func TestFetchUnpublishedSkipsPublishedAndTerminal(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	base := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	first := seedEvent(t, repo, base)
	second := seedEvent(t, repo, base.Add(time.Minute))
	third := seedEvent(t, repo, base.Add(2*time.Minute))

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID))
	require.NoError(t, repo.MarkTerminalTx(conn, second.ID, errors.New("bad envelope"), 5))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, third.ID, rows[0].ID)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	row := seedEvent(t, repo, time.Now().UTC())

	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("timeout")))
	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("timeout again")))

	events, err := repo.ListByAggregate(row.AggregateID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].AttemptCount)
	require.NotNil(t, events[0].LastError)
	assert.Equal(t, "timeout again", *events[0].LastError)
	assert.Nil(t, events[0].PublishedAt)
}

func TestDeletePublishedBeforeKeepsUnpublished(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	published := seedEvent(t, repo, time.Now().UTC())
	pending := seedEvent(t, repo, time.Now().UTC())
	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.ListByAggregate(pending.AggregateID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
