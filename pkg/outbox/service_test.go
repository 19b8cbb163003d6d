package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox/payloads"
)

type captureInserter struct {
	rows []models.OutboxEvent
	err  error
}

func (c *captureInserter) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, event)
	return nil
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	repo := &captureInserter{}
	svc := &Service{repo: repo}
	restaurantID := uuid.New()
	at := time.Date(2024, 3, 14, 1, 0, 0, 0, time.UTC)

	err := svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{
		EventType:     enums.EventRestaurantFrozen,
		AggregateType: enums.AggregateRestaurant,
		AggregateID:   restaurantID,
		Data:          payloads.RestaurantFreezeEvent{RestaurantID: restaurantID, Frozen: true, At: at},
		OccurredAt:    at,
	})
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)

	row := repo.rows[0]
	assert.Equal(t, enums.EventRestaurantFrozen, row.EventType)
	assert.Equal(t, restaurantID, row.AggregateID)
	assert.NotEqual(t, uuid.Nil, row.ID)

	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "system", env.Actor.Kind)
	assert.True(t, env.OccurredAt.Equal(at))

	var data payloads.RestaurantFreezeEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Frozen)
}

func TestEmitRequiresTransactionAndKnownTypes(t *testing.T) {
	svc := &Service{repo: &captureInserter{}}
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventRestaurantFrozen, AggregateType: enums.AggregateRestaurant})
	require.Error(t, err)

	err = svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{EventType: "order_created", AggregateType: enums.AggregateRestaurant})
	require.Error(t, err)
}

func TestEmitPropagatesInsertFailure(t *testing.T) {
	svc := &Service{repo: &captureInserter{err: errors.New("disk full")}}
	err := svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{
		EventType:     enums.EventCommissionPaymentPaid,
		AggregateType: enums.AggregateCommissionPayment,
		AggregateID:   uuid.New(),
	})
	require.EqualError(t, err, "disk full")
}
