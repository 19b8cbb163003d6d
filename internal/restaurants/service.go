package restaurants

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox/payloads"
)

type restaurantStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error)
	LockByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error)
	UnfreezeWithTx(tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)
}

type overdueCounter interface {
	CountOverdueWithTx(tx *gorm.DB, restaurantID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the trading gate service.
type ServiceParams struct {
	Repo     restaurantStore
	Payments overdueCounter
	DB       txRunner
	Outbox   outboxEmitter
	Logger   *logger.Logger
}

// Service answers trading-gate reads and applies the administrative unfreeze.
type Service struct {
	repo     restaurantStore
	payments overdueCounter
	db       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("restaurant repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("commission payment counter required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		payments: params.Payments,
		db:       params.DB,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// IsTrading reports whether the restaurant may accept new orders.
func (s *Service) IsTrading(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	restaurant, err := s.repo.FindByID(ctx, restaurantID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
	}
	return !restaurant.IsFrozen, nil
}

// ReleaseFreeze reopens the trading gate once no overdue commission remains.
// Releasing a restaurant that is not frozen returns it unchanged.
func (s *Service) ReleaseFreeze(ctx context.Context, restaurantID uuid.UUID) (*models.Restaurant, error) {
	ctx = s.logg.WithRestaurantID(ctx, restaurantID.String())
	now := s.now().UTC()

	var result *models.Restaurant
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		restaurant, err := s.repo.LockByIDWithTx(tx, restaurantID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
		}
		if !restaurant.IsFrozen {
			result = restaurant
			return nil
		}

		overdue, err := s.payments.CountOverdueWithTx(tx, restaurantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overdue commission payments")
		}
		if overdue > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "restaurant has overdue commission payments").
				WithDetails(map[string]any{"overdue_payments": overdue})
		}

		released, err := s.repo.UnfreezeWithTx(tx, restaurantID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unfreeze restaurant")
		}
		if released {
			event := outbox.DomainEvent{
				EventType:     enums.EventRestaurantUnfrozen,
				AggregateType: enums.AggregateRestaurant,
				AggregateID:   restaurantID,
				OccurredAt:    now,
				Data: payloads.RestaurantFreezeEvent{
					RestaurantID: restaurantID,
					Frozen:       false,
					At:           now,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit restaurant unfrozen event")
			}
		}

		result, err = s.repo.FindByIDWithTx(tx, restaurantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload restaurant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "restaurant freeze released")
	return result, nil
}
