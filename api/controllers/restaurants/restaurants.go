package restaurants

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/api/responses"
	"github.com/angelmondragon/dishdash-backend/api/validators"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

// GateService exposes the trading gate to internal callers.
type GateService interface {
	IsTrading(ctx context.Context, restaurantID uuid.UUID) (bool, error)
	ReleaseFreeze(ctx context.Context, restaurantID uuid.UUID) (*models.Restaurant, error)
}

type gateResponse struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Trading      bool      `json:"trading"`
	FrozenReason *string   `json:"frozen_reason,omitempty"`
}

// InternalTradingStatus answers whether a restaurant may accept orders.
func InternalTradingStatus(svc GateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := parseRestaurant(w, r, svc, logg)
		if !ok {
			return
		}
		trading, err := svc.IsTrading(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, gateResponse{RestaurantID: restaurantID, Trading: trading})
	}
}

// InternalUnfreeze lifts a freeze once no overdue payment remains.
func InternalUnfreeze(svc GateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, ok := parseRestaurant(w, r, svc, logg)
		if !ok {
			return
		}
		restaurant, err := svc.ReleaseFreeze(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, gateResponse{
			RestaurantID: restaurant.ID,
			Trading:      !restaurant.IsFrozen,
			FrozenReason: restaurant.FrozenReason,
		})
	}
}

func parseRestaurant(w http.ResponseWriter, r *http.Request, svc GateService, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restaurant service unavailable"))
		return uuid.Nil, false
	}
	id, err := validators.ParseURLUUID(r, "restaurantId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}
