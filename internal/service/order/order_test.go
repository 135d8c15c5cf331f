package order

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/craftberry/shop/internal/apperr"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/models"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/notification"
)

type orderEnv struct {
	kv            kvstore.Store
	orders        *repository.Orders
	carts         *repository.Carts
	users         *repository.Users
	notifications *notification.Service
	svc           *Service
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	kv := kvstore.NewMem()
	env := &orderEnv{
		kv:            kv,
		orders:        repository.NewOrders(kv),
		carts:         repository.NewCarts(kv),
		users:         repository.NewUsers(kv),
		notifications: notification.New(kv),
	}
	env.svc = &Service{
		Orders:        env.orders,
		Carts:         env.carts,
		Users:         env.users,
		Notifications: env.notifications,
	}
	return env
}

func (e *orderEnv) addUser(t *testing.T, id, role string) {
	t.Helper()
	_, err := e.users.CreateIfAbsent(context.Background(), &models.UserProfile{
		ID: id, Email: id + "@example.com", Role: role,
	})
	require.NoError(t, err)
}

func placeRequest() PlaceRequest {
	return PlaceRequest{
		Items: []Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: 10},
			{ProductID: "p2", Quantity: 1, UnitPrice: 5.5},
		},
		Address: "1 Main St",
	}
}

func TestPlaceCreatesPendingOrder(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ord.ID, "ORD-"))
	require.Equal(t, models.OrderStatusPending, ord.Status)
	require.Equal(t, models.PaymentStatusPending, ord.PaymentStatus)
	require.Equal(t, 25.5, ord.Total)
	require.Equal(t, 20.0, ord.Items[0].LineTotal)

	stored, err := env.orders.Get(context.Background(), ord.ID)
	require.NoError(t, err)
	require.Equal(t, ord.ID, stored.ID)
}

func TestPlaceValidation(t *testing.T) {
	env := newOrderEnv(t)

	_, err := env.svc.Place(context.Background(), "u1", PlaceRequest{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.svc.Place(context.Background(), "u1", PlaceRequest{
		Items: []Item{{ProductID: "p1", Quantity: 0, UnitPrice: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.svc.Place(context.Background(), "u1", PlaceRequest{
		Items: []Item{{ProductID: "", Quantity: 1, UnitPrice: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPlaceClearsCart(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	_, err := env.carts.AddItem(context.Background(), "u1", models.CartItem{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	_, err = env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	cart, err := env.carts.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}

func TestPlaceNotifiesCustomerAndAdmins(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)
	env.addUser(t, "a1", models.RoleAdmin)
	env.addUser(t, "a2", models.RoleAdmin)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	mine, err := env.notifications.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "order_placed", mine[0].Type)
	require.Contains(t, mine[0].Message, ord.ID)

	for _, admin := range []string{"a1", "a2"} {
		got, err := env.notifications.List(context.Background(), admin)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "order_received", got[0].Type)
	}
}

func TestUpdateStatusNotifiesOnce(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	for _, status := range []string{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	} {
		_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{"status": status})
		require.NoError(t, err)
	}

	list, err := env.notifications.List(context.Background(), "u1")
	require.NoError(t, err)
	// order_placed plus one per status change
	require.Len(t, list, 4)

	var shipped int
	for _, n := range list {
		if strings.Contains(n.Message, "shipped") {
			shipped++
			require.Contains(t, n.Message, ord.ID)
		}
	}
	require.Equal(t, 1, shipped)
}

func TestUpdateUnchangedStatusDoesNotNotify(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	before, err := env.notifications.List(context.Background(), "u1")
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{
		"status":  models.OrderStatusPending,
		"address": "2 Side St",
	})
	require.NoError(t, err)

	after, err := env.notifications.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, after, len(before))
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{"status": models.OrderStatusDelivered})
	require.ErrorIs(t, err, apperr.ErrValidation)

	// cancel is only reachable from pending or confirmed
	_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{"status": models.OrderStatusConfirmed})
	require.NoError(t, err)
	_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{"status": models.OrderStatusProcessing})
	require.NoError(t, err)
	_, err = env.svc.Update(context.Background(), ord.ID, map[string]any{"status": models.OrderStatusCancelled})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdatePaymentStatusIndependentOfFulfillment(t *testing.T) {
	env := newOrderEnv(t)
	env.addUser(t, "u1", models.RoleUser)

	ord, err := env.svc.Place(context.Background(), "u1", placeRequest())
	require.NoError(t, err)

	updated, err := env.svc.Update(context.Background(), ord.ID, map[string]any{
		"payment_status": models.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	require.Equal(t, models.OrderStatusPending, updated.Status)
}

func TestUpdateMissingOrder(t *testing.T) {
	env := newOrderEnv(t)

	_, err := env.svc.Update(context.Background(), "ORD-nope", map[string]any{"status": models.OrderStatusConfirmed})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
