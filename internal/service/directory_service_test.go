package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGeneralOrderFixture(now time.Time) (*memStore, *Metrics, GeneralOrderService) {
	store := newStore()
	store.generalOrders[1] = domain.GeneralOrder{ID: 1, Status: domain.GeneralOrderOpen, Deadline: now.Add(time.Hour)}
	store.generalOrders[2] = domain.GeneralOrder{ID: 2, Status: domain.GeneralOrderOpen, Deadline: now}
	store.generalOrders[3] = domain.GeneralOrder{ID: 3, Status: domain.GeneralOrderOpen, Deadline: now.Add(-time.Minute)}
	store.generalOrders[4] = domain.GeneralOrder{ID: 4, Status: domain.GeneralOrderClosed, Deadline: now.Add(time.Hour)}
	store.generalOrders[5] = domain.GeneralOrder{ID: 5, Status: domain.GeneralOrderArchived, Deadline: now.Add(-time.Hour)}

	metrics := testMetrics()
	svc := NewGeneralOrderService(&fakeTx{store: store, atomic: true}, fakeGeneralOrders{store}, fakeOutbox{store}, "shop_events", metrics, zap.NewNop())

	return store, metrics, svc
}

func TestGeneralOrders_ListOpen(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	_, _, svc := newGeneralOrderFixture(now)

	open, err := svc.ListOpen(context.Background(), now)
	require.NoError(t, err)

	var ids []int64
	for _, g := range open {
		ids = append(ids, g.ID)
	}
	require.ElementsMatch(t, []int64{1, 2}, ids)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 5)

	_, err = svc.ListOpen(context.Background(), time.Time{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestGeneralOrders_CloseExpired(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store, metrics, svc := newGeneralOrderFixture(now)

	_, err := svc.CloseExpired(context.Background(), customerCaller, now)
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Equal(t, domain.GeneralOrderOpen, store.generalOrders[3].Status)

	n, err := svc.CloseExpired(context.Background(), adminCaller, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, domain.GeneralOrderClosed, store.generalOrders[3].Status)
	require.Equal(t, domain.GeneralOrderOpen, store.generalOrders[2].Status)
	require.Equal(t, domain.GeneralOrderArchived, store.generalOrders[5].Status)

	require.Len(t, store.outbox, 1)
	require.Equal(t, domain.EventGeneralOrdersClosed, store.outbox[0].EventType)
	require.Equal(t, "3", store.outbox[0].AggregateID)

	n, err = svc.CloseExpired(context.Background(), adminCaller, now)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, store.outbox, 1)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.GeneralOrdersClose))
}

func TestGeneralOrders_CloseExpiredStorageFailure(t *testing.T) {
	now := time.Now()
	store, _, svc := newGeneralOrderFixture(now)
	store.closeErr = storageErr(errConn)

	_, err := svc.CloseExpired(context.Background(), adminCaller, now)
	require.ErrorIs(t, err, domain.ErrStorage)
}

func TestGeneralOrders_CloseExpiredSequentialOutboxFailure(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store, _, _ := newGeneralOrderFixture(now)
	store.outboxErr = errConn
	svc := NewGeneralOrderService(&fakeTx{store: store}, fakeGeneralOrders{store}, fakeOutbox{store}, "shop_events", testMetrics(), zap.NewNop())

	n, err := svc.CloseExpired(context.Background(), adminCaller, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, domain.GeneralOrderClosed, store.generalOrders[3].Status)
	require.Empty(t, store.outbox)
}

func TestGeneralOrders_CloseExpiredOutboxFailureRollsBack(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store, _, svc := newGeneralOrderFixture(now)
	store.outboxErr = errConn

	_, err := svc.CloseExpired(context.Background(), adminCaller, now)
	require.ErrorIs(t, err, domain.ErrStorage)
	require.Equal(t, domain.GeneralOrderOpen, store.generalOrders[3].Status)
}

func TestListRecipients(t *testing.T) {
	store := newStore()
	phone := "+972509999999"
	store.users[uuid.New()] = domain.User{FullName: "Yael", Email: "y@example.com", Role: domain.RoleCustomer}
	store.users[uuid.New()] = domain.User{FullName: "Avi", Email: "a@example.com", Phone: &phone, Role: domain.RoleAdmin}
	store.users[uuid.New()] = domain.User{FullName: "Moran", Email: "m@example.com", Role: domain.RoleCustomer}

	svc := NewNotificationService(nil, fakeUsers{store}, zap.NewNop())

	all, err := svc.ListRecipients(context.Background(), adminCaller, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"Avi", "Moran", "Yael"}, []string{all[0].Name, all[1].Name, all[2].Name})
	require.Equal(t, phone, all[0].Phone)
	require.Equal(t, domain.PhoneNotProvided, all[1].Phone)

	customers, err := svc.ListRecipients(context.Background(), adminCaller, ptr(domain.RoleCustomer))
	require.NoError(t, err)
	require.Len(t, customers, 2)
	for _, r := range customers {
		require.Equal(t, domain.RoleCustomer, r.Role)
	}

	_, err = svc.ListRecipients(context.Background(), adminCaller, ptr(domain.Role("owner")))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ListRecipients(context.Background(), customerCaller, nil)
	require.ErrorIs(t, err, domain.ErrForbidden)

	store.listErr = storageErr(errConn)
	_, err = svc.ListRecipients(context.Background(), adminCaller, nil)
	require.ErrorIs(t, err, domain.ErrStorage)
}

func TestApplyUserEvent(t *testing.T) {
	store := newStore()
	metrics := testMetrics()
	svc := NewUserService(fakeUsers{store}, validator.New(), metrics, zap.NewNop())

	id := uuid.New()
	event := domain.UserEvent{EventID: "e-1", UserID: id, FullName: "Noa", Email: "noa@example.com", Role: domain.RoleCustomer}

	require.NoError(t, svc.ApplyUserEvent(context.Background(), nil, domain.EventUserRegistered, event))
	require.Equal(t, domain.RoleCustomer, store.users[id].Role)

	event.Role = domain.RoleAdmin
	require.NoError(t, svc.ApplyUserEvent(context.Background(), nil, domain.EventUserUpdated, event))
	require.Equal(t, domain.RoleAdmin, store.users[id].Role)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.UserEvents.WithLabelValues(domain.EventUserUpdated, "applied")))

	bad := event
	bad.Email = "not-an-email"
	require.ErrorIs(t, svc.ApplyUserEvent(context.Background(), nil, domain.EventUserUpdated, bad), domain.ErrValidation)

	bad = event
	bad.UserID = uuid.Nil
	require.ErrorIs(t, svc.ApplyUserEvent(context.Background(), nil, domain.EventUserUpdated, bad), domain.ErrValidation)

	require.ErrorIs(t, svc.ApplyUserEvent(context.Background(), nil, "UserDeleted", event), domain.ErrValidation)

	store.userErr[id] = storageErr(errConn)
	require.ErrorIs(t, svc.ApplyUserEvent(context.Background(), nil, domain.EventUserUpdated, event), domain.ErrStorage)
}
