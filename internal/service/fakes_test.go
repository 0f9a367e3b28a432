package service

import (
	"context"
	"errors"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	outboxDomain "github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/domain"
)

var errConn = errors.New("connection reset by peer")

func storageErr(err error) error {
	return errors.Join(domain.ErrStorage, err)
}

// memStore is an in-memory stand-in for the database shared by the fake
// repositories. fakeTx snapshots it to emulate rollback.
type memStore struct {
	orders        map[int64]domain.Order
	items         map[int64][]domain.OrderItem
	users         map[uuid.UUID]domain.User
	generalOrders map[int64]domain.GeneralOrder
	status        *domain.ShopStatus
	outbox        []*outboxDomain.OutboxEvent

	listErr        error
	userErr        map[uuid.UUID]error
	lockErr        error
	deleteItemsErr error
	deleteOrderErr error
	outboxErr      error
	transitionErr  error
	closeErr       error
}

func newStore() *memStore {
	return &memStore{
		orders:        map[int64]domain.Order{},
		items:         map[int64][]domain.OrderItem{},
		users:         map[uuid.UUID]domain.User{},
		generalOrders: map[int64]domain.GeneralOrder{},
		userErr:       map[uuid.UUID]error{},
		status:        &domain.ShopStatus{},
	}
}

type snapshot struct {
	orders        map[int64]domain.Order
	items         map[int64][]domain.OrderItem
	generalOrders map[int64]domain.GeneralOrder
	status        domain.ShopStatus
	outbox        []*outboxDomain.OutboxEvent
}

func (s *memStore) snapshot() snapshot {
	return snapshot{
		orders:        maps.Clone(s.orders),
		items:         maps.Clone(s.items),
		generalOrders: maps.Clone(s.generalOrders),
		status:        *s.status,
		outbox:        append([]*outboxDomain.OutboxEvent(nil), s.outbox...),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.orders = snap.orders
	s.items = snap.items
	s.generalOrders = snap.generalOrders
	*s.status = snap.status
	s.outbox = snap.outbox
}

type fakeTx struct {
	store  *memStore
	atomic bool
}

func (t *fakeTx) Conn() db.DBTX { return nil }
func (t *fakeTx) Atomic() bool  { return t.atomic }

func (t *fakeTx) WithinTx(ctx context.Context, fn func(context.Context, db.DBTX) error) error {
	if !t.atomic {
		return fn(ctx, nil)
	}

	snap := t.store.snapshot()
	if err := fn(ctx, nil); err != nil {
		t.store.restore(snap)
		return err
	}

	return nil
}

type fakeOrders struct{ s *memStore }

func (f fakeOrders) ListOrders(context.Context, db.DBTX) ([]domain.Order, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}

	result := make([]domain.Order, 0, len(f.s.orders))
	for _, o := range f.s.orders {
		o.Items = f.s.items[o.ID]
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

func (f fakeOrders) LockOrder(_ context.Context, _ db.DBTX, id int64) error {
	if f.s.lockErr != nil {
		return f.s.lockErr
	}
	if _, ok := f.s.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}

	return nil
}

func (f fakeOrders) DeleteItems(_ context.Context, _ db.DBTX, id int64) (int64, error) {
	if f.s.deleteItemsErr != nil {
		return 0, f.s.deleteItemsErr
	}

	n := int64(len(f.s.items[id]))
	delete(f.s.items, id)

	return n, nil
}

func (f fakeOrders) DeleteOrder(_ context.Context, _ db.DBTX, id int64) error {
	if f.s.deleteOrderErr != nil {
		return f.s.deleteOrderErr
	}
	if _, ok := f.s.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}

	delete(f.s.orders, id)

	return nil
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) GetByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*domain.User, error) {
	if err := f.s.userErr[id]; err != nil {
		return nil, err
	}

	u, ok := f.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &u, nil
}

func (f fakeUsers) GetRole(_ context.Context, _ db.DBTX, id uuid.UUID) (domain.Role, error) {
	u, err := f.GetByID(context.Background(), nil, id)
	if err != nil {
		return "", err
	}

	return u.Role, nil
}

func (f fakeUsers) List(_ context.Context, _ db.DBTX, role *domain.Role) ([]domain.User, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}

	var result []domain.User
	for _, u := range f.s.users {
		if role == nil || u.Role == *role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })

	return result, nil
}

func (f fakeUsers) Upsert(_ context.Context, _ db.DBTX, u *domain.User) error {
	if err := f.s.userErr[u.ID]; err != nil {
		return err
	}

	f.s.users[u.ID] = *u

	return nil
}

type fakeOutbox struct{ s *memStore }

func (f fakeOutbox) SaveOutboxEvent(_ context.Context, _ db.DBTX, e *outboxDomain.OutboxEvent) error {
	if f.s.outboxErr != nil {
		return f.s.outboxErr
	}

	e.ID = int64(len(f.s.outbox) + 1)
	f.s.outbox = append(f.s.outbox, e)

	return nil
}

func (f fakeOutbox) GetUnpublishedEvents(context.Context, db.DBTX, int) ([]*outboxDomain.OutboxEvent, error) {
	return f.s.outbox, nil
}

func (f fakeOutbox) MarkEventPublished(context.Context, db.DBTX, int64) error { return nil }

func (f fakeOutbox) MarkEventFailed(context.Context, db.DBTX, int64, string) error { return nil }

type fakeShopStatus struct{ s *memStore }

func (f fakeShopStatus) Get(context.Context, db.DBTX) (*domain.ShopStatus, error) {
	if f.s.status == nil {
		return nil, repository.ErrShopStatusNotFound
	}

	status := *f.s.status
	if status.CurrentGeneralOrderID != nil {
		g := f.s.generalOrders[*status.CurrentGeneralOrderID]
		summary := g.Summary()
		status.GeneralOrder = &summary
	}

	return &status, nil
}

func (f fakeShopStatus) Transition(_ context.Context, _ db.DBTX, t domain.StatusTransition) error {
	if f.s.transitionErr != nil {
		return f.s.transitionErr
	}

	if t.GeneralOrderID != nil {
		g, ok := f.s.generalOrders[*t.GeneralOrderID]
		if !ok {
			return repository.ErrGeneralOrderNotFound
		}
		if g.Status == domain.GeneralOrderArchived {
			return repository.ErrGeneralOrderArchived
		}
	}

	*f.s.status = domain.ShopStatus{
		IsOpen:                t.IsOpen,
		CurrentGeneralOrderID: t.GeneralOrderID,
		Message:               t.Message,
		UpdatedAt:             time.Now(),
	}

	return nil
}

type fakeGeneralOrders struct{ s *memStore }

func (f fakeGeneralOrders) ListAll(context.Context, db.DBTX) ([]domain.GeneralOrder, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}

	result := make([]domain.GeneralOrder, 0, len(f.s.generalOrders))
	for _, g := range f.s.generalOrders {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

func (f fakeGeneralOrders) ListOpen(ctx context.Context, q db.DBTX, now time.Time) ([]domain.GeneralOrder, error) {
	all, err := f.ListAll(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]domain.GeneralOrder, 0)
	for _, g := range all {
		if g.IsOpenAt(now) {
			result = append(result, g)
		}
	}

	return result, nil
}

func (f fakeGeneralOrders) CloseExpired(_ context.Context, _ db.DBTX, now time.Time) ([]int64, error) {
	if f.s.closeErr != nil {
		return nil, f.s.closeErr
	}

	var ids []int64
	for id, g := range f.s.generalOrders {
		if g.Status == domain.GeneralOrderOpen && g.Deadline.Before(now) {
			g.Status = domain.GeneralOrderClosed
			f.s.generalOrders[id] = g
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

var (
	adminCaller    = domain.Caller{ID: uuid.New(), Role: domain.RoleAdmin}
	customerCaller = domain.Caller{ID: uuid.New(), Role: domain.RoleCustomer}
)
