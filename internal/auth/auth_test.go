package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret-0123456789"

type roleStore struct {
	roles map[uuid.UUID]domain.Role
	err   error
	calls int
}

func (s *roleStore) GetByID(context.Context, db.DBTX, uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not used")
}

func (s *roleStore) GetRole(_ context.Context, _ db.DBTX, id uuid.UUID) (domain.Role, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}

	role, ok := s.roles[id]
	if !ok {
		return "", repository.ErrUserNotFound
	}

	return role, nil
}

func (s *roleStore) List(context.Context, db.DBTX, *domain.Role) ([]domain.User, error) {
	return nil, errors.New("not used")
}

func (s *roleStore) Upsert(context.Context, db.DBTX, *domain.User) error {
	return errors.New("not used")
}

func newGuard(t *testing.T, store *roleStore) (Guard, *TokenManager) {
	t.Helper()

	tokens := NewTokenManager(secret, time.Minute)
	return NewGuard(tokens, store, nil, zap.NewNop()), tokens
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tokens := NewTokenManager(secret, time.Minute)
	id := uuid.New()

	signed, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestTokenManager_Rejects(t *testing.T) {
	tokens := NewTokenManager(secret, time.Minute)
	id := uuid.New()

	expired := NewTokenManager(secret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue(id)
	require.NoError(t, err)

	other, err := NewTokenManager("another-secret-0123456", time.Minute).Issue(id)
	require.NoError(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	bad, err := noSubject.SignedString([]byte(secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      old,
		"wrong secret": other,
		"garbage":      "not-a-jwt",
		"no subject":   bad,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGuard_AdminAllowedForEveryAction(t *testing.T) {
	admin := uuid.New()
	store := &roleStore{roles: map[uuid.UUID]domain.Role{admin: domain.RoleAdmin}}
	guard, tokens := newGuard(t, store)

	token, err := tokens.Issue(admin)
	require.NoError(t, err)

	for action := range policy {
		caller, err := guard.Authorize(context.Background(), token, action)
		require.NoError(t, err, action)
		require.Equal(t, admin, caller.ID)
		require.True(t, caller.IsAdmin())
	}

	require.Equal(t, len(policy), store.calls)
}

func TestGuard_CustomerForbidden(t *testing.T) {
	customer := uuid.New()
	store := &roleStore{roles: map[uuid.UUID]domain.Role{customer: domain.RoleCustomer}}
	guard, tokens := newGuard(t, store)

	token, err := tokens.Issue(customer)
	require.NoError(t, err)

	caller, err := guard.Authorize(context.Background(), token, ActionDeleteOrder)
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Equal(t, domain.RoleCustomer, caller.Role)
}

func TestGuard_Unauthenticated(t *testing.T) {
	store := &roleStore{roles: map[uuid.UUID]domain.Role{}}
	guard, tokens := newGuard(t, store)

	unknown, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	for name, credential := range map[string]string{
		"missing":      "",
		"blank":        "   ",
		"invalid":      "abc.def.ghi",
		"unknown user": unknown,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := guard.Authorize(context.Background(), credential, ActionListOrders)
			require.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestGuard_RoleChangeTakesEffectImmediately(t *testing.T) {
	id := uuid.New()
	store := &roleStore{roles: map[uuid.UUID]domain.Role{id: domain.RoleAdmin}}
	guard, tokens := newGuard(t, store)

	token, err := tokens.Issue(id)
	require.NoError(t, err)

	_, err = guard.Authorize(context.Background(), token, ActionSetShopStatus)
	require.NoError(t, err)

	store.roles[id] = domain.RoleCustomer

	_, err = guard.Authorize(context.Background(), token, ActionSetShopStatus)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGuard_StorageErrorPassesThrough(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &roleStore{err: errors.Join(domain.ErrStorage, storeErr)}
	guard, tokens := newGuard(t, store)

	token, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	_, err = guard.Authorize(context.Background(), token, ActionListOrders)
	require.ErrorIs(t, err, domain.ErrStorage)
	require.NotErrorIs(t, err, domain.ErrUnauthenticated)
}
