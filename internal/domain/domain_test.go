package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func TestOrder_EffectiveTotal(t *testing.T) {
	items := []OrderItem{
		{Quantity: 2, UnitPrice: decimal.NewFromInt(10), TotalPrice: price("20")},
		{Quantity: 1, UnitPrice: decimal.NewFromInt(5), TotalPrice: price("5")},
	}

	tests := []struct {
		name   string
		stored decimal.NullDecimal
		items  []OrderItem
		want   string
	}{
		{name: "null total is recomputed", stored: decimal.NullDecimal{}, items: items, want: "25"},
		{name: "zero total is recomputed", stored: price("0"), items: items, want: "25"},
		{name: "stored total wins", stored: price("30.50"), items: items, want: "30.5"},
		{name: "no items", stored: decimal.NullDecimal{}, items: nil, want: "0"},
		{
			name:   "missing line total counts as zero",
			stored: decimal.NullDecimal{},
			items:  []OrderItem{{Quantity: 3, UnitPrice: decimal.NewFromInt(4)}, items[1]},
			want:   "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{TotalAmount: tt.stored, Items: tt.items}
			require.True(t, decimal.RequireFromString(tt.want).Equal(o.EffectiveTotal()), "got %s", o.EffectiveTotal())
		})
	}
}

func TestOrder_IsGroupOrder(t *testing.T) {
	id := int64(3)

	require.False(t, (&Order{}).IsGroupOrder())
	require.True(t, (&Order{GeneralOrderID: &id}).IsGroupOrder())
}

func TestGeneralOrder_IsOpenAt(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	require.True(t, GeneralOrder{Status: GeneralOrderOpen, Deadline: now.Add(time.Second)}.IsOpenAt(now))
	require.True(t, GeneralOrder{Status: GeneralOrderOpen, Deadline: now}.IsOpenAt(now))
	require.False(t, GeneralOrder{Status: GeneralOrderOpen, Deadline: now.Add(-time.Second)}.IsOpenAt(now))
	require.False(t, GeneralOrder{Status: GeneralOrderClosed, Deadline: now.Add(time.Hour)}.IsOpenAt(now))
}

func TestUser_Recipient(t *testing.T) {
	phone := "+972500000000"
	empty := ""

	u := User{ID: uuid.New(), FullName: "Dana", Email: "dana@example.com", Role: RoleAdmin}
	require.Equal(t, PhoneNotProvided, u.Recipient().Phone)

	u.Phone = &empty
	require.Equal(t, PhoneNotProvided, u.Recipient().Phone)

	u.Phone = &phone
	r := u.Recipient()
	require.Equal(t, phone, r.Phone)
	require.Equal(t, "Dana", r.Name)
	require.Equal(t, RoleAdmin, r.Role)
}

func TestUserEvent_UnknownRoleFallsBackToCustomer(t *testing.T) {
	u := UserEvent{UserID: uuid.New(), Role: "superuser"}.User()
	require.Equal(t, RoleCustomer, u.Role)
}

func TestPartialFailureError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&PartialFailureError{Op: "delete order", OrderID: 9, Err: cause})

	require.ErrorIs(t, err, ErrPartialFailure)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrStorage)

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	require.Equal(t, int64(9), pf.OrderID)
}

func TestKind(t *testing.T) {
	require.Equal(t, "", Kind(nil))
	require.Equal(t, "NOT_FOUND", Kind(fmt.Errorf("order %w", ErrNotFound)))
	require.Equal(t, "PARTIAL_FAILURE", Kind(&PartialFailureError{Err: fmt.Errorf("%w: boom", ErrStorage)}))
	require.Equal(t, "INTERNAL", Kind(errors.New("boom")))

	wrapped := AsStorage("commit", errors.New("conn closed"))
	require.ErrorIs(t, wrapped, ErrStorage)

	forbidden := fmt.Errorf("%w: admin only", ErrForbidden)
	require.Same(t, forbidden, AsStorage("op", forbidden))
}
