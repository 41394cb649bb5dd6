package tickets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/signals"
)

// memStore — хранилище покупок в памяти для тестов.
type memStore struct {
	spendable map[int64]int64
	purchases []*Purchase
	nextID    int64
	failWith  error // имитация отказа хранилища
}

func newMemStore() *memStore {
	return &memStore{spendable: make(map[int64]int64)}
}

func (s *memStore) Purchase(ctx context.Context, userID int64, ticketType TicketType, price int64) (*Purchase, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	balance, ok := s.spendable[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	if balance < price {
		return nil, common.ErrInsufficientBalance
	}
	s.spendable[userID] = balance - price
	s.nextID++
	p := &Purchase{ID: s.nextID, UserID: userID, Type: ticketType, Price: price, CreatedAt: time.Now()}
	s.purchases = append(s.purchases, p)
	return p, nil
}

func (s *memStore) History(ctx context.Context, userID int64, limit int) ([]*Purchase, error) {
	var list []*Purchase
	for i := len(s.purchases) - 1; i >= 0 && len(list) < limit; i-- {
		if s.purchases[i].UserID == userID {
			list = append(list, s.purchases[i])
		}
	}
	return list, nil
}

func TestPriceFor(t *testing.T) {
	tests := []struct {
		ticketType TicketType
		want       int64
	}{
		{TicketStandard, 10},
		{TicketStudent, 7},
		{TicketMonthly, 50},
	}
	for _, tt := range tests {
		price, err := PriceFor(tt.ticketType)
		require.NoError(t, err)
		require.Equal(t, tt.want, price)
	}

	_, err := PriceFor(TicketType("vip"))
	require.ErrorIs(t, err, common.ErrUnknownTicketType)
}

func TestParseTicketType(t *testing.T) {
	for raw, want := range map[string]TicketType{
		"standard":      TicketStandard,
		"обычный":       TicketStandard,
		"student":       TicketStudent,
		"студенческий":  TicketStudent,
		"monthly":       TicketMonthly,
		"МЕСЯЧНЫЙ":      TicketMonthly,
		" студенческий": TicketStudent,
	} {
		got, err := ParseTicketType(raw)
		require.NoError(t, err, "raw=%q", raw)
		require.Equal(t, want, got, "raw=%q", raw)
	}

	_, err := ParseTicketType("золотой")
	require.ErrorIs(t, err, common.ErrUnknownTicketType)
}

func TestPurchaseDebitsSpendable(t *testing.T) {
	store := newMemStore()
	store.spendable[1] = 20
	svc := NewService(store, signals.New())
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, "студенческий")
	require.NoError(t, err)
	require.Equal(t, TicketStudent, p.Type)
	require.Equal(t, int64(7), p.Price)
	require.Equal(t, int64(13), store.spendable[1])

	// Повторная покупка при нехватке кредитов — ошибка, баланс не меняется
	store.spendable[1] = 5
	_, err = svc.Purchase(ctx, 1, "обычный")
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	require.Equal(t, int64(5), store.spendable[1])
}

// Ошибки хранилища различимы: незнакомый пользователь даёт ErrUserNotFound,
// а отказ хранилища доходит до вызывающего как есть, не подменяясь им.
func TestPurchaseErrorsAreDistinct(t *testing.T) {
	ctx := context.Background()

	t.Run("незнакомый пользователь", func(t *testing.T) {
		svc := NewService(newMemStore(), signals.New())
		_, err := svc.Purchase(ctx, 99, "обычный")
		require.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("отказ хранилища", func(t *testing.T) {
		store := newMemStore()
		store.failWith = errors.New("соединение разорвано")
		svc := NewService(store, signals.New())

		_, err := svc.Purchase(ctx, 1, "обычный")
		require.Error(t, err)
		require.NotErrorIs(t, err, common.ErrUserNotFound)
		require.ErrorIs(t, err, store.failWith)
	})
}

func TestPurchaseUnknownType(t *testing.T) {
	store := newMemStore()
	store.spendable[1] = 100
	svc := NewService(store, signals.New())

	_, err := svc.Purchase(context.Background(), 1, "бесплатный")
	require.ErrorIs(t, err, common.ErrUnknownTicketType)
	require.Equal(t, int64(100), store.spendable[1])
	require.Empty(t, store.purchases)
}
