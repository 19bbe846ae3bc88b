package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stocks-simulator/database"
	"stocks-simulator/database/dbtest"
	"stocks-simulator/ledger"
	"stocks-simulator/models"
	"stocks-simulator/quote"
)

type fixture struct {
	ledger *ledger.Ledger
	store  *database.Store
	quotes *quote.Static
	userID uint
}

func newFixture(t *testing.T, cash string) *fixture {
	t.Helper()

	store := database.New(dbtest.New(t))
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), "alice", string(hash), decimal.RequireFromString(cash))
	require.NoError(t, err)

	quotes := quote.NewStatic(nil)
	return &fixture{
		ledger: ledger.New(store, quotes),
		store:  store,
		quotes: quotes,
		userID: user.ID,
	}
}

func (f *fixture) setPrice(symbol, price string) {
	f.quotes.Set(symbol, decimal.RequireFromString(price))
}

func (f *fixture) portfolio(t *testing.T) *ledger.Portfolio {
	t.Helper()
	p, err := f.ledger.ComputeNetWorth(context.Background(), f.userID)
	require.NoError(t, err)
	return p
}

func (f *fixture) history(t *testing.T) []models.Transaction {
	t.Helper()
	h, err := f.ledger.ListHistory(context.Background(), f.userID)
	require.NoError(t, err)
	return h
}

// snapshot captures everything a failed trade must leave untouched.
type snapshot struct {
	cash     string
	holdings []string
	history  int
}

func (f *fixture) snapshot(t *testing.T) snapshot {
	p := f.portfolio(t)
	s := snapshot{cash: p.Cash.StringFixed(2), history: len(f.history(t))}
	for _, h := range p.Holdings {
		s.holdings = append(s.holdings, fmt.Sprintf("%s:%d@%s", h.Symbol, h.Shares, h.Price.StringFixed(2)))
	}
	return s
}

func TestLedger_Scenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "10000")

	// A: first buy opens a holding.
	f.setPrice("ACME", "50.00")
	r, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "acme", Shares: 10})
	require.NoError(t, err)
	assert.Equal(t, "9500.00", r.Cash.StringFixed(2))
	assert.Equal(t, int64(10), r.Shares)
	assert.Equal(t, models.KindBuy, r.Transaction.Kind)
	assert.Equal(t, "ACME", r.Transaction.Symbol)

	p := f.portfolio(t)
	assert.Equal(t, "9500.00", p.Cash.StringFixed(2))
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, int64(10), p.Holdings[0].Shares)
	assert.Equal(t, "50.00", p.Holdings[0].Price.StringFixed(2))
	require.Len(t, f.history(t), 1)

	// B: a second buy adds shares and overwrites the stored price.
	f.setPrice("ACME", "55.00")
	r, err = f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 5})
	require.NoError(t, err)
	assert.Equal(t, "9225.00", r.Cash.StringFixed(2))
	assert.Equal(t, int64(15), r.Shares)

	p = f.portfolio(t)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, int64(15), p.Holdings[0].Shares)
	assert.Equal(t, "55.00", p.Holdings[0].Price.StringFixed(2))
	assert.Equal(t, "825.00", p.HoldingsValue.StringFixed(2))
	assert.Equal(t, "10050.00", p.NetWorth.StringFixed(2))

	// C: overselling fails and changes nothing.
	before := f.snapshot(t)
	_, err = f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 20})
	assert.ErrorIs(t, err, ledger.ErrInsufficientShares)
	assert.Equal(t, before, f.snapshot(t))

	// D: selling everything deletes the holding.
	f.setPrice("ACME", "60.00")
	r, err = f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 15})
	require.NoError(t, err)
	assert.Equal(t, "10125.00", r.Cash.StringFixed(2))
	assert.Equal(t, int64(0), r.Shares)

	p = f.portfolio(t)
	assert.Empty(t, p.Holdings)
	assert.Equal(t, "10125.00", p.NetWorth.StringFixed(2))

	history := f.history(t)
	require.Len(t, history, 3)
	assert.Equal(t, models.KindSell, history[0].Kind)
	assert.Equal(t, int64(15), history[0].Shares)
	assert.Equal(t, "60.00", history[0].Price.StringFixed(2))

	// E: no quote, no trade.
	f.quotes.Remove("ACME")
	before = f.snapshot(t)
	_, err = f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 1})
	assert.ErrorIs(t, err, ledger.ErrQuoteUnavailable)
	assert.Equal(t, before, f.snapshot(t))
}

func TestLedger_FailuresLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "1000")
	f.setPrice("ACME", "100")
	_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 3})
	require.NoError(t, err)

	tests := []struct {
		name    string
		trade   func() error
		wantErr error
	}{
		{
			name: "buy beyond cash",
			trade: func() error {
				_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 8})
				return err
			},
			wantErr: ledger.ErrInsufficientFunds,
		},
		{
			name: "buy zero shares",
			trade: func() error {
				_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 0})
				return err
			},
			wantErr: ledger.ErrValidation,
		},
		{
			name: "buy malformed symbol",
			trade: func() error {
				_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "AC ME", Shares: 1})
				return err
			},
			wantErr: ledger.ErrValidation,
		},
		{
			name: "sell symbol not held",
			trade: func() error {
				_, err := f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "MSFT", Shares: 1})
				return err
			},
			wantErr: ledger.ErrNoSuchHolding,
		},
		{
			name: "sell negative shares",
			trade: func() error {
				_, err := f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: -1})
				return err
			},
			wantErr: ledger.ErrValidation,
		},
		{
			name: "sell without quote",
			trade: func() error {
				f.quotes.Remove("ACME")
				defer f.setPrice("ACME", "100")
				_, err := f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 1})
				return err
			},
			wantErr: ledger.ErrQuoteUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.snapshot(t)
			err := tt.trade()
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.snapshot(t))
		})
	}
}

func TestLedger_BuyExactlyAllCash(t *testing.T) {
	f := newFixture(t, "100.50")
	f.setPrice("ACME", "33.50")

	r, err := f.ledger.Buy(context.Background(), f.userID, ledger.Order{Symbol: "ACME", Shares: 3})
	require.NoError(t, err)
	assert.True(t, r.Cash.IsZero())
}

func TestLedger_ConservationAndAudit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "5000")
	f.setPrice("ACME", "12.34")
	f.setPrice("INIT", "99.99")

	trades := []struct {
		sell   bool
		symbol string
		shares int64
		price  string
	}{
		{false, "ACME", 40, "12.34"},
		{false, "INIT", 7, "99.99"},
		{true, "ACME", 15, "13.10"},
		{false, "ACME", 2, "11.00"},
		{true, "INIT", 7, "101.01"},
		{true, "ACME", 5, "10.05"},
	}
	for _, tr := range trades {
		f.setPrice(tr.symbol, tr.price)
		order := ledger.Order{Symbol: tr.symbol, Shares: tr.shares}
		var err error
		if tr.sell {
			_, err = f.ledger.Sell(ctx, f.userID, order)
		} else {
			_, err = f.ledger.Buy(ctx, f.userID, order)
		}
		require.NoError(t, err)
	}

	history := f.history(t)
	require.Len(t, history, len(trades))

	cash := decimal.RequireFromString("5000")
	shares := map[string]int64{}
	for i := len(history) - 1; i >= 0; i-- {
		tr := history[i]
		switch tr.Kind {
		case models.KindBuy:
			cash = cash.Sub(tr.Amount())
			shares[tr.Symbol] += tr.Shares
		case models.KindSell:
			cash = cash.Add(tr.Amount())
			shares[tr.Symbol] -= tr.Shares
		}
	}

	p := f.portfolio(t)
	assert.Equal(t, cash.StringFixed(2), p.Cash.StringFixed(2))
	assert.False(t, p.Cash.IsNegative())

	held := map[string]int64{}
	for _, h := range p.Holdings {
		assert.Positive(t, h.Shares)
		held[h.Symbol] = h.Shares
	}
	for symbol, n := range shares {
		if n == 0 {
			assert.NotContains(t, held, symbol)
			continue
		}
		assert.Equal(t, n, held[symbol], symbol)
	}
}

func TestLedger_ConcurrentSellsNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "1000")
	f.setPrice("ACME", "10")
	_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 10})
	require.NoError(t, err)

	const sellers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Sell(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrNoSuchHolding) && !errors.Is(err, ledger.ErrInsufficientShares) {
				t.Errorf("unexpected sell error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	p := f.portfolio(t)
	assert.Empty(t, p.Holdings)
	assert.Equal(t, "1000.00", p.Cash.StringFixed(2))
	assert.Len(t, f.history(t), 11)
}

func TestLedger_ConcurrentBuysRespectCash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	f.setPrice("ACME", "30")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 1})
			if err != nil && !errors.Is(err, ledger.ErrInsufficientFunds) {
				t.Errorf("unexpected buy error: %v", err)
			}
		}()
	}
	wg.Wait()

	p := f.portfolio(t)
	assert.Equal(t, "10.00", p.Cash.StringFixed(2))
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, int64(3), p.Holdings[0].Shares)
	assert.Len(t, f.history(t), 3)
}

func TestLedger_UnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	f.setPrice("ACME", "1")

	_, err := f.ledger.Buy(ctx, f.userID+100, ledger.Order{Symbol: "ACME", Shares: 1})
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)

	_, err = f.ledger.ComputeNetWorth(ctx, f.userID+100)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)

	_, err = f.ledger.ListHistory(ctx, f.userID+100)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestLedger_EmptyAccount(t *testing.T) {
	f := newFixture(t, "10000")

	p := f.portfolio(t)
	assert.NotNil(t, p.Holdings)
	assert.Empty(t, p.Holdings)
	assert.Equal(t, "10000.00", p.NetWorth.StringFixed(2))

	history := f.history(t)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	points, err := f.ledger.Chart(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestLedger_Chart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "10000")
	f.setPrice("ACME", "10")
	f.setPrice("INIT", "25.50")

	_, err := f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "ACME", Shares: 4})
	require.NoError(t, err)
	_, err = f.ledger.Buy(ctx, f.userID, ledger.Order{Symbol: "INIT", Shares: 2})
	require.NoError(t, err)

	points, err := f.ledger.Chart(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "ACME", points[0].Symbol)
	assert.Equal(t, "40.00", points[0].Total.StringFixed(2))
	assert.Equal(t, "INIT", points[1].Symbol)
	assert.Equal(t, "51.00", points[1].Value.StringFixed(2))
	assert.Equal(t, "91.00", points[1].Total.StringFixed(2))
}
