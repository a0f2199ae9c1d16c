package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifyFiltersUnsubscribedEvents(t *testing.T) {
	s := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventArbDetected}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventScanFailed, "scan failed", "boom"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), EventArbDetected, "spread", "details"))
	assert.Equal(t, []string{"spread"}, s.titles)
}

func TestNotifyEmptySubscriptionAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventArchiveFailed, "archive failed", "s3 down"))
	assert.Len(t, s.titles, 1)
}

func TestDeliverContinuesPastFailedChannel(t *testing.T) {
	bad := &fakeSender{name: "telegram", err: errors.New("chat not found")}
	good := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "spread", "details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, []string{"spread"}, good.titles)
}

func TestDiscordSenderPostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "2 arbitrage opportunities (cs2)", "AK-47 | Redline: ..."))
	assert.Equal(t, "**2 arbitrage opportunities (cs2)**\nAK-47 | Redline: ...", got["content"])
}

func TestDiscordSenderSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatOpportunities(t *testing.T) {
	title, message := FormatOpportunities("cs2", []domain.ArbitrageOpportunity{
		{
			ItemName: "AK-47 | Redline",
			BuyFrom:  "dmarket", BuyPrice: 7.50,
			SellTo: "steam", SellPrice: 10.00,
			PriceDiffPercent: 33.3, ProfitPotential: domain.ProfitHigh,
		},
	})

	assert.Equal(t, "1 arbitrage opportunities (cs2)", title)
	assert.Equal(t, "AK-47 | Redline: buy dmarket @ $7.50, sell steam @ $10.00 (+33.3%, high)", message)
}
