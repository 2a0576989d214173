package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(txResults.WithLabelValues("lottery/buy_ticket", "lottery", "6"))
	RecordTx("lottery/buy_ticket", "lottery", 6)
	require.Equal(t, before+1, testutil.ToFloat64(txResults.WithLabelValues("lottery/buy_ticket", "lottery", "6")))

	RecordTx("", "", 0)
	require.GreaterOrEqual(t, testutil.ToFloat64(txResults.WithLabelValues("unknown", "", "0")), float64(1))

	tickets := testutil.ToFloat64(ticketsSold)
	RecordTicket()
	RecordTicket()
	require.Equal(t, tickets+2, testutil.ToFloat64(ticketsSold))

	empty := testutil.ToFloat64(roundsEnded.WithLabelValues("empty"))
	RecordRoundEnded(true)
	require.Equal(t, empty+1, testutil.ToFloat64(roundsEnded.WithLabelValues("empty")))

	paid := testutil.ToFloat64(paidOut)
	RecordPayout(59_400_000)
	require.Equal(t, paid+59_400_000, testutil.ToFloat64(paidOut))

	ObserveBlock(17, time.Millisecond)
	require.Equal(t, float64(17), testutil.ToFloat64(height))

	SetPools(map[string]int{"ongoing": 2, "inactive": 1})
	require.Equal(t, float64(2), testutil.ToFloat64(pools.WithLabelValues("ongoing")))
	SetPools(map[string]int{"inactive": 3})
	require.Equal(t, 1, testutil.CollectAndCount(pools))
}

func TestHandlerExposesLotteryMetrics(t *testing.T) {
	RecordTicket()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "lottod_lottery_tickets_sold_total"))
}
