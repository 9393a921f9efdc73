package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveGatewayRequestCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("list_friends", "ok"))
	ObserveGatewayRequest("list_friends", "ok", 10*time.Millisecond)
	ObserveGatewayRequest("list_friends", "ok", 20*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("list_friends", "ok")))
}

func TestSetConnectedToggles(t *testing.T) {
	SetConnected(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(wsConnected))
	SetConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(wsConnected))
}

func TestIncFrameDiscarded(t *testing.T) {
	before := testutil.ToFloat64(chatFramesDiscarded.WithLabelValues("other_peer"))
	IncFrameDiscarded("other_peer")
	assert.Equal(t, before+1, testutil.ToFloat64(chatFramesDiscarded.WithLabelValues("other_peer")))
}
