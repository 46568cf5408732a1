package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/locations", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/locations", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordTokenValidation(t *testing.T) {
	TokenValidationsTotal.Reset()

	RecordTokenValidation("ok")
	RecordTokenValidation("ok")
	RecordTokenValidation("expired")

	okCount := testutil.ToFloat64(TokenValidationsTotal.WithLabelValues("ok"))
	expiredCount := testutil.ToFloat64(TokenValidationsTotal.WithLabelValues("expired"))

	assert.Equal(t, float64(2), okCount)
	assert.Equal(t, float64(1), expiredCount)
}

func TestRecordCheckin(t *testing.T) {
	CheckinsTotal.Reset()

	RecordCheckin("qr")
	RecordCheckin("manual")
	RecordCheckin("qr")

	assert.Equal(t, float64(2), testutil.ToFloat64(CheckinsTotal.WithLabelValues("qr")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CheckinsTotal.WithLabelValues("manual")))
}

func TestRecordSubscription(t *testing.T) {
	SubscriptionsCreatedTotal.Reset()

	RecordSubscription("home_basic")
	RecordSubscription("home_basic")

	count := testutil.ToFloat64(SubscriptionsCreatedTotal.WithLabelValues("home_basic"))
	assert.Equal(t, float64(2), count)
}
