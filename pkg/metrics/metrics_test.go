package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Delivery.AttemptsTotal.WithLabelValues("delivered").Inc()
	m.Delivery.DeadLettersTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivery.AttemptsTotal.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivery.DeadLettersTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "webhooks_delivery_attempts_total")
	assert.Contains(t, names, "webhooks_delivery_dead_letters_total")
}

func TestNew_TwoRegistriesDoNotClash(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
