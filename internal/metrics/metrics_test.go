package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { Register(reg) })

	// Collectors can back more than one registry
	require.NotPanics(t, func() { Register(prometheus.NewRegistry()) })

	// But not twice on the same one
	assert.Panics(t, func() { Register(reg) })
}

func TestObserveRefresh(t *testing.T) {
	success := testutil.ToFloat64(RefreshTotal.WithLabelValues("test-view", OutcomeSuccess))
	failure := testutil.ToFloat64(RefreshTotal.WithLabelValues("test-view", OutcomeFailure))

	ObserveRefresh("test-view", 0.2, nil)
	ObserveRefresh("test-view", 0.4, errors.New("boom"))
	ObserveRefresh("test-view", 0.1, errors.New("boom"))

	assert.Equal(t, success+1, testutil.ToFloat64(RefreshTotal.WithLabelValues("test-view", OutcomeSuccess)))
	assert.Equal(t, failure+2, testutil.ToFloat64(RefreshTotal.WithLabelValues("test-view", OutcomeFailure)))
}
