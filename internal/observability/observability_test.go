package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracing_DisabledReturnsNoopProvider(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, ShutdownTracing(context.Background(), tp))
}

func TestInitMetrics_DisabledReturnsNoopProvider(t *testing.T) {
	mp, registry, err := InitMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, mp)
	require.Nil(t, registry)
}

func TestInitMetrics_EnabledBuildsPrometheusBackedProvider(t *testing.T) {
	mp, registry, err := InitMetrics(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, mp)
	require.NotNil(t, registry)
}

func TestRecorder_RecordsWithoutPanicking(t *testing.T) {
	mp, _, err := InitMetrics(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	r := NewRecorder(mp.Meter("test"))

	require.NotPanics(t, func() {
		r.RecordJobResult("garak", "jailbreak", "success")
		r.RecordJobLatency("garak", "jailbreak", 12.5)
		r.RecordQueueDepth(3)
		r.RecordDriftChannelDuration("output", 4.2)
		r.RecordEmbeddingBatchSize(32)
	})
}
