package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestRecordSample(t *testing.T) {
	before := value(t, SamplesTotal.WithLabelValues("7", "updated"))
	RecordSample("7", "updated")
	RecordSample("7", "updated")
	assert.Equal(t, before+2, value(t, SamplesTotal.WithLabelValues("7", "updated")))
}

func TestRecordCoverage(t *testing.T) {
	RecordCoverage("1", "8h", 23)
	assert.Equal(t, float64(23), value(t, WindowCoverage.WithLabelValues("1", "8h")))
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRead("0", "1h", "ok")
		RecordUpdate(time.Millisecond)
		RecordPollError("fetch")
		RecordHTTPRequest("/health", "200", time.Millisecond)
	})
}
