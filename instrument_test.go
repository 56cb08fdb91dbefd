package tieba

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_RegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NoError(t, RegisterMetrics(reg))
	assert.Error(t, RegisterMetrics(reg))
}

func Test_observeHandshake_Result(t *testing.T) {
	count := func(result string) float64 {
		return testutil.ToFloat64(handshakes.WithLabelValues(result))
	}
	for _, tc := range []struct {
		err    error
		result string
	}{
		{nil, "ok"},
		{errors.Wrap(timeoutError{}, "handshake"), "timeout"},
		{&HandshakeError{Code: 110003, Message: "bad bduss"}, "rejected"},
		{ErrNotConnected, "error"},
	} {
		before := count(tc.result)
		observeHandshake(tc.err)
		assert.Equal(t, before+1, count(tc.result), tc.result)
	}
}
