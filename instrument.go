package tieba

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_ws_frames_sent_total",
			Help: "Number of websocket frames sent",
		},
		[]string{"cmd"},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tieba_ws_frames_received_total",
			Help: "Number of websocket frames received",
		},
	)
	framesUnmatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tieba_ws_frames_unmatched_total",
			Help: "Number of received frames with no waiting request",
		},
	)
	framesBad = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tieba_ws_frames_undecodable_total",
			Help: "Number of received frames that failed to decode",
		},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_ws_handshakes_total",
			Help: "Number of websocket key exchanges by outcome",
		},
		[]string{"result"},
	)
	requestTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tieba_ws_request_timeouts_total",
			Help: "Number of websocket requests that timed out",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_http_requests_total",
			Help: "Number of HTTP requests by client flavor and status code",
		},
		[]string{"client", "code"},
	)
)

// RegisterMetrics registers the client's collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		framesSent,
		framesReceived,
		framesUnmatched,
		framesBad,
		handshakes,
		requestTimeouts,
		httpRequests,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func observeHTTP(client string, code int) {
	httpRequests.WithLabelValues(client, strconv.Itoa(code)).Inc()
}

func observeHandshake(err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsTimeout(err):
		result = "timeout"
	default:
		if _, ok := errors.Cause(err).(*HandshakeError); ok {
			result = "rejected"
		} else {
			result = "error"
		}
	}
	handshakes.WithLabelValues(result).Inc()
}
