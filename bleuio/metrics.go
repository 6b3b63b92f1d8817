package bleuio

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	linesReceivedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibouair_exporter_bleuio_lines_received_total",
	})
	commandsWrittenCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibouair_exporter_bleuio_commands_written_total",
	})
	writeFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibouair_exporter_bleuio_write_failures_total",
	})
	readTimeoutsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibouair_exporter_bleuio_read_timeouts_total",
	})
	protocolErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hibouair_exporter_bleuio_protocol_errors_total",
		Help: "Acknowledgements with a non-zero error code, by code name.",
	}, []string{"code"})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		linesReceivedCounter,
		commandsWrittenCounter,
		writeFailuresCounter,
		readTimeoutsCounter,
		protocolErrorsCounter,
	)
}

// CountTimeout records a period of silence on the line.
func CountTimeout() {
	readTimeoutsCounter.Inc()
}

// CountProtocolError records an acknowledgement carrying a non-zero code.
func CountProtocolError(code ErrorCode) {
	protocolErrorsCounter.WithLabelValues(code.String()).Inc()
}
