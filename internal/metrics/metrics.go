package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks processed"},
		[]string{"symbol"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Trades recorded in the ledger"},
		[]string{"symbol", "side"},
	)
	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_dropped_total", Help: "Ticks dropped because the dispatch queue was full"},
		[]string{"symbol"},
	)
	ProducerFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "producer_faults_total", Help: "Signal producer faults recovered during tick evaluation"},
		[]string{"producer"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TradesTotal, TicksDropped, ProducerFaults)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
