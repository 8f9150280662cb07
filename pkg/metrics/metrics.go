package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
)

var (
	workerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restarter_worker_restarts_total",
		Help: "Number of managed process restarts, by worker and trigger.",
	}, []string{"worker", "reason"})

	outputLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restarter_worker_output_lines_total",
		Help: "Number of finalized output records per worker.",
	}, []string{"worker"})

	heartbeats = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restarter_worker_heartbeats_total",
		Help: "Number of output records matching the heartbeat pattern.",
	}, []string{"worker"})

	workersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "restarter_workers_running",
		Help: "Number of workers currently holding a live managed process.",
	})
)

// Restart trigger labels.
const (
	ReasonExit         = "exit"
	ReasonIdleTimeout  = "idle_timeout"
	ReasonReadError    = "read_error"
	ReasonSpawnFailure = "spawn_failure"
	ReasonShutdown     = "shutdown"
)

func WorkerRestarted(workerID int, reason string) {
	workerRestarts.WithLabelValues(strconv.Itoa(workerID), reason).Inc()
}

func OutputLine(workerID int) {
	outputLines.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

func HeartbeatSeen(workerID int) {
	heartbeats.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

func WorkerUp() {
	workersRunning.Inc()
}

func WorkerDown() {
	workersRunning.Dec()
}

// Handler exposes all promauto-registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts the metrics endpoint on addr in the background and returns
// the server for shutdown. Listen failures are logged, not fatal.
func Serve(addr string, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("Metrics endpoint listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()

	return server
}
