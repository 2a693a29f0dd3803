package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
)

// Collector owns the process metrics: API traffic, routine dispatches, and
// order-board gauges. It implements the scheduler's RunRecorder and the API
// client's Recorder.
type Collector struct {
	apiRequests    *prometheus.CounterVec
	apiLatency     *prometheus.HistogramVec
	routineRuns    *prometheus.CounterVec
	routineErrors  *prometheus.CounterVec
	ordersByStatus *prometheus.GaugeVec
	orderMutations *prometheus.CounterVec
}

// NewCollector creates and registers the collectors on the registry
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifacts",
			Name:      "api_requests_total",
			Help:      "Game API requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "artifacts",
			Name:      "api_request_duration_seconds",
			Help:      "Game API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		routineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifacts",
			Name:      "routine_runs_total",
			Help:      "Routine dispatches by character and routine.",
		}, []string{"char", "routine"}),
		routineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifacts",
			Name:      "routine_errors_total",
			Help:      "Routine failures by character and routine.",
		}, []string{"char", "routine"}),
		ordersByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "artifacts",
			Name:      "order_board_orders",
			Help:      "Orders on the board by status.",
		}, []string{"status"}),
		orderMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifacts",
			Name:      "order_board_mutations_total",
			Help:      "Order board mutations by event type.",
		}, []string{"type"}),
	}
	reg.MustRegister(c.apiRequests, c.apiLatency, c.routineRuns, c.routineErrors, c.ordersByStatus, c.orderMutations)
	return c
}

// RecordAPIRequest implements the API client's traffic observer
func (c *Collector) RecordAPIRequest(method, path string, status int, elapsed time.Duration) {
	c.apiRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.apiLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordRoutineRun implements the scheduler's RunRecorder
func (c *Collector) RecordRoutineRun(charName, routine string) {
	c.routineRuns.WithLabelValues(charName, routine).Inc()
}

// RecordRoutineError implements the scheduler's RunRecorder
func (c *Collector) RecordRoutineError(charName, routine string, err error) {
	c.routineErrors.WithLabelValues(charName, routine).Inc()
}

// ObserveBoard subscribes to a board and keeps the order gauges current
func (c *Collector) ObserveBoard(board *orderboard.Board) {
	board.Subscribe(func(ev orderboard.Event) {
		c.orderMutations.WithLabelValues(ev.Type).Inc()
		snap := board.GetSnapshot()
		counts := map[orders.Status]int{}
		for _, o := range snap.Orders {
			counts[o.Status]++
		}
		for _, status := range []orders.Status{orders.StatusOpen, orders.StatusClaimed, orders.StatusFulfilled} {
			c.ordersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
		}
	})
}
