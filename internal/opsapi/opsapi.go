// Package opsapi exposes the broker's own ops-facing HTTP surface:
// liveness/readiness at /healthz and Prometheus exposition at /metrics.
// The control-plane REST API the original source exposes (add_node,
// add_group, ...) is out of scope; this surface only carries the ambient
// observability every deployment of this stack gets regardless.
package opsapi

import (
	"encoding/json"
	"net/http"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neuron-io/broker/internal/manager"
)

// Api bundles the dependencies the ops handlers read from; it never
// mutates broker state, only reports it.
type Api struct {
	Manager   *manager.Manager
	Collector prometheus.Collector
	started   time.Time
}

// New constructs an Api. started is recorded at construction time so
// /healthz can report process uptime independent of the sysgauge
// uptime_seconds sample (which reports host uptime, not process uptime).
func New(mgr *manager.Manager, collector prometheus.Collector) *Api {
	return &Api{Manager: mgr, Collector: collector, started: time.Now()}
}

// MountRoutes registers the ops surface on r. Callers typically mount r
// itself under a reverse proxy or a dedicated ops listener, separate
// from any control-plane traffic.
func (a *Api) MountRoutes(r *mux.Router) {
	reg := prometheus.NewRegistry()
	if a.Collector != nil {
		reg.MustRegister(a.Collector)
	}
	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

type healthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_seconds"`
	NodeCount int    `json:"node_count"`
}

// healthz reports liveness unconditionally (the handler answering at all
// means the process is up) and the current node count as a cheap signal
// that the manager is reachable and not deadlocked.
func (a *Api) healthz(rw http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(a.started).Seconds()),
	}
	if a.Manager != nil {
		resp.NodeCount = a.Manager.NodeCount()
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		cclog.Warnf("[OPSAPI]> healthz encode failed: %v", err)
	}
}
