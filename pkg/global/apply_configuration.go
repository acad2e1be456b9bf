package global

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/buildbarn/bb-zone-writer/pkg/configuration"
	bb_http "github.com/buildbarn/bb-zone-writer/pkg/http"
	bb_prometheus "github.com/buildbarn/bb-zone-writer/pkg/prometheus"
	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"google.golang.org/grpc/codes"
)

const (
	stateNotServing int32 = iota
	stateServing
)

// TransferIDLabel is the grouping label under which metrics are pushed
// to a Prometheus Pushgateway. Its value is unique for every run, so
// that pushes of concurrent transfers don't overwrite each other.
const TransferIDLabel = "transfer_id"

// DiagnosticsServer is returned by ApplyConfiguration. It exposes
// Prometheus metrics and health check endpoints while a transfer is in
// progress, and pushes metrics once the transfer is completed.
type DiagnosticsServer struct {
	transferID    uuid.UUID
	listenAddress string
	pusher        *push.Pusher
	state         atomic.Int32
}

// TransferID returns the identifier of the current transfer, under
// which metrics are pushed.
func (ds *DiagnosticsServer) TransferID() uuid.UUID {
	return ds.transferID
}

// NewRouter creates the HTTP router of the diagnostics web server.
func (ds *DiagnosticsServer) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/-/healthy", func(http.ResponseWriter, *http.Request) {})
	router.HandleFunc("/-/ready", func(w http.ResponseWriter, _ *http.Request) {
		if ds.state.Load() == stateServing {
			w.WriteHeader(http.StatusOK)
		} else {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
	router.Handle("/metrics", promhttp.Handler())
	return router
}

// Serve the diagnostics web server until the context is canceled. If
// no listen address is configured, this function only waits for the
// context to be canceled.
func (ds *DiagnosticsServer) Serve(ctx context.Context) error {
	if ds.listenAddress == "" {
		<-ctx.Done()
		return nil
	}

	server := &http.Server{
		Addr:              ds.listenAddress,
		Handler:           ds.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ds.SetNotServing()
		server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return util.StatusWrap(err, "Diagnostics server")
	}
	return nil
}

// SetReady updates the health probe to report healthy and ready.
func (ds *DiagnosticsServer) SetReady() {
	ds.state.Store(stateServing)
}

// SetNotServing updates the health probe to report healthy but not ready.
func (ds *DiagnosticsServer) SetNotServing() {
	ds.state.Store(stateNotServing)
}

// PushMetrics pushes all metrics to the Prometheus Pushgateway, if
// one is configured.
func (ds *DiagnosticsServer) PushMetrics() error {
	if ds.pusher == nil {
		return nil
	}
	if err := ds.pusher.Push(); err != nil {
		return util.StatusWrap(err, "Failed to push metrics to Prometheus Pushgateway")
	}
	return nil
}

// ApplyConfiguration applies configuration options to the running
// process. Log messages are written to standard error and any
// configured log files.
func ApplyConfiguration(configuration *configuration.GlobalConfiguration, uuidGenerator util.UUIDGenerator) (*DiagnosticsServer, error) {
	// Logging.
	logPaths := configuration.LogPaths
	logWriters := append(make([]io.Writer, 0, len(logPaths)+1), os.Stderr)
	for _, logPath := range logPaths {
		w, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, util.StatusWrapf(err, "Failed to open log path %#v", logPath)
		}
		logWriters = append(logWriters, w)
	}
	log.SetOutput(io.MultiWriter(logWriters...))

	transferID, err := uuidGenerator()
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to generate transfer ID")
	}
	ds := &DiagnosticsServer{
		transferID:    transferID,
		listenAddress: configuration.DiagnosticsHTTPListenAddress,
	}

	// Push metrics to a Prometheus Pushgateway upon completion, as
	// the process may terminate before a Prometheus server gets the
	// chance to scrape them.
	if pushgateway := configuration.PrometheusPushgateway; pushgateway != nil {
		var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
		if pattern := pushgateway.MetricNamePattern; pattern != "" {
			namePattern, err := regexp.Compile(pattern)
			if err != nil {
				return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid metric name pattern")
			}
			gatherer = bb_prometheus.NewNameFilteringGatherer(gatherer, namePattern)
		}
		pusher := push.New(pushgateway.URL, pushgateway.Job)
		pusher.Gatherer(gatherer)
		for key, value := range pushgateway.Grouping {
			pusher.Grouping(key, value)
		}
		pusher.Grouping(TransferIDLabel, transferID.String())
		pusher.Client(&http.Client{
			Transport: bb_http.NewMetricsRoundTripper(http.DefaultTransport, "Pushgateway"),
		})
		ds.pusher = pusher
	}
	return ds, nil
}
