// Package speedtest orchestrates a full network-quality measurement:
// provision the benchmark tool, rank the server catalog by latency, then
// walk the best candidates until one passes validation and a complete
// throughput benchmark. The first success wins; per-candidate failures are
// swallowed and the next candidate is tried.
package speedtest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nedomru/URMconfig/pkg/models"
)

// state names the orchestration phases, for log correlation.
type state string

const (
	stateProvisioning state = "provisioning"
	stateRanking      state = "ranking"
	stateValidating   state = "validating"
	stateBenchmarking state = "benchmarking"
	stateDone         state = "done"
)

// Prober ranks a catalog by latency.
type Prober interface {
	Rank(ctx context.Context, endpoints []models.Endpoint) []models.RankedEndpoint
}

// Benchmarker validates and measures a single endpoint.
type Benchmarker interface {
	Validate(ctx context.Context, host string) bool
	Measure(ctx context.Context, ep models.Endpoint, duration time.Duration) (download, upload float64, note string, err error)
}

// Provisioner manages the external benchmark executable.
type Provisioner interface {
	EnsureReady(ctx context.Context) (string, error)
	Teardown()
}

// Options configures a Service.
type Options struct {
	// MaxCandidates caps how many ranked servers are attempted, bounding
	// the worst-case total wall-clock of a run.
	MaxCandidates int
}

func (o Options) withDefaults() Options {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 5
	}
	return o
}

// Service runs measurements. Benchmarker construction is deferred until the
// executable path is known, so it is injected as a factory.
type Service struct {
	endpoints   []models.Endpoint
	prober      Prober
	provisioner Provisioner
	newBench    func(exePath string) Benchmarker
	logger      *slog.Logger
	opts        Options
}

func New(endpoints []models.Endpoint, prober Prober, provisioner Provisioner, newBench func(exePath string) Benchmarker, logger *slog.Logger, opts Options) *Service {
	return &Service{
		endpoints:   endpoints,
		prober:      prober,
		provisioner: provisioner,
		newBench:    newBench,
		logger:      logger,
		opts:        opts.withDefaults(),
	}
}

// Run executes one full measurement with benchmark passes of the given
// duration. It returns exactly one outcome or one *models.Failure; the tool
// installation is torn down on every path out of the run.
func (s *Service) Run(ctx context.Context, duration time.Duration) (*models.Outcome, error) {
	logger := s.logger.With("runID", uuid.NewString())
	defer s.provisioner.Teardown()

	logger.Debug("entering state", "state", stateProvisioning)
	exe, err := s.provisioner.EnsureReady(ctx)
	if err != nil {
		logger.Error("iperf3 provisioning failed", "error", err)
		return nil, &models.Failure{Reason: models.FailureToolUnavailable, Detail: err.Error()}
	}

	logger.Debug("entering state", "state", stateRanking)
	logger.Info("ranking measurement servers by latency", "servers", len(s.endpoints))
	ranked := s.prober.Rank(ctx, s.endpoints)
	if len(ranked) == 0 {
		logger.Error("no measurement server answered the latency probe")
		return nil, &models.Failure{Reason: models.FailureNoReachableEndpoint, Detail: "no server answered the latency probe"}
	}
	if len(ranked) > s.opts.MaxCandidates {
		ranked = ranked[:s.opts.MaxCandidates]
	}

	bench := s.newBench(exe)
	var lastDetail string
	for _, cand := range ranked {
		logger.Info("trying server",
			"server", cand.Endpoint.Name,
			"host", cand.Endpoint.Host,
			"latencyMS", cand.LatencyMS)

		logger.Debug("entering state", "state", stateValidating, "host", cand.Endpoint.Host)
		if !bench.Validate(ctx, cand.Endpoint.Host) {
			logger.Info("server rejected the validation run", "server", cand.Endpoint.Name)
			continue
		}

		logger.Debug("entering state", "state", stateBenchmarking, "host", cand.Endpoint.Host)
		download, upload, note, err := bench.Measure(ctx, cand.Endpoint, duration)
		if err != nil {
			// Benchmark errors are recovered here: remember the detail for
			// the exhaustion report and move on to the next candidate.
			lastDetail = err.Error()
			logger.Warn("benchmark failed", "server", cand.Endpoint.Name, "error", err)
			continue
		}
		if note != "" {
			logger.Warn("benchmark finished with a note", "server", cand.Endpoint.Name, "note", note)
		}

		logger.Debug("entering state", "state", stateDone)
		logger.Info("measurement complete",
			"server", cand.Endpoint.Name,
			"downloadMbps", download,
			"uploadMbps", upload,
			"latencyMS", cand.LatencyMS)
		return &models.Outcome{
			DownloadMbps: download,
			UploadMbps:   upload,
			LatencyMS:    cand.LatencyMS,
			ServerName:   cand.Endpoint.Name,
			Note:         note,
		}, nil
	}

	logger.Debug("entering state", "state", stateDone)
	detail := "every candidate failed validation or benchmarking"
	if lastDetail != "" {
		detail = lastDetail
	}
	logger.Error("all measurement servers failed", "detail", detail)
	return nil, &models.Failure{Reason: models.FailureAllEndpointsFailed, Detail: detail}
}
