// Package probe measures round-trip latency to measurement servers using
// the system ping binary and ranks them.
package probe

import (
	"context"
	"log/slog"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nedomru/URMconfig/pkg/execx"
	"github.com/nedomru/URMconfig/pkg/models"
)

// spinUpGrace is added to the per-echo timeout to bound the whole ping
// invocation, including process start-up.
const spinUpGrace = 2 * time.Second

// Options bounds a ranking pass.
type Options struct {
	// Count is the number of echo requests per endpoint.
	Count int
	// Timeout bounds each individual echo.
	Timeout time.Duration
	// Concurrency is the worker pool width. Probing fans out, but never
	// unbounded: a large catalog would otherwise exhaust ping process slots.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 15
	}
	return o
}

// echoTimePattern extracts per-echo round-trip times. It accepts the
// English and Russian-locale Windows formats (time=4ms, время<1мс) as well
// as the Unix one (time=10.4 ms).
var echoTimePattern = regexp.MustCompile(`(?:время|time)[=<](\d+(?:\.\d+)?)\s*(?:мс|ms)`)

// Prober ranks endpoints by mean ping round-trip time.
type Prober struct {
	runner execx.Runner
	logger *slog.Logger
	opts   Options
}

func New(runner execx.Runner, logger *slog.Logger, opts Options) *Prober {
	return &Prober{
		runner: runner,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Rank probes every endpoint concurrently and returns the reachable ones
// ordered by mean round-trip time, ascending. Ties keep catalog order.
// Unreachable endpoints are dropped; an empty result is a valid return and
// means no endpoint answered.
func (p *Prober) Rank(ctx context.Context, endpoints []models.Endpoint) []models.RankedEndpoint {
	// One result slot per endpoint, so workers never share state.
	results := make([]models.ProbeResult, len(endpoints))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.probe(ctx, endpoints[i])
			}
		}()
	}
	for i := range endpoints {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	ranked := make([]models.RankedEndpoint, 0, len(results))
	for _, r := range results {
		if r.OK {
			ranked = append(ranked, models.RankedEndpoint{Endpoint: r.Endpoint, LatencyMS: r.LatencyMS})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LatencyMS < ranked[j].LatencyMS
	})
	return ranked
}

// probe pings a single endpoint. Any error, timeout or unusable output is a
// failed probe, never a crash of the ranking pass.
func (p *Prober) probe(ctx context.Context, ep models.Endpoint) models.ProbeResult {
	failed := models.ProbeResult{Endpoint: ep}

	name, args := pingCommand(ep.Host, p.opts.Count, p.opts.Timeout)
	res, err := p.runner.Run(ctx, p.opts.Timeout+spinUpGrace, "", name, args...)
	if err != nil {
		p.logger.Debug("ping failed", "host", ep.Host, "error", err)
		return failed
	}
	if res.ExitCode != 0 {
		p.logger.Debug("ping exited with error", "host", ep.Host, "exitCode", res.ExitCode)
		return failed
	}

	samples := parseEchoTimes(res.Stdout)
	if len(samples) == 0 {
		p.logger.Debug("no echo times in ping output", "host", ep.Host)
		return failed
	}

	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))

	p.logger.Debug("ping succeeded", "host", ep.Host, "latencyMS", mean, "samples", len(samples))
	return models.ProbeResult{Endpoint: ep, LatencyMS: mean, OK: true}
}

// pingCommand builds the platform flag set: count and per-echo timeout in
// milliseconds on Windows, seconds elsewhere.
func pingCommand(host string, count int, timeout time.Duration) (string, []string) {
	if runtime.GOOS == "windows" {
		return "ping", []string{"-n", strconv.Itoa(count), "-w", strconv.Itoa(int(timeout.Milliseconds())), host}
	}
	return "ping", []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(int(timeout.Seconds())), host}
}

// parseEchoTimes returns the usable millisecond samples from ping output.
// Samples that do not parse as numbers are discarded.
func parseEchoTimes(output string) []float64 {
	var samples []float64
	for _, m := range echoTimePattern.FindAllStringSubmatch(output, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	return samples
}
