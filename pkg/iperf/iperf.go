// Package iperf drives the external iperf3 executable: a short validation
// run to confirm a server accepts benchmarks, and the full download/upload
// throughput measurement.
package iperf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nedomru/URMconfig/pkg/execx"
	"github.com/nedomru/URMconfig/pkg/models"
)

const (
	// Fixed benchmark parameters: 5 parallel streams, 2 MiB TCP window.
	parallelStreams = "5"
	windowSize      = "2M"

	// validateWall bounds the 1-second validation run regardless of how
	// long a dead or firewalled server stalls the client.
	validateWall = 10 * time.Second

	// passGrace is added to the requested duration to bound each benchmark
	// pass.
	passGrace = 60 * time.Second
)

// report mirrors the parts of the iperf3 JSON report we consume.
type report struct {
	End struct {
		SumReceived *streamSum `json:"sum_received"`
		SumSent     *streamSum `json:"sum_sent"`
	} `json:"end"`
}

// streamSum is the aggregate over all parallel streams.
type streamSum struct {
	BitsPerSecond float64 `json:"bits_per_second"`
}

// Client runs iperf3 from a provisioned installation.
type Client struct {
	exe    string
	dir    string
	runner execx.Runner
	logger *slog.Logger
}

func NewClient(exe, dir string, runner execx.Runner, logger *slog.Logger) *Client {
	return &Client{exe: exe, dir: dir, runner: runner, logger: logger}
}

// Validate runs a minimal one-second test against host to confirm it will
// accept a full benchmark. True only when iperf3 exits cleanly and produces
// a well-formed JSON report; any timeout, error or empty output is a reject.
// Retrying rejected servers is the orchestrator's job, not this layer's.
func (c *Client) Validate(ctx context.Context, host string) bool {
	res, err := c.runner.Run(ctx, validateWall, c.dir, c.exe, "-c", host, "-t", "1", "-J")
	if err != nil {
		c.logger.Debug("validation run failed", "host", host, "error", err)
		return false
	}
	if res.ExitCode != 0 {
		c.logger.Debug("validation run rejected", "host", host, "exitCode", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
		return false
	}
	if strings.TrimSpace(res.Stdout) == "" {
		c.logger.Debug("validation run produced no output", "host", host)
		return false
	}
	var rep report
	if err := json.Unmarshal([]byte(res.Stdout), &rep); err != nil {
		c.logger.Debug("validation run produced malformed output", "host", host, "error", err)
		return false
	}
	return true
}

// Measure runs the download pass and then the reverse upload pass against
// ep, each lasting duration. A download failure aborts the measurement. An
// upload failure after a successful download is soft: the result stands
// with UploadMbps 0 and the advisory note explains what happened.
func (c *Client) Measure(ctx context.Context, ep models.Endpoint, duration time.Duration) (download, upload float64, note string, err error) {
	wall := duration + passGrace

	download, err = c.runPass(ctx, ep.Host, duration, wall, false)
	if err != nil {
		return 0, 0, "", fmt.Errorf("download test on %s (%s): %w", ep.Name, ep.Host, err)
	}
	c.logger.Info("download pass complete", "server", ep.Name, "mbps", download)

	upload, uploadErr := c.runPass(ctx, ep.Host, duration, wall, true)
	if uploadErr != nil {
		c.logger.Warn("upload pass failed, keeping download result", "server", ep.Name, "error", uploadErr)
		return download, 0, fmt.Sprintf("upload test on %s failed: %v", ep.Name, uploadErr), nil
	}
	c.logger.Info("upload pass complete", "server", ep.Name, "mbps", upload)

	return download, upload, "", nil
}

func (c *Client) runPass(ctx context.Context, host string, duration, wall time.Duration, reverse bool) (float64, error) {
	args := []string{"-c", host, "-t", strconv.Itoa(int(duration.Seconds())), "-w", windowSize, "-P", parallelStreams}
	if reverse {
		args = append(args, "-R")
	}
	args = append(args, "-J")

	res, err := c.runner.Run(ctx, wall, c.dir, c.exe, args...)
	if err != nil {
		return 0, err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "unknown error"
		}
		return 0, fmt.Errorf("iperf3 exited with status %d: %s", res.ExitCode, msg)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return 0, errors.New("empty iperf3 report")
	}
	return parseMbps([]byte(res.Stdout))
}

// parseMbps extracts the aggregate throughput from an iperf3 JSON report.
// sum_received is preferred; sum_sent is the fallback some server versions
// report instead. Mbps is decimal: bits per second divided by 1,000,000.
func parseMbps(raw []byte) (float64, error) {
	var rep report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return 0, fmt.Errorf("parse iperf3 report: %w", err)
	}
	switch {
	case rep.End.SumReceived != nil:
		return rep.End.SumReceived.BitsPerSecond / 1_000_000, nil
	case rep.End.SumSent != nil:
		return rep.End.SumSent.BitsPerSecond / 1_000_000, nil
	}
	return 0, errors.New("no throughput summary in iperf3 report")
}
