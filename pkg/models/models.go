// Package models defines the core data structures shared by the network
// measurement packages: endpoints, probe results and the terminal outcome
// of a measurement run.
package models

import "fmt"

// Endpoint is a candidate measurement server. The host is the identity;
// everything else is presentation data.
type Endpoint struct {
	Name       string
	Host       string
	RegionCode string
	City       string
}

// ProbeResult is the outcome of a single latency probe against one endpoint.
type ProbeResult struct {
	Endpoint  Endpoint
	LatencyMS float64
	OK        bool
}

// RankedEndpoint pairs a reachable endpoint with its mean round-trip time.
type RankedEndpoint struct {
	Endpoint  Endpoint
	LatencyMS float64
}

// FailureReason classifies why a measurement run produced no result.
type FailureReason string

const (
	// FailureToolUnavailable means provisioning could not produce a working
	// iperf3 executable.
	FailureToolUnavailable FailureReason = "tool_unavailable"
	// FailureNoReachableEndpoint means no server answered the latency probe.
	FailureNoReachableEndpoint FailureReason = "no_reachable_endpoint"
	// FailureAllEndpointsFailed means at least one server was reachable but
	// none passed validation and a full benchmark.
	FailureAllEndpointsFailed FailureReason = "all_endpoints_failed"
)

// Outcome is the single successful result of a measurement run.
type Outcome struct {
	DownloadMbps float64
	UploadMbps   float64
	LatencyMS    float64
	ServerName   string
	// Note carries a non-fatal advisory, e.g. a failed upload pass.
	Note string
}

// Failure is the terminal error of a measurement run.
type Failure struct {
	Reason FailureReason
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Detail)
}
