package iperf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nedomru/URMconfig/pkg/execx"
	"github.com/nedomru/URMconfig/pkg/models"
)

// passRunner answers download and upload passes separately, telling them
// apart by the -R flag, and counts invocations of each.
type passRunner struct {
	downloadRes execx.Result
	downloadErr error
	uploadRes   execx.Result
	uploadErr   error

	downloads int
	uploads   int
}

func (r *passRunner) Run(ctx context.Context, timeout time.Duration, dir string, name string, args ...string) (execx.Result, error) {
	for _, a := range args {
		if a == "-R" {
			r.uploads++
			return r.uploadRes, r.uploadErr
		}
	}
	r.downloads++
	return r.downloadRes, r.downloadErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receivedReport(bps float64) string {
	return fmt.Sprintf(`{"end":{"sum_received":{"bits_per_second":%v}}}`, bps)
}

func sentReport(bps float64) string {
	return fmt.Sprintf(`{"end":{"sum_sent":{"bits_per_second":%v}}}`, bps)
}

var testEndpoint = models.Endpoint{Name: "Пермь", Host: "iperf.perm.ertelecom.ru"}

func TestMeasureDownloadFailureSkipsUpload(t *testing.T) {
	tests := []struct {
		name   string
		runner *passRunner
	}{
		{
			name:   "non-zero exit",
			runner: &passRunner{downloadRes: execx.Result{ExitCode: 1, Stderr: "unable to connect"}},
		},
		{
			name:   "timeout",
			runner: &passRunner{downloadErr: execx.ErrTimeout},
		},
		{
			name:   "empty output",
			runner: &passRunner{downloadRes: execx.Result{Stdout: "  \n"}},
		},
		{
			name:   "malformed report",
			runner: &passRunner{downloadRes: execx.Result{Stdout: "{not json"}},
		},
		{
			name:   "report without throughput",
			runner: &passRunner{downloadRes: execx.Result{Stdout: `{"end":{}}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("iperf3", "", tt.runner, testLogger())
			_, _, _, err := client.Measure(context.Background(), testEndpoint, 20*time.Second)
			if err == nil {
				t.Fatal("Measure() error = nil, want download failure")
			}
			if !strings.Contains(err.Error(), testEndpoint.Name) {
				t.Errorf("Measure() error %q does not name the endpoint", err)
			}
			if tt.runner.uploads != 0 {
				t.Errorf("upload invocations = %d, want 0 after download failure", tt.runner.uploads)
			}
		})
	}
}

func TestMeasureUploadFailureIsSoft(t *testing.T) {
	runner := &passRunner{
		downloadRes: execx.Result{Stdout: receivedReport(8_000_000_000)},
		uploadErr:   execx.ErrTimeout,
	}
	client := NewClient("iperf3", "", runner, testLogger())

	download, upload, note, err := client.Measure(context.Background(), testEndpoint, 20*time.Second)
	if err != nil {
		t.Fatalf("Measure() error = %v, want nil after soft upload failure", err)
	}
	if download != 8000.0 {
		t.Errorf("Measure() download = %v, want 8000.0", download)
	}
	if upload != 0 {
		t.Errorf("Measure() upload = %v, want 0 after failed upload pass", upload)
	}
	if note == "" {
		t.Error("Measure() note is empty, want an advisory about the upload pass")
	}
	if runner.downloads != 1 || runner.uploads != 1 {
		t.Errorf("invocations = %d download / %d upload, want 1/1", runner.downloads, runner.uploads)
	}
}

func TestMeasureBothPasses(t *testing.T) {
	runner := &passRunner{
		downloadRes: execx.Result{Stdout: receivedReport(500_000_000)},
		uploadRes:   execx.Result{Stdout: receivedReport(100_000_000)},
	}
	client := NewClient("iperf3", "", runner, testLogger())

	download, upload, note, err := client.Measure(context.Background(), testEndpoint, 20*time.Second)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if download != 500 || upload != 100 {
		t.Errorf("Measure() = %v/%v Mbps, want 500/100", download, upload)
	}
	if note != "" {
		t.Errorf("Measure() note = %q, want empty", note)
	}
}

func TestParseMbps(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{
			name: "decimal megabits",
			raw:  receivedReport(8_000_000_000),
			want: 8000.0,
		},
		{
			name: "sum_sent fallback",
			raw:  sentReport(250_000_000),
			want: 250.0,
		},
		{
			name: "sum_received preferred over sum_sent",
			raw:  `{"end":{"sum_received":{"bits_per_second":1000000},"sum_sent":{"bits_per_second":2000000}}}`,
			want: 1.0,
		},
		{
			name:    "no summary",
			raw:     `{"end":{}}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			raw:     "{not json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMbps([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMbps() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMbps() = %v, want %v", got, tt.want)
			}
		})
	}
}

// validateRunner always answers with the same result.
type validateRunner struct {
	res execx.Result
	err error
}

func (r *validateRunner) Run(ctx context.Context, timeout time.Duration, dir string, name string, args ...string) (execx.Result, error) {
	return r.res, r.err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		runner *validateRunner
		want   bool
	}{
		{
			name:   "clean exit with report",
			runner: &validateRunner{res: execx.Result{Stdout: receivedReport(1_000_000)}},
			want:   true,
		},
		{
			name:   "non-zero exit",
			runner: &validateRunner{res: execx.Result{ExitCode: 1, Stderr: "server is busy"}},
			want:   false,
		},
		{
			name:   "empty output",
			runner: &validateRunner{res: execx.Result{Stdout: ""}},
			want:   false,
		},
		{
			name:   "malformed output",
			runner: &validateRunner{res: execx.Result{Stdout: "{oops"}},
			want:   false,
		},
		{
			name:   "timeout",
			runner: &validateRunner{err: execx.ErrTimeout},
			want:   false,
		},
		{
			name:   "start failure",
			runner: &validateRunner{err: errors.New("executable not found")},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("iperf3", "", tt.runner, testLogger())
			if got := client.Validate(context.Background(), "iperf.perm.ertelecom.ru"); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}
