// Package provision installs the iperf3 executable into a private working
// directory: download the zip bundle once, extract it, self-check it, and
// tear the installation down when the measurement run is over.
//
// A single measurement run per process is assumed; the tool directory is
// not locked against concurrent processes.
package provision

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nedomru/URMconfig/pkg/execx"
)

const (
	// DefaultBundleURL is where the packaged iperf3 build is fetched from.
	DefaultBundleURL = "https://files.budman.pw/iperf3.19_64.zip"

	archiveName      = "iperf3.19_64.zip"
	extractedDirName = "iperf3.19_64"
	toolDirName      = "iperf"

	selfCheckTimeout = 5 * time.Second
	downloadTimeout  = 30 * time.Second
)

// Manager owns the private tool directory and the iperf3 install inside it.
type Manager struct {
	url    string
	root   string
	runner execx.Runner
	client *http.Client
	logger *slog.Logger
}

func NewManager(url, root string, runner execx.Runner, logger *slog.Logger) *Manager {
	return &Manager{
		url:    url,
		root:   root,
		runner: runner,
		client: &http.Client{Timeout: downloadTimeout},
		logger: logger,
	}
}

// DefaultRoot returns the per-user private directory for the tool install.
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "URMConfig"), nil
}

// ToolDir is the directory iperf3 runs from.
func (m *Manager) ToolDir() string {
	return filepath.Join(m.root, toolDirName)
}

func (m *Manager) exePath() string {
	name := "iperf3"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(m.ToolDir(), name)
}

// EnsureReady returns the path to a working iperf3 executable. An existing
// install that passes a version self-check is reused without downloading;
// a stale one is removed and replaced.
func (m *Manager) EnsureReady(ctx context.Context) (string, error) {
	exe := m.exePath()
	if _, err := os.Stat(exe); err == nil {
		if m.selfCheck(ctx, exe) {
			m.logger.Debug("reusing existing iperf3 install", "path", exe)
			return exe, nil
		}
		m.logger.Info("existing iperf3 install failed self-check, reinstalling", "path", exe)
		if err := os.RemoveAll(m.ToolDir()); err != nil {
			return "", fmt.Errorf("remove stale iperf3 install: %w", err)
		}
	}

	if err := m.install(ctx); err != nil {
		return "", err
	}
	if _, err := os.Stat(exe); err != nil {
		return "", fmt.Errorf("iperf3 executable missing after extraction: %s", exe)
	}
	m.logger.Info("iperf3 ready", "path", exe)
	return exe, nil
}

// Teardown removes the tool directory. Cleanup is advisory: a failure is
// logged and never overrides the measurement outcome.
func (m *Manager) Teardown() {
	if err := os.RemoveAll(m.ToolDir()); err != nil {
		m.logger.Warn("failed to clean up iperf3 install", "error", err)
		return
	}
	m.logger.Debug("iperf3 install removed", "dir", m.ToolDir())
}

func (m *Manager) selfCheck(ctx context.Context, exe string) bool {
	res, err := m.runner.Run(ctx, selfCheckTimeout, m.ToolDir(), exe, "--version")
	return err == nil && res.ExitCode == 0
}

func (m *Manager) install(ctx context.Context) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("create tool root: %w", err)
	}

	archive := filepath.Join(m.root, archiveName)
	if err := m.download(ctx, archive); err != nil {
		return fmt.Errorf("download iperf3 bundle: %w", err)
	}
	defer os.Remove(archive)

	if err := unzip(archive, m.root); err != nil {
		return fmt.Errorf("extract iperf3 bundle: %w", err)
	}

	src := filepath.Join(m.root, extractedDirName)
	if _, err := os.Stat(src); err != nil {
		found, scanErr := m.findExtractedDir()
		if scanErr != nil {
			return scanErr
		}
		src = found
	}

	if err := os.RemoveAll(m.ToolDir()); err != nil {
		return fmt.Errorf("clear tool dir: %w", err)
	}
	if err := os.Rename(src, m.ToolDir()); err != nil {
		return fmt.Errorf("move iperf3 into place: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(m.exePath(), 0o755); err != nil {
			return fmt.Errorf("mark iperf3 executable: %w", err)
		}
	}
	return nil
}

func (m *Manager) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return err
	}
	m.logger.Debug("downloaded iperf3 bundle", "bytes", n, "url", m.url)
	return nil
}

// findExtractedDir scans the working directory for the bundle folder when
// the archive layout does not match the expected name.
func (m *Manager) findExtractedDir() (string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return "", fmt.Errorf("scan tool root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != toolDirName && strings.Contains(strings.ToLower(e.Name()), "iperf") {
			return filepath.Join(m.root, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no iperf3 directory found in %s after extraction", m.root)
}

func unzip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	cleanDest := filepath.Clean(dest)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
