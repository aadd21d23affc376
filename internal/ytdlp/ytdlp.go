// Package ytdlp invokes the yt-dlp tool to fetch a video plus its metadata
// sidecar. The tool prints the final media path on stdout; everything else
// on the pipe is progress noise that gets sampled into the log.
package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"wai/internal/logging"
)

const defaultBinary = "yt-dlp"

// ProgressUpdate captures one sampled download progress report.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Downloader defines the behaviour required by the download stage.
type Downloader interface {
	Download(ctx context.Context, url, targetDir string, progress func(ProgressUpdate)) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for tool output diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "ytdlp")
		}
	}
}

// Client wraps yt-dlp CLI interactions. ConfDir is scanned for an optional
// yt-dlp.conf, netrc, and cookies.txt; whichever exist are passed through.
type Client struct {
	binary  string
	confDir string
	exec    Executor
	logger  *slog.Logger
}

// New constructs a yt-dlp client.
func New(confDir string, opts ...Option) *Client {
	client := &Client{
		binary:  defaultBinary,
		confDir: confDir,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Download fetches url into targetDir and returns the media file path. The
// sidecar metadata document lands next to it. Failure modes: non-zero exit,
// no reported path, reported path absent, or sidecar absent.
func (c *Client) Download(ctx context.Context, url, targetDir string, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("ytdlp: url required")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("ytdlp: create target dir: %w", err)
	}

	args := c.buildArgs(url, targetDir)
	c.logger.Info("starting download",
		logging.String("url", url),
		logging.String("dir", targetDir))

	sampler := newProgressSampler(progress)
	var resultPath string

	onStdout := func(line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		if update, ok := parseProgressLine(trimmed); ok {
			sampler.Observe(update)
			return
		}
		if strings.HasPrefix(trimmed, "[") {
			c.logger.Debug("tool output", logging.String("line", trimmed))
			return
		}
		// The --print after_move:filepath line is the only bare path
		// emitted on stdout.
		resultPath = trimmed
	}
	onStderr := func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			c.logger.Debug("tool stderr", logging.String("line", trimmed))
		}
	}

	if err := c.exec.Run(ctx, c.binary, args, onStdout, onStderr); err != nil {
		return "", fmt.Errorf("ytdlp: download %s: %w", url, err)
	}
	if resultPath == "" {
		return "", fmt.Errorf("ytdlp: tool reported no output path for %s", url)
	}
	if _, err := os.Stat(resultPath); err != nil {
		return "", fmt.Errorf("ytdlp: reported file missing: %w", err)
	}
	sidecar := SidecarPath(resultPath)
	if _, err := os.Stat(sidecar); err != nil {
		return "", fmt.Errorf("ytdlp: metadata sidecar missing: %w", err)
	}

	c.logger.Info("download complete", logging.String("file", resultPath))
	return resultPath, nil
}

// buildArgs assembles the command line. Fragment concurrency and the rate
// limit are fixed so one item cannot saturate the uplink.
func (c *Client) buildArgs(url, targetDir string) []string {
	args := []string{
		"--no-warnings",
		"--no-check-certificate",
		"--newline",
		"--write-info-json",
		"-N", "3",
		"--limit-rate", "5M",
		"--print", "after_move:filepath",
		"-P", targetDir,
	}

	if c.confDir != "" {
		if conf := filepath.Join(c.confDir, "yt-dlp.conf"); fileExists(conf) {
			args = append(args, "--config-location", conf)
		}
		if netrc := filepath.Join(c.confDir, "netrc"); fileExists(netrc) {
			args = append(args, "--netrc", "--netrc-location", netrc)
		}
		if cookies := filepath.Join(c.confDir, "cookies.txt"); fileExists(cookies) {
			args = append(args, "--cookies", cookies)
		}
	}

	return append(args, url)
}

// SidecarPath returns the metadata document path for a media file.
func SidecarPath(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	return strings.TrimSuffix(mediaPath, ext) + ".info.json"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
