// Package rtmpserver controls the SRS-compatible RTMP/HLS server process
// it renders vhost config from the state document,
// restarts the server when the rendered config changes, and reclassifies
// its stderr into structured log levels.
package rtmpserver

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/ephyr-go/restreamer/internal/processmgr"
	"github.com/ephyr-go/restreamer/internal/store"
	"go.uber.org/zap"
)

// srsLogLine matches SRS's bracketed log format:
// "...[2024-01-01 00:00:00.000][Error][1][2] message text".
var srsLogLine = regexp.MustCompile(`(?i)\[(verbose|info|trace|warn|error)\](?:\[\d+\])?(?:\[\w+\])?(?:\[\d+\])?\s?(.*)$`)

// ClassifyLogLine reclassifies a raw SRS stderr line into (level,
// message). Lines that don't match the expected format are treated as
// warnings, since SRS emits panics and assertion failures unbracketed.
func ClassifyLogLine(line string) (level, message string) {
	m := srsLogLine.FindStringSubmatch(line)
	if m == nil {
		return "warn", line
	}
	return strings.ToLower(m[1]), strings.TrimSpace(m[2])
}

// Controller owns the lifecycle of the RTMP server binary.
type Controller struct {
	log         *zap.Logger
	binary      string
	configPath  string
	hookBaseURL string
	hlsDir      string

	mu         sync.Mutex
	handle     *processmgr.Handle
	lastConfig string
}

// NewController constructs a Controller. binary is the path to the SRS
// (or SRS-compatible) executable; configPath is where its vhost config is
// rendered on every reconcile.
func NewController(log *zap.Logger, binary, configPath, hookBaseURL, hlsDir string) *Controller {
	return &Controller{
		log:         log.Named("rtmpserver"),
		binary:      binary,
		configPath:  configPath,
		hookBaseURL: hookBaseURL,
		hlsDir:      hlsDir,
	}
}

// Reconcile renders the config for st and restarts the server if the
// rendered text changed since the last successful reconcile (or if the
// server isn't running yet). It returns whether a restart occurred.
func (c *Controller) Reconcile(st *store.State) (bool, error) {
	rendered, err := RenderConfig(st, c.hookBaseURL, c.hlsDir)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil && rendered == c.lastConfig {
		return false, nil
	}
	if err := WriteConfig(c.configPath, rendered); err != nil {
		return false, err
	}
	c.lastConfig = rendered

	old := c.handle
	h, err := processmgr.Spawn(c.log, []string{c.binary, "-c", c.configPath}, nil, nil)
	if err != nil {
		return false, err
	}
	c.handle = h
	go c.drainLogs(h)

	if old != nil {
		old.Stop(context.Background())
	}
	return true, nil
}

func (c *Controller) drainLogs(h *processmgr.Handle) {
	// The Handle already buffers raw lines; reclassify lazily on read via
	// Logs(), so the hot append path stays allocation-free.
	<-h.Done()
	if err := h.ExitErr(); err != nil {
		c.log.Warn("rtmp server exited", zap.Error(err))
	}
}

// Logs returns up to lines recent stderr lines, reclassified into
// (level, message) pairs, newest first.
func (c *Controller) Logs(lines int) []ClassifiedLine {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	raw := h.Logs(lines)
	out := make([]ClassifiedLine, len(raw))
	for i, l := range raw {
		lvl, msg := ClassifyLogLine(l)
		out[i] = ClassifiedLine{Level: lvl, Message: msg}
	}
	return out
}

// ClassifiedLine is one reclassified log entry.
type ClassifiedLine struct {
	Level   string
	Message string
}

// Stop shuts down the currently running server, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()
	if h != nil {
		h.Stop(context.Background())
	}
}
