package rtmpserver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
)

// configTemplate renders an SRS-style vhost config: one vhost per
// Restream key, each with an on_publish/on_unpublish/on_play/on_stop hook
// pointed at the local hook dispatcher, and an hls block only for
// Restreams that have at least one leaf Input with an HLS endpoint.
var configTemplate = template.Must(template.New("srs.conf").Parse(`
listen              1935;
max_connections      1000;
daemon               off;
srs_log_tank         console;

http_api {
    enabled      on;
    listen       1985;
}

http_server {
    enabled      on;
    listen       8080;
    dir          ./objs/nginx/html;
}

{{range .Vhosts}}
vhost {{.Key}} {
    {{if .WithHLS}}
    hls {
        enabled      on;
        hls_path     {{$.HLSDir}}/{{.Key}};
        hls_fragment 4;
        hls_window   60;
    }
    {{end}}
    http_hooks {
        enabled         on;
        on_publish      {{$.HookBaseURL}}/on_publish;
        on_unpublish    {{$.HookBaseURL}}/on_unpublish;
        on_play         {{$.HookBaseURL}}/on_play;
        on_stop         {{$.HookBaseURL}}/on_stop;
    }
}
{{end}}
`))

type vhostView struct {
	Key     string
	WithHLS bool
}

type configView struct {
	Vhosts      []vhostView
	HookBaseURL string
	HLSDir      string
}

// RenderConfig builds the SRS config text for st: one vhost per Restream,
// derived fresh from the tree every call (§9 — no cached cross-tree
// index survives across versions).
func RenderConfig(st *store.State, hookBaseURL, hlsDir string) (string, error) {
	view := configView{HookBaseURL: hookBaseURL, HLSDir: hlsDir}
	for _, r := range st.Restreams {
		view.Vhosts = append(view.Vhosts, vhostView{
			Key:     string(r.Key),
			WithHLS: hasHLS(&r.Input),
		})
	}
	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rtmpserver: render config: %w", err)
	}
	return buf.String(), nil
}

func hasHLS(in *restream.Input) bool {
	if in.HLSEndpoint() != nil {
		return true
	}
	for i := range in.Failover {
		if hasHLS(&in.Failover[i]) {
			return true
		}
	}
	return false
}

// WriteConfig writes rendered config text to path via write-to-temp-then-
// rename, matching the state document's own persistence discipline.
func WriteConfig(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rtmpserver: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".srs-*.conf.tmp")
	if err != nil {
		return fmt.Errorf("rtmpserver: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("rtmpserver: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rtmpserver: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rtmpserver: rename: %w", err)
	}
	return nil
}
