package httpapi

import (
	"embed"
	"io/fs"
)

// webFS embeds the static dashboard bundle this binary serves. It ships
// only a placeholder page; a real browser UI is out of scope here, but
// the serving path is wired end to end so dropping a built bundle into
// web/ is the only change needed to light it up.
//
//go:embed all:web
var webFS embed.FS

// staticFS returns webFS rooted at web/, so callers address assets by
// their served path ("index.html") rather than the embed path
// ("web/index.html").
func staticFS() (fs.FS, error) {
	return fs.Sub(webFS, "web")
}
