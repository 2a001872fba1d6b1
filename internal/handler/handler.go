package handler

import (
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"sort"

	"trainquery/internal/realtime"
	"trainquery/internal/templates"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	store   *timetable.Store
	rt      *realtime.Store
	clock   timeutil.Clock
	logger  *slog.Logger
	version string // content hash of static assets, for cache busting
}

// New creates a Handler. static is the embedded asset tree; rt may be nil
// when no realtime feed is configured.
func New(store *timetable.Store, rt *realtime.Store, static fs.FS, clock timeutil.Clock, logger *slog.Logger) *Handler {
	v := computeAssetVersion(static)
	logger.Info("asset version computed", "version", v)
	if rt == nil {
		rt = realtime.NewStore()
	}
	return &Handler{store: store, rt: rt, clock: clock, logger: logger, version: v}
}

// computeAssetVersion hashes all CSS and JS files in fsys to produce a
// short version string. Changes to any file produce a new version.
func computeAssetVersion(fsys fs.FS) string {
	h := md5.New()
	var paths []string
	fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ext := path.Ext(p); ext == ".css" || ext == ".js" {
			paths = append(paths, p)
		}
		return nil
	})
	sort.Strings(paths) // deterministic order
	for _, p := range paths {
		f, err := fsys.Open(p)
		if err != nil {
			continue
		}
		io.Copy(h, f)
		f.Close()
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:8]
}

// page creates a templates.Page with the asset version pre-filled.
func (h *Handler) page(title, currentPath string) templates.Page {
	return templates.Page{
		Title:        title,
		CurrentPath:  currentPath,
		AssetVersion: h.version,
	}
}

// snapshot returns the current timetable snapshot, writing a 503 when none
// is installed yet.
func (h *Handler) snapshot(w http.ResponseWriter) (*timetable.Snapshot, bool) {
	snap := h.store.Load()
	if snap == nil {
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "timetable data is loading"})
		return nil, false
	}
	return snap, true
}
