package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"trainquery/internal/network"
)

// Validators are the HTTP cache validators a feed was last served with.
type Validators struct {
	LastModified string
	ETag         string
}

func (v Validators) empty() bool {
	return v.LastModified == "" && v.ETag == ""
}

// Downloader reads one configured feed (or sub-feed). The feed URL is either
// http(s), fetched into dir before parsing, or a local zip or directory.
type Downloader struct {
	feed   network.FeedConfig
	dir    string
	client *http.Client
	logger *slog.Logger
}

// NewDownloader creates a Downloader for feed.
func NewDownloader(feed network.FeedConfig, dir string, logger *slog.Logger) *Downloader {
	return &Downloader{
		feed:   feed,
		dir:    dir,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger.With("feed", feed.Name),
	}
}

// Name is the feed name, used as the sub-feed ID when merging.
func (d *Downloader) Name() string {
	return d.feed.Name
}

// Remote reports whether the feed is fetched over HTTP.
func (d *Downloader) Remote() bool {
	return isRemote(d.feed.URL)
}

// Changed asks the server whether the feed differs from the copy described
// by prev. Local feeds, and remote ones never seen before, count as changed.
func (d *Downloader) Changed(ctx context.Context, prev Validators) (bool, error) {
	if !d.Remote() || prev.empty() {
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.feed.URL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("check feed %s: %w", d.feed.Name, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
	case prev.ETag != "" && resp.Header.Get("ETag") == prev.ETag:
		// servers that ignore conditional HEAD
	default:
		return true, nil
	}
	d.logger.Debug("GTFS feed unchanged")
	return false, nil
}

// Fetch reads and parses the feed. Remote feeds carry the validators they
// were served with.
func (d *Downloader) Fetch(ctx context.Context) (*Feed, error) {
	if !d.Remote() {
		path := strings.TrimPrefix(d.feed.URL, "file://")
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat local feed: %w", err)
		}
		if info.IsDir() {
			return ParseFS(os.DirFS(path), d.logger)
		}
		return ParseZip(path, d.logger)
	}

	path, v, err := d.download(ctx)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	feed, err := ParseZip(path, d.logger)
	if err != nil {
		return nil, err
	}
	feed.LastModified = v.LastModified
	feed.ETag = v.ETag
	return feed, nil
}

// download saves the remote zip to a temp file in dir.
func (d *Downloader) download(ctx context.Context) (string, Validators, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", Validators{}, fmt.Errorf("create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.feed.URL, nil)
	if err != nil {
		return "", Validators{}, fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading GTFS feed", "url", d.feed.URL)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", Validators{}, fmt.Errorf("download feed %s: %w", d.feed.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", Validators{}, fmt.Errorf("download feed %s: unexpected status %d", d.feed.Name, resp.StatusCode)
	}

	f, err := os.CreateTemp(d.dir, "gtfs-"+d.feed.Name+"-*.zip")
	if err != nil {
		return "", Validators{}, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", Validators{}, fmt.Errorf("write feed %s: %w", d.feed.Name, err)
	}

	d.logger.Info("GTFS feed downloaded", "bytes", n)
	return f.Name(), Validators{
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
