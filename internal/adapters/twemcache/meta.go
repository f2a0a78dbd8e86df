package twemcache

import (
	"encoding/json"
	"os"
	"time"
)

// cacheMeta is the sidecar written next to each downloaded trace
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size"`
	FetchedAt    time.Time `json:"fetched_at"`
}

func metaPath(path string) string { return path + ".meta" }

func loadMeta(p string) (*cacheMeta, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var m cacheMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveMeta(p string, m *cacheMeta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := p + ".part"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// localComplete reports whether path holds a usable copy of url.
// A sidecar, when present, must agree on the size and the source URL;
// files placed by hand have none and are trusted
func localComplete(path, url string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() == 0 {
		return 0, false
	}
	if m, err := loadMeta(metaPath(path)); err == nil && (m.Size != fi.Size() || m.URL != url) {
		return fi.Size(), false
	}
	return fi.Size(), true
}
