// Package cache owns the on-disk template clone cache: population, TTL
// expiry, corruption detection, refresh, and eviction. Entries live under
// <cacheDir>/<protocol>/<repoName[-branch]>/ with a metadata.json sidecar.
// An entry is either fully absent or fully complete; population goes through
// a staging directory and an atomic rename so readers never observe a
// half-written entry.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// MetadataFileName is the JSON sidecar persisted inside every cache entry.
const MetadataFileName = "metadata.json"

// DefaultTTLHours is applied when population options carry no TTL.
const DefaultTTLHours = 24

// Metadata describes a cached repository clone. The JSON field names are part
// of the on-disk format and must not change.
type Metadata struct {
	RepoURL     string    `json:"repoUrl"`
	BranchName  string    `json:"branchName"`
	LastUpdated time.Time `json:"lastUpdated"`
	TTLHours    float64   `json:"ttlHours"`
}

// shapeValid reports whether the metadata passes the minimal shape check:
// repoUrl, branchName, and lastUpdated present. Disk content is never trusted
// implicitly; entries failing this check are corrupt.
func (m *Metadata) shapeValid() bool {
	if m == nil {
		return false
	}
	return m.RepoURL != "" && m.BranchName != "" && !m.LastUpdated.IsZero()
}

// readMetadataFile loads and decodes a metadata sidecar. A missing file
// returns (nil, nil); decode failures return the error so callers can treat
// the entry as corrupt.
func readMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// writeMetadataFile persists a metadata sidecar into dir.
func writeMetadataFile(dir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644)
}
