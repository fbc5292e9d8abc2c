package snapshot

import (
	"encoding/json"
	"os"
	"sort"
)

// Manifest lists what a snapshot run copied.
type Manifest struct {
	ResultsDirectory string          `json:"results_directory"`
	Entries          []ManifestEntry `json:"entries"`
}

// ManifestEntry describes one whitelist entry in the manifest.
type ManifestEntry struct {
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Kind        string            `json:"kind"`
	Digests     map[string]string `json:"digests,omitempty"`
}

func newManifest(resultsDir string) *Manifest {
	return &Manifest{ResultsDirectory: resultsDir, Entries: []ManifestEntry{}}
}

func (m *Manifest) add(source string, destination string, stats EntryStats) {
	m.Entries = append(m.Entries, ManifestEntry{
		Source:      source,
		Destination: destination,
		Kind:        stats.Kind,
		Digests:     stats.Digests,
	})
}

// save writes the manifest through a temporary file and rename.
func (m *Manifest) save(path string) error {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Source < m.Entries[j].Source })
	data, marshalErr := json.MarshalIndent(m, "", "  ")
	if marshalErr != nil {
		return marshalErr
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadManifest reads a manifest written by a previous run.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}
