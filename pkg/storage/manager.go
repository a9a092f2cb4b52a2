package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sunocrawl/pkg/models"
)

const (
	// EnumerationFile holds the raw collection enumeration of a run
	EnumerationFile = "project_me.json"

	// ArtifactSuffix ends every per-collection artifact name
	ArtifactSuffix = "_clips.json"

	// PagesDir holds the raw per-page dumps
	PagesDir = "pages"
)

// Manager writes crawl output into one directory. Every write is atomic:
// a reader sees either the previous file or the complete new one.
type Manager struct {
	outputDir string
	mu        sync.Mutex
	// names maps a resolved file base name to the collection that owns it
	names map[string]string
	// bases caches the resolved base name per collection id
	bases map[string]string
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		names:     make(map[string]string),
		bases:     make(map[string]string),
	}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// BaseName returns the file base name for a collection: its SafeName, or
// SafeName_<id8> when another collection of this run already claimed it.
func (m *Manager) BaseName(c models.Collection) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if base, ok := m.bases[c.ID]; ok {
		return base
	}

	base := c.SafeName()
	if owner, taken := m.names[base]; taken && owner != c.ID {
		id := c.ID
		if len(id) > 8 {
			id = id[:8]
		}
		base = base + "_" + id
	}

	m.names[base] = c.ID
	m.bases[c.ID] = base
	return base
}

// Reserve claims base for collection c, typically the name an earlier run
// already wrote its artifact under. A later collection resolving to the same
// name gets the id suffix instead of overwriting that artifact.
func (m *Manager) Reserve(c models.Collection, base string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.names[base] = c.ID
	m.bases[c.ID] = base
}

// ArtifactPath returns where the merged artifact of c is written
func (m *Manager) ArtifactPath(c models.Collection) string {
	return filepath.Join(m.outputDir, m.BaseName(c)+ArtifactSuffix)
}

// SaveCollection writes the merged artifact for one collection
func (m *Manager) SaveCollection(c models.Collection, result *models.MergedResult) (string, error) {
	path := m.ArtifactPath(c)
	if err := WriteJSON(path, result.Artifact()); err != nil {
		return "", err
	}
	return path, nil
}

// SaveEnumeration writes the raw collection enumeration
func (m *Manager) SaveEnumeration(raw json.RawMessage) (string, error) {
	path := filepath.Join(m.outputDir, EnumerationFile)
	if err := WriteJSON(path, raw); err != nil {
		return "", err
	}
	return path, nil
}

// SavePage writes the raw items of one fetched page
func (m *Manager) SavePage(c models.Collection, page int, items models.Page) (string, error) {
	dir := filepath.Join(m.outputDir, PagesDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pages directory: %w", err)
	}

	if items == nil {
		items = models.Page{}
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_page%d.json", m.BaseName(c), page))
	if err := WriteJSON(path, items); err != nil {
		return "", err
	}
	return path, nil
}

// ListArtifacts returns the per-collection artifacts in dir, sorted by name
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ArtifactSuffix) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// WriteJSON encodes v with two-space indentation and atomically replaces path
func WriteJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, buf.Bytes())
}

// writeAtomic writes data to a temporary file beside path and renames it
func writeAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = out.Write(data)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
