package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/storage"
)

// formatVersion is bumped when the checkpoint layout changes
const formatVersion = 1

// CollectionRecord is one collection that was crawled and persisted
type CollectionRecord struct {
	Name        string    `json:"name"`
	Count       int       `json:"count"`
	Artifact    string    `json:"artifact"`
	CompletedAt time.Time `json:"completed_at"`
}

// Checkpoint represents the state of a crawl run
type Checkpoint struct {
	OutputDir string                      `json:"output_dir"`
	Completed map[string]CollectionRecord `json:"completed"` // collection id -> record
	// Current is the collection being crawled when the checkpoint was written
	Current     string    `json:"current,omitempty"`
	CurrentPage int       `json:"current_page,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// IsCompleted reports whether the collection was already persisted
func (cp *Checkpoint) IsCompleted(collectionID string) bool {
	_, ok := cp.Completed[collectionID]
	return ok
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for runs writing into outputDir.
// Checkpoints live in $XDG_DATA_HOME/sunocrawl/checkpoints.
func NewManager(outputDir string) (*Manager, error) {
	path, err := xdg.DataFile(filepath.Join("sunocrawl", "checkpoints", runKey(outputDir)+".checkpoint.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger(),
	}, nil
}

// runKey derives a file-safe checkpoint name from the output directory
func runKey(outputDir string) string {
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.Trim(filepath.ToSlash(outputDir), "/"))
	if key == "" {
		key = "default"
	}
	return key
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create creates and saves a new empty checkpoint
func (m *Manager) Create(outputDir string) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		OutputDir: outputDir,
		Completed: make(map[string]CollectionRecord),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   formatVersion,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"output_dir": outputDir,
		"path":       m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint; it returns nil, nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Completed == nil {
		checkpoint.Completed = make(map[string]CollectionRecord)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"completed":  len(checkpoint.Completed),
		"current":    checkpoint.Current,
		"updated_at": checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	if err := storage.WriteJSON(m.checkpointPath, checkpoint); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"completed": len(checkpoint.Completed),
		"current":   checkpoint.Current,
		"page":      checkpoint.CurrentPage,
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// UpdateProgress records the page about to be fetched in a collection
func (m *Manager) UpdateProgress(checkpoint *Checkpoint, collectionID string, page int) error {
	checkpoint.Current = collectionID
	checkpoint.CurrentPage = page
	return m.Save(checkpoint)
}

// RecordCollection records a persisted collection and clears the current position
func (m *Manager) RecordCollection(checkpoint *Checkpoint, collectionID string, record CollectionRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	checkpoint.Completed[collectionID] = record
	checkpoint.Current = ""
	checkpoint.CurrentPage = 0
	return m.Save(checkpoint)
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	total := 0
	for _, rec := range checkpoint.Completed {
		total += rec.Count
	}

	return map[string]interface{}{
		"output_dir":  checkpoint.OutputDir,
		"completed":   len(checkpoint.Completed),
		"total_items": total,
		"current":     checkpoint.Current,
		"created_at":  checkpoint.CreatedAt,
		"updated_at":  checkpoint.UpdatedAt,
		"age":         time.Since(checkpoint.UpdatedAt),
	}, nil
}
