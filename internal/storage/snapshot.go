package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Snapshot is a point-in-time capture of portfolio state, written at the
// end of a run (and loadable to seed the next one).
type Snapshot struct {
	TsUnix    int64                      `json:"ts"`
	QuoteCcy  string                     `json:"quote_ccy"`
	Cash      string                     `json:"cash"`
	Positions map[string]domain.Position `json:"positions"`
}

// SnapshotManager handles saving and loading portfolio snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a new snapshot manager.
// dir: directory to store snapshot files.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// CreateSnapshot captures a portfolio view.
func CreateSnapshot(v portfolio.View) *Snapshot {
	return &Snapshot{
		TsUnix:    time.Now().Unix(),
		QuoteCcy:  v.QuoteCcy,
		Cash:      v.Cash.String(),
		Positions: v.Positions,
	}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0o755); err != nil {
		return fmt.Errorf("storage: create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("portfolio_%d.json", snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write snapshot: %w", err)
	}

	slog.Info("Portfolio snapshot saved", slog.String("path", path))
	return nil
}

// LoadLatest loads the most recent snapshot from disk.
// Returns nil if no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshots yet
		}
		return nil, fmt.Errorf("storage: read snapshot dir: %w", err)
	}

	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "portfolio_%d.json", &ts); err != nil {
			continue // Not a snapshot file
		}
		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil // No snapshots found
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("storage: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}

	slog.Info("Portfolio snapshot loaded", slog.String("path", latestPath))
	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest N.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return err
	}

	type snapFile struct {
		path string
		ts   int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "portfolio_%d.json", &ts); err == nil {
			files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), ts: ts})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Newest first
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
