// Package backup snapshots the user's protected co-op files before the
// engine touches a game directory, and restores them on request.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/policy"
)

// Backup represents a single backup snapshot.
type Backup struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Note           string    `json:"note,omitempty"`
	Version        string    `json:"version,omitempty"` // mod version installed at backup time
	ManagerVersion string    `json:"manager_version"`
	Files          []File    `json:"files"`
}

// File is the saved content of one protected file.
type File struct {
	Path    string      `json:"path"` // relative to the game directory
	Mode    os.FileMode `json:"mode"`
	Content []byte      `json:"content"`
}

// BackupInfo provides summary information about a backup for listing.
type BackupInfo struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Files     int       `json:"files" yaml:"files"`
	Size      int64     `json:"size" yaml:"size"`
}

// Manager handles backup operations.
type Manager struct {
	backupDir      string
	managerVersion string
	keep           int
	now            func() time.Time
}

// NewManager creates a backup manager storing snapshots in backupDir.
func NewManager(backupDir, managerVersion string) *Manager {
	return &Manager{
		backupDir:      backupDir,
		managerVersion: managerVersion,
		now:            time.Now,
	}
}

// WithKeep makes every new snapshot prune the store down to keep backups.
// Zero disables pruning.
func (m *Manager) WithKeep(keep int) *Manager {
	m.keep = keep
	return m
}

// BackupDir returns the backup directory path.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// Create saves the given files, relative to modDir. Missing files are skipped.
func (m *Manager) Create(modDir string, paths []string, version, note string) (*Backup, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := m.now()
	backup := &Backup{
		ID:             now.Format("2006-01-02-150405") + "-" + uuid.NewString()[:8],
		CreatedAt:      now,
		Note:           note,
		Version:        version,
		ManagerVersion: m.managerVersion,
		Files:          []File{},
	}

	for _, p := range paths {
		rel := policy.Normalize(p)
		if rel == "" {
			return nil, fmt.Errorf("invalid backup path %q", p)
		}
		full := filepath.Join(modDir, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		backup.Files = append(backup.Files, File{Path: rel, Mode: info.Mode().Perm(), Content: data})
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}
	if err := fsutil.WriteFileAtomic(m.path(backup.ID), data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	return backup, nil
}

// Snapshot creates a backup and prunes old ones. It returns the backup id.
func (m *Manager) Snapshot(modDir string, paths []string, version, note string) (string, error) {
	b, err := m.Create(modDir, paths, version, note)
	if err != nil {
		return "", err
	}
	if m.keep > 0 {
		if _, err := m.Prune(m.keep); err != nil {
			log.Warnf("failed to prune backups: %v", err)
		}
	}
	return b.ID, nil
}

// List returns all backups sorted by creation time (newest first).
func (m *Manager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backup, err := m.loadBackup(filepath.Join(m.backupDir, entry.Name()))
		if err != nil {
			log.Debugf("skipping unreadable backup %s: %v", entry.Name(), err)
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        backup.ID,
			CreatedAt: backup.CreatedAt,
			Note:      backup.Note,
			Version:   backup.Version,
			Files:     len(backup.Files),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a backup by ID. Use "latest" to get the most recent backup.
func (m *Manager) Get(id string) (*Backup, error) {
	if id == "latest" {
		backups, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(backups) == 0 {
			return nil, fmt.Errorf("no backups found")
		}
		id = backups[0].ID
	}
	if err := validID(id); err != nil {
		return nil, err
	}
	return m.loadBackup(m.path(id))
}

// Restore writes the files of backup id back into root's game directory
// and returns the restored paths.
func (m *Manager) Restore(id string, root locate.InstallRoot) ([]string, error) {
	backup, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	modDir := root.ModDir()
	var restored []string
	for _, f := range backup.Files {
		rel := policy.Normalize(f.Path)
		if rel == "" {
			return restored, fmt.Errorf("backup %s contains invalid path %q", backup.ID, f.Path)
		}
		mode := f.Mode
		if mode == 0 {
			mode = 0644
		}
		if err := fsutil.WriteFileAtomic(filepath.Join(modDir, filepath.FromSlash(rel)), f.Content, mode); err != nil {
			return restored, fmt.Errorf("failed to restore %s: %w", rel, err)
		}
		restored = append(restored, rel)
	}
	return restored, nil
}

// Delete removes a backup by ID.
func (m *Manager) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	path := m.path(id)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", id)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.backupDir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid backup id %q", id)
	}
	return nil
}

// loadBackup reads and parses a backup file.
func (m *Manager) loadBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("failed to parse backup file: %w", err)
	}

	return &backup, nil
}
