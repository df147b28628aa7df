package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"scribe-backend/models"

	"golang.org/x/text/encoding/japanese"
)

// MaxFileSize is the ceiling for files read into memory (10 MB).
const MaxFileSize = 10 * 1024 * 1024

// MetadataFile is the per-project metadata filename
const MetadataFile = "project_meta.json"

// supportedExtensions is the text-file allow-list
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".html": true,
	".css":  true,
	".json": true,
}

// ErrRenameConflict is returned when the rename destination already exists
var ErrRenameConflict = errors.New("destination filename already exists")

// FileStore reads and writes project and material files under a base
// data directory. Filenames from requests are untrusted: every path is
// flattened to its base name before touching the filesystem.
type FileStore struct {
	projectsDir  string
	materialsDir string
}

// NewFileStore creates a file store rooted at baseDir
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		projectsDir:  filepath.Join(baseDir, "projects"),
		materialsDir: filepath.Join(baseDir, "materials"),
	}
}

// ProjectDir returns the directory holding the given project's files
func (s *FileStore) ProjectDir(projectID string) string {
	return filepath.Join(s.projectsDir, filepath.Base(projectID))
}

// MaterialDir returns the directory holding the given book's materials
func (s *FileStore) MaterialDir(bookID string) string {
	return filepath.Join(s.materialsDir, filepath.Base(bookID))
}

// ProjectsRoot returns the directory containing all project directories
func (s *FileStore) ProjectsRoot() string {
	return s.projectsDir
}

// IsSupportedFile reports whether the filename has an allow-listed
// text extension
func IsSupportedFile(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ReadTextFile reads a text file as UTF-8, falling back to Shift-JIS for
// legacy files and finally to lossy replacement. Files over MaxFileSize
// are rejected.
func (s *FileStore) ReadTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %s (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err == nil && utf8.Valid(decoded) {
		return string(decoded), nil
	}

	// Last resort: keep what decodes, replace what doesn't.
	return strings.ToValidUTF8(string(data), "�"), nil
}

// ListTextFiles lists the allow-listed text files directly inside dir,
// excluding the project metadata file. A missing directory yields an
// empty list.
func (s *FileStore) ListTextFiles(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == MetadataFile {
			continue
		}
		if IsSupportedFile(entry.Name()) {
			files = append(files, entry)
		}
	}
	return files, nil
}

// WriteFile writes (or overwrites) a file inside dir, creating the
// directory if needed
func (s *FileStore) WriteFile(dir, filename string, content []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// DeleteFile removes a file inside dir
func (s *FileStore) DeleteFile(dir, filename string) error {
	return os.Remove(filepath.Join(dir, filepath.Base(filename)))
}

// RenameFile renames a file inside dir. It fails if the source is absent
// or the destination already exists, leaving both paths untouched.
func (s *FileStore) RenameFile(dir, oldName, newName string) error {
	oldPath := filepath.Join(dir, filepath.Base(oldName))
	newPath := filepath.Join(dir, filepath.Base(newName))

	if _, err := os.Stat(oldPath); err != nil {
		return err
	}
	if _, err := os.Stat(newPath); err == nil {
		return ErrRenameConflict
	}
	return os.Rename(oldPath, newPath)
}

// readSelected reads the named files (or every allow-listed file when
// selected is nil) from dir into a filename -> content map. Unreadable
// files are logged and skipped.
func (s *FileStore) readSelected(dir string, selected []string) map[string]string {
	contents := map[string]string{}

	if selected == nil {
		entries, err := s.ListTextFiles(dir)
		if err != nil {
			log.Printf("Error listing files in %s: %v", dir, err)
			return contents
		}
		for _, entry := range entries {
			selected = append(selected, entry.Name())
		}
	}

	for _, name := range selected {
		base := filepath.Base(name)
		if !IsSupportedFile(base) {
			log.Printf("Unsupported file extension: %s", base)
			continue
		}
		content, err := s.ReadTextFile(filepath.Join(dir, base))
		if err != nil {
			log.Printf("Error reading file %s: %v", base, err)
			continue
		}
		contents[base] = content
	}
	return contents
}

// ReadProjectFiles reads project file contents keyed by filename.
// A nil selected list reads every text file in the project.
func (s *FileStore) ReadProjectFiles(projectID string, selected []string) map[string]string {
	return s.readSelected(s.ProjectDir(projectID), selected)
}

// ReadMaterialFiles reads material file contents keyed by filename.
// A nil selected list reads every text file of the book.
func (s *FileStore) ReadMaterialFiles(bookID string, selected []string) map[string]string {
	return s.readSelected(s.MaterialDir(bookID), selected)
}

// LoadProjectMeta loads project_meta.json, falling back to defaults
// derived from the directory name when it is absent or unreadable
func (s *FileStore) LoadProjectMeta(projectID string) models.ProjectMeta {
	path := filepath.Join(s.ProjectDir(projectID), MetadataFile)

	data, err := os.ReadFile(path)
	if err == nil {
		var meta models.ProjectMeta
		if err := json.Unmarshal(data, &meta); err == nil {
			return meta
		}
		log.Printf("Error parsing project metadata for %s: %v", projectID, err)
	}

	now := time.Now().Format(time.RFC3339)
	return models.ProjectMeta{
		ID:        filepath.Base(projectID),
		Title:     filepath.Base(projectID),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SaveProjectMeta writes project_meta.json for the project
func (s *FileStore) SaveProjectMeta(projectID string, meta models.ProjectMeta) error {
	dir := s.ProjectDir(projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// TouchProject refreshes the project's updated_at after a file mutation
func (s *FileStore) TouchProject(projectID string) {
	meta := s.LoadProjectMeta(projectID)
	meta.UpdatedAt = time.Now().Format(time.RFC3339)
	if err := s.SaveProjectMeta(projectID, meta); err != nil {
		log.Printf("Error updating project metadata for %s: %v", projectID, err)
	}
}
