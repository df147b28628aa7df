package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"scribe-backend/models"
	"scribe-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectsHandler serves project CRUD and project file operations on the
// local file store
type ProjectsHandler struct {
	files *services.FileStore
}

// NewProjectsHandler creates a new projects handler
func NewProjectsHandler(files *services.FileStore) *ProjectsHandler {
	return &ProjectsHandler{files: files}
}

// List returns every project with its metadata, newest first
func (h *ProjectsHandler) List(c *gin.Context) {
	projects := []models.ProjectMeta{}

	entries, err := os.ReadDir(h.files.ProjectsRoot())
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Error listing projects: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロジェクト一覧の取得に失敗しました"})
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		meta := h.files.LoadProjectMeta(entry.Name())

		files, err := h.files.ListTextFiles(h.files.ProjectDir(entry.Name()))
		if err != nil {
			log.Printf("Error counting files for project %s: %v", entry.Name(), err)
		}
		meta.FileCount = len(files)
		projects = append(projects, meta)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt > projects[j].UpdatedAt
	})

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Create makes a new project directory with metadata. A missing id is
// generated as project-<8 hex chars>.
func (h *ProjectsHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title が必要です"})
		return
	}

	projectID := c.PostForm("id")
	if projectID == "" {
		projectID = "project-" + uuid.New().String()[:8]
	}
	log.Printf("Creating project %s (%s)", projectID, title)

	dir := h.files.ProjectDir(projectID)
	if _, err := os.Stat(dir); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "プロジェクトIDが既に存在します"})
		return
	}

	now := time.Now().Format(time.RFC3339)
	meta := models.ProjectMeta{
		ID:        filepath.Base(projectID),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		FileCount: 0,
	}
	if err := h.files.SaveProjectMeta(projectID, meta); err != nil {
		log.Printf("Error creating project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロジェクトの作成に失敗しました"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "project": meta})
}

// Get returns the project detail with its files. File ids are the
// filenames themselves, so they survive listings unchanged.
func (h *ProjectsHandler) Get(c *gin.Context) {
	projectID := c.Param("project_id")

	dir := h.files.ProjectDir(projectID)
	if _, err := os.Stat(dir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "プロジェクトが見つかりません"})
		return
	}

	meta := h.files.LoadProjectMeta(projectID)

	entries, err := h.files.ListTextFiles(dir)
	if err != nil {
		log.Printf("Error listing files for project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロジェクト詳細の取得に失敗しました"})
		return
	}

	files := []models.ProjectFile{}
	for _, entry := range entries {
		content, err := h.files.ReadTextFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Error reading file %s: %v", entry.Name(), err)
			continue
		}
		var modMillis int64
		if info, err := entry.Info(); err == nil {
			modMillis = info.ModTime().UnixMilli()
		}
		files = append(files, models.ProjectFile{
			ID:        entry.Name(),
			Title:     entry.Name(),
			Content:   content,
			CreatedAt: modMillis,
			UpdatedAt: modMillis,
		})
	}

	var activeFileID *string
	if len(files) > 0 {
		activeFileID = &files[0].ID
	}

	coverEmoji := meta.CoverEmoji
	if coverEmoji == "" {
		coverEmoji = "📚"
	}

	c.JSON(http.StatusOK, models.ProjectDetail{
		ID:           meta.ID,
		Title:        meta.Title,
		CoverEmoji:   coverEmoji,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		FileCount:    len(files),
		Files:        files,
		ActiveFileID: activeFileID,
		SourceCount:  0,
		Archived:     false,
	})
}

// ListFiles returns the project's text files without their content
func (h *ProjectsHandler) ListFiles(c *gin.Context) {
	projectID := c.Param("project_id")

	entries, err := h.files.ListTextFiles(h.files.ProjectDir(projectID))
	if err != nil {
		log.Printf("Error listing project files: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロジェクトファイル一覧の取得に失敗しました"})
		return
	}

	files := []gin.H{}
	for _, entry := range entries {
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, gin.H{"name": entry.Name(), "size": size})
	}

	c.JSON(http.StatusOK, gin.H{"project_name": projectID, "files": files})
}

// UploadFile stores an uploaded file into the project directory
func (h *ProjectsHandler) UploadFile(c *gin.Context) {
	projectID := c.Param("project_id")

	dir := h.files.ProjectDir(projectID)
	if _, err := os.Stat(dir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "プロジェクトが見つかりません"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ファイルが必要です"})
		return
	}

	filename := c.PostForm("filename")
	if filename == "" {
		filename = fileHeader.Filename
	}
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ファイル名が必要です"})
		return
	}
	filename = decodeFilename(filename)

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルのアップロードに失敗しました"})
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルのアップロードに失敗しました"})
		return
	}

	if err := h.files.WriteFile(dir, filename, content); err != nil {
		log.Printf("Error uploading file to project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルのアップロードに失敗しました"})
		return
	}
	h.files.TouchProject(projectID)

	log.Printf("Uploaded file to project %s: %s", projectID, filename)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
		"size":     len(content),
	})
}

// SaveFile writes the given content to a project file, creating the
// project directory if needed
func (h *ProjectsHandler) SaveFile(c *gin.Context) {
	projectID := c.Param("project_id")
	filename := decodeFilename(c.Param("filename"))

	content, ok := c.GetPostForm("content")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content が必要です"})
		return
	}

	dir := h.files.ProjectDir(projectID)
	if err := h.files.WriteFile(dir, filename, []byte(content)); err != nil {
		log.Printf("Error saving file for project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの保存に失敗しました"})
		return
	}
	h.files.TouchProject(projectID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
		"size":     len(content),
	})
}

// DeleteFile removes a project file
func (h *ProjectsHandler) DeleteFile(c *gin.Context) {
	projectID := c.Param("project_id")
	filename := decodeFilename(c.Param("filename"))

	dir := h.files.ProjectDir(projectID)
	if _, err := os.Stat(dir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "プロジェクトが見つかりません"})
		return
	}

	if err := h.files.DeleteFile(dir, filename); err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ファイルが見つかりません"})
			return
		}
		log.Printf("Error deleting file for project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの削除に失敗しました"})
		return
	}
	h.files.TouchProject(projectID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
		"message":  "ファイルが削除されました",
	})
}

// RenameFile renames a project file, refusing to clobber an existing one
func (h *ProjectsHandler) RenameFile(c *gin.Context) {
	projectID := c.Param("project_id")
	oldName := decodeFilename(c.Param("filename"))
	newName := decodeFilename(c.Param("new_filename"))

	dir := h.files.ProjectDir(projectID)
	if _, err := os.Stat(dir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "プロジェクトが見つかりません"})
		return
	}

	if err := h.files.RenameFile(dir, oldName, newName); err != nil {
		switch {
		case errors.Is(err, services.ErrRenameConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "新しいファイル名は既に使用されています"})
		case os.IsNotExist(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "変更対象のファイルが見つかりません"})
		default:
			log.Printf("Error renaming file for project %s: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイル名の変更に失敗しました"})
		}
		return
	}
	h.files.TouchProject(projectID)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"old_filename": oldName,
		"new_filename": newName,
		"message":      "ファイル名が変更されました",
	})
}

// decodeFilename undoes percent-encoding that frontends apply to
// filenames in path segments. Invalid escapes keep the raw value.
func decodeFilename(name string) string {
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return decoded
}
