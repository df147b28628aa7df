package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe-backend/models"
	"scribe-backend/services"

	"github.com/gin-gonic/gin"
)

// MaterialsHandler serves reference-material upload and listing over the
// local file store
type MaterialsHandler struct {
	files *services.FileStore
}

// NewMaterialsHandler creates a new materials handler
func NewMaterialsHandler(files *services.FileStore) *MaterialsHandler {
	return &MaterialsHandler{files: files}
}

// Upload stores a single material file for a book
func (h *MaterialsHandler) Upload(c *gin.Context) {
	bookID := c.PostForm("book_id")
	title := c.PostForm("title")
	if bookID == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book_id と title が必要です"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ファイルが必要です"})
		return
	}

	log.Printf("Uploading material for book %s: %s", bookID, title)

	material, err := h.storeMaterial(bookID, title, fileHeader)
	if err != nil {
		log.Printf("Error uploading material: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "material_upload_error",
			"message": "資料のアップロードでエラーが発生しました",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"material": material,
		"message":  "資料が正常にアップロードされました",
	})
}

// BulkUpload stores several material files at once, collecting per-file
// errors instead of aborting
func (h *MaterialsHandler) BulkUpload(c *gin.Context) {
	bookID := c.Param("book_id")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart フォームが必要です"})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files が必要です"})
		return
	}

	log.Printf("Bulk uploading %d materials for book %s", len(fileHeaders), bookID)

	uploaded := []models.Material{}
	uploadErrors := []string{}
	for _, fh := range fileHeaders {
		material, err := h.storeMaterial(bookID, fh.Filename, fh)
		if err != nil {
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}
		uploaded = append(uploaded, material)
	}

	log.Printf("Bulk upload completed: %d success, %d errors", len(uploaded), len(uploadErrors))

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"uploaded_count": len(uploaded),
		"error_count":    len(uploadErrors),
		"materials":      uploaded,
		"errors":         uploadErrors,
	})
}

// storeMaterial writes the uploaded file to the book's materials
// directory. The saved filename is the material's stable id.
func (h *MaterialsHandler) storeMaterial(bookID, title string, fh *multipart.FileHeader) (models.Material, error) {
	filename := filepath.Base(fh.Filename)
	if filename == "" || filename == "." {
		return models.Material{}, fmt.Errorf("missing filename")
	}

	src, err := fh.Open()
	if err != nil {
		return models.Material{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.Material{}, fmt.Errorf("failed to read upload: %w", err)
	}

	dir := h.files.MaterialDir(bookID)
	if err := h.files.WriteFile(dir, filename, content); err != nil {
		return models.Material{}, err
	}

	text := fmt.Sprintf("[Binary file: %s]", filename)
	if services.IsSupportedFile(filename) {
		if read, err := h.files.ReadTextFile(filepath.Join(dir, filename)); err == nil {
			text = read
		}
	}

	return models.Material{
		ID:        filename,
		Title:     title,
		Content:   text,
		FileType:  strings.TrimPrefix(filepath.Ext(filename), "."),
		Size:      int64(len(content)),
		CreatedAt: fileCreatedAt(filepath.Join(dir, filename)),
	}, nil
}

// List returns every material of a book, rebuilt from the directory
// contents
func (h *MaterialsHandler) List(c *gin.Context) {
	bookID := c.Param("book_id")
	log.Printf("Getting materials for book: %s", bookID)

	dir := h.files.MaterialDir(bookID)
	entries, err := h.files.ListTextFiles(dir)
	if err != nil {
		log.Printf("Error getting materials: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "get_materials_error",
			"message": "資料の取得でエラーが発生しました",
		})
		return
	}

	materials := []models.Material{}
	for _, entry := range entries {
		content, err := h.files.ReadTextFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Error reading material %s: %v", entry.Name(), err)
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		materials = append(materials, models.Material{
			ID:        entry.Name(),
			Title:     strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Content:   content,
			FileType:  strings.TrimPrefix(filepath.Ext(entry.Name()), "."),
			Size:      size,
			CreatedAt: fileCreatedAt(filepath.Join(dir, entry.Name())),
		})
	}

	c.JSON(http.StatusOK, materials)
}

// ListFiles returns the material filenames of a book without content
func (h *MaterialsHandler) ListFiles(c *gin.Context) {
	bookID := c.Param("book_id")

	entries, err := h.files.ListTextFiles(h.files.MaterialDir(bookID))
	if err != nil {
		log.Printf("Error listing material files: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "資料ファイル一覧の取得に失敗しました"})
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

	c.JSON(http.StatusOK, gin.H{"book_id": bookID, "files": files})
}

// Delete removes a material by its id (the stored filename)
func (h *MaterialsHandler) Delete(c *gin.Context) {
	bookID := c.Param("book_id")
	materialID := c.Param("material_id")

	log.Printf("Deleting material %s from book %s", materialID, bookID)

	if err := h.files.DeleteFile(h.files.MaterialDir(bookID), materialID); err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "指定された資料が見つかりません"})
			return
		}
		log.Printf("Error deleting material: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_material_error",
			"message": "資料の削除でエラーが発生しました",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "資料が削除されました"})
}

func fileCreatedAt(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().UTC().Format(time.RFC3339)
}
