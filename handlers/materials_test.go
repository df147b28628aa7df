package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"scribe-backend/models"
	"scribe-backend/services"

	"github.com/gin-gonic/gin"
)

func newMaterialsRouter(t *testing.T) (*gin.Engine, *services.FileStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := services.NewFileStore(t.TempDir())
	h := NewMaterialsHandler(store)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/materials/upload", h.Upload)
	api.GET("/materials/:book_id", h.List)
	api.GET("/materials/:book_id/files", h.ListFiles)
	api.DELETE("/materials/:book_id/:material_id", h.Delete)
	api.POST("/materials/:book_id/bulk-upload", h.BulkUpload)
	return router, store
}

func materialUpload(t *testing.T, router *gin.Engine, bookID, title, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("book_id", bookID)
	mw.WriteField("title", title)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/materials/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadMaterial_ThenList(t *testing.T) {
	router, _ := newMaterialsRouter(t)

	w := materialUpload(t, router, "book1", "江戸の風俗", "edo.txt", "江戸時代の資料")
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d: %s", w.Code, w.Body.String())
	}

	var uploadResp struct {
		Success  bool            `json:"success"`
		Material models.Material `json:"material"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &uploadResp); err != nil {
		t.Fatal(err)
	}
	if uploadResp.Material.ID != "edo.txt" {
		t.Fatalf("expected stable filename id, got %q", uploadResp.Material.ID)
	}
	if uploadResp.Material.Title != "江戸の風俗" {
		t.Fatalf("expected form title, got %q", uploadResp.Material.Title)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/materials/book1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed: %d", w.Code)
	}

	var materials []models.Material
	if err := json.Unmarshal(w.Body.Bytes(), &materials); err != nil {
		t.Fatal(err)
	}
	if len(materials) != 1 || materials[0].ID != "edo.txt" || materials[0].Content != "江戸時代の資料" {
		t.Fatalf("unexpected materials listing: %+v", materials)
	}
}

func TestUploadMaterial_MissingFields(t *testing.T) {
	router, _ := newMaterialsRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("book_id", "book1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/materials/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", w.Code)
	}
}

func TestDeleteMaterial(t *testing.T) {
	router, _ := newMaterialsRouter(t)

	if w := materialUpload(t, router, "book1", "t", "doomed.txt", "x"); w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/materials/book1/doomed.txt", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/materials/book1/doomed.txt", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeated delete, got %d", w.Code)
	}
}

func TestBulkUploadMaterials(t *testing.T) {
	router, _ := newMaterialsRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"a.txt": "A", "b.md": "B"} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/materials/book1/bulk-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk upload failed: %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		UploadedCount int               `json:"uploaded_count"`
		ErrorCount    int               `json:"error_count"`
		Materials     []models.Material `json:"materials"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UploadedCount != 2 || resp.ErrorCount != 0 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
}
