package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"scribe-backend/handlers"
	"scribe-backend/services"
	"scribe-backend/workflows"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const defaultVLLMModel = "meta-llama/Meta-Llama-3.1-8B-Instruct"

func main() {
	// Load .env if present; real env vars win
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	debug := os.Getenv("DEBUG") != ""
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Select the LLM backend: a self-hosted endpoint when configured,
	// Gemini otherwise
	var llm workflows.TextGenerator
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		model := os.Getenv("LLM_MODEL")
		if model == "" {
			model = defaultVLLMModel
		}
		llm = services.NewVLLMService(baseURL, os.Getenv("LLM_API_SECRET"), model)
		log.Printf("Using self-hosted LLM at %s (model %s)", baseURL, model)
	} else {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required")
		}
		llm = services.NewGeminiService(apiKey)
		log.Println("Using Gemini API")
	}

	// Sibling data service that owns episode/material records
	goAPIURL := os.Getenv("GO_API_URL")
	if goAPIURL == "" {
		goAPIURL = "http://localhost:8080"
	}
	goAPI := services.NewGoAPIClient(goAPIURL)

	// Local file store for projects and uploaded materials
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	fileStore := services.NewFileStore(dataDir)

	chatWorkflows := workflows.NewChatWorkflows(llm, goAPI, fileStore)

	chatHandler := handlers.NewChatHandler(chatWorkflows)
	dictionaryHandler := handlers.NewDictionaryHandler(llm)
	projectsHandler := handlers.NewProjectsHandler(fileStore)
	materialsHandler := handlers.NewMaterialsHandler(fileStore)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(recoveryHandler(debug))

	// Enable CORS for local development
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// API routes
	api := router.Group("/api")
	{
		// Chat routes
		api.POST("/chat/project", chatHandler.ProjectChat)
		api.POST("/chat/dictionary", chatHandler.DictionaryChat)
		api.POST("/chat/material", chatHandler.MaterialChat)

		// Dictionary routes
		api.GET("/dictionary/search", dictionaryHandler.Search)
		api.GET("/dictionary/suggest", dictionaryHandler.Suggest)

		// Project routes
		api.GET("/projects", projectsHandler.List)
		api.POST("/projects", projectsHandler.Create)
		api.GET("/projects/:project_id", projectsHandler.Get)
		api.GET("/projects/:project_id/files", projectsHandler.ListFiles)
		api.POST("/projects/:project_id/files", projectsHandler.UploadFile)
		api.PUT("/projects/:project_id/files/:filename", projectsHandler.SaveFile)
		api.DELETE("/projects/:project_id/files/:filename", projectsHandler.DeleteFile)
		api.PUT("/projects/:project_id/files/:filename/rename/:new_filename", projectsHandler.RenameFile)

		// Material routes
		api.POST("/materials/upload", materialsHandler.Upload)
		api.GET("/materials/:book_id", materialsHandler.List)
		api.GET("/materials/:book_id/files", materialsHandler.ListFiles)
		api.DELETE("/materials/:book_id/:material_id", materialsHandler.Delete)
		api.POST("/materials/:book_id/bulk-upload", materialsHandler.BulkUpload)
	}

	// Health check and banner
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "API is running"})
	})
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Scribe Backend API", "version": "1.0.0"})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.Printf("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// recoveryHandler converts panics into a generic 500 body. The raw error
// text is exposed only in debug mode.
func recoveryHandler(debug bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("Panic recovered: %v", recovered)
		body := gin.H{
			"error":   "Internal Server Error",
			"message": "予期しないエラーが発生しました。しばらくお待ちいただいてから再度お試しください。",
		}
		if debug {
			body["details"] = fmt.Sprintf("%v", recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
