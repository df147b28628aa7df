package models

// ChatMessage is a single turn in a conversation
type ChatMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
	TS      int64  `json:"ts,omitempty"` // unix milliseconds
}

// ChatRequest is the request body for the chat endpoints
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required"`
	// Sources are descriptors of the form "project:book_id:ep1,ep2",
	// "material:book_id:mat1,mat2" or the legacy "book:book_id".
	Sources []string `json:"sources"`
	Context string   `json:"context,omitempty"`
}

// ChatResponse is the response for a chat message
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
}

// Episode is an episode record owned by the sibling data service
type Episode struct {
	ID        string `json:"id"`
	EpisodeNo int    `json:"episode_no"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Material is a reference material, either remote or file-backed
type Material struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	FileType  string `json:"file_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ProjectMeta is the metadata persisted in project_meta.json
type ProjectMeta struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CoverEmoji string `json:"coverEmoji,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	FileCount  int    `json:"file_count"`
}

// ProjectFile is a text file inside a project directory.
// The filename doubles as the stable file id.
type ProjectFile struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ProjectDetail is the full project view returned by GET /api/projects/:id
type ProjectDetail struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	CoverEmoji   string        `json:"coverEmoji"`
	CreatedAt    string        `json:"createdAt"`
	UpdatedAt    string        `json:"updatedAt"`
	FileCount    int           `json:"file_count"`
	Files        []ProjectFile `json:"files"`
	ActiveFileID *string       `json:"activeFileId"`
	SourceCount  int           `json:"sourceCount"`
	Archived     bool          `json:"archived"`
}

// DictionaryEntry is one entry in the writer's dictionary
type DictionaryEntry struct {
	ID           string   `json:"id"`
	Word         string   `json:"word"`
	Reading      string   `json:"reading"`
	PartOfSpeech string   `json:"part_of_speech"`
	Meanings     []string `json:"meanings"`
	Examples     []string `json:"examples"`
	Synonyms     []string `json:"synonyms"`
}

// DictionarySearchResponse is the response for GET /api/dictionary/search
type DictionarySearchResponse struct {
	Results []DictionaryEntry `json:"results"`
	Total   int               `json:"total"`
	Query   string            `json:"query"`
}
