package workflows

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"scribe-backend/models"
	"scribe-backend/services"

	"github.com/google/uuid"
)

// MaxPromptChars is the hard ceiling for an assembled prompt.
const MaxPromptChars = 30000

// truncationMarker is appended when the assembled prompt is cut down.
const truncationMarker = "[truncated]"

// TextGenerator produces a model reply for an assembled prompt
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// ContextSource fetches episode and material records from the sibling
// data service
type ContextSource interface {
	FetchEpisodes(ctx context.Context, bookID string, ids []string) ([]models.Episode, error)
	FetchMaterials(ctx context.Context, bookID string, ids []string) ([]models.Material, error)
}

// LocalFiles reads file-backed material content for the legacy
// book:<id> source descriptor
type LocalFiles interface {
	ReadMaterialFiles(bookID string, selected []string) map[string]string
}

// System prompts by chat type, for the writer-facing assistant.
var systemPrompts = map[string]string{
	"project": `あなたは作家の執筆をサポートするAIアシスタントです。
提供されたプロジェクトファイルの内容を参考にして、執筆に役立つ回答をしてください。
- ストーリーの一貫性を保つためのアドバイス
- キャラクター設定の確認
- プロットの展開に関する提案
- 文章の改善提案
などを行ってください。`,
	"dictionary": `あなたは作家向けの表現・言語アシスタントです。
- 適切な言葉選び
- 表現の豊かさ
- 語彙の提案
- 文章の推敲
- 表現技法のアドバイス
などを提供してください。文学的で美しい表現を心がけてください。`,
	"material": `あなたは資料研究をサポートするAIアシスタントです。
提供された資料の内容を分析し、執筆に役立つ情報を提供してください。
- 重要なポイントの抽出
- 関連情報の補足
- 創作への応用方法
- 背景知識の説明
などを行ってください。`,
}

// User-facing fallback messages. The chat endpoints always answer with a
// message; upstream failures are classified here instead of propagated.
const (
	fallbackGeneric = "申し訳ございません。現在、一時的にサービスに接続できません。しばらくお待ちいただいてから、再度お試しください。"
	fallbackTimeout = "申し訳ございません。応答に時間がかかりすぎたため、処理を中断しました。もう一度お試しください。"
	fallbackAuth    = "申し訳ございません。AIサービスの認証に問題が発生しています。管理者にお問い合わせください。"
	fallbackQuota   = "申し訳ございません。現在アクセスが集中しています。しばらくお待ちいただいてから、再度お試しください。"
)

// ChatWorkflows orchestrates a chat turn: resolve sources, assemble the
// prompt and dispatch it to the model
type ChatWorkflows struct {
	llm   TextGenerator
	goAPI ContextSource
	files LocalFiles
}

// NewChatWorkflows creates a new ChatWorkflows instance
func NewChatWorkflows(llm TextGenerator, goAPI ContextSource, files LocalFiles) *ChatWorkflows {
	return &ChatWorkflows{
		llm:   llm,
		goAPI: goAPI,
		files: files,
	}
}

// SendMessage runs one chat turn and always returns an assistant
// message. Errors at any step are converted into a user-facing reply;
// nothing is propagated to the HTTP layer.
func (w *ChatWorkflows) SendMessage(ctx context.Context, req models.ChatRequest, chatType string) models.ChatMessage {
	systemPrompt := systemPrompts[chatType]

	var parts []string

	// Step 1: resolve requested sources into context blocks.
	// Dictionary chats take no external context.
	if chatType != "dictionary" && len(req.Sources) > 0 {
		blocks, notFound := w.resolveSources(ctx, req.Sources)

		if len(blocks) == 0 {
			// Context was requested but nothing resolved; answering
			// without it would silently mislead, so stop here.
			log.Printf("No context found for sources: %v", notFound)
			return newAssistantMessage(fmt.Sprintf(
				"指定されたソースが見つかりませんでした: %s\nソースの指定を確認してから、再度お試しください。",
				strings.Join(notFound, ", ")))
		}
		if len(notFound) > 0 {
			log.Printf("Some sources not found: %v", notFound)
		}
		parts = append(parts, blocks...)
	}

	// Step 2: free-text context supplied by the client.
	if req.Context != "" {
		parts = append(parts, req.Context)
	}

	// Step 3: conversation history as labeled lines.
	for _, msg := range req.Messages {
		label := "ユーザー"
		if msg.Role == "assistant" {
			label = "アシスタント"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, msg.Content))
	}

	prompt := strings.Join(parts, "\n")

	// Step 4: enforce the prompt ceiling.
	if runes := []rune(prompt); len(runes) > MaxPromptChars {
		log.Printf("Prompt exceeds %d chars (%d), truncating", MaxPromptChars, len(runes))
		prompt = string(runes[:MaxPromptChars]) + "\n" + truncationMarker
	}

	// Step 5: dispatch to the model.
	log.Printf("Generating response for chat_type: %s", chatType)
	reply, err := w.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		log.Printf("Error generating response: %v", err)
		return newAssistantMessage(classifyFailure(err))
	}

	if strings.TrimSpace(reply) == "" {
		return newAssistantMessage(fallbackGeneric)
	}
	return newAssistantMessage(reply)
}

// resolveSources turns source descriptors into formatted context blocks.
// Descriptors that resolve to nothing are returned in notFound.
func (w *ChatWorkflows) resolveSources(ctx context.Context, sources []string) (blocks, notFound []string) {
	for _, source := range sources {
		kind, container, ids := parseSource(source)

		var block string
		switch kind {
		case "project":
			episodes, err := w.goAPI.FetchEpisodes(ctx, container, ids)
			if err != nil {
				log.Printf("Error fetching episodes for %q: %v", source, err)
			}
			block = services.FormatEpisodes(episodes, services.DefaultContextLimit)
		case "material":
			materials, err := w.goAPI.FetchMaterials(ctx, container, ids)
			if err != nil {
				log.Printf("Error fetching materials for %q: %v", source, err)
			}
			block = services.FormatMaterials(materials, services.DefaultContextLimit)
		case "book":
			// Legacy descriptor: every text file of the book's
			// materials directory on local disk.
			block = services.FormatFiles(w.files.ReadMaterialFiles(container, nil))
		default:
			log.Printf("Unknown source descriptor kind: %q", source)
		}

		if block == "" {
			notFound = append(notFound, source)
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks, notFound
}

// parseSource splits a "kind:container:id1,id2" descriptor.
func parseSource(source string) (kind, container string, ids []string) {
	segments := strings.SplitN(source, ":", 3)
	kind = strings.ToLower(strings.TrimSpace(segments[0]))
	if len(segments) > 1 {
		container = strings.TrimSpace(segments[1])
	}
	if len(segments) > 2 {
		for _, id := range strings.Split(segments[2], ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return kind, container, ids
}

// classifyFailure maps known upstream failure modes onto distinct
// user-facing messages.
func classifyFailure(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fallbackTimeout
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission") || strings.Contains(msg, "status 401") ||
		strings.Contains(msg, "status 403"):
		return fallbackAuth
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "status 429") || strings.Contains(msg, "resource_exhausted"):
		return fallbackQuota
	default:
		return fallbackGeneric
	}
}

func newAssistantMessage(content string) models.ChatMessage {
	now := time.Now()
	return models.ChatMessage{
		ID:      fmt.Sprintf("msg-%d-%s", now.Unix(), uuid.New().String()[:4]),
		Role:    "assistant",
		Content: content,
		TS:      now.UnixMilli(),
	}
}
