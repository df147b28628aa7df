package handlers

import (
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"strconv"
	"strings"

	"scribe-backend/models"
	"scribe-backend/workflows"

	"github.com/gin-gonic/gin"
)

// dictionaryEntries is the built-in dictionary. Misses fall through to
// an LLM-generated explanation.
var dictionaryEntries = []models.DictionaryEntry{
	{
		ID:           "1",
		Word:         "美しい",
		Reading:      "うつくしい",
		PartOfSpeech: "形容詞",
		Meanings:     []string{"形や色などが整っていて、見て快く感じるさま"},
		Examples:     []string{"美しい景色", "美しい音楽"},
		Synonyms:     []string{"麗しい", "綺麗な", "素晴らしい"},
	},
	{
		ID:           "2",
		Word:         "静謐",
		Reading:      "せいひつ",
		PartOfSpeech: "名詞・形容動詞",
		Meanings:     []string{"静かで落ち着いているさま"},
		Examples:     []string{"静謐な空間", "静謐な午後"},
		Synonyms:     []string{"静寂", "平穏", "閑静"},
	},
	{
		ID:           "3",
		Word:         "幽玄",
		Reading:      "ゆうげん",
		PartOfSpeech: "名詞・形容動詞",
		Meanings:     []string{"奥深くて上品なさま", "神秘的で深遠なさま"},
		Examples:     []string{"幽玄な美", "幽玄な世界"},
		Synonyms:     []string{"神秘的", "奥深い", "上品"},
	},
	{
		ID:           "4",
		Word:         "風雅",
		Reading:      "ふうが",
		PartOfSpeech: "名詞・形容動詞",
		Meanings:     []string{"上品で洗練されたさま", "風流で雅やかなさま"},
		Examples:     []string{"風雅な趣味", "風雅な生活"},
		Synonyms:     []string{"風流", "雅やか", "上品"},
	},
	{
		ID:           "5",
		Word:         "侘寂",
		Reading:      "わびさび",
		PartOfSpeech: "名詞",
		Meanings:     []string{"不完全さや無常性の中に見出す美意識"},
		Examples:     []string{"侘寂の美学", "侘寂な庭園"},
		Synonyms:     []string{"わび", "さび", "枯淡"},
	},
}

const dictionaryLookupPrompt = `以下の単語・表現について、作家向けの詳細な解説をしてください：
「%s」

以下の情報を含めてください：
1. 基本的な意味・定義
2. 語源や成り立ち（分かる場合）
3. 使用例・用例
4. 類語・類似表現
5. 文学作品での使用例（あれば）
6. 作家としての効果的な使い方のアドバイス

詳しく、分かりやすく説明してください。`

const suggestPrompt = `以下の文脈に適した表現・言い回しを提案してください：
「%s」

以下の観点から、複数の表現を提案してください：
1. より文学的・美しい表現
2. より具体的・鮮明な表現
3. より簡潔・明確な表現
4. より感情的・情緒的な表現

それぞれ3つずつ提案し、使用場面も説明してください。`

// DictionaryHandler serves dictionary search and expression suggestions
type DictionaryHandler struct {
	llm workflows.TextGenerator
}

// NewDictionaryHandler creates a new dictionary handler
func NewDictionaryHandler(llm workflows.TextGenerator) *DictionaryHandler {
	return &DictionaryHandler{llm: llm}
}

// Search matches the query against the built-in dictionary; on a miss it
// asks the model for an explanation instead of returning nothing
func (h *DictionaryHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query パラメータが必要です"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit パラメータが正しくありません"})
			return
		}
		limit = parsed
	}
	if limit < 1 {
		limit = 1
	} else if limit > 50 {
		limit = 50
	}

	log.Printf("Dictionary search query: %s", query)

	results := searchEntries(query)

	if len(results) == 0 {
		log.Printf("No dictionary results found, using LLM for: %s", query)
		results = append(results, h.dynamicEntry(c, query))
	}

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	c.JSON(http.StatusOK, models.DictionarySearchResponse{
		Results: results,
		Total:   total,
		Query:   query,
	})
}

func searchEntries(query string) []models.DictionaryEntry {
	needle := strings.ToLower(query)

	var results []models.DictionaryEntry
	for _, entry := range dictionaryEntries {
		if strings.Contains(strings.ToLower(entry.Word), needle) ||
			strings.Contains(strings.ToLower(entry.Reading), needle) {
			results = append(results, entry)
			continue
		}
		for _, meaning := range entry.Meanings {
			if strings.Contains(strings.ToLower(meaning), needle) {
				results = append(results, entry)
				break
			}
		}
	}
	return results
}

// dynamicEntry builds a dictionary entry from an LLM explanation, with a
// canned entry if the model is unavailable
func (h *DictionaryHandler) dynamicEntry(c *gin.Context, query string) models.DictionaryEntry {
	explanation, err := h.llm.Generate(c.Request.Context(), "", fmt.Sprintf(dictionaryLookupPrompt, query))
	if err != nil || strings.TrimSpace(explanation) == "" {
		if err != nil {
			log.Printf("Error generating dictionary entry: %v", err)
		}
		return models.DictionaryEntry{
			ID:           fmt.Sprintf("fallback-%d", queryHash(query)),
			Word:         query,
			Reading:      "※調査中",
			PartOfSpeech: "※調査中",
			Meanings:     []string{fmt.Sprintf("「%s」について情報を収集中です。しばらくお待ちください。", query)},
			Examples:     []string{"※例文準備中"},
			Synonyms:     []string{"※類語調査中"},
		}
	}

	return models.DictionaryEntry{
		ID:           fmt.Sprintf("llm-%d", queryHash(query)),
		Word:         query,
		Reading:      "※読み方調査中",
		PartOfSpeech: "※品詞調査中",
		Meanings:     []string{explanation},
		Examples:     []string{"※用例調査中"},
		Synonyms:     []string{"※類語調査中"},
	}
}

// Suggest returns expression suggestions for a piece of writing context
func (h *DictionaryHandler) Suggest(c *gin.Context) {
	writingContext := c.Query("context")
	if writingContext == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context パラメータが必要です"})
		return
	}

	log.Printf("Expression suggestion for context: %s", writingContext)

	suggestions, err := h.llm.Generate(c.Request.Context(), "", fmt.Sprintf(suggestPrompt, writingContext))
	if err != nil {
		log.Printf("Error in expression suggestion: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "expression_suggestion_error",
			"message": "表現提案でエラーが発生しました",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"context":     writingContext,
		"suggestions": suggestions,
		"success":     true,
	})
}

func queryHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % 10000
}
