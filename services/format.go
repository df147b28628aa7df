package services

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"scribe-backend/models"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultContextLimit is the per-record character ceiling when formatting
// fetched content into a prompt.
const DefaultContextLimit = 5000

var (
	stripPolicy = bluemonday.StrictPolicy()

	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML normalizes HTML-origin content into plain text: break tags
// become newlines, remaining tags are stripped, entities are decoded and
// redundant whitespace is collapsed. Already-clean text passes through
// unchanged.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return normalizeWhitespace(s)
	}
	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return normalizeWhitespace(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// truncateContent caps content at maxLen runes of the cleaned text,
// appending an omission marker naming how much was cut.
func truncateContent(content string, maxLen int) string {
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	omitted := len(runes) - maxLen
	return string(runes[:maxLen]) + fmt.Sprintf("\n... (残り%d文字省略)", omitted)
}

// FormatEpisodes renders fetched episodes as a delimited context block.
// An empty list means no context and yields the empty string.
func FormatEpisodes(episodes []models.Episode, maxLen int) string {
	if len(episodes) == 0 {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultContextLimit
	}

	var b strings.Builder
	b.WriteString("=== 参照エピソード ===")
	for _, ep := range episodes {
		title := ep.Title
		if title == "" {
			title = "無題"
		}
		b.WriteString(fmt.Sprintf("\n\n--- Episode %d: %s ---\n", ep.EpisodeNo, title))
		b.WriteString(truncateContent(CleanHTML(ep.Content), maxLen))
		b.WriteString("\n--- エピソード終了 ---")
	}
	b.WriteString("\n=== 参照エピソード終了 ===\n")
	return b.String()
}

// FormatMaterials renders fetched reference materials as a delimited
// context block. An empty list yields the empty string.
func FormatMaterials(materials []models.Material, maxLen int) string {
	if len(materials) == 0 {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultContextLimit
	}

	var b strings.Builder
	b.WriteString("=== 参考資料 ===")
	for _, m := range materials {
		title := m.Title
		if title == "" {
			title = "無題"
		}
		b.WriteString(fmt.Sprintf("\n\n--- 資料: %s (%s) ---\n", title, m.CreatedAt))
		b.WriteString(truncateContent(CleanHTML(m.Content), maxLen))
		b.WriteString("\n--- 資料終了 ---")
	}
	b.WriteString("\n=== 参考資料終了 ===\n")
	return b.String()
}

// FormatFiles renders local file contents as a delimited context block,
// one sub-block per file in filename order.
func FormatFiles(files map[string]string) string {
	if len(files) == 0 {
		return ""
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("=== 参照ファイル ===")
	for _, name := range names {
		b.WriteString(fmt.Sprintf("\n\n--- ファイル: %s ---\n", name))
		b.WriteString(truncateContent(files[name], DefaultContextLimit))
		b.WriteString("\n--- ファイル終了 ---")
	}
	b.WriteString("\n=== 参照ファイル終了 ===\n")
	return b.String()
}
