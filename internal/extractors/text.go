package extractors

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// PlainTextExtractor reads text documents as-is.
type PlainTextExtractor struct{}

// Extract returns the file content with line endings normalised.
func (e *PlainTextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text document: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text document is not valid UTF-8")
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n"), nil
}

func (e *PlainTextExtractor) SupportedTypes() []string {
	return []string{"text/*"}
}

func (e *PlainTextExtractor) Priority() int {
	return 10 // Generic text
}

// HTMLExtractor strips markup from HTML documents.
type HTMLExtractor struct{}

// Extract returns the visible text of the HTML document.
func (e *HTMLExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html document: %w", err)
	}

	content := removeHTMLBlocks(string(data), "script")
	content = removeHTMLBlocks(content, "style")
	content = stripHTMLTags(content)
	content = decodeHTMLEntities(content)

	return strings.ReplaceAll(content, "\r\n", "\n"), nil
}

func (e *HTMLExtractor) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (e *HTMLExtractor) Priority() int {
	return 50 // Format-specific
}

func removeHTMLBlocks(content, tagName string) string {
	startTag := "<" + tagName
	endTag := "</" + tagName + ">"

	for {
		lower := strings.ToLower(content)
		startIdx := strings.Index(lower, startTag)
		if startIdx == -1 {
			return content
		}
		endIdx := strings.Index(lower[startIdx:], endTag)
		if endIdx == -1 {
			return content
		}
		content = content[:startIdx] + content[startIdx+endIdx+len(endTag):]
	}
}

func stripHTMLTags(content string) string {
	var result strings.Builder
	inTag := false

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&apos;", "'",
	"&#39;", "'",
)

func decodeHTMLEntities(content string) string {
	return htmlEntities.Replace(content)
}
