package domain

// AskRequest is a question against the knowledge base
type AskRequest struct {
	BaseURL  string `json:"ollama_url"`
	Question string `json:"question"`
}

// Source is a retrieved chunk cited in an answer
type Source struct {
	Score float64 `json:"score" example:"0.83"`
	Text  string  `json:"text"` // First SourcePreviewLength characters of the chunk
}

// SourcePreviewLength bounds the chunk preview returned with an answer
const SourcePreviewLength = 150

// Answer is the generated response with the sources used as context
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Preview returns the first n characters of text.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
