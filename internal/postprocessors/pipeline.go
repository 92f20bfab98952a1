package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in Order.
type Pipeline struct {
	mu         sync.Mutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add registers a stage. Stages are re-sorted on the next Process.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process runs content through every stage and returns the final segments.
func (p *Pipeline) Process(content string) []driven.Segment {
	segments := []driven.Segment{{Text: content, End: len([]rune(content))}}
	for _, proc := range p.ordered() {
		segments = proc.Process(segments)
	}
	return segments
}

// List returns stage names in run order.
func (p *Pipeline) List() []string {
	processors := p.ordered()
	names := make([]string, len(processors))
	for i, proc := range processors {
		names[i] = proc.Name()
	}
	return names
}

// ordered returns a sorted copy of the stages
func (p *Pipeline) ordered() []driven.PostProcessor {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	return append([]driven.PostProcessor(nil), p.processors...)
}

// NewDefaultPipeline creates a pipeline with a chunker for config and, if
// requested, whitespace normalisation of the extracted text ahead of it.
func NewDefaultPipeline(config ChunkConfig, normalizeWhitespace bool) (*Pipeline, error) {
	chunker, err := NewChunker(config)
	if err != nil {
		return nil, err
	}
	p := NewPipeline()
	if normalizeWhitespace {
		p.Add(NewWhitespaceNormalizer())
	}
	p.Add(chunker)
	return p, nil
}

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// Size is the window length in characters
	Size int

	// Overlap is the number of characters consecutive windows share
	Overlap int
}

// DefaultChunkConfig returns the window used for uploaded documents.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 100,
	}
}

// Validate checks that windows advance.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Overlap, c.Size)
	}
	return nil
}

// Chunker splits content into fixed-size overlapping windows.
// Each window is trimmed; windows that are empty after trimming are dropped.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Process splits every incoming segment and renumbers the output densely.
func (c *Chunker) Process(chunks []driven.Segment) []driven.Segment {
	var result []driven.Segment
	position := 0

	for _, chunk := range chunks {
		result = append(result, c.split(chunk.Text, chunk.Start, &position)...)
	}

	return result
}

func (c *Chunker) Name() string {
	return "chunker"
}

func (c *Chunker) Order() int {
	return 0
}

// split walks content in steps of Size-Overlap and stops at the first
// window that reaches the end of the text. Offsets are in runes.
func (c *Chunker) split(content string, baseOffset int, position *int) []driven.Segment {
	runes := []rune(content)
	step := c.config.Size - c.config.Overlap

	var chunks []driven.Segment
	for start := 0; start < len(runes); start += step {
		end := start + c.config.Size
		if end > len(runes) {
			end = len(runes)
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunks = append(chunks, driven.Segment{
				Text:  text,
				Index: *position,
				Start: baseOffset + start,
				End:   baseOffset + end,
			})
			*position++
		}

		// Later windows would lie inside this one
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// WhitespaceNormalizer tidies whitespace left by PDF extraction.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a WhitespaceNormalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process collapses spaces within lines and runs of blank lines, and drops
// segments left empty.
func (w *WhitespaceNormalizer) Process(chunks []driven.Segment) []driven.Segment {
	result := make([]driven.Segment, 0, len(chunks))

	for _, chunk := range chunks {
		content := strings.ReplaceAll(chunk.Text, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")

		// Collapse runs of spaces and tabs within each line
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = strings.Join(strings.Fields(line), " ")
		}
		content = strings.Join(lines, "\n")

		for strings.Contains(content, "\n\n\n") {
			content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
		}

		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		normalized := chunk
		normalized.Text = content
		normalized.End = chunk.Start + len([]rune(content))
		result = append(result, normalized)
	}

	return result
}

func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order places the normalizer ahead of the chunker.
func (w *WhitespaceNormalizer) Order() int {
	return -10
}
