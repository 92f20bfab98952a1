package driven

// Segment is a window of document text produced by a pipeline stage.
// Start and End are rune offsets into the text the pipeline received.
type Segment struct {
	Text  string
	Index int // dense, 0-based across the document
	Start int
	End   int
}

// PostProcessor is one stage of the text pipeline.
type PostProcessor interface {
	// Process transforms segments. The first stage receives one segment
	// holding the whole extracted text.
	Process(segments []Segment) []Segment

	// Name identifies the stage in logs.
	Name() string

	// Order sorts stages; lower runs first.
	Order() int
}

// PostProcessorPipeline turns extracted text into the segments to embed.
type PostProcessorPipeline interface {
	Process(text string) []Segment
	Add(processor PostProcessor)

	// List returns stage names in run order.
	List() []string
}
