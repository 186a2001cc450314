package dataset

// Source records where a benchmark came from.
type Source string

const (
	// SourceBuiltin marks benchmarks shipped with the repository.
	SourceBuiltin Source = "builtin"
	// SourceUploaded marks benchmarks added through the upload endpoint.
	SourceUploaded Source = "uploaded"
)

// QA is the raw question/answer file format.
type QA struct {
	Questions []string `json:"questions" yaml:"questions"`
	Answers   []string `json:"answers" yaml:"answers"`
}

// Config is the per-benchmark metadata file format.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Source      Source `json:"source,omitempty" yaml:"source,omitempty"`
}

// Listing describes an available benchmark.
type Listing struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Source        Source `json:"source"`
	QuestionCount int    `json:"questionCount"`
}

// Dir is a directory holding one benchmark per subdirectory.
type Dir struct {
	Path   string
	Source Source
}
