package schema

// Source identifies the scanner that produced a report
type Source string

const (
	SourceTrivy Source = "Trivy"
	SourceSnyk  Source = "Snyk"
)

// ScanReport is one scanner's output, kept as an opaque JSON tree
type ScanReport struct {
	Source   Source      `json:"source"`
	Path     string      `json:"path"`
	Document interface{} `json:"document"`
	Size     int         `json:"size"`
}

// Completion is the text returned by the remote model for one prompt
type Completion struct {
	Text             string `json:"text"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Inputs names the files of one run
type Inputs struct {
	TrivyPath  string
	SnykPath   string
	OutputPath string
}
