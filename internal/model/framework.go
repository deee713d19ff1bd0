package model

// Framework is a full marketing framework document from the shared
// corpus, returned for inclusion in a prompt.
type Framework struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content"`
}

// FrameworkChunk is one indexed slice of a framework document. Chunks
// are created at ingestion time and read-only at query time; Similarity
// is computed per query and never stored.
type FrameworkChunk struct {
	ID          string  `json:"id"`
	FrameworkID string  `json:"framework_id"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"`
}

// PromptTemplate is a user-authored prompt saved in the template
// library, optionally merged into research prompts.
type PromptTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
