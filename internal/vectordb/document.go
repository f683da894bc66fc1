package vectordb

// Document is one chunk of the knowledge base.
type Document struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// Hit pairs a document with its cosine similarity to the query.
// Scores lie in [-1, 1]; higher is closer.
type Hit struct {
	Document
	Score float32 `json:"score"`
}
