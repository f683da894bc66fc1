package embeddings

import (
	"fmt"
	"os"
)

// ollamaDimensions lists output sizes of common Ollama embedding models.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// New creates an embedder for the given provider type and model.
// Supported provider types: "local", "openai", "ollama".
func New(providerType string, model string) (Embedder, error) {
	switch providerType {
	case "local":
		return NewHashEmbedder(LocalDimensions), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		if model == "" {
			model = string(ModelTextEmbedding3Small)
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model)), nil

	case "ollama":
		if model == "" {
			model = "nomic-embed-text"
		}
		dims, ok := ollamaDimensions[model]
		if !ok {
			dims = 768
		}
		return NewOllamaEmbedder(model, dims, os.Getenv("OLLAMA_HOST")), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
