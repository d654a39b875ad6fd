package domain

// KeyPrefix namespaces every key this service writes to a shared key-value store.
const KeyPrefix = "gcselog:"

// EmbeddingConfig holds vectorization defaults, not exposed to clients.
type EmbeddingConfig struct {
	Model      string
	Dimensions int
}

// DefaultEmbeddingConfig returns the defaults matching the resources.embedding column.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	}
}
