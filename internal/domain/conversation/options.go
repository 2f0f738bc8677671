package conversation

// ListOptions controls history retrieval.
type ListOptions struct {
	// Limit keeps only the most recent turns. Zero means all.
	Limit int
}
