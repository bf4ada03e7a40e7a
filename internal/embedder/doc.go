// Package embedder turns text into fixed-dimension vectors for semantic
// search.
//
// A Provider wraps one embedding service (Voyage AI, Jina AI, or a local
// feature-hashing model). The Client in front of it splits document batches
// to the provider's limit, keeps results in input order, checks dimensions
// and caches query embeddings in an LRU.
//
//	client, err := embedder.New(embedder.Config{
//	    Provider: embedder.ProviderVoyage,
//	    APIKey:   os.Getenv("VOYAGE_API_KEY"),
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	vectors, err := client.EmbedDocuments(ctx, texts) // indexing
//	query, err := client.EmbedQuery(ctx, "where are sessions refreshed") // search
//
// Document and query embeddings are asymmetric: Voyage receives
// input_type "document" or "query", Jina the matching retrieval task.
//
// Individual HTTP requests are retried with exponential backoff on
// transport errors, HTTP 429 and 5xx responses. Other 4xx responses fail
// immediately.
package embedder
