// Package indexer coordinates the end-to-end indexing pipeline for hosted repositories.
//
// The indexer reads files through a Source, chunks them with the extension
// registry from package chunker, embeds the chunk contents in document mode
// and upserts the resulting points into the repository's collection.
//
// # Basic Usage
//
//	idx := indexer.New(chunker.New(), embedClient, manager, githubProvider,
//	    indexer.WithWorkers(4), indexer.WithLogger(logger))
//
//	stats, err := idx.IndexRepository(ctx, "acme", "api", "main")
//
//	fmt.Printf("Indexed %d files (%d chunks) in %v\n",
//	    stats.FilesIndexed, stats.ChunksIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: list the recursive tree at ref, keep blobs with a supported extension
//  2. Fetch: read each file at ref (bounded parallelism)
//  3. Chunk: split the file into semantic units, or one whole-file chunk
//  4. Embed: one batched document embedding call per file
//  5. Store: upsert one point per chunk
//
// A file that fails to fetch, embed or store is logged and counted in
// Statistics.FilesFailed; the run continues with the remaining files.
//
// # Incremental Indexing
//
// ApplyPush applies the net change set of a push without listing the tree.
// Removed paths are deleted from the collection. Added and modified paths
// have their existing points purged before they are re-indexed, so chunks
// that moved or disappeared do not linger.
//
//	changes := indexer.ChangesFromPush(event)
//	stats, err := idx.ApplyPush(ctx, owner, repo, event.GetAfter(), changes)
//
// # Concurrency
//
// Work on one file of one collection is serialized. Full-repository runs
// against the same collection are mutually exclusive; a second concurrent
// run fails fast with ErrIndexingInProgress.
package indexer
