// Package vectorindex keeps one vector collection per repository on top of a
// storage.Store. Collections are created lazily with a fixed dimension and the
// cosine metric, and points are addressed by a hash of file path, start line
// and ref so that re-indexing the same chunk replaces it.
package vectorindex
