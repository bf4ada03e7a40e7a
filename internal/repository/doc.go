// Package repository provides access to hosted repositories.
//
// ContentProvider is the boundary the indexer and the agent tools talk to.
// GitHubProvider implements it with the GitHub REST API: file reads and
// writes through the contents API, recursive trees through the git data API,
// pull request metadata, diffs, review comments and reactions through the
// pulls API.
package repository
