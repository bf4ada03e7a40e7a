package indexer

import (
	"sort"

	"github.com/google/go-github/v68/github"
)

// Changes is the net effect of a push on the repository's files
type Changes struct {
	Upserted []string `json:"upserted"`
	Removed  []string `json:"removed"`
}

// Empty reports whether the change set touches no files
func (c Changes) Empty() bool {
	return len(c.Upserted) == 0 && len(c.Removed) == 0
}

// ChangesFromPush folds the commits of a push event in order, so the last
// commit touching a path decides whether it is re-indexed or removed.
func ChangesFromPush(ev *github.PushEvent) Changes {
	const (
		upsert = iota + 1
		remove
	)
	state := make(map[string]int)
	for _, c := range ev.Commits {
		for _, p := range c.Added {
			state[p] = upsert
		}
		for _, p := range c.Modified {
			state[p] = upsert
		}
		for _, p := range c.Removed {
			state[p] = remove
		}
	}

	var changes Changes
	for p, s := range state {
		if s == upsert {
			changes.Upserted = append(changes.Upserted, p)
		} else {
			changes.Removed = append(changes.Removed, p)
		}
	}
	sort.Strings(changes.Upserted)
	sort.Strings(changes.Removed)
	return changes
}

// IsDefaultBranchPush reports whether ref is exactly the main or master
// branch. Only those pushes update the index.
func IsDefaultBranchPush(ref string) bool {
	return ref == "refs/heads/main" || ref == "refs/heads/master"
}

// PushTarget extracts the repository and commit a push event should be indexed at
func PushTarget(ev *github.PushEvent) (owner, repo, sha string) {
	r := ev.GetRepo()
	owner = r.GetOwner().GetLogin()
	if owner == "" {
		owner = r.GetOwner().GetName()
	}
	return owner, r.GetName(), ev.GetAfter()
}
