package database

import "github.com/npezzotti/go-teamchat/internal/types"

// referencedUserIds collects every user id named by reactions and extra,
// without duplicates.
func referencedUserIds(reactions []types.Reaction, extra []string) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, r := range reactions {
		for _, u := range r.ReactedToBy {
			add(u)
		}
	}
	for _, u := range extra {
		add(u)
	}

	return ids
}

// lookupUser returns the loaded account for id, or a bare User carrying only
// the id when the account no longer exists.
func lookupUser(users map[string]types.User, id string) types.User {
	if u, ok := users[id]; ok {
		return u
	}
	return types.User{Id: id}
}

func resolveReactions(reactions []types.Reaction, users map[string]types.User) []types.ResolvedReaction {
	normalized := types.NormalizeReactions(reactions)
	resolved := make([]types.ResolvedReaction, 0, len(normalized))
	for _, r := range normalized {
		rr := types.ResolvedReaction{
			Emoji:       r.Emoji,
			ReactedToBy: make([]types.User, len(r.ReactedToBy)),
		}
		for i, uid := range r.ReactedToBy {
			rr.ReactedToBy[i] = lookupUser(users, uid)
		}
		resolved = append(resolved, rr)
	}

	return resolved
}
