package types

import "slices"

// Reaction is the stored form of an emoji reaction: the emoji and the
// identities of the users who reacted with it.
type Reaction struct {
	Emoji       string   `json:"emoji"`
	ReactedToBy []string `json:"reactedToBy"`
}

// ToggleReaction returns a copy of reactions with userId toggled on emoji.
// If userId already reacted with emoji it is removed, and the entry is dropped
// once nobody is left on it. Otherwise userId is added, creating the entry if
// needed. The input slice is never modified.
func ToggleReaction(reactions []Reaction, emoji, userId string) []Reaction {
	out := NormalizeReactions(reactions)

	i := slices.IndexFunc(out, func(r Reaction) bool { return r.Emoji == emoji })
	if i < 0 {
		return append(out, Reaction{Emoji: emoji, ReactedToBy: []string{userId}})
	}

	if slices.Contains(out[i].ReactedToBy, userId) {
		out[i].ReactedToBy = slices.DeleteFunc(out[i].ReactedToBy, func(u string) bool { return u == userId })
		if len(out[i].ReactedToBy) == 0 {
			out = slices.Delete(out, i, i+1)
		}
		return out
	}

	out[i].ReactedToBy = append(out[i].ReactedToBy, userId)
	return out
}

// NormalizeReactions copies reactions so that every emoji appears once,
// no user is listed twice on an emoji and no entry is empty. Order of first
// appearance is kept.
func NormalizeReactions(reactions []Reaction) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	for _, r := range reactions {
		i := slices.IndexFunc(out, func(o Reaction) bool { return o.Emoji == r.Emoji })
		if i < 0 {
			out = append(out, Reaction{Emoji: r.Emoji})
			i = len(out) - 1
		}

		for _, u := range r.ReactedToBy {
			if !slices.Contains(out[i].ReactedToBy, u) {
				out[i].ReactedToBy = append(out[i].ReactedToBy, u)
			}
		}
	}

	return slices.DeleteFunc(out, func(r Reaction) bool { return len(r.ReactedToBy) == 0 })
}
