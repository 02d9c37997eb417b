package reactions

import (
	"sort"

	"alumnichat/pkg/models"
)

// AggregateSet groups a reactor -> emoji map by emoji. Groups are ordered by
// emoji and reactors by name so every caller renders the same list.
func AggregateSet(set map[string]string, viewer string) []models.ReactionGroup {
	byEmoji := make(map[string][]string)
	for reactor, emoji := range set {
		byEmoji[emoji] = append(byEmoji[emoji], reactor)
	}
	groups := make([]models.ReactionGroup, 0, len(byEmoji))
	for emoji, reactors := range byEmoji {
		sort.Strings(reactors)
		g := models.ReactionGroup{Emoji: emoji, Reactors: reactors, Count: len(reactors)}
		for _, r := range reactors {
			if r == viewer {
				g.Mine = true
				break
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Emoji < groups[j].Emoji })
	return groups
}
