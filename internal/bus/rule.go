package bus

import (
	"slices"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// Pattern selects events by envelope fields. Each non-empty list must
// contain the event's value; an empty list matches anything. Fields are
// combined with AND.
type Pattern struct {
	Source     []string
	DetailType []string
}

// Matches reports whether evt satisfies every field of the pattern.
func (p Pattern) Matches(evt domain.Event) bool {
	return matchField(p.Source, evt.Source) && matchField(p.DetailType, evt.DetailType)
}

func matchField(allowed []string, value string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, value)
}

// Rule routes matching events to one target. Name doubles as the Redis
// consumer group, so it must be stable across restarts.
type Rule struct {
	Name    string
	Pattern Pattern
}

// MutationRuleName is the name of the rule feeding the mutation consumer.
const MutationRuleName = "bookmark-mutations"

// MutationRule routes this application's createBookmark and deleteBookmark
// events and nothing else.
func MutationRule() Rule {
	return Rule{
		Name: MutationRuleName,
		Pattern: Pattern{
			Source:     []string{domain.EventSource},
			DetailType: domain.MutationNames(),
		},
	}
}
