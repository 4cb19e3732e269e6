package domain

const DefaultGroup = "default"

type GroupingRules struct {
	ByType     bool
	ByPriority bool
}

// Group buckets notifications for client display. Type and priority rules take
// precedence over a record's own groupId; anything left over lands in "default".
func Group(notifications []Notification, rules GroupingRules) map[string][]Notification {
	groups := make(map[string][]Notification)
	for _, n := range notifications {
		key := DefaultGroup
		switch {
		case rules.ByType && n.Type != "":
			key = string(n.Type)
		case rules.ByPriority && n.Priority != "":
			key = string(n.Priority)
		case n.GroupID != "":
			key = n.GroupID
		}
		groups[key] = append(groups[key], n)
	}
	return groups
}
