package conversation

// MaxMessages is the default number of messages retained per session.
const MaxMessages = 40

// Append merges incoming into existing and returns at most MaxMessages of the
// most recent entries. See AppendN.
func Append(existing, incoming []Message) []Message {
	return AppendN(existing, incoming, MaxMessages)
}

// AppendN merges incoming into existing and keeps the newest limit messages.
//
// An incoming message whose ID matches one already present replaces it in
// place; all other incoming messages are appended in order. Messages without
// an ID are always appended. Neither input slice is modified, and relative
// order is preserved, so eviction is strictly oldest-first. A limit <= 0 keeps
// everything.
func AppendN(existing, incoming []Message, limit int) []Message {
	merged := make([]Message, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	index := make(map[string]int, len(merged))
	for i, m := range merged {
		if m.ID != "" {
			index[m.ID] = i
		}
	}
	for _, m := range incoming {
		if m.ID != "" {
			if i, ok := index[m.ID]; ok {
				merged[i] = m
				continue
			}
			index[m.ID] = len(merged)
		}
		merged = append(merged, m)
	}

	if limit > 0 && len(merged) > limit {
		trimmed := make([]Message, limit)
		copy(trimmed, merged[len(merged)-limit:])
		return trimmed
	}
	return merged
}
