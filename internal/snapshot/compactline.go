package snapshot

import "strings"

// compactLine renders the sole user-visible serialization of an element:
// "@eN role "name" [state1, state2, ...] value:"..."". State tokens fire
// only for properties.<k> == "true"; the value token only when a value
// property exists and differs from name.
func compactLine(ref, role, name string, properties map[string]string) string {
	var b strings.Builder
	b.WriteString(ref)
	b.WriteByte(' ')
	b.WriteString(role)
	if name != "" {
		b.WriteString(" \"")
		b.WriteString(name)
		b.WriteByte('"')
	}

	var states []string
	for _, key := range stateProperties {
		if properties[key] == "true" {
			states = append(states, key)
		}
	}
	if len(states) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(states, ", "))
		b.WriteByte(']')
	}

	if value, ok := properties["value"]; ok && value != name {
		b.WriteString(" value:\"")
		b.WriteString(value)
		b.WriteByte('"')
	}

	return b.String()
}
