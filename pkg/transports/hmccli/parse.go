package hmccli

import "strings"

// parseAttributes parses one attr=value,attr=value output line from the
// console. Values containing commas are wrapped in double quotes by the
// console and may themselves contain nested "" pairs; the outer quoting is
// stripped.
func parseAttributes(line string) map[string]string {
	attrs := make(map[string]string)
	for _, field := range splitQuoted(line) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		attrs[key] = strings.Trim(value, `"`)
	}
	return attrs
}

// splitQuoted splits a comma-separated line while keeping quoted segments
// intact.
func splitQuoted(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}
