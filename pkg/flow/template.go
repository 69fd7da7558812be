package flow

import "strings"

// TemplateRenderer is the external template collaborator: a pure
// substitution function that never fails. Malformed template syntax is
// rendered best-effort, not reported as an engine error.
type TemplateRenderer interface {
	Render(template string, vars map[string]string) string
}

// LiteralRenderer substitutes {{name}} placeholders with variable
// values. Placeholders with no matching variable are left intact, and
// whitespace inside the braces is tolerated ({{ name }}).
type LiteralRenderer struct{}

// Render implements TemplateRenderer.
func (LiteralRenderer) Render(template string, vars map[string]string) string {
	var sb strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		close := strings.Index(rest[open+2:], "}}")
		if close < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		name := strings.TrimSpace(rest[open+2 : open+2+close])
		sb.WriteString(rest[:open])
		if val, ok := vars[name]; ok {
			sb.WriteString(val)
		} else {
			sb.WriteString(rest[open : open+2+close+2])
		}
		rest = rest[open+2+close+2:]
	}
}
