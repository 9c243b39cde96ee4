package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FormatIssue renders a single issue as "<message> → at <dot.path>",
// omitting the "→ at ..." suffix entirely when the path is empty.
func FormatIssue(issue ValidationIssue) string {
	if len(issue.Path) == 0 {
		return issue.Message
	}
	return fmt.Sprintf("%s → at %s", issue.Message, JoinPath(issue.Path))
}

// FormatIssues renders every issue, one per line, in order.
func FormatIssues(issues []ValidationIssue) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = FormatIssue(issue)
	}
	return strings.Join(lines, "\n")
}

// JoinPath dot-joins a path of string keys / int indices.
func JoinPath(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		switch v := p.(type) {
		case string:
			parts[i] = v
		case int:
			parts[i] = strconv.Itoa(v)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return strings.Join(parts, ".")
}

// ResolveIssuePath walks a reported issue's path against raw JSON using
// gjson, for validators whose ValidationResult does not carry a resolved
// sub-value of its own. Returns the raw matched value and whether the path
// resolved to anything.
func ResolveIssuePath(rawJSON []byte, path []any) (gjson.Result, bool) {
	if len(path) == 0 {
		return gjson.Result{}, false
	}
	result := gjson.GetBytes(rawJSON, gjsonPath(path))
	return result, result.Exists()
}

// gjsonPath converts a Standard-Schema-style path into gjson's dotted
// path syntax, escaping literal dots within keys.
func gjsonPath(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		switch v := p.(type) {
		case string:
			parts[i] = strings.ReplaceAll(v, ".", `\.`)
		case int:
			parts[i] = strconv.Itoa(v)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return strings.Join(parts, ".")
}
