// internal/browser/describe.go
package browser

import (
	"fmt"
	"strings"
)

// maxDescribeText bounds how much of an attribute value ends up in a log line.
const maxDescribeText = 40

// DescribeTag renders a compact, log-friendly description of an element such
// as <button id="buy" class="btn primary">. Empty attributes are omitted.
func DescribeTag(tag string, attrs ...[2]string) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strings.ToLower(tag))
	for _, kv := range attrs {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%q", kv[0], truncate(kv[1], maxDescribeText))
	}
	b.WriteByte('>')
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
