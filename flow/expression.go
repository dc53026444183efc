package flow

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Expressions are embedded in string configuration values between double
// braces: "https://api.example.com/{{$json.path}}". Inside an expression,
// node-scoped references name a prior node:
//
//	{{$node["Fetch Data"].json.body}}
//	{{$('Fetch Data').item.json.body}}
//
// References to the current item ($json, $items), the environment ($env)
// and workflow metadata ($workflow) do not name nodes and are not resolved
// against the graph.
var (
	nodeRefBracket = regexp.MustCompile(`\$node\[\s*"((?:[^"\\]|\\.)*)"\s*\]`)
	nodeRefCall    = regexp.MustCompile(`\$\(\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*\)`)
)

// scanExpressions extracts the bodies of all double-brace expressions in s.
// It returns ok=false when the delimiters are unbalanced: a closing "}}"
// with no matching opener, or an opener that never closes.
func scanExpressions(s string) (bodies []string, ok bool) {
	for {
		open := strings.Index(s, "{{")
		closer := strings.Index(s, "}}")
		if open == -1 && closer == -1 {
			return bodies, true
		}
		if open == -1 || (closer != -1 && closer < open) {
			// Stray closer before any opener.
			return bodies, false
		}
		rest := s[open+2:]
		end := strings.Index(rest, "}}")
		if end == -1 {
			// Opener that never closes.
			return bodies, false
		}
		bodies = append(bodies, rest[:end])
		s = rest[end+2:]
	}
}

// nodeRefs returns the node names referenced by an expression body, in
// order of appearance.
func nodeRefs(body string) []string {
	var refs []string
	for _, m := range nodeRefBracket.FindAllStringSubmatch(body, -1) {
		refs = append(refs, unescapeRef(m[1]))
	}
	for _, m := range nodeRefCall.FindAllStringSubmatch(body, -1) {
		if m[1] != "" {
			refs = append(refs, unescapeRef(m[1]))
		} else {
			refs = append(refs, unescapeRef(m[2]))
		}
	}
	return refs
}

// unescapeRef removes backslash escapes from a quoted node name.
func unescapeRef(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// walkStrings visits every string value nested inside v, calling fn with a
// dotted field path and the string. Map keys are visited in sorted order
// so repeated walks of the same parameters produce identical sequences.
func walkStrings(path string, v any, fn func(field, s string)) {
	switch val := v.(type) {
	case string:
		fn(path, val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			walkStrings(child, val[k], fn)
		}
	case []any:
		for i, item := range val {
			walkStrings(path+"["+strconv.Itoa(i)+"]", item, fn)
		}
	}
}
