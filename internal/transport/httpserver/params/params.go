// Package params decodes query strings written in bracket notation
// (k[]=a&k[x][y]=b) into domain parameters.
package params

import (
	"net/url"
	"strconv"
	"strings"

	"content-query-service/internal/domain"
)

// Limits bounds how much of a query string is decoded.
type Limits struct {
	MaxValues int // pairs beyond this are ignored
	MaxDepth  int // pairs nested deeper than this are ignored
}

// DefaultLimits are the limits used when none are configured.
var DefaultLimits = Limits{MaxValues: 1000, MaxDepth: 16}

// node is an ordered tree built while decoding. A node is either a leaf
// holding text or a branch holding children in insertion order.
type node struct {
	leaf     bool
	text     string
	keys     []string
	children map[string]*node
	next     int
}

func newBranch() *node {
	return &node{children: map[string]*node{}}
}

func (n *node) child(key string) *node {
	if key == "" {
		key = strconv.Itoa(n.next)
	}
	if idx, err := strconv.Atoi(key); err == nil && idx >= n.next {
		n.next = idx + 1
	}
	c, ok := n.children[key]
	if !ok {
		c = newBranch()
		n.children[key] = c
		n.keys = append(n.keys, key)
	}
	return c
}

func (n *node) set(text string) {
	n.leaf = true
	n.text = text
	n.keys = nil
	n.children = map[string]*node{}
	n.next = 0
}

func (n *node) branch() {
	if n.leaf {
		n.leaf = false
		n.text = ""
	}
}

func (n *node) value() domain.Value {
	if n.leaf {
		return domain.String(n.text)
	}
	indexed := true
	for _, k := range n.keys {
		if _, err := strconv.Atoi(k); err != nil {
			indexed = false
			break
		}
	}
	if indexed {
		items := make([]domain.Value, len(n.keys))
		for i, k := range n.keys {
			items[i] = n.children[k].value()
		}
		return domain.ListOf(items...)
	}
	m := make(map[string]domain.Value, len(n.keys))
	for _, k := range n.keys {
		m[k] = n.children[k].value()
	}
	return domain.Map(m)
}

// Parse decodes raw into parameters. Later pairs overwrite earlier ones and
// empty brackets append. Malformed escapes and pairs past the limits are
// dropped without error.
func Parse(raw string, limits Limits) domain.Params {
	if limits.MaxValues <= 0 {
		limits.MaxValues = DefaultLimits.MaxValues
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultLimits.MaxDepth
	}

	root := newBranch()
	count := 0

	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' }) {
		if count >= limits.MaxValues {
			break
		}
		count++

		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			continue
		}

		name, path, ok := splitKey(key)
		if !ok || len(path) > limits.MaxDepth {
			continue
		}

		cur := root.child(name)
		for _, segment := range path {
			cur.branch()
			cur = cur.child(segment)
		}
		cur.set(val)
	}

	out := make(domain.Params, len(root.keys))
	for _, k := range root.keys {
		out[k] = root.children[k].value()
	}
	return out
}

// splitKey separates the base name from its bracket segments. An unclosed
// bracket makes the rest of the key part of the name. Dots and spaces in
// the base name become underscores.
func splitKey(key string) (string, []string, bool) {
	open := strings.IndexByte(key, '[')
	if open == 0 {
		return "", nil, false
	}
	if open < 0 || !strings.Contains(key[open:], "]") {
		name := normalizeName(key)
		return name, nil, name != ""
	}

	name := normalizeName(key[:open])
	var path []string
	rest := key[open:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return name, path, name != ""
}

func normalizeName(name string) string {
	return strings.NewReplacer(".", "_", " ", "_").Replace(name)
}
