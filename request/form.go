// SPDX-License-Identifier: ice License 1.0

package request

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// NestValues expands bracket field names the way HTML forms use them:
// a[b]=1 becomes {"a": {"b": "1"}}, a[]=1&a[]=2 becomes {"a": ["1", "2"]}.
// A plain name given more than once keeps its last value.
func NestValues(values url.Values) map[string]any {
	return Nest(map[string][]string(values))
}

// Nest is NestValues for any kind of field, e.g. uploaded files keyed by their form field name.
func Nest[T any](fields map[string][]T) map[string]any {
	tree := make(map[string]any, len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		path := splitFieldName(name)
		for _, value := range fields[name] {
			nest(tree, path, value)
		}
	}
	for key, child := range tree {
		tree[key] = compact(child)
	}

	return tree
}

func splitFieldName(name string) []string {
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.Contains(name[open:], "]") {
		return []string{name}
	}
	path := []string{name[:open]}
	for rest := name[open:]; strings.HasPrefix(rest, "["); {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}

	return path
}

func nest(tree map[string]any, path []string, value any) {
	node := tree
	for ix, key := range path {
		if key == "" && ix > 0 {
			key = strconv.Itoa(nextIndex(node))
		}
		if ix == len(path)-1 {
			node[key] = value

			return
		}
		child, isMap := node[key].(map[string]any)
		if !isMap {
			child = make(map[string]any)
			node[key] = child
		}
		node = child
	}
}

// nextIndex is one past the largest non-negative integer key, like appending to a PHP array.
func nextIndex(node map[string]any) int {
	next := 0
	for key := range node {
		if ix, ok := listIndex(key); ok && ix >= next {
			next = ix + 1
		}
	}

	return next
}

// compact turns maps keyed exactly by 0..n-1 into lists, recursively.
func compact(value any) any {
	node, isMap := value.(map[string]any)
	if !isMap {
		return value
	}
	for key, child := range node {
		node[key] = compact(child)
	}
	list := make([]any, len(node))
	for key, child := range node {
		ix, ok := listIndex(key)
		if !ok || ix >= len(node) {
			return node
		}
		list[ix] = child
	}
	if len(list) == 0 {
		return node
	}

	return list
}

func listIndex(key string) (int, bool) {
	ix, err := strconv.Atoi(key)
	if err != nil || ix < 0 || strconv.Itoa(ix) != key {
		return 0, false
	}

	return ix, true
}
