package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// WriteTree renders the JSON value as an indented tree, object keys sorted:
//
//	├─ files_count: 2
//	└─ common:
//	    └─ owner: "me"
func WriteTree(w io.Writer, v Value) error {
	tw := &treeWriter{w: w}
	tw.write("", v)
	return tw.err
}

// Tree decodes data as JSON then calls WriteTree.
func Tree(w io.Writer, data []byte) error {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode json error: %w", err)
	}

	return WriteTree(w, v)
}

type treeWriter struct {
	w   io.Writer
	err error
}

func (tw *treeWriter) printf(format string, a ...any) {
	if tw.err == nil {
		_, tw.err = fmt.Fprintf(tw.w, format, a...)
	}
}

func (tw *treeWriter) write(prefix string, v Value) {
	switch v.Kind() {
	case Object:
		m := v.Object()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for i, k := range keys {
			node, next := branch(prefix, i == len(keys)-1)
			if c := m[k]; c.Kind() == Object || c.Kind() == Array {
				tw.printf("%s%s %s:\n", prefix, node, k)
				tw.write(next, c)
			} else {
				tw.printf("%s%s %s: %s\n", prefix, node, k, c)
			}
		}

	case Array:
		a := v.Array()
		for i, c := range a {
			node, next := branch(prefix, i == len(a)-1)
			if c.Kind() == Object || c.Kind() == Array {
				tw.printf("%s%s\n", prefix, node)
				tw.write(next, c)
			} else {
				tw.printf("%s%s %s\n", prefix, node, c)
			}
		}

	default:
		tw.printf("%s%s\n", prefix, v)
	}
}

func branch(prefix string, last bool) (node, next string) {
	if last {
		return "└─", prefix + "    "
	}

	return "├─", prefix + "│   "
}
