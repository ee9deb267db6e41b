// Package legacy rebuilds conversations from the archival export, whose
// per-conversation message tree is serialized in the literal dialect parsed
// by internal/pylit rather than JSON.
package legacy

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nhh-linglab/linkage-cli/internal/model"
	"github.com/nhh-linglab/linkage-cli/internal/pylit"
)

// DecodeMapping parses a serialized message-mapping tree and returns the
// conversation's messages in tree order. Order is reconstructed from each
// node's parent link, never from mapping insertion order, which export tools
// do not keep stable.
//
// A payload that cannot be parsed at all returns an error; a malformed node
// inside a parsed mapping is skipped and its parseable siblings kept. Nodes
// without a message payload (root/system placeholders) are skipped.
func DecodeMapping(raw string) ([]model.Message, error) {
	v, err := pylit.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, eris.Wrap(err, "legacy: parse mapping")
	}
	mapping, ok := v.(map[string]any)
	if !ok {
		return nil, eris.New("legacy: mapping is not a dict")
	}

	nodes := make(map[string]map[string]any, len(mapping))
	for id, nv := range mapping {
		if node, ok := nv.(map[string]any); ok {
			nodes[id] = node
		}
	}
	if len(nodes) == 0 {
		return nil, eris.New("legacy: mapping has no nodes")
	}

	order := walkOrder(nodes)

	var msgs []model.Message
	for _, id := range order {
		if m, ok := extractMessage(id, nodes[id]); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// walkOrder returns node ids in depth-first order over the parent-link tree.
// Children lists are derived from parent fields; siblings order by message
// create time, then id, so repeated runs are deterministic.
func walkOrder(nodes map[string]map[string]any) []string {
	children := make(map[string][]string)
	var roots []string
	for id, node := range nodes {
		parent, _ := node["parent"].(string)
		if parent == "" || nodes[parent] == nil {
			roots = append(roots, id)
			continue
		}
		children[parent] = append(children[parent], id)
	}

	byTime := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool {
			ti, tj := nodeCreateTime(nodes[ids[i]]), nodeCreateTime(nodes[ids[j]])
			if ti != tj {
				return ti < tj
			}
			return ids[i] < ids[j]
		})
	}
	byTime(roots)
	for _, c := range children {
		byTime(c)
	}

	order := make([]string, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
		for _, c := range children[id] {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}

func nodeCreateTime(node map[string]any) float64 {
	msg, ok := node["message"].(map[string]any)
	if !ok {
		return 0
	}
	return asFloat(msg["create_time"])
}

// extractMessage pulls one Message out of a mapping node. Returns false for
// placeholder nodes and nodes with a malformed or empty message payload.
func extractMessage(id string, node map[string]any) (model.Message, bool) {
	msg, ok := node["message"].(map[string]any)
	if !ok || msg == nil {
		return model.Message{}, false
	}

	author, _ := msg["author"].(map[string]any)
	role, _ := author["role"].(string)
	if role == "" {
		return model.Message{}, false
	}

	var parts []any
	if content, ok := msg["content"].(map[string]any); ok {
		parts, _ = content["parts"].([]any)
	}
	var b strings.Builder
	for _, part := range parts {
		s, ok := part.(string)
		if !ok || s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return model.Message{}, false
	}

	msgID, _ := msg["id"].(string)
	if msgID == "" {
		msgID = id
	}

	return model.Message{
		ID:        msgID,
		Role:      model.Role(role),
		Content:   text,
		Timestamp: unixToTime(asFloat(msg["create_time"])),
	}, true
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func unixToTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	s, frac := math.Modf(sec)
	return time.Unix(int64(s), int64(frac*1e9)).UTC()
}
