// Package catalog parses the monitor catalog's nested mapping/list
// dialect into CatalogEntry values, leaving the foreach/if control
// clauses as raw, ordered statement trees for internal/compiler to
// lower.
package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one user-declared task.
type CatalogEntry struct {
	ID      string
	Run     string
	Every   map[string]float64
	At      map[string]string
	Clauses []RawClause
}

// RawClause is one "foreach …:"/"if …:"/"elif …:"/"else:" block: Key
// is the clause text with its trailing colon and leading mapping
// syntax already stripped by the YAML decoder (e.g. "foreach fs,
// stats" or "if cond"); Body is its ordered statement list.
type RawClause struct {
	Key  string
	Body []RawStatement
}

// RawStatement is either a probe command line (Run non-empty) or a
// nested control clause (Clause non-nil).
type RawStatement struct {
	Run    string
	Clause *RawClause
}

// Catalog is the parsed "monitor:" sequence.
type Catalog struct {
	Entries []CatalogEntry
}

// Parse decodes catalog YAML text into a Catalog. Parse only validates
// document shape (mappings/sequences where expected); compile-time
// semantic errors (unknown commands, malformed references, duplicate
// ids) are internal/compiler's responsibility.
func Parse(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(root.Content) == 0 {
		return &Catalog{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse catalog: expected a top-level mapping")
	}

	var monitorNode *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "monitor" {
			monitorNode = doc.Content[i+1]
			break
		}
	}
	if monitorNode == nil {
		return &Catalog{}, nil
	}
	if monitorNode.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parse catalog: \"monitor\" must be a sequence")
	}

	cat := &Catalog{}
	for _, item := range monitorNode.Content {
		entry, err := parseEntry(item)
		if err != nil {
			return nil, err
		}
		cat.Entries = append(cat.Entries, entry)
	}
	return cat, nil
}

func parseEntry(node *yaml.Node) (CatalogEntry, error) {
	if node.Kind != yaml.MappingNode {
		return CatalogEntry{}, fmt.Errorf("catalog entry must be a mapping")
	}
	var entry CatalogEntry
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case key.Value == "id":
			entry.ID = val.Value
		case key.Value == "run":
			entry.Run = val.Value
		case key.Value == "every":
			m, err := decodeFloatMap(val)
			if err != nil {
				return CatalogEntry{}, err
			}
			entry.Every = m
		case key.Value == "at":
			m, err := decodeStringMap(val)
			if err != nil {
				return CatalogEntry{}, err
			}
			entry.At = m
		case isClauseKey(key.Value):
			body, err := parseStatements(val)
			if err != nil {
				return CatalogEntry{}, err
			}
			entry.Clauses = append(entry.Clauses, RawClause{Key: key.Value, Body: body})
		default:
			// Unknown top-level keys are ignored.
		}
	}
	return entry, nil
}

// isClauseKey reports whether a mapping key introduces a control
// clause rather than a recognized fixed field.
func isClauseKey(key string) bool {
	return strings.HasPrefix(key, "foreach ") ||
		strings.HasPrefix(key, "if ") ||
		strings.HasPrefix(key, "elif ") ||
		key == "else"
}

func decodeFloatMap(node *yaml.Node) (map[string]float64, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("every: expected a mapping")
	}
	out := map[string]float64{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v float64
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("every.%s: %w", node.Content[i].Value, err)
		}
		out[node.Content[i].Value] = v
	}
	return out, nil
}

func decodeStringMap(node *yaml.Node) (map[string]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("at: expected a mapping")
	}
	out := map[string]string{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		out[node.Content[i].Value] = node.Content[i+1].Value
	}
	return out, nil
}

func parseStatements(node *yaml.Node) ([]RawStatement, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a list of statements")
	}
	stmts := make([]RawStatement, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			stmts = append(stmts, RawStatement{Run: item.Value})
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				return nil, fmt.Errorf("a nested control clause must have exactly one key")
			}
			body, err := parseStatements(item.Content[1])
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, RawStatement{Clause: &RawClause{
				Key:  item.Content[0].Value,
				Body: body,
			}})
		default:
			return nil, fmt.Errorf("unsupported statement value")
		}
	}
	return stmts, nil
}
