// Package schema builds an object/field/relationship index from a
// Box-Salesforce JSON schema and resolves dotted field paths against it.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fairsailau/congabox2/internal/model"
)

// maxDepth bounds the traversal so pathological nesting cannot exhaust the
// stack. Real schemas stay far below this.
const maxDepth = 200

// Parse decodes a JSON schema and walks the full object/array graph once,
// collecting every object definition it can find. A schema with no
// recognizable objects yields an empty index, not an error.
func Parse(r io.Reader) (*model.SchemaIndex, error) {
	var raw any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, &model.ParseError{Stage: "schema", Err: err}
	}

	idx := &model.SchemaIndex{
		Objects: map[string]*model.SchemaObject{},
		Raw:     raw,
	}

	w := &walker{idx: idx, firstPath: map[string]string{}}
	if err := w.walk(raw, "", 0); err != nil {
		return nil, &model.ParseError{Stage: "schema", Err: err}
	}

	return idx, nil
}

type walker struct {
	idx       *model.SchemaIndex
	firstPath map[string]string // object name -> path that first claimed it
}

func (w *walker) walk(v any, path string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("schema nesting exceeds %d levels at %q", maxDepth, path)
	}

	switch node := v.(type) {
	case map[string]any:
		props, isObject := node["properties"].(map[string]any)
		if isObject {
			if err := w.walkObject(node, props, path, depth); err != nil {
				return err
			}
		}

		// Descend into every other value so objects buried inside arbitrary
		// containers (definitions, items, list elements) are still found.
		for _, key := range sortedKeys(node) {
			if isObject && key == "properties" {
				continue // handled per-property above
			}
			if err := w.walk(node[key], childPath(path, key), depth+1); err != nil {
				return err
			}
		}

	case []any:
		for _, item := range node {
			if err := w.walk(item, path, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

// walkObject processes a node carrying a properties map as an object
// definition. Nodes that resolve to no name are skipped as unnamed; their
// children are still traversed by the caller's generic descent.
func (w *walker) walkObject(node, props map[string]any, path string, depth int) error {
	name, named := objectName(node, path)
	if !named {
		// No identity to register, but objects may still live deeper.
		for _, fieldName := range sortedKeys(props) {
			if err := w.walk(props[fieldName], childPath(path, fieldName), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	obj, exists := w.idx.Objects[name]
	if exists && w.firstPath[name] != path {
		// First claim keeps the name; surface the collision instead of
		// merging a second branch over it. Deeper objects in the colliding
		// branch are still discoverable.
		w.idx.Collisions = append(w.idx.Collisions, model.NameCollision{
			Name:      name,
			FirstPath: w.firstPath[name],
			Path:      path,
		})
		for _, fieldName := range sortedKeys(props) {
			if err := w.walk(props[fieldName], childPath(path, fieldName), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if !exists {
		obj = &model.SchemaObject{
			Fields:        map[string]model.FieldInfo{},
			Relationships: map[string]string{},
		}
		w.idx.Objects[name] = obj
		w.firstPath[name] = path
	}

	required := stringSet(node["required"])

	for _, fieldName := range sortedKeys(props) {
		def, ok := props[fieldName].(map[string]any)
		if !ok {
			continue
		}

		fieldType, _ := def["type"].(string)
		if fieldType == "" {
			fieldType = "string"
		}

		if _, hasNested := def["properties"].(map[string]any); fieldType == "object" && hasNested {
			relPath := childPath(path, fieldName)
			if relName, relNamed := objectName(def, relPath); relNamed {
				obj.Relationships[fieldName] = relName
			}
			if err := w.walk(def, relPath, depth+1); err != nil {
				return err
			}
			continue
		}

		desc, _ := def["description"].(string)
		obj.Fields[fieldName] = model.FieldInfo{
			Type:        fieldType,
			Description: desc,
			Required:    required[fieldName],
		}

		// A non-object field definition can still hide object shapes, e.g.
		// arrays with an items schema.
		if err := w.walk(def, childPath(path, fieldName), depth+1); err != nil {
			return err
		}
	}

	return nil
}

// objectName resolves an object definition's identity: its title attribute
// when present, else the last segment of the traversal path. The second
// return reports whether any name could be assigned at all.
func objectName(def map[string]any, path string) (string, bool) {
	if title, ok := def["title"].(string); ok && title != "" {
		return title, true
	}
	if path != "" {
		parts := strings.Split(path, ".")
		if seg := parts[len(parts)-1]; seg != "" {
			return seg, true
		}
	}
	return "", false
}

// FindFieldMapping resolves a dotted path Object[.Relationship]*.Field by
// walking relationship edges from the first segment. Any missing hop, or a
// path with fewer than two segments, yields nil without error.
func FindFieldMapping(idx *model.SchemaIndex, fieldPath string) *model.FieldMapping {
	parts := strings.Split(fieldPath, ".")
	if len(parts) < 2 {
		return nil
	}

	obj, ok := idx.Objects[parts[0]]
	if !ok {
		return nil
	}
	objName := parts[0]

	for _, rel := range parts[1 : len(parts)-1] {
		next, ok := obj.Relationships[rel]
		if !ok {
			return nil
		}
		obj, ok = idx.Objects[next]
		if !ok {
			return nil
		}
		objName = next
	}

	fieldName := parts[len(parts)-1]
	info, ok := obj.Fields[fieldName]
	if !ok {
		return nil
	}

	return &model.FieldMapping{
		Object: objName,
		Field:  fieldName,
		Path:   fieldPath,
		Info:   info,
	}
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringSet(v any) map[string]bool {
	set := map[string]bool{}
	list, ok := v.([]any)
	if !ok {
		return set
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			set[s] = true
		}
	}
	return set
}
