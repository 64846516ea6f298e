package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SupportedExtensions are the content file extensions picked up from a kind directory.
var SupportedExtensions = []string{".json", ".yaml", ".yml"}

// Record is one undecoded content record with its identity and location.
type Record struct {
	ID   string
	Loc  Location
	Node *yaml.Node
}

// ListFiles returns the supported content files in dir, sorted by name.
// A missing directory yields no files.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read content directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isSupported(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// DecodeFile reads a content file holding either a single record (mapping)
// or an ordered sequence of records.
func DecodeFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file %s: %w", path, err)
	}
	return DecodeBytes(path, data)
}

// DecodeBytes decodes content already in memory. name is used for locations
// and for the extension check.
func DecodeBytes(name string, data []byte) ([]Record, error) {
	loc := Location{File: name, Index: -1}

	root, err := parseDocument(name, data)
	if err != nil {
		return nil, schemaErr(loc, "failed to parse content: %v", err)
	}
	if root == nil {
		return nil, schemaErr(loc, "file is empty")
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	switch root.Kind {
	case yaml.MappingNode:
		loc.Line = root.Line
		return []Record{{ID: recordID(root, stem), Loc: loc, Node: root}}, nil

	case yaml.SequenceNode:
		records := make([]Record, 0, len(root.Content))
		for i, element := range root.Content {
			elemLoc := Location{File: name, Index: i, Line: element.Line}
			if element.Kind != yaml.MappingNode {
				return nil, schemaErr(elemLoc, "expected a mapping entry in record sequence")
			}
			id := recordID(element, stem+"-"+strconv.Itoa(i))
			records = append(records, Record{ID: id, Loc: elemLoc, Node: element})
		}
		return records, nil

	default:
		loc.Line = root.Line
		return nil, schemaErr(loc, "unsupported structure: expected a mapping or a list of mappings")
	}
}

// parseDocument returns the root node of the document. JSON is decoded with
// encoding/json and re-encoded as a node so every record goes through the
// same typed decode path.
func parseDocument(name string, data []byte) (*yaml.Node, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		var node yaml.Node
		if err := node.Encode(raw); err != nil {
			return nil, err
		}
		return &node, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}

// recordID picks the identity of a record from id, key or slug, falling back
// to the file stem.
func recordID(node *yaml.Node, fallback string) string {
	for _, field := range []string{"id", "key", "slug"} {
		if value := scalarField(node, field); strings.TrimSpace(value) != "" {
			return NormalizeID(value)
		}
	}
	return NormalizeID(fallback)
}

// scalarField returns the scalar value stored under key in a mapping node.
func scalarField(node *yaml.Node, key string) string {
	if field := mappingField(node, key); field != nil && field.Kind == yaml.ScalarNode {
		return field.Value
	}
	return ""
}

func mappingField(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// fieldLine returns the line of key inside a mapping node, or 0.
func fieldLine(node *yaml.Node, key string) int {
	if field := mappingField(node, key); field != nil {
		return field.Line
	}
	return 0
}
