// Package vocab loads the allow-list of scene, object and animation kinds
// the compiler may reference. The inventory is a precomputed CSV with
// Mobjects / Animations / Scenes sections produced by the engine
// introspection tool; it is loaded once per run and immutable afterwards.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Table is the closed vocabulary, one set per category. Keys are
// case-sensitive class names.
type Table struct {
	scenes     map[string]struct{}
	objects    map[string]struct{}
	operations map[string]struct{}
}

// New builds a table from explicit kind lists. Used by tests and by
// callers that bypass the CSV inventory.
func New(scenes, objects, operations []string) *Table {
	t := &Table{
		scenes:     make(map[string]struct{}, len(scenes)),
		objects:    make(map[string]struct{}, len(objects)),
		operations: make(map[string]struct{}, len(operations)),
	}
	for _, s := range scenes {
		t.scenes[s] = struct{}{}
	}
	for _, o := range objects {
		t.objects[o] = struct{}{}
	}
	for _, a := range operations {
		t.operations[a] = struct{}{}
	}
	return t
}

// Load reads the CSV inventory. Section headers are matched
// case-insensitively; the per-section column header row (first column
// contains "class name") and rows with an empty first column are skipped.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the inventory format from r. See Load.
func Parse(r io.Reader) (*Table, error) {
	t := New(nil, nil, nil)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var current map[string]struct{}
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read vocabulary row: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if first {
			// Inventory files exported on Windows carry a UTF-8 BOM.
			name = strings.TrimPrefix(name, "\ufeff")
			first = false
		}
		if name == "" {
			continue
		}
		switch strings.ToLower(name) {
		case "mobjects":
			current = t.objects
			continue
		case "animations":
			current = t.operations
			continue
		case "scenes":
			current = t.scenes
			continue
		}
		if strings.Contains(strings.ToLower(name), "class name") {
			continue
		}
		if current != nil {
			current[name] = struct{}{}
		}
	}
	return t, nil
}

// HasScene reports whether kind is a known scene kind.
func (t *Table) HasScene(kind string) bool {
	_, ok := t.scenes[kind]
	return ok
}

// HasObject reports whether kind is a known object kind.
func (t *Table) HasObject(kind string) bool {
	_, ok := t.objects[kind]
	return ok
}

// HasOperation reports whether kind is a known animation kind.
func (t *Table) HasOperation(kind string) bool {
	_, ok := t.operations[kind]
	return ok
}

// Scenes returns the scene kinds in sorted order.
func (t *Table) Scenes() []string { return sortedKeys(t.scenes) }

// Objects returns the object kinds in sorted order.
func (t *Table) Objects() []string { return sortedKeys(t.objects) }

// Operations returns the animation kinds in sorted order.
func (t *Table) Operations() []string { return sortedKeys(t.operations) }

// Counts returns (scenes, objects, operations) set sizes.
func (t *Table) Counts() (int, int, int) {
	return len(t.scenes), len(t.objects), len(t.operations)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
