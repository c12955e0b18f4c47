// Package compile deterministically transforms a validated storyboard
// into scene script source. Every kind the storyboard references is
// checked against the vocabulary allow-list; construction parameters are
// filtered to a known-safe set; declared objects are laid out in rows so
// the emitted scene never overflows the frame.
package compile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"scenesmith/internal/storyboard"
	"scenesmith/internal/vocab"
)

// ScriptFileName is the well-known filename the renderer consumes.
const ScriptFileName = "generated_scene.go"

// Layout holds the row-layout tunables.
type Layout struct {
	MaxPerRow int     // row closes when it holds this many objects
	RowBudget float64 // row closes when accumulated width exceeds this
	Buffer    float64 // horizontal gap between adjacent objects
}

// DefaultLayout returns the standard frame-fitting parameters.
func DefaultLayout() Layout {
	return Layout{MaxPerRow: 5, RowBudget: 12, Buffer: 0.5}
}

// UnknownSymbolError reports a storyboard reference to a kind outside
// the allow-list. The compiler never substitutes a replacement.
type UnknownSymbolError struct {
	Category string // "scene", "object" or "animation"
	Symbol   string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown %s kind %q", e.Category, e.Symbol)
}

// paramAllowList is the set of construction parameters known to be safe
// to pass through. Anything else the model invents is dropped.
var paramAllowList = map[string]bool{
	"radius": true, "side_length": true, "height": true,
	"fill_color": true, "fill_opacity": true,
	"stroke_color": true, "stroke_width": true,
	"font_size": true, "text": true,
	"x_range": true, "y_range": true, "axis_config": true,
	"color": true, "start": true, "end": true,
	"point": true, "matrix": true,
}

// Compiler turns storyboards into scene script source text.
type Compiler struct {
	vocab  *vocab.Table
	layout Layout
	logger *zap.Logger
}

// New creates a compiler bound to a vocabulary table.
func New(table *vocab.Table, layout Layout, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{vocab: table, layout: layout, logger: logger}
}

// boundObject is one declared object after naming.
type boundObject struct {
	kind    string
	name    string // explicit or synthesized; targets resolve against this
	varName string // sanitized unique identifier bound in the emitted source
	size    float64
}

// Compile emits the scene script for sb. The output is well-formed Go
// source defining BuildScene; it is not executed here.
func (c *Compiler) Compile(sb *storyboard.Storyboard) (string, error) {
	var b strings.Builder
	b.WriteString("package main\n\n")
	b.WriteString("import \"scenesmith/scenekit\"\n\n")
	if sb.Title != "" {
		fmt.Fprintf(&b, "// %s\n", sb.Title)
	}
	b.WriteString("func BuildScene(s *scenekit.Stage) {\n")

	// All scenes share BuildScene's scope, so identifiers are unique
	// across the whole storyboard, not just within a scene.
	usedVars := map[string]bool{}

	for sceneIdx, scene := range sb.Scenes {
		if !c.vocab.HasScene(scene.SceneKind) {
			return "", &UnknownSymbolError{Category: "scene", Symbol: scene.SceneKind}
		}
		if sceneIdx > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\t// Scene %d: %s\n", sceneIdx, snippet(scene.Narration, 50))
		fmt.Fprintf(&b, "\ts.BeginScene(%q, %q)\n", scene.SceneKind, scene.Narration)

		bound, err := c.emitObjects(&b, sceneIdx, scene.Objects, usedVars)
		if err != nil {
			return "", err
		}

		if scene.Narration != "" {
			fmt.Fprintf(&b, "\ts.Cue(%d)\n", sceneIdx)
		}

		if err := c.emitOperations(&b, sceneIdx, scene.Operations, bound); err != nil {
			return "", err
		}

		b.WriteString("\ts.Wait(1)\n")
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// emitObjects emits one construction statement per declared object and
// the row layout statements, returning the bound objects in declaration
// order for target resolution.
func (c *Compiler) emitObjects(b *strings.Builder, sceneIdx int, specs []storyboard.ObjectSpec, usedVars map[string]bool) ([]*boundObject, error) {
	var bound []*boundObject

	var row []*boundObject
	rowWidth := 0.0

	flushRow := func(scaled bool) {
		if len(row) == 0 {
			return
		}
		if scaled {
			factor := 1.0
			if rowWidth > c.layout.RowBudget {
				factor = c.layout.RowBudget / rowWidth
			}
			for _, obj := range row {
				fmt.Fprintf(b, "\t%s.Scale(%s)\n", obj.varName, formatFloat(factor))
			}
		}
		for i, obj := range row {
			if i == 0 {
				fmt.Fprintf(b, "\t%s.ToEdge(scenekit.Up)\n", obj.varName)
			} else {
				fmt.Fprintf(b, "\t%s.NextTo(%s, scenekit.Right, %s)\n",
					obj.varName, row[i-1].varName, formatFloat(c.layout.Buffer))
			}
		}
		row = nil
		rowWidth = 0
	}

	for declIdx, spec := range specs {
		if !c.vocab.HasObject(spec.Kind) {
			return nil, &UnknownSymbolError{Category: "object", Symbol: spec.Kind}
		}

		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d_%d", strings.ToLower(spec.Kind), sceneIdx, declIdx)
		}
		varName := uniqueIdent(name, usedVars)

		params := filterParams(spec.Params)
		obj := &boundObject{
			kind:    spec.Kind,
			name:    name,
			varName: varName,
			size:    dominantSize(spec.Params),
		}
		fmt.Fprintf(b, "\t%s := s.Add(%q, %q, %s)\n", varName, spec.Kind, varName, paramsLiteral(params))

		rowWidth += obj.size + c.layout.Buffer
		row = append(row, obj)
		bound = append(bound, obj)

		if len(row) >= c.layout.MaxPerRow || rowWidth > c.layout.RowBudget {
			flushRow(true)
		}
	}

	// Incomplete trailing row is positioned without the scale correction.
	flushRow(false)

	return bound, nil
}

// emitOperations resolves each operation's targets and emits the play
// statements. Unresolved targets drop the operation silently; partially
// runnable output beats aborting the whole scene.
func (c *Compiler) emitOperations(b *strings.Builder, sceneIdx int, specs []storyboard.OperationSpec, bound []*boundObject) error {
	for _, spec := range specs {
		if !c.vocab.HasOperation(spec.Kind) {
			return &UnknownSymbolError{Category: "animation", Symbol: spec.Kind}
		}

		var vars []string
		for _, target := range spec.Target {
			if obj := resolveTarget(target, bound); obj != nil {
				vars = append(vars, obj.varName)
			} else {
				c.logger.Warn("dropping operation with unresolved target",
					zap.String("animation", spec.Kind),
					zap.String("target", target),
					zap.Int("scene", sceneIdx))
			}
		}
		if len(vars) == 0 {
			continue
		}
		fmt.Fprintf(b, "\ts.Play(%q, %s)\n", spec.Kind, strings.Join(vars, ", "))
	}
	return nil
}

// resolveTarget finds the first declared object whose name or kind
// exactly equals target. Declaration order wins; there is no preference
// between name and kind matches.
func resolveTarget(target string, bound []*boundObject) *boundObject {
	for _, obj := range bound {
		if obj.name == target || obj.kind == target {
			return obj
		}
	}
	return nil
}

// dominantSize picks the parameter that drives row width accumulation.
func dominantSize(params map[string]any) float64 {
	for _, key := range []string{"radius", "side_length", "height"} {
		if v, ok := toFloat(params[key]); ok {
			return v
		}
	}
	return 1
}

// filterParams keeps only allow-listed keys. The name key is consumed
// by naming and never passed through.
func filterParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any)
	for k, v := range params {
		if paramAllowList[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// paramsLiteral renders params as a scenekit.Params literal with sorted
// keys so compilation output is byte-for-byte deterministic.
func paramsLiteral(params map[string]any) string {
	if len(params) == 0 {
		return "nil"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("scenekit.Params{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %s", k, valueLiteral(params[k]))
	}
	b.WriteString("}")
	return b.String()
}

// valueLiteral renders one decoded JSON value as Go source.
func valueLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strconv.Quote(val)
	case float64:
		return formatFloat(val)
	case int:
		return strconv.Itoa(val)
	case []any:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = valueLiteral(el)
		}
		return "[]any{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(val))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%q: %s", k, valueLiteral(val[k])))
		}
		return "map[string]any{" + strings.Join(parts, ", ") + "}"
	default:
		return strconv.Quote(fmt.Sprintf("%v", val))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// uniqueIdent converts a declared name into an unused Go identifier.
func uniqueIdent(name string, used map[string]bool) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				b.WriteRune('o')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	ident := b.String()
	if ident == "" {
		ident = "obj"
	}
	if !used[ident] {
		used[ident] = true
		return ident
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", ident, i)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// snippet shortens narration for the scene comment.
func snippet(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
