package compile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scenesmith/internal/storyboard"
	"scenesmith/internal/vocab"
)

func testVocab(t *testing.T) *vocab.Table {
	t.Helper()
	return vocab.New(
		[]string{"Scene", "ThreeDScene"},
		[]string{"Circle", "Square", "Dot", "Text"},
		[]string{"FadeIn", "Write", "Create"},
	)
}

func testCompiler(t *testing.T) *Compiler {
	t.Helper()
	return New(testVocab(t), DefaultLayout(), zap.NewNop())
}

func TestCompileDemoStoryboard(t *testing.T) {
	sb := &storyboard.Storyboard{
		Title: "Demo",
		Scenes: []storyboard.Scene{{
			SceneKind:  "Scene",
			Narration:  "x",
			Objects:    []storyboard.ObjectSpec{{Kind: "Circle"}},
			Operations: []storyboard.OperationSpec{{Kind: "FadeIn", Target: storyboard.TargetList{"Circle"}}},
		}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	assert.Contains(t, src, "package main")
	assert.Contains(t, src, `import "scenesmith/scenekit"`)
	assert.Contains(t, src, `s.BeginScene("Scene", "x")`)
	assert.Contains(t, src, `circle_0_0 := s.Add("Circle", "circle_0_0", nil)`)
	assert.Contains(t, src, "s.Cue(0)")
	assert.Contains(t, src, `s.Play("FadeIn", circle_0_0)`)
	assert.Contains(t, src, "s.Wait(1)")
}

func TestCompileRejectsUnknownKinds(t *testing.T) {
	tests := []struct {
		name     string
		scene    storyboard.Scene
		category string
		symbol   string
	}{
		{
			name:     "scene kind",
			scene:    storyboard.Scene{SceneKind: "HoloDeck"},
			category: "scene",
			symbol:   "HoloDeck",
		},
		{
			name: "object kind",
			scene: storyboard.Scene{
				SceneKind: "Scene",
				Objects:   []storyboard.ObjectSpec{{Kind: "Dragon"}},
			},
			category: "object",
			symbol:   "Dragon",
		},
		{
			name: "animation kind",
			scene: storyboard.Scene{
				SceneKind:  "Scene",
				Operations: []storyboard.OperationSpec{{Kind: "Explode", Target: storyboard.TargetList{"Circle"}}},
			},
			category: "animation",
			symbol:   "Explode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testCompiler(t).Compile(&storyboard.Storyboard{Scenes: []storyboard.Scene{tt.scene}})
			var unknown *UnknownSymbolError
			require.True(t, errors.As(err, &unknown), "got %v", err)
			assert.Equal(t, tt.category, unknown.Category)
			assert.Equal(t, tt.symbol, unknown.Symbol)
		})
	}
}

// Six size-3 squares against a budget of 12 must split into two rows:
// the first closed over budget and scaled down, the trailing row left
// at natural size.
func TestCompileRowLayout(t *testing.T) {
	objects := make([]storyboard.ObjectSpec, 6)
	for i := range objects {
		objects[i] = storyboard.ObjectSpec{Kind: "Square", Params: map[string]any{"side_length": 3.0}}
	}
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{{SceneKind: "Scene", Objects: objects}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	// First row: four objects at accumulated width 14 scaled by 12/14.
	assert.Equal(t, 4, strings.Count(src, ".Scale("), "only the closed row is rescaled")
	assert.Contains(t, src, "square_0_0.Scale(0.8571428571428571)")
	assert.Contains(t, src, "square_0_3.Scale(0.8571428571428571)")
	assert.NotContains(t, src, "square_0_4.Scale(")
	assert.NotContains(t, src, "square_0_5.Scale(")

	// Each row anchors its head to the edge and chains the rest.
	assert.Contains(t, src, "square_0_0.ToEdge(scenekit.Up)")
	assert.Contains(t, src, "square_0_4.ToEdge(scenekit.Up)")
	assert.Contains(t, src, "square_0_1.NextTo(square_0_0, scenekit.Right, 0.5)")
	assert.Contains(t, src, "square_0_5.NextTo(square_0_4, scenekit.Right, 0.5)")
}

func TestCompileFiltersParams(t *testing.T) {
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{{
			SceneKind: "Scene",
			Objects: []storyboard.ObjectSpec{{
				Kind: "Circle",
				Params: map[string]any{
					"radius":        2.0,
					"fill_color":    "BLUE",
					"on_click":      "os.system('rm -rf /')",
					"run_time_hack": 99.0,
				},
			}},
		}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	assert.Contains(t, src, `scenekit.Params{"fill_color": "BLUE", "radius": 2}`)
	assert.NotContains(t, src, "on_click")
	assert.NotContains(t, src, "run_time_hack")
}

func TestCompileTargetResolution(t *testing.T) {
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{{
			SceneKind: "Scene",
			Objects: []storyboard.ObjectSpec{
				{Kind: "Circle"},
				{Kind: "Circle", Name: "halo"},
			},
			Operations: []storyboard.OperationSpec{
				{Kind: "FadeIn", Target: storyboard.TargetList{"Circle"}},
				{Kind: "Write", Target: storyboard.TargetList{"halo", "Circle"}},
				{Kind: "Create", Target: storyboard.TargetList{"ghost"}},
			},
		}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	// Kind match resolves to the first declaration.
	assert.Contains(t, src, `s.Play("FadeIn", circle_0_0)`)
	// Sequence targets resolve independently, in discovery order.
	assert.Contains(t, src, `s.Play("Write", halo, circle_0_0)`)
	// Unresolvable targets drop the whole operation.
	assert.NotContains(t, src, `s.Play("Create"`)
}

func TestCompileSynthesizedNamesUnique(t *testing.T) {
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{
			{SceneKind: "Scene", Objects: []storyboard.ObjectSpec{{Kind: "Circle"}, {Kind: "Circle"}, {Kind: "Dot"}}},
			{SceneKind: "Scene", Objects: []storyboard.ObjectSpec{{Kind: "Circle"}}},
		},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	for _, name := range []string{"circle_0_0", "circle_0_1", "dot_0_2", "circle_1_0"} {
		assert.Equal(t, 1, strings.Count(src, name+" := s.Add("), "one binding for %s", name)
	}
}

func TestCompileDuplicateExplicitNames(t *testing.T) {
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{{
			SceneKind: "Scene",
			Objects: []storyboard.ObjectSpec{
				{Kind: "Circle", Name: "box"},
				{Kind: "Square", Name: "box"},
			},
			Operations: []storyboard.OperationSpec{
				{Kind: "FadeIn", Target: storyboard.TargetList{"box"}},
			},
		}, {
			// Scenes share BuildScene's scope, so a name reused in a
			// later scene must still get a fresh identifier.
			SceneKind: "Scene",
			Objects:   []storyboard.ObjectSpec{{Kind: "Circle", Name: "box"}},
		}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)

	assert.Contains(t, src, `box := s.Add("Circle", "box", nil)`)
	assert.Contains(t, src, `box_2 := s.Add("Square", "box_2", nil)`)
	assert.Contains(t, src, `box_3 := s.Add("Circle", "box_3", nil)`)
	// First declaration wins the name.
	assert.Contains(t, src, `s.Play("FadeIn", box)`)
}

func TestCompileSkipsCueWithoutNarration(t *testing.T) {
	sb := &storyboard.Storyboard{
		Scenes: []storyboard.Scene{{
			SceneKind: "Scene",
			Objects:   []storyboard.ObjectSpec{{Kind: "Dot"}},
		}},
	}

	src, err := testCompiler(t).Compile(sb)
	require.NoError(t, err)
	assert.NotContains(t, src, "s.Cue(")
	assert.Contains(t, src, "s.Wait(1)")
}

func TestCompileDeterministic(t *testing.T) {
	sb := &storyboard.Storyboard{
		Title: "Stable",
		Scenes: []storyboard.Scene{{
			SceneKind: "Scene",
			Narration: "n",
			Objects: []storyboard.ObjectSpec{{
				Kind: "Text",
				Params: map[string]any{
					"text": "hi", "font_size": 36.0, "color": "WHITE",
					"stroke_width": 2.0, "fill_opacity": 0.5,
				},
			}},
		}},
	}

	c := testCompiler(t)
	first, err := c.Compile(sb)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Compile(sb)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
