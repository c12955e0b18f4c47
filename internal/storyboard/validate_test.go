package storyboard

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateRejectsNonObject(t *testing.T) {
	for _, parsed := range []any{nil, "text", 3.14, []any{"a"}} {
		_, err := Validate(parsed)
		var schemaErr *SchemaError
		require.Error(t, err)
		assert.True(t, errors.As(err, &schemaErr), "want SchemaError for %T", parsed)
	}
}

func TestValidateRejectsMissingScenes(t *testing.T) {
	_, err := Validate(map[string]any{"title": "x"})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))

	_, err = Validate(map[string]any{"title": "x", "scenes": "not an array"})
	require.True(t, errors.As(err, &schemaErr))
}

func TestValidateDefaultsMissingSequences(t *testing.T) {
	sb, err := Validate(map[string]any{
		"title": "Demo",
		"scenes": []any{
			map[string]any{"scene_class": "Scene", "narration": "hi"},
		},
	})
	require.NoError(t, err)
	require.Len(t, sb.Scenes, 1)
	assert.NotNil(t, sb.Scenes[0].Objects)
	assert.Empty(t, sb.Scenes[0].Objects)
	assert.NotNil(t, sb.Scenes[0].Operations)
	assert.Empty(t, sb.Scenes[0].Operations)
}

func TestValidateDecodesFullScene(t *testing.T) {
	raw := `{
		"title": "Demo",
		"scenes": [{
			"scene_class": "Scene",
			"narration": "a circle appears",
			"mobjects": [
				{"type": "Circle", "kwargs": {"radius": 2}},
				{"type": "Square", "name": "box", "kwargs": {"side_length": 1}}
			],
			"animations": [
				{"type": "FadeIn", "target": "Circle"},
				{"type": "Write", "target": ["Circle", "box"]}
			]
		}]
	}`
	var parsed any
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))

	sb, err := Validate(parsed)
	require.NoError(t, err)
	assert.Equal(t, "Demo", sb.Title)

	scene := sb.Scenes[0]
	require.Len(t, scene.Objects, 2)
	assert.Equal(t, "Circle", scene.Objects[0].Kind)
	assert.Empty(t, scene.Objects[0].Name)
	assert.Equal(t, "box", scene.Objects[1].Name)

	require.Len(t, scene.Operations, 2)
	assert.Equal(t, TargetList{"Circle"}, scene.Operations[0].Target)
	assert.Equal(t, TargetList{"Circle", "box"}, scene.Operations[1].Target)
}

func TestValidateLiftsNameFromParams(t *testing.T) {
	sb, err := Validate(map[string]any{
		"scenes": []any{
			map[string]any{
				"mobjects": []any{
					map[string]any{"type": "Circle", "kwargs": map[string]any{"name": "halo", "radius": 1.0}},
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "halo", sb.Scenes[0].Objects[0].Name)
}

func TestParseRecoversDamagedOutput(t *testing.T) {
	raw := "Here you go!\n```json\n" +
		`{"title": "Demo", "scenes": [{"scene_class": "Scene", "narration": "x",` +
		` "mobjects": [{"type": "Circle", "kwargs": {"radius": 1,}},], "animations": []}]` +
		"\n```"
	sb, err := Parse(raw, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Demo", sb.Title)
	require.Len(t, sb.Scenes, 1)
	require.Len(t, sb.Scenes[0].Objects, 1)
	assert.Equal(t, "Circle", sb.Scenes[0].Objects[0].Kind)
}

func TestParseSurfacesUnrecoverableOutput(t *testing.T) {
	_, err := Parse("I cannot help with that request.", zap.NewNop())
	require.Error(t, err)
}

func TestTargetListRoundTrip(t *testing.T) {
	var op OperationSpec
	require.NoError(t, json.Unmarshal([]byte(`{"type": "FadeIn", "target": "Circle"}`), &op))
	assert.Equal(t, TargetList{"Circle"}, op.Target)

	out, err := json.Marshal(op.Target)
	require.NoError(t, err)
	assert.Equal(t, `"Circle"`, string(out))
}
