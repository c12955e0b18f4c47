package storyboard

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"scenesmith/internal/sanitize"
)

// Validate checks that parsed (the result of decoding sanitized model
// output) conforms to the minimal schema the compiler requires and
// converts it into a Storyboard. A scene missing its objects or
// animations degrades to empty sequences rather than failing: partial
// model output should compile to "do nothing", not abort the run.
func Validate(parsed any) (*Storyboard, error) {
	root, ok := parsed.(map[string]any)
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf("top level is %T, want object", parsed)}
	}
	rawScenes, ok := root["scenes"].([]any)
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf("scenes is %T, want array", root["scenes"])}
	}

	sb := &Storyboard{
		Title:  asString(root["title"]),
		Scenes: make([]Scene, 0, len(rawScenes)),
	}

	for i, rawScene := range rawScenes {
		sceneMap, ok := rawScene.(map[string]any)
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("scene %d is %T, want object", i, rawScene)}
		}
		scene := Scene{
			SceneKind: asString(sceneMap["scene_class"]),
			Narration: asString(sceneMap["narration"]),
			Objects:   []ObjectSpec{},
		}
		scene.Operations = []OperationSpec{}

		if objects, ok := sceneMap["mobjects"].([]any); ok {
			for _, rawObj := range objects {
				objMap, ok := rawObj.(map[string]any)
				if !ok {
					continue
				}
				spec := ObjectSpec{
					Kind: asString(objMap["type"]),
					Name: asString(objMap["name"]),
				}
				if kwargs, ok := objMap["kwargs"].(map[string]any); ok {
					spec.Params = kwargs
				}
				// The model sometimes tucks the name into kwargs.
				if spec.Name == "" && spec.Params != nil {
					spec.Name = asString(spec.Params["name"])
				}
				scene.Objects = append(scene.Objects, spec)
			}
		}

		if operations, ok := sceneMap["animations"].([]any); ok {
			for _, rawOp := range operations {
				opMap, ok := rawOp.(map[string]any)
				if !ok {
					continue
				}
				spec := OperationSpec{Kind: asString(opMap["type"])}
				switch target := opMap["target"].(type) {
				case string:
					spec.Target = TargetList{target}
				case []any:
					for _, el := range target {
						if s, ok := el.(string); ok {
							spec.Target = append(spec.Target, s)
						}
					}
				}
				scene.Operations = append(scene.Operations, spec)
			}
		}

		sb.Scenes = append(sb.Scenes, scene)
	}

	return sb, nil
}

// Parse runs the full recovery discipline on raw model output:
// sanitize, decode, carve-and-retry, validate.
func Parse(raw string, logger *zap.Logger) (*Storyboard, error) {
	cleaned := sanitize.SanitizeLogged(raw, logger)

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		carved := sanitize.CarveJSON(cleaned)
		if carved == cleaned {
			return nil, fmt.Errorf("parse storyboard: %w", err)
		}
		if err2 := json.Unmarshal([]byte(carved), &parsed); err2 != nil {
			return nil, fmt.Errorf("parse storyboard: %w", err)
		}
		logger.Debug("storyboard parsed after carving surrounding prose")
	}

	return Validate(parsed)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
