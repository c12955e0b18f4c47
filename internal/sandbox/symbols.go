package sandbox

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"scenesmith/scenekit"
)

// Symbols exposes the scenekit package to interpreted scene scripts.
// The map layout follows the yaegi convention: import path plus package
// name, then exported identifier to value.
func Symbols() interp.Exports {
	return interp.Exports{
		"scenesmith/scenekit/scenekit": {
			"NewStage": reflect.ValueOf(scenekit.NewStage),

			"Up":     reflect.ValueOf(scenekit.Up),
			"Down":   reflect.ValueOf(scenekit.Down),
			"Left":   reflect.ValueOf(scenekit.Left),
			"Right":  reflect.ValueOf(scenekit.Right),
			"Origin": reflect.ValueOf(scenekit.Origin),

			"Stage":      reflect.ValueOf((*scenekit.Stage)(nil)),
			"Object":     reflect.ValueOf((*scenekit.Object)(nil)),
			"Params":     reflect.ValueOf((*scenekit.Params)(nil)),
			"Step":       reflect.ValueOf((*scenekit.Step)(nil)),
			"SceneUnit":  reflect.ValueOf((*scenekit.SceneUnit)(nil)),
			"Direction":  reflect.ValueOf((*scenekit.Direction)(nil)),
			"Vocabulary": reflect.ValueOf((*scenekit.Vocabulary)(nil)),
		},
	}
}
