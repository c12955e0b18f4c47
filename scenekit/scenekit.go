// Package scenekit is the script-facing surface of the animation engine.
// Generated scene scripts import only this package: they build a Stage
// program which is later handed to a renderer. Misuse panics so that a
// dry-run of a generated script surfaces a diagnostic instead of
// producing a silently broken scene.
package scenekit

import "fmt"

// Params holds construction parameters for an object, as declared by the
// storyboard (already filtered to the supported keys by the compiler).
type Params map[string]any

// Direction is a placement direction token understood by the layout methods.
type Direction string

const (
	Up     Direction = "UP"
	Down   Direction = "DOWN"
	Left   Direction = "LEFT"
	Right  Direction = "RIGHT"
	Origin Direction = "ORIGIN"
)

// Vocabulary restricts the kinds a Stage accepts. A nil check function
// admits everything; the pipeline attaches the loaded allow-list so that
// model-repaired scripts cannot smuggle in unsupported kinds at run time.
type Vocabulary interface {
	HasObject(kind string) bool
	HasOperation(kind string) bool
	HasScene(kind string) bool
}

// Object is a handle to a constructed scene object.
type Object struct {
	Kind  string
	Name  string
	Param Params

	// Layout state recorded by Scale/ToEdge/NextTo.
	ScaleFactor float64
	Edge        Direction
	Anchor      *Object
	AnchorDir   Direction
	AnchorBuff  float64
}

// Step is one recorded instruction of a scene program.
type Step struct {
	Op      string // "play", "wait", "cue"
	Anim    string
	Targets []*Object
	Seconds float64
	Index   int
}

// SceneUnit is one scene's recorded program.
type SceneUnit struct {
	Kind      string
	Narration string
	Objects   []*Object
	Steps     []Step
}

// Stage records the program a generated script builds. It is consumed by
// the dry-run executor and by renderers; it performs no drawing itself.
type Stage struct {
	vocab  Vocabulary
	scenes []*SceneUnit
}

// NewStage returns an empty stage. vocab may be nil to disable kind checks.
func NewStage(vocab Vocabulary) *Stage {
	return &Stage{vocab: vocab}
}

// Scenes returns the recorded scene programs in declaration order.
func (s *Stage) Scenes() []*SceneUnit { return s.scenes }

func (s *Stage) current() *SceneUnit {
	if len(s.scenes) == 0 {
		panic("scenekit: no scene started; call BeginScene first")
	}
	return s.scenes[len(s.scenes)-1]
}

// BeginScene opens a new scene unit. kind must be a known scene kind when
// a vocabulary is attached.
func (s *Stage) BeginScene(kind, narration string) {
	if kind == "" {
		panic("scenekit: empty scene kind")
	}
	if s.vocab != nil && !s.vocab.HasScene(kind) {
		panic(fmt.Sprintf("scenekit: unknown scene kind %q", kind))
	}
	s.scenes = append(s.scenes, &SceneUnit{Kind: kind, Narration: narration})
}

// Add constructs an object of the given kind in the current scene and
// returns its handle. The name must be unique within the scene.
func (s *Stage) Add(kind, name string, params Params) *Object {
	sc := s.current()
	if s.vocab != nil && !s.vocab.HasObject(kind) {
		panic(fmt.Sprintf("scenekit: unknown object kind %q", kind))
	}
	for _, o := range sc.Objects {
		if o.Name == name {
			panic(fmt.Sprintf("scenekit: duplicate object name %q", name))
		}
	}
	obj := &Object{Kind: kind, Name: name, Param: params, ScaleFactor: 1}
	sc.Objects = append(sc.Objects, obj)
	return obj
}

// Play records an animation operation over one or more targets.
func (s *Stage) Play(anim string, targets ...*Object) {
	sc := s.current()
	if s.vocab != nil && !s.vocab.HasOperation(anim) {
		panic(fmt.Sprintf("scenekit: unknown animation %q", anim))
	}
	if len(targets) == 0 {
		panic(fmt.Sprintf("scenekit: %s played with no targets", anim))
	}
	for _, t := range targets {
		if t == nil {
			panic(fmt.Sprintf("scenekit: %s played on nil target", anim))
		}
	}
	sc.Steps = append(sc.Steps, Step{Op: "play", Anim: anim, Targets: targets})
}

// Wait records a settle pause at the end of a beat.
func (s *Stage) Wait(seconds float64) {
	sc := s.current()
	if seconds <= 0 {
		panic(fmt.Sprintf("scenekit: non-positive wait %v", seconds))
	}
	sc.Steps = append(sc.Steps, Step{Op: "wait", Seconds: seconds})
}

// Cue records a narration audio cue; index matches audio_frame_<index>.wav.
func (s *Stage) Cue(index int) {
	sc := s.current()
	if index < 0 {
		panic(fmt.Sprintf("scenekit: negative cue index %d", index))
	}
	sc.Steps = append(sc.Steps, Step{Op: "cue", Index: index})
}

// Scale rescales the object uniformly.
func (o *Object) Scale(factor float64) *Object {
	if factor <= 0 {
		panic(fmt.Sprintf("scenekit: non-positive scale %v on %s", factor, o.Name))
	}
	o.ScaleFactor *= factor
	return o
}

// ToEdge anchors the object to a frame edge.
func (o *Object) ToEdge(d Direction) *Object {
	o.Edge = d
	return o
}

// NextTo places the object adjacent to another with a buffer.
func (o *Object) NextTo(other *Object, d Direction, buff float64) *Object {
	if other == nil {
		panic(fmt.Sprintf("scenekit: %s placed next to nil object", o.Name))
	}
	o.Anchor = other
	o.AnchorDir = d
	o.AnchorBuff = buff
	return o
}
