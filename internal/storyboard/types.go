// Package storyboard defines the structured description of one generated
// unit of content and the validation that turns raw model output into it.
package storyboard

import (
	"encoding/json"
	"fmt"
)

// Storyboard is the parsed plan for one video: a title and an ordered
// sequence of scenes. It is consumed exactly once by the compiler and
// never mutated after validation.
type Storyboard struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// Scene describes one scene unit. Declaration order of Objects and
// Operations is significant: it drives layout order and name resolution.
type Scene struct {
	SceneKind  string          `json:"scene_class"`
	Narration  string          `json:"narration"`
	Objects    []ObjectSpec    `json:"mobjects"`
	Operations []OperationSpec `json:"animations"`
}

// ObjectSpec declares one object. Name is optional; when absent the
// compiler synthesizes one from the kind and declaration position.
type ObjectSpec struct {
	Kind   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"kwargs,omitempty"`
}

// OperationSpec declares one animation over one or more targets.
type OperationSpec struct {
	Kind   string     `json:"type"`
	Target TargetList `json:"target"`
}

// TargetList accepts either a single string or an array of strings on
// the wire; models use both forms interchangeably.
type TargetList []string

// UnmarshalJSON implements the string-or-array decoding.
func (t *TargetList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TargetList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*t = TargetList(many)
		return nil
	}
	return fmt.Errorf("target must be a string or array of strings: %s", data)
}

// MarshalJSON keeps the single-string form for one-element lists so the
// round trip matches what the model produced.
func (t TargetList) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// SchemaError reports a storyboard whose structure the compiler cannot
// consume. It triggers a bounded retry of the generation step.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "storyboard schema error: " + e.Reason
}
