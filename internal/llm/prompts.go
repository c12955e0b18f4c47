package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"scenesmith/internal/sanitize"
	"scenesmith/internal/vocab"
)

// StoryboardPrompt asks the model for a storyboard on topic, with the
// vocabulary allow-list spelled out so the model has no excuse to
// invent kinds the compiler will reject.
func StoryboardPrompt(topic string, table *vocab.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a storyboard for a short educational animation about: %s\n\n", topic)
	b.WriteString("Respond with a single JSON object and nothing else, in this exact shape:\n")
	b.WriteString(`{
  "title": "string",
  "scenes": [
    {
      "scene_class": "string, one of the allowed scene classes",
      "narration": "one or two spoken sentences for this scene",
      "mobjects": [{"type": "string", "name": "optional string", "kwargs": {}}],
      "animations": [{"type": "string", "target": "object name or type, or a list of them"}]
    }
  ]
}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the allowed classes listed below. Anything else is rejected.\n")
	b.WriteString("- Keep each scene to at most five objects.\n")
	b.WriteString("- Every animation target must name an object declared in the same scene.\n")
	b.WriteString("- Do not wrap the JSON in markdown fences or add commentary.\n\n")
	fmt.Fprintf(&b, "Allowed scene classes: %s\n", strings.Join(table.Scenes(), ", "))
	fmt.Fprintf(&b, "Allowed object types: %s\n", strings.Join(table.Objects(), ", "))
	fmt.Fprintf(&b, "Allowed animation types: %s\n", strings.Join(table.Operations(), ", "))
	return b.String()
}

// RepairPrompt asks the model to fix a failing scene script. The full
// diagnostic history rides along so the model does not cycle back to a
// mistake it already made.
func RepairPrompt(source string, diagnostics []string) string {
	var b strings.Builder
	b.WriteString("The following Go scene script fails its dry run. Fix it.\n\n")
	b.WriteString("The script must keep this contract:\n")
	b.WriteString("- package main, importing only \"scenesmith/scenekit\"\n")
	b.WriteString("- a single entry point: func BuildScene(s *scenekit.Stage)\n")
	b.WriteString("- only scene, object and animation kinds already used in the script\n\n")
	b.WriteString("Failure history, oldest first:\n")
	for i, diag := range diagnostics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, diag)
	}
	b.WriteString("\nCurrent script:\n")
	b.WriteString(source)
	b.WriteString("\n\nRespond with a single JSON object {\"code\": \"<the complete corrected script>\"} and nothing else.\n")
	return b.String()
}

// ParseFixResponse extracts the corrected script from a repair
// response. The response goes through the same sanitizer as storyboard
// output before decoding.
func ParseFixResponse(raw string) (string, error) {
	cleaned := sanitize.Sanitize(raw)

	var fix struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(cleaned), &fix); err != nil {
		carved := sanitize.CarveJSON(cleaned)
		if err2 := json.Unmarshal([]byte(carved), &fix); err2 != nil {
			return "", fmt.Errorf("fix response is not the expected JSON: %w", err)
		}
	}
	if strings.TrimSpace(fix.Code) == "" {
		return "", fmt.Errorf("fix response carries no code")
	}
	return fix.Code, nil
}
