package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// SchemaFor derives a JSON schema from a Go struct's json, description and
// enum tags. It panics on types the generator cannot express, so call it
// at package init with static types.
func SchemaFor(name, description string, v any) *Schema {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		panic(fmt.Sprintf("llm: schema for %s: %v", name, err))
	}
	return &Schema{Name: name, Description: description, Definition: *def}
}

// Decode parses a completion into v after checking it against schema.
// Markdown fences are tolerated and null-valued keys are treated as absent.
// Any failure wraps ErrSchemaViolation.
func Decode(content string, schema *Schema, v any) error {
	raw := StripCodeFences(content)
	if raw == "" {
		return fmt.Errorf("%w: empty completion", ErrSchemaViolation)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrSchemaViolation, err)
	}
	for key, val := range obj {
		if val == nil {
			delete(obj, key)
		}
	}

	cleaned, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(schema.Definition, cleaned, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, schema.Name, err)
	}
	return nil
}

// StripCodeFences removes a surrounding ```json ... ``` block, if any.
func StripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return strings.Trim(raw, "`")
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
