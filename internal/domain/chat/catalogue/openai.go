package catalogue

import "github.com/sashabaranov/go-openai"

// OpenAITools renders the catalogue as chat-completions function tools with
// lowercase JSON-schema types.
func (c *Catalogue) OpenAITools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		properties := make(map[string]interface{}, len(t.Parameters))
		for _, p := range t.Parameters {
			prop := map[string]interface{}{
				"type":        string(p.Type),
				"description": p.Description,
			}
			if p.Type == TypeArray {
				prop["items"] = map[string]interface{}{"type": string(p.Items)}
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
		}

		required := t.Required()
		if required == nil {
			required = []string{}
		}

		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return tools
}
