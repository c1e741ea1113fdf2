package catalogue

import "github.com/google/generative-ai-go/genai"

var geminiTypes = map[ParamType]genai.Type{
	TypeString:  genai.TypeString,
	TypeInteger: genai.TypeInteger,
	TypeNumber:  genai.TypeNumber,
	TypeBoolean: genai.TypeBoolean,
	TypeArray:   genai.TypeArray,
	TypeObject:  genai.TypeObject,
}

// GeminiTools renders the catalogue as a single tool holding one function
// declaration per entry, using the uppercase schema type enum.
func (c *Catalogue) GeminiTools() []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(c.tools))
	for _, t := range c.tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Parameters)),
			Required:   t.Required(),
		}
		for _, p := range t.Parameters {
			prop := &genai.Schema{
				Type:        geminiTypes[p.Type],
				Description: p.Description,
			}
			if p.Type == TypeArray {
				prop.Items = &genai.Schema{Type: geminiTypes[p.Items]}
			}
			if len(p.Enum) > 0 {
				prop.Format = "enum"
				prop.Enum = p.Enum
			}
			schema.Properties[p.Name] = prop
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
