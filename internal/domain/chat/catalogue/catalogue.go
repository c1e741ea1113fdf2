// Package catalogue holds the static tool definitions offered to the model and
// renders them in each provider's schema dialect.
package catalogue

import (
	"fmt"
	"sort"
)

// Version identifies the tool set. Bump it whenever a tool or parameter changes.
const Version = "2024.1"

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

type Parameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Items is the element type when Type is TypeArray.
	Items ParamType
	Enum  []string
}

type Tool struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Required lists the required parameter names in declaration order.
func (t Tool) Required() []string {
	var out []string
	for _, p := range t.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

type Catalogue struct {
	version string
	tools   []Tool
	index   map[string]int
}

// New validates tools and builds a catalogue. Names must be unique and array
// parameters must declare an element type.
func New(version string, tools ...Tool) (*Catalogue, error) {
	c := &Catalogue{version: version, index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		seen := map[string]bool{}
		for _, p := range t.Parameters {
			if seen[p.Name] {
				return nil, fmt.Errorf("tool %q: duplicate parameter %q", t.Name, p.Name)
			}
			seen[p.Name] = true
			if p.Type == TypeArray && p.Items == "" {
				return nil, fmt.Errorf("tool %q: array parameter %q has no item type", t.Name, p.Name)
			}
		}
		c.index[t.Name] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

func (c *Catalogue) Version() string { return c.version }

// Tools returns the definitions in declaration order.
func (c *Catalogue) Tools() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

func (c *Catalogue) Lookup(name string) (Tool, bool) {
	i, ok := c.index[name]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// Names returns the sorted tool names.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every encoding exposes exactly the catalogue's tools.
func (c *Catalogue) Validate() error {
	want := c.Names()

	var openaiNames []string
	for _, t := range c.OpenAITools() {
		openaiNames = append(openaiNames, t.Function.Name)
	}
	if err := sameNames("openai", want, openaiNames); err != nil {
		return err
	}

	var geminiNames []string
	for _, t := range c.GeminiTools() {
		for _, fd := range t.FunctionDeclarations {
			geminiNames = append(geminiNames, fd.Name)
		}
	}
	return sameNames("gemini", want, geminiNames)
}

func sameNames(encoding string, want, got []string) error {
	sort.Strings(got)
	if len(want) != len(got) {
		return fmt.Errorf("%s encoding has %d tools, catalogue has %d", encoding, len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%s encoding mismatch: %q vs %q", encoding, got[i], want[i])
		}
	}
	return nil
}
