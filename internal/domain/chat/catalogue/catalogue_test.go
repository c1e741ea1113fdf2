package catalogue

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogueIsConsistent(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, Version, c.Version())
	assert.Len(t, c.Tools(), 9)

	_, ok := c.Lookup(ToolSavePost)
	assert.True(t, ok)
	_, ok = c.Lookup("fly_to_moon")
	assert.False(t, ok)
}

func TestNewRejectsInvalidTools(t *testing.T) {
	_, err := New("x", Tool{Name: "a"}, Tool{Name: "a"})
	assert.Error(t, err)

	_, err = New("x", Tool{Name: "a", Parameters: []Parameter{{Name: "tags", Type: TypeArray}}})
	assert.Error(t, err)

	_, err = New("x", Tool{Name: "a", Parameters: []Parameter{{Name: "p", Type: TypeString}, {Name: "p", Type: TypeString}}})
	assert.Error(t, err)
}

func TestOpenAIEncodingUsesLowercaseSchema(t *testing.T) {
	tools := Default().OpenAITools()
	var save map[string]interface{}
	for _, tool := range tools {
		assert.Equal(t, "function", string(tool.Type))
		if tool.Function.Name == ToolSavePost {
			save = tool.Function.Parameters.(map[string]interface{})
		}
	}
	require.NotNil(t, save)

	assert.Equal(t, "object", save["type"])
	assert.Equal(t, []string{"content", "platform"}, save["required"])
	props := save["properties"].(map[string]interface{})
	hashtags := props["hashtags"].(map[string]interface{})
	assert.Equal(t, "array", hashtags["type"])
	assert.Equal(t, map[string]interface{}{"type": "string"}, hashtags["items"])
}

func TestGeminiEncodingUsesTypeEnum(t *testing.T) {
	tools := Default().GeminiTools()
	require.Len(t, tools, 1)

	var decl *genai.FunctionDeclaration
	for _, fd := range tools[0].FunctionDeclarations {
		if fd.Name == ToolPublishPost {
			decl = fd
		}
	}
	require.NotNil(t, decl)

	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"post_id"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["post_id"].Type)
	platforms := decl.Parameters.Properties["platforms"]
	assert.Equal(t, genai.TypeArray, platforms.Type)
	assert.Equal(t, genai.TypeString, platforms.Items.Type)
}

func TestValidateDetectsMissingEncoding(t *testing.T) {
	err := sameNames("openai", []string{"a", "b"}, []string{"a"})
	assert.Error(t, err)
	err = sameNames("openai", []string{"a", "b"}, []string{"b", "c"})
	assert.Error(t, err)
}
