package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_CleanJSON(t *testing.T) {
	result, err := ExtractJSON(`{"seo_title": "Keytruda for Melanoma"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"seo_title": "Keytruda for Melanoma"}`, result)
}

func TestExtractJSON_LeadingWhitespace(t *testing.T) {
	result, err := ExtractJSON("\n\n  {\"a\": 1}  \n")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, result)
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	response := "Here is the content:\n```json\n{\"seo_title\": \"Title\"}\n```\nLet me know if you need changes."
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"seo_title": "Title"}`, result)
}

func TestExtractJSON_BareFence(t *testing.T) {
	response := "```\n{\"x\": true}\n```"
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"x": true}`, result)
}

func TestExtractJSON_ProseWrapped(t *testing.T) {
	response := `Based on my analysis, here are the results: {"overall_score": 88, "recommendation": "Approve"} I hope this helps!`
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"overall_score": 88, "recommendation": "Approve"}`, result)
}

func TestExtractJSON_NestedObjects(t *testing.T) {
	response := `Result: {"scores": {"medical_accuracy": 90, "nested": {"deep": 1}}, "ok": true} done`
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scores": {"medical_accuracy": 90, "nested": {"deep": 1}}, "ok": true}`, result)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	response := `prefix {"note": "contains } a brace", "n": 2} suffix`
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"note": "contains } a brace", "n": 2}`, result)
}

func TestExtractJSON_EscapedQuotes(t *testing.T) {
	response := `{"title": "He said \"hello\" to me"}`
	result, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "He said \"hello\" to me"}`, result)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("I'm sorry, I cannot generate that content.")
	assert.Error(t, err)
}

func TestExtractJSON_UnbalancedBraces(t *testing.T) {
	_, err := ExtractJSON(`{"broken": "never closes`)
	assert.Error(t, err)
}

func TestParseJSONResponse_Struct(t *testing.T) {
	type payload struct {
		SEOTitle string   `json:"seo_title"`
		Keywords []string `json:"keywords"`
	}

	result, err := ParseJSONResponse[payload]("```json\n{\"seo_title\": \"T\", \"keywords\": [\"a\", \"b\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "T", result.SEOTitle)
	assert.Equal(t, []string{"a", "b"}, result.Keywords)
}

func TestParseJSONResponse_TypeMismatch(t *testing.T) {
	type payload struct {
		Score int `json:"score"`
	}

	_, err := ParseJSONResponse[payload](`{"score": "not a number"}`)
	assert.Error(t, err)
}
