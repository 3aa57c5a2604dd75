package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/config"
)

func testQueryTool() *QueryTool {
	return NewQueryTool(config.QueryConfig{
		Templates: map[string]config.QueryTemplate{
			"weather": {
				Description: "Weather lookup phrase",
				Text:        "weather in {city} on {day}",
				Params:      []string{"city", "day"},
			},
			"define": {
				Description: "Dictionary lookup",
				Text:        "define {word}",
				Params:      []string{"word"},
			},
		},
	})
}

func TestQueryRender(t *testing.T) {
	tool := testQueryTool()

	result, err := tool.Execute(context.Background(), map[string]any{
		"action":   QueryActionRender,
		"template": "weather",
		"params":   map[string]any{"city": "Oslo", "day": "Tuesday"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "weather in Oslo on Tuesday", result.Content)
}

func TestQueryRenderMissingParams(t *testing.T) {
	tool := testQueryTool()

	result, err := tool.Execute(context.Background(), map[string]any{
		"action":   QueryActionRender,
		"template": "weather",
		"params":   map[string]any{"city": "Oslo"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "day")
}

func TestQueryUnknownTemplate(t *testing.T) {
	tool := testQueryTool()

	err := tool.Validate(map[string]any{"action": QueryActionRender, "template": "stocks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestQueryList(t *testing.T) {
	tool := testQueryTool()

	result, err := tool.Execute(context.Background(), map[string]any{"action": QueryActionList})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "weather")
	assert.Contains(t, result.Content, "define")
	assert.Contains(t, result.Content, "city, day")
}

func TestQueryScaffold(t *testing.T) {
	tool := testQueryTool()

	result, err := tool.Execute(context.Background(), map[string]any{
		"action":  QueryActionScaffold,
		"service": "tickets",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, `"service": "tickets"`)
	assert.Contains(t, result.Content, "TICKETS_TOKEN")
}
