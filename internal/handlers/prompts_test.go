package handlers

import (
	"context"
	"testing"

	"flight_sim/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrompt(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.GetPrompt(context.Background(), "find_best_flight", map[string]string{
		"travel_details": "SFO to New York next Friday",
		"preferences":    "cheapest",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Description)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, mcp.RoleUser, res.Messages[0].Role)
	text, ok := res.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "SFO to New York next Friday")
}

func TestGetPrompt_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.GetPrompt(context.Background(), "no_such_prompt", nil)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = s.GetPrompt(context.Background(), "find_best_flight", map[string]string{"preferences": "cheapest"})
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Contains(t, err.Error(), "travel_details")
}

func TestPromptHandler(t *testing.T) {
	s, _ := newTestServer(t)

	tmpl, err := s.Prompts.Get("find_best_flight")
	require.NoError(t, err)

	req := mcp.GetPromptRequest{}
	req.Params.Name = tmpl.ID
	req.Params.Arguments = map[string]string{"travel_details": "LAX to SEA", "preferences": "morning"}
	res, err := s.promptHandler(tmpl)(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(mcp.TextContent).Text, "morning")
}
