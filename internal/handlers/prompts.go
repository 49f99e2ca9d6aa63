package handlers

import (
	"context"
	"fmt"

	"flight_sim/internal/models"
	"flight_sim/internal/prompts"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

func (s *Server) registerPrompts() error {
	templates := s.Prompts.List()
	if len(templates) == 0 {
		return fmt.Errorf("no prompt templates loaded")
	}
	for _, t := range templates {
		opts := []mcp.PromptOption{mcp.WithPromptDescription(t.Description)}
		for _, arg := range t.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
			if arg.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
		}
		s.mcp.AddPrompt(mcp.NewPrompt(t.ID, opts...), s.promptHandler(t))
	}
	return nil
}

func (s *Server) promptHandler(t *prompts.Template) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return s.GetPrompt(ctx, t.ID, req.Params.Arguments)
	}
}

// GetPrompt renders a prompt as a single user message
func (s *Server) GetPrompt(_ context.Context, id string, arguments map[string]string) (*mcp.GetPromptResult, error) {
	t, err := s.Prompts.Get(id)
	if err != nil {
		return nil, models.WrapError(models.KindNotFound, "get prompt", "unknown prompt", err)
	}
	text, err := s.Prompts.Render(id, arguments)
	if err != nil {
		s.logger.Debug("Prompt render failed", zap.String("prompt", id), zap.Error(err))
		return nil, models.WrapError(models.KindValidation, "get prompt", "invalid prompt arguments", err)
	}
	return &mcp.GetPromptResult{
		Description: t.Description,
		Messages: []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	}, nil
}
