// Package handlers exposes the simulator over MCP: tools that call the booking
// services, read-only resources and conversation prompts.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"
	"flight_sim/internal/prompts"
	"flight_sim/internal/reference"
	"flight_sim/internal/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Services are the stores and services the tools call into
type Services struct {
	Catalog   *services.FlightCatalog
	Ledger    *services.BookingLedger
	Ancillary *services.AncillaryService
	Seats     *services.SeatService
	Groups    *services.GroupService
	Alerts    *services.PriceAlertService
	Prompts   *prompts.Manager
}

// Options configures a Server
type Options struct {
	Name    string
	Version string
	// Rand drives the mock telemetry and weather values
	Rand    *rand.Rand
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server owns the MCP server and the registered capabilities
type Server struct {
	Services

	ref     *reference.Data
	mcp     *server.MCPServer
	tools   []server.ServerTool
	logger  *zap.Logger
	metrics *metrics.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

// toolFunc returns the payload of a successful call. The "success" key is added by the wrapper.
type toolFunc func(ctx context.Context, a args) (map[string]any, error)

// NewServer builds the MCP server and registers every tool, resource and prompt
func NewServer(svc Services, opts Options) (*Server, error) {
	if svc.Catalog == nil || svc.Ledger == nil || svc.Ancillary == nil || svc.Seats == nil ||
		svc.Groups == nil || svc.Alerts == nil || svc.Prompts == nil {
		return nil, fmt.Errorf("all services are required")
	}
	if opts.Name == "" {
		opts.Name = "flight-simulator"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Server{
		Services: svc,
		ref:      svc.Catalog.Reference(),
		logger:   opts.Logger.Named("mcp"),
		metrics:  opts.Metrics,
		rng:      opts.Rand,
	}
	s.mcp = server.NewMCPServer(opts.Name, opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	s.tools = append(s.tools, s.flightTools()...)
	s.tools = append(s.tools, s.bookingTools()...)
	s.tools = append(s.tools, s.ancillaryTools()...)
	s.mcp.AddTools(s.tools...)

	s.registerResources()
	if err := s.registerPrompts(); err != nil {
		return nil, err
	}

	s.logger.Info("MCP server ready",
		zap.String("name", opts.Name),
		zap.String("version", opts.Version),
		zap.Int("tools", len(s.tools)),
		zap.Int("resources", len(s.resources())),
		zap.Int("prompts", len(s.Prompts.List())))
	return s, nil
}

// MCP returns the underlying server for the transports
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Tools returns the registered tools
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

func (s *Server) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Server) randChoice(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[s.randIntn(len(options))]
}

// tool wraps fn so that every outcome, including a panic, becomes a JSON envelope
func (s *Server) tool(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		start := time.Now()
		outcome := "success"

		defer func() {
			if r := recover(); r != nil {
				outcome = string(models.KindInternal)
				s.logger.Error("Tool panicked",
					zap.String("tool", name),
					zap.Any("panic", r),
					zap.Stack("stack"))
				result = failure(models.NewError(models.KindInternal, name, fmt.Sprintf("internal error: %v", r)))
				err = nil
			}
			s.metrics.ObserveTool(name, outcome, time.Since(start))
		}()

		payload, callErr := fn(ctx, req.GetArguments())
		if callErr != nil {
			outcome = string(models.KindOf(callErr))
			s.logger.Debug("Tool failed",
				zap.String("tool", name),
				zap.String("error_type", outcome),
				zap.Error(callErr))
			return failure(callErr), nil
		}
		return success(payload), nil
	}
}

func success(payload map[string]any) *mcp.CallToolResult {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	return jsonResult(payload)
}

func failure(err error) *mcp.CallToolResult {
	return jsonResult(map[string]any{
		"success":    false,
		"error":      models.ErrorMessage(err),
		"error_type": string(models.KindOf(err)),
	})
}

func jsonResult(payload map[string]any) *mcp.CallToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]any{
			"success":    false,
			"error":      fmt.Sprintf("failed to encode response: %v", err),
			"error_type": string(models.KindInternal),
		})
	}
	return mcp.NewToolResultText(string(data))
}
