// Package mcpadapter exposes the answering pipeline and the scoring
// operations as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
)

const (
	ServerName    = "answer-engine"
	ServerVersion = "1.0.0"

	ToolAsk        = "ask"
	ToolSimilarity = "similarity"
	ToolValidate   = "validate"

	maxTopK = 50
)

type Tools struct {
	answers     ports.QuestionAnswerer
	scorer      ports.Scorer
	defaultTopK int
	logger      *slog.Logger
}

func NewTools(answers ports.QuestionAnswerer, scorer ports.Scorer, defaultTopK int, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Tools{
		answers:     answers,
		scorer:      scorer,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Answer questions from the indexed passage collection and score text pairs. Answers carry a confidence in [0,1]; the text \""+domain.NoAnswerText+"\" means nothing relevant was found."),
	)

	s.AddTool(mcp.NewTool(ToolAsk,
		mcp.WithDescription("Answer a question using the indexed passages. Returns the answer with its confidence, source and supporting passages as JSON."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in Arabic or English")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to retrieve from each search"), mcp.Min(1), mcp.Max(maxTopK)),
	), tools.Ask)

	s.AddTool(mcp.NewTool(ToolSimilarity,
		mcp.WithDescription("Compute the multi-signal similarity report between two texts."),
		mcp.WithString("text_a", mcp.Required()),
		mcp.WithString("text_b", mcp.Required()),
	), tools.Similarity)

	s.AddTool(mcp.NewTool(ToolValidate,
		mcp.WithDescription("Validate a candidate answer for a question against context passages."),
		mcp.WithString("question", mcp.Required()),
		mcp.WithString("answer", mcp.Required()),
		mcp.WithArray("contexts", mcp.Required(), mcp.Items(map[string]any{"type": "string"}), mcp.Description("Context passages")),
	), tools.Validate)

	return s
}

func (t *Tools) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	topK := request.GetInt("top_k", t.defaultTopK)
	if topK <= 0 || topK > maxTopK {
		return mcp.NewToolResultErrorf("top_k must be between 1 and %d", maxTopK), nil
	}

	answer, err := t.answers.Answer(ctx, question, topK)
	if err != nil {
		return t.toolError(ToolAsk, err)
	}
	return jsonResult(answer)
}

func (t *Tools) Similarity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := request.RequireString("text_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := request.RequireString("text_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := t.scorer.Similarity(ctx, a, b)
	if err != nil {
		return t.toolError(ToolSimilarity, err)
	}
	return jsonResult(report)
}

func (t *Tools) Validate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := request.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contexts, err := request.RequireStringSlice("contexts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := t.scorer.Validate(ctx, question, answer, contexts)
	if err != nil {
		return t.toolError(ToolValidate, err)
	}
	return jsonResult(report)
}

// toolError reports caller and collaborator failures inside the result so
// the agent can react; anything else is a protocol error.
func (t *Tools) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrPassageNotFound),
		domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		t.logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultErrorFromErr(tool+" failed", err), nil
	default:
		t.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
		return nil, err
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
