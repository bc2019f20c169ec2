// Package dispatch implements the tool dispatcher: a static registry of
// named tools, each validating its own arguments, resolving the caller's
// group via an auth.TokenVerifier, and returning a uniform success/failure
// envelope. Tools are registered once as a plain map literal built at
// construction time rather than through dynamic registration.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/scraptool/corefetch/internal/antidetect"
	"github.com/scraptool/corefetch/internal/auth"
	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/internal/fetcher"
	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/session"
	"github.com/scraptool/corefetch/internal/structure"
	"github.com/scraptool/corefetch/internal/toolerr"
)

// ParserVersion is stamped into every Feed this dispatcher produces.
const ParserVersion = "corefetch-newsparser-v1"

// Dispatcher owns every collaborator a tool call can reach. It holds no
// request-scoped state: every Dispatch call is independent.
type Dispatcher struct {
	ServiceName string

	fetcher   fetcher.Fetcher
	extractor extractor.DomExtractor
	analyzer  structure.Analyzer
	crawler   *crawler.Crawler
	sessions  *session.Store
	profiles  *antidetect.Current
	verifier  auth.TokenVerifier
	logger    *obslog.Logger
}

// New wires a Dispatcher from its collaborators. verifier may be nil, in
// which case every call is treated as anonymous (no group scoping).
func New(
	serviceName string,
	f fetcher.Fetcher,
	x extractor.DomExtractor,
	a structure.Analyzer,
	c *crawler.Crawler,
	s *session.Store,
	profiles *antidetect.Current,
	verifier auth.TokenVerifier,
	logger *obslog.Logger,
) *Dispatcher {
	return &Dispatcher{
		ServiceName: serviceName,
		fetcher:     f,
		extractor:   x,
		analyzer:    a,
		crawler:     c,
		sessions:    s,
		profiles:    profiles,
		verifier:    verifier,
		logger:      logger,
	}
}

type toolHandler func(ctx context.Context, d *Dispatcher, args map[string]interface{}, groups []string, primaryGroup *string) (map[string]interface{}, *toolerr.ToolError)

var registry = map[string]toolHandler{
	"ping":               handlePing,
	"set_antidetection":  handleSetAntidetection,
	"get_content":        handleGetContent,
	"get_structure":      handleGetStructure,
	"get_session_info":   handleGetSessionInfo,
	"get_session_chunk":  handleGetSessionChunk,
	"list_sessions":      handleListSessions,
	"get_session_urls":   handleGetSessionUrls,
	"get_session":        handleGetSession,
}

// Dispatch resolves auth, looks up tool, runs its handler, and returns the
// uniform envelope. It never panics or returns an error: every outcome,
// including an unknown tool name, is represented in the returned map.
func (d *Dispatcher) Dispatch(ctx context.Context, tool string, args map[string]interface{}) map[string]interface{} {
	if args == nil {
		args = map[string]interface{}{}
	}

	groups, primaryGroup, authErr := d.resolveAuth(args)
	if authErr != nil {
		return failureEnvelope(authErr)
	}

	handler, ok := registry[tool]
	if !ok {
		return failureEnvelope(toolerr.New(toolerr.CodeUnknownTool, "no such tool: "+tool, map[string]string{"tool": tool}))
	}

	if d.logger != nil {
		d.logger.RecordEvent(ctx, "info", "tool_dispatch", map[string]string{"tool": tool})
	}

	out, toolErr := handler(ctx, d, args, groups, primaryGroup)
	if toolErr != nil {
		return failureEnvelope(toolErr)
	}
	return successEnvelope(out)
}

func (d *Dispatcher) resolveAuth(args map[string]interface{}) ([]string, *string, *toolerr.ToolError) {
	token := optString(args, "auth_token", "")
	if token == "" || d.verifier == nil {
		return nil, nil, nil
	}
	info, authErr := d.verifier.Verify(token)
	if authErr != nil {
		return nil, nil, toolerr.New(toolerr.CodeAuthError, authErr.Error(), map[string]string{"cause": string(authErr.Cause)})
	}
	return info.Groups, info.PrimaryGroup(), nil
}

func successEnvelope(out map[string]interface{}) map[string]interface{} {
	env := map[string]interface{}{"success": true}
	for k, v := range out {
		env[k] = v
	}
	return env
}

func failureEnvelope(e *toolerr.ToolError) map[string]interface{} {
	return map[string]interface{}{
		"success":           false,
		"error_code":        string(e.Code),
		"error":             e.Message,
		"recovery_strategy": e.Recovery(),
		"details":           e.Details,
	}
}

// toolCoder is satisfied by every typed component error in this module
// (FetchError, CrawlError, ExtractionError, AnalysisError, SessionError,
// ParseError): each knows how to map itself onto the wire taxonomy.
type toolCoder interface {
	Error() string
	ToolCode() toolerr.Code
}

// classify converts a typed component error into a ToolError at the
// boundary; the dispatcher and REST surface are the only places a
// component error turns into a wire envelope.
func classify(err error, details map[string]string) *toolerr.ToolError {
	if tc, ok := err.(toolCoder); ok {
		return toolerr.New(tc.ToolCode(), tc.Error(), details)
	}
	return toolerr.New(toolerr.CodeInternalError, err.Error(), details)
}

// toMap round-trips v through JSON so a Go struct becomes the plain
// map[string]interface{} shape the envelope merges into its output.
func toMap(v interface{}) (map[string]interface{}, *toolerr.ToolError) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, toolerr.New(toolerr.CodeInternalError, err.Error(), nil)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, toolerr.New(toolerr.CodeInternalError, err.Error(), nil)
	}
	return out, nil
}
