package session

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domtarget/kit"
)

// RegisterMCP registers the session tools on an MCP server.
func (s *Session) RegisterMCP(srv *mcp.Server) {
	s.registerSelectionTool(srv)
	s.registerSelectTool(srv)
	s.registerInspectTool(srv)
	s.registerClearTool(srv)
	s.registerSubmitTool(srv)
}

func (s *Session) endpoint(op string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Recover(), kit.Logging(s.logger, op))(ep)
}

// --- selection ---

func (s *Session) registerSelectionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domtarget_selection",
		Description: "Return the elements the operator selected on the page, nested by DOM containment, with XPath locators, text, attributes and owning source component.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Status(ctx)
	}
	kit.RegisterMCPTool(srv, tool, s.endpoint(tool.Name, endpoint), kit.DecodeArgs[struct{}]())
}

// --- select ---

type selectArgs struct {
	XPath    string `json:"xpath"`
	Deselect bool   `json:"deselect"`
}

func (s *Session) registerSelectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domtarget_select",
		Description: "Select, or with deselect=true deselect, the page element at an XPath locator.",
		InputSchema: kit.InputSchema(map[string]any{
			"xpath":    map[string]any{"type": "string", "description": `Locator such as //*[@id="main"]/ul/li[2]`},
			"deselect": map[string]any{"type": "boolean", "description": "Remove the element from the selection instead"},
		}, "xpath"),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*selectArgs)
		if r.Deselect {
			if err := s.Deselect(ctx, r.XPath); err != nil {
				return nil, err
			}
			return s.Status(ctx)
		}
		idx, err := s.Select(ctx, r.XPath)
		if err != nil {
			return nil, err
		}
		return map[string]any{"index": idx, "xpath": r.XPath}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.endpoint(tool.Name, endpoint), kit.DecodeArgs[selectArgs]())
}

// --- inspect ---

type inspectArgs struct {
	Active bool `json:"active"`
}

func (s *Session) registerInspectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domtarget_inspect",
		Description: "Turn inspection mode on (active=true) so the operator can point at and click elements, or off.",
		InputSchema: kit.InputSchema(map[string]any{
			"active": map[string]any{"type": "boolean", "description": "true to enter inspection, false to leave it"},
		}, "active"),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*inspectArgs)
		var err error
		if r.Active {
			err = s.EnterInspection(ctx)
		} else {
			err = s.ExitInspection(ctx)
		}
		if err != nil {
			return nil, err
		}
		on, err := s.InInspection(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"inspecting": on}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.endpoint(tool.Name, endpoint), kit.DecodeArgs[inspectArgs]())
}

// --- clear ---

func (s *Session) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domtarget_clear",
		Description: "Remove every selection and its on-page decoration.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return map[string]int{"count": 0}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.endpoint(tool.Name, endpoint), kit.DecodeArgs[struct{}]())
}

// --- submit ---

func (s *Session) registerSubmitTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domtarget_submit",
		Description: "Build the agent payload for the current selection (outline, JSON and markdown excerpts) and deliver it to the configured sinks.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Submit(ctx)
	}
	kit.RegisterMCPTool(srv, tool, s.endpoint(tool.Name, endpoint), kit.DecodeArgs[struct{}]())
}
