package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer returns an MCP server exposing the conversion tools.
func NewMCPServer(reg *bundle.Registry, logger *slog.Logger, version string) *server.MCPServer {
	srv := server.NewMCPServer("orthoconv", version, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, reg, logger)
	return srv
}

// RegisterMCPTools registers the conversion MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *bundle.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	eps := newEndpoints(reg, logger)

	kit.RegisterMCPTool(srv, mcp.NewTool("convert_text",
		mcp.WithDescription("Convert a text from one orthography of a language to another (e.g. Cyrillic to IPA)."),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code, as listed by list_languages (e.g. kbd)")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to convert")),
		mcp.WithString("source", mcp.Description("Source orthography (e.g. cyr); defaults to the server default")),
		mcp.WithString("target", mcp.Description("Target orthography (e.g. ipa, cauc); defaults to the server default")),
	), eps.convert, decodeConvertText)

	kit.RegisterMCPTool(srv, mcp.NewTool("convert_batch",
		mcp.WithDescription(fmt.Sprintf("Convert up to %d texts of one language in a single call.", MaxBatch)),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code")),
		mcp.WithArray("texts", mcp.Required(), mcp.Description("Texts to convert"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("source", mcp.Description("Source orthography")),
		mcp.WithString("target", mcp.Description("Target orthography")),
	), eps.convertBatch, decodeConvertBatch)

	kit.RegisterMCPTool(srv, mcp.NewTool("list_languages",
		mcp.WithDescription("List the convertible languages with their target orthographies and resource versions."),
	), eps.listLanguages, func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}

func decodeConvertText(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	args := req.GetArguments()
	lang, _ := args["language"].(string)
	if lang == "" {
		return nil, fmt.Errorf("language is required")
	}
	text, ok := args["text"].(string)
	if !ok {
		return nil, fmt.Errorf("text must be a string")
	}
	source, _ := args["source"].(string)
	target, _ := args["target"].(string)
	return &kit.MCPDecodeResult{Request: &convertReq{
		Language: lang, Text: &text, Source: source, Target: target,
	}}, nil
}

func decodeConvertBatch(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	args := req.GetArguments()
	lang, _ := args["language"].(string)
	if lang == "" {
		return nil, fmt.Errorf("language is required")
	}
	var texts []string
	switch raw := args["texts"].(type) {
	case []any:
		texts = make([]string, len(raw))
		for i, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("texts[%d] is not a string", i)
			}
			texts[i] = s
		}
	case string:
		// Some clients flatten arrays; accept one text per line.
		raw = strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if raw != "" {
			texts = strings.Split(raw, "\n")
			for i, t := range texts {
				texts[i] = strings.TrimSuffix(t, "\r")
			}
		}
	default:
		return nil, fmt.Errorf("texts must be an array of strings")
	}
	source, _ := args["source"].(string)
	target, _ := args["target"].(string)
	return &kit.MCPDecodeResult{Request: &convertBatchReq{
		Language: lang, Texts: texts, Source: source, Target: target,
	}}, nil
}
