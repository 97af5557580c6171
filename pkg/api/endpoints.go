package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/kit"
	"github.com/hazyhaar/orthoconv/pkg/ortho"
)

// Shared request/response types used by both HTTP and MCP transports.

// MaxBatch is the largest number of texts accepted by one batch call.
const MaxBatch = 100

type convertReq struct {
	Language string
	Text     *string
	Source   string
	Target   string
}

type convertBatchReq struct {
	Language string
	Texts    []string
	Source   string
	Target   string
}

// convertResponse mirrors ortho.Result, with a null text for absent input.
type convertResponse struct {
	Text     *string           `json:"text"`
	Language ortho.Language    `json:"language"`
	Source   ortho.Orthography `json:"source,omitempty"`
	Target   ortho.Orthography `json:"target,omitempty"`
}

type batchResponse struct {
	Results []convertResponse `json:"results"`
}

type languagesResponse struct {
	Languages []bundle.LanguageInfo `json:"languages"`
}

type orthographiesResponse struct {
	Orthographies []bundle.OrthographyInfo `json:"orthographies"`
}

// endpoints holds the kit.Endpoints backed by the registry, each wrapped with
// request id and logging middleware.
type endpoints struct {
	convert       kit.Endpoint
	convertBatch  kit.Endpoint
	listLanguages kit.Endpoint
	orthographies kit.Endpoint
}

func newEndpoints(reg *bundle.Registry, logger *slog.Logger) endpoints {
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(action string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, action))(ep)
	}
	return endpoints{
		convert:       wrap("convert", convertEndpoint(reg)),
		convertBatch:  wrap("convert_batch", convertBatchEndpoint(reg)),
		listLanguages: wrap("list_languages", listLanguagesEndpoint(reg)),
		orthographies: wrap("list_orthographies", orthographiesEndpoint(reg)),
	}
}

func options(source, target string) []ortho.ConvertOption {
	var opts []ortho.ConvertOption
	if source != "" {
		opts = append(opts, ortho.Source(source))
	}
	if target != "" {
		opts = append(opts, ortho.Target(target))
	}
	return opts
}

func toResponse(res ortho.Result) convertResponse {
	text := res.Text
	return convertResponse{Text: &text, Language: res.Language, Source: res.Source, Target: res.Target}
}

func convertEndpoint(reg *bundle.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*convertReq)
		c, err := reg.Converter(req.Language)
		if err != nil {
			return nil, err
		}
		res, err := c.ConvertNullable(req.Text, options(req.Source, req.Target)...)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return convertResponse{Language: c.Language()}, nil
		}
		return toResponse(*res), nil
	}
}

func convertBatchEndpoint(reg *bundle.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*convertBatchReq)
		if len(req.Texts) == 0 {
			return nil, fmt.Errorf("%w: texts array is empty", ortho.ErrMissingParameter)
		}
		if len(req.Texts) > MaxBatch {
			return nil, fmt.Errorf("%w: too many texts (max %d, got %d)", ortho.ErrInvalidArgument, MaxBatch, len(req.Texts))
		}
		c, err := reg.Converter(req.Language)
		if err != nil {
			return nil, err
		}
		opts := options(req.Source, req.Target)
		results := make([]convertResponse, len(req.Texts))
		for i, text := range req.Texts {
			res, err := c.Convert(text, opts...)
			if err != nil {
				return nil, fmt.Errorf("text %d: %w", i, err)
			}
			results[i] = toResponse(res)
		}
		return batchResponse{Results: results}, nil
	}
}

func listLanguagesEndpoint(reg *bundle.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return languagesResponse{Languages: reg.ListLanguages()}, nil
	}
}

func orthographiesEndpoint(reg *bundle.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return orthographiesResponse{Orthographies: reg.Orthographies()}, nil
	}
}
