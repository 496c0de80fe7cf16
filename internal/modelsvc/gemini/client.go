// Package gemini implements the model service contract on top of the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	genai "google.golang.org/genai"

	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

type Config struct {
	APIKey string
}

type Client struct {
	client *genai.Client
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, common.ConfigurationError("gemini: api key is required", nil)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c, log: logger}, nil
}

func (c *Client) Complete(ctx context.Context, req modelsvc.Request) (modelsvc.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.gemini.start",
		"req_id", rid,
		"model", req.Model,
		"call_type", req.CallType,
		"messages", len(req.Messages),
		"json_mode", req.JSONMode,
	)

	contents, cfg, err := wireRequest(req)
	if err != nil {
		return modelsvc.Response{}, err
	}

	res, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		c.log.Error("llm.gemini.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return modelsvc.Response{}, fmt.Errorf("gemini generate content: %w", err)
	}

	out := modelsvc.Response{Content: res.Text()}
	if res.UsageMetadata != nil {
		out.Usage = modelsvc.Usage{
			PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(res.UsageMetadata.TotalTokenCount),
		}
	}

	c.log.Info("llm.gemini.ok",
		"req_id", rid,
		"content_len", len(out.Content),
		"total_tokens", out.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// wireRequest maps the request to genai contents. System messages become the
// system instruction; image parts are unpacked from data URIs into inline
// blobs.
func wireRequest(req modelsvc.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	// Temperature is always sent; the pipeline pins 0.0 and the SDK treats
	// nil as "model default".
	cfg := &genai.GenerateContentConfig{}
	t := req.Temperature
	cfg.Temperature = &t
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.ImageURI != "" {
				mt, data, err := modelsvc.ParseDataURI(p.ImageURI)
				if err != nil {
					return nil, nil, fmt.Errorf("gemini image part: %w", err)
				}
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mt, Data: data}})
			} else {
				parts = append(parts, &genai.Part{Text: p.Text})
			}
		}
		if m.Role == modelsvc.RoleSystem {
			cfg.SystemInstruction = &genai.Content{Parts: parts}
			continue
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}
	return contents, cfg, nil
}
