package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pagemeta/internal/common"
)

// renderScale matches the 2x raster matrix the layout service applies to
// full-page images.
const renderScale = 2.0

// ServiceConfig locates the extraction sidecar.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ServiceClient implements Converter and Renderer against the extraction
// sidecar's HTTP API. The sidecar owns the layout model; this process only
// moves bytes.
type ServiceClient struct {
	cfg        ServiceConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewServiceClient(cfg ServiceConfig, logger *slog.Logger) (*ServiceClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		return nil, common.ConfigurationError("extractor: base url is required", nil)
	}
	if cfg.Timeout <= 0 {
		// Layout analysis of a dense page can take minutes.
		cfg.Timeout = 5 * time.Minute
	}
	return &ServiceClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}, nil
}

func (c *ServiceClient) Convert(ctx context.Context, documentPath string, pages *PageRange) (*Document, error) {
	body := map[string]any{"document_path": documentPath}
	if pages != nil {
		body["from_page"] = pages.From
		body["to_page"] = pages.To
	}

	raw, err := c.postJSON(ctx, "/v1/convert", body)
	if err != nil {
		return nil, common.ServiceError("extractor convert", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, common.ParseError("decode convert response", err)
	}
	return &doc, nil
}

func (c *ServiceClient) RenderPage(ctx context.Context, documentPath string, page int) ([]byte, error) {
	body := map[string]any{
		"document_path": documentPath,
		"page":          page,
		"scale":         renderScale,
	}

	raw, err := c.postJSON(ctx, "/v1/render", body)
	if err != nil {
		return nil, common.ServiceError("extractor render", err)
	}

	var out struct {
		Image []byte `json:"image_png"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.ParseError("decode render response", err)
	}
	if len(out.Image) == 0 {
		return nil, common.ServiceError("extractor render", fmt.Errorf("empty image for page %d", page))
	}
	return out.Image, nil
}

func (c *ServiceClient) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		c.log.Error("extractor.http.encode_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("encode json: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		c.log.Error("extractor.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("extractor.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("extractor.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Warn("extractor.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.log.Info("extractor.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}
