// Package modelsvc defines the chat-completion contract shared by all model
// providers, plus the cost ledger that accounts for every call made through it.
package modelsvc

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Call types tag ledger entries and select the prompt for a request.
const (
	CallContextMetadata  = "context_metadata"
	CallTableMetadata    = "table_metadata"
	CallImageMetadata    = "image_metadata"
	CallImproveTableHTML = "improve_table_structure"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Part is one element of a multimodal message: either text or an inline
// image carried as a base64 data URI.
type Part struct {
	Text     string
	ImageURI string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(dataURI string) Part {
	return Part{ImageURI: dataURI}
}

type Message struct {
	Role  string
	Parts []Part
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// Request is a single chat completion. Model is provider-prefixed
// ("openai/gpt-4o", "gemini/gemini-2.0-flash"); a bare id routes to openai.
type Request struct {
	CallType    string
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
	Messages    []Message
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response carries the text of the first candidate plus token usage as
// reported by the provider.
type Response struct {
	Content string
	Usage   Usage
}

type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// SplitModelID splits a provider-prefixed model id into provider and bare
// model name. Ids without a prefix default to the openai provider.
func SplitModelID(model string) (provider, name string) {
	if p, n, ok := strings.Cut(model, "/"); ok {
		return strings.ToLower(p), n
	}
	return "openai", model
}

// DataURI encodes raw bytes as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FileDataURI reads a file and encodes it as a base64 data URI, inferring
// the MIME type from the extension.
func FileDataURI(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DataURI(mimeTypeFor(path), b), nil
}

// ParseDataURI is the inverse of DataURI. Providers that want raw bytes on
// the wire (Gemini inline blobs) use it to unpack image parts.
func ParseDataURI(uri string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("parse data uri: missing data: prefix")
	}
	mt, b64, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, fmt.Errorf("parse data uri: missing base64 payload")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("parse data uri: %w", err)
	}
	return mt, raw, nil
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return mt
}
