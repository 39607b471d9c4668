package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"

	DefaultTextModel         = "gemini-2.5-flash"
	DefaultImageModel        = "gemini-2.5-flash-image"
	DefaultPremiumImageModel = "gemini-3-pro-image-preview"
)

const systemInstruction = `You are the design engine of TemuDesign, an AI poster and marketing studio.
Follow the task exactly. When asked for an image, answer with the image only.
When asked for JSON, answer with a single JSON object only.`

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a thin REST client for models.generateContent. The API key can
// be overridden per call so premium requests run on the user's key.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// TextRequest asks a text model about zero or more attached images.
type TextRequest struct {
	Model  string
	APIKey string
	Prompt string
	Images []string
	JSON   bool
}

func (c *Client) GenerateText(ctx context.Context, r TextRequest) (string, error) {
	cfg := generationConfig{Temperature: 0.7}
	if r.JSON {
		cfg.ResponseMimeType = "application/json"
	}
	req := generateContentRequest{
		Contents:          []content{{Role: "user", Parts: buildParts(r.Prompt, r.Images)}},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig:  cfg,
	}

	resp, err := c.generateContent(ctx, r.APIKey, r.Model, req)
	if err != nil && r.JSON && isUnknownFieldError(err, "responseMimeType") {
		req.GenerationConfig.ResponseMimeType = ""
		resp, err = c.generateContent(ctx, r.APIKey, r.Model, req)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("model returned no text")
	}
	return resp.Text, nil
}

// ImageRequest asks an image model for one picture.
type ImageRequest struct {
	Model       string
	APIKey      string
	Prompt      string
	Images      []string
	AspectRatio string
}

// GenerateImage returns the images of one generateContent call. A model
// that answers with text only is asked once more for the image alone.
func (c *Client) GenerateImage(ctx context.Context, r ImageRequest) ([]string, error) {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt is empty")
	}

	req := generateContentRequest{
		Contents:          []content{{Role: "user", Parts: buildParts(prompt, r.Images)}},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if r.AspectRatio != "" {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: r.AspectRatio}
	}

	resp, err := c.generateContent(ctx, r.APIKey, r.Model, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		req.GenerationConfig.ImageConfig = nil
		req.Contents[0].Parts[0].Text = prompt + "\n\nAspect ratio: " + r.AspectRatio + "."
		resp, err = c.generateContent(ctx, r.APIKey, r.Model, req)
	}
	if err != nil {
		return nil, err
	}

	if len(resp.Images) == 0 {
		c.logger.Debug("image model answered without image, retrying", "model", r.Model)
		req.Contents[0].Parts[0].Text = prompt + "\n\nReturn the result as an image (inlineData) only. Do not write text, JSON or links."
		retry, retryErr := c.generateContent(ctx, r.APIKey, r.Model, req)
		if retryErr == nil && len(retry.Images) > 0 {
			return retry.Images, nil
		}
	}
	return resp.Images, nil
}

func buildParts(prompt string, images []string) []part {
	parts := []part{{Text: strings.TrimSpace(prompt)}}
	for _, img := range images {
		if inline, ok := dataURLToInlineData(img, "image/png"); ok {
			parts = append(parts, part{InlineData: &inline})
		}
	}
	return parts
}

func (c *Client) generateContent(ctx context.Context, apiKey, model string, payload generateContentRequest) (Response, error) {
	if c.httpClient == nil {
		return Response{}, errors.New("http client is nil")
	}
	if apiKey == "" {
		apiKey = c.apiKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return Response{}, decodeAPIError(httpResp, rawBody)
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if err := blockedError(decoded); err != nil {
		return Response{}, err
	}

	text, images := extractParts(decoded)
	return Response{Text: text, Images: images}, nil
}

func decodeAPIError(resp *http.Response, raw []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	var env apiErrorBody
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func extractParts(resp generateContentResponse) (string, []string) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var textBuilder strings.Builder
	var images []string

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			images = append(images, fmt.Sprintf("data:%s;base64,%s", p.InlineData.MimeType, p.InlineData.Data))
		}
	}

	return textBuilder.String(), images
}

var dataURLRegex = regexp.MustCompile(`^data:([^;]+);base64,`)

func dataURLToInlineData(dataURL string, fallbackMime string) (blob, bool) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return blob{}, false
	}

	mime := fallbackMime
	if matches := dataURLRegex.FindStringSubmatch(dataURL); len(matches) == 2 {
		mime = matches[1]
	}

	data := stripDataURLPrefix(dataURL)
	if data == "" {
		return blob{}, false
	}

	return blob{Data: data, MimeType: mime}, true
}

func stripDataURLPrefix(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
