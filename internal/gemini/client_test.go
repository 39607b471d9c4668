package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgo="

type recorded struct {
	Path   string
	APIKey string
	Body   generateContentRequest
}

// fakeAPI serves generateContent with answers chosen by handle.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []recorded
	handle func(n int, r recorded) (int, any)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := recorded{Path: r.URL.Path, APIKey: r.Header.Get("x-goog-api-key")}
	_ = json.Unmarshal(raw, &rec.Body)

	f.mu.Lock()
	f.calls = append(f.calls, rec)
	n := len(f.calls)
	f.mu.Unlock()

	status, body := f.handle(n, rec)
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) Calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.calls...)
}

func textAnswer(text string) generateContentResponse {
	return generateContentResponse{Candidates: []candidate{{Content: content{Role: "model", Parts: []part{{Text: text}}}}}}
}

func imageAnswer() generateContentResponse {
	return generateContentResponse{Candidates: []candidate{{Content: content{Role: "model", Parts: []part{
		{InlineData: &blob{Data: "iVBORw0KGgo=", MimeType: "image/png"}},
	}}}}}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "service-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestGenerateTextSendsJSONModeAndImages(t *testing.T) {
	api := &fakeAPI{handle: func(int, recorded) (int, any) { return http.StatusOK, textAnswer(`{"headline":"Hi"}`) }}
	c := newTestClient(t, api)

	out, err := c.GenerateText(context.Background(), TextRequest{
		Model:  "gemini-2.5-flash",
		Prompt: "describe",
		Images: []string{pngDataURL},
		JSON:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"headline":"Hi"}`, out)
	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", calls[0].Path)
	assert.Equal(t, "service-key", calls[0].APIKey)
	assert.Equal(t, "application/json", calls[0].Body.GenerationConfig.ResponseMimeType)
	parts := calls[0].Body.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MimeType)
	assert.Equal(t, "iVBORw0KGgo=", parts[1].InlineData.Data)
}

func TestPerRequestAPIKeyOverridesServiceKey(t *testing.T) {
	api := &fakeAPI{handle: func(int, recorded) (int, any) { return http.StatusOK, textAnswer("ok") }}
	c := newTestClient(t, api)

	_, err := c.GenerateText(context.Background(), TextRequest{Model: "m", APIKey: "user-key", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "user-key", api.Calls()[0].APIKey)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	api := &fakeAPI{handle: func(int, recorded) (int, any) {
		return http.StatusTooManyRequests, map[string]any{"error": map[string]any{
			"code": 429, "message": "Resource has been exhausted (e.g. check quota).", "status": "RESOURCE_EXHAUSTED",
		}}
	}}
	c := newTestClient(t, api)

	_, err := c.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "p"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Resource has been exhausted (e.g. check quota).", err.Error())
}

func TestGenerateImageDropsUnknownImageConfig(t *testing.T) {
	api := &fakeAPI{handle: func(n int, r recorded) (int, any) {
		if r.Body.GenerationConfig.ImageConfig != nil {
			return http.StatusBadRequest, map[string]any{"error": map[string]any{
				"code": 400, "message": `Invalid JSON payload received. Unknown name "imageConfig" at 'generation_config'`,
			}}
		}
		return http.StatusOK, imageAnswer()
	}}
	c := newTestClient(t, api)

	images, err := c.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "poster", AspectRatio: "3:4"})

	require.NoError(t, err)
	assert.Equal(t, []string{pngDataURL}, images)
	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Body.Contents[0].Parts[0].Text, "Aspect ratio: 3:4.")
}

func TestGenerateImageRetriesTextOnlyAnswer(t *testing.T) {
	api := &fakeAPI{handle: func(n int, _ recorded) (int, any) {
		if n == 1 {
			return http.StatusOK, textAnswer("Here is a description of the poster.")
		}
		return http.StatusOK, imageAnswer()
	}}
	c := newTestClient(t, api)

	images, err := c.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "poster"})

	require.NoError(t, err)
	assert.Len(t, images, 1)
	assert.Len(t, api.Calls(), 2)
}

func TestBlockedPromptIsAnError(t *testing.T) {
	api := &fakeAPI{handle: func(int, recorded) (int, any) {
		return http.StatusOK, map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}
	}}
	c := newTestClient(t, api)

	_, err := c.GenerateText(context.Background(), TextRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "safety"))
}

func TestDataURLToInlineData(t *testing.T) {
	b, ok := dataURLToInlineData("data:image/jpeg;base64,/9j/4AAQ", "image/png")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", b.MimeType)
	assert.Equal(t, "/9j/4AAQ", b.Data)

	b, ok = dataURLToInlineData("iVBORw0KGgo=", "image/png")
	require.True(t, ok)
	assert.Equal(t, "image/png", b.MimeType)

	_, ok = dataURLToInlineData("  ", "image/png")
	assert.False(t, ok)
}
