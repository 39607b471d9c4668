package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temudesign/internal/session"
	"temudesign/internal/studio"
	"temudesign/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// gatedService holds every batch until release is closed.
type gatedService struct {
	release   chan struct{}
	artifacts []studio.Artifact
	err       error
}

func (g *gatedService) wait() {
	if g.release != nil {
		<-g.release
	}
}

func (g *gatedService) SuggestText(context.Context, studio.SuggestTextRequest) (studio.TextSuggestion, error) {
	g.wait()
	return studio.TextSuggestion{Headline: "SALE", CTA: "Buy"}, g.err
}

func (g *gatedService) PosterBatch(context.Context, studio.PosterBatchRequest) ([]studio.Artifact, error) {
	g.wait()
	return g.artifacts, g.err
}

func (g *gatedService) ReferenceBatch(context.Context, studio.ReferenceBatchRequest) ([]studio.Artifact, error) {
	g.wait()
	return g.artifacts, g.err
}

func (g *gatedService) CreativeBatch(context.Context, studio.CreativeBatchRequest) ([]studio.Artifact, error) {
	g.wait()
	return g.artifacts, g.err
}

func (g *gatedService) AnalyzeLayout(context.Context, studio.AnalysisRequest) (studio.MagazineAnalysis, error) {
	g.wait()
	return studio.MagazineAnalysis{Headline: "VOGUE"}, g.err
}

func (g *gatedService) Composite(context.Context, studio.CompositeRequest) ([]studio.Artifact, error) {
	g.wait()
	return g.artifacts, g.err
}

type validatorFunc func(ctx context.Context, candidate string) error

func (f validatorFunc) ValidateCredential(ctx context.Context, candidate string) error {
	return f(ctx, candidate)
}

func newTestServer(t *testing.T, svc studio.Service, v studio.CredentialValidator) (*Server, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := New(Options{
		Orchestrator: studio.NewOrchestrator(studio.Options{Service: svc}),
		Gate:         studio.NewGate(studio.GateOptions{Validator: v}),
		Sessions:     session.NewStore(session.Options{}),
		Now:          func() time.Time { return time.UnixMilli(1717243200000) },
	})
	return srv, srv.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createSession(t *testing.T, h http.Handler, mode string) sessionResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/sessions", modeRequest{Mode: mode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionResponse](t, w)
}

func uploadImage(t *testing.T, h http.Handler, id, slot string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/images/"+slot, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListModes(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)

	w := do(t, h, http.MethodGet, "/api/modes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	modes := decode[[]modeInfo](t, w)
	require.Len(t, modes, len(studio.Modes()))
	assert.Equal(t, studio.ModeAutoDesign, modes[0].Mode)
	assert.True(t, modes[0].TwoPhase)
	assert.NotEmpty(t, modes[0].Choices[studio.FieldLanguage])
}

func TestUnknownSession(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)

	w := do(t, h, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session not found", decode[apiError](t, w).Error)
}

func TestCreateSessionRejectsUnknownMode(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)

	w := do(t, h, http.MethodPost, "/api/sessions", modeRequest{Mode: "watercolor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreativeGenerationRunsInBackground(t *testing.T) {
	svc := &gatedService{
		release:   make(chan struct{}),
		artifacts: []studio.Artifact{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
	}
	srv, h := newTestServer(t, svc, nil)
	sess := createSession(t, h, "creative")
	base := "/api/sessions/" + sess.ID

	w := do(t, h, http.MethodPost, base+"/inputs", inputsRequest{Values: map[string]string{
		"instruction": "Neon ramen poster",
		"batch_size":  "2",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Neon ramen poster", decode[sessionResponse](t, w).State.Inputs.Instruction)

	w = do(t, h, http.MethodPost, base+"/generate", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	started := decode[sessionResponse](t, w)
	assert.Equal(t, studio.StatusLoading, started.State.Status.Kind)
	assert.NotEmpty(t, started.State.Status.Message)

	// A second trigger while loading is refused.
	w = do(t, h, http.MethodPost, base+"/generate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(svc.release)
	require.Eventually(t, func() bool {
		got := decode[sessionResponse](t, do(t, h, http.MethodGet, base, nil))
		return got.State.Status.Kind == studio.StatusIdle
	}, time.Second, 5*time.Millisecond)

	got := decode[sessionResponse](t, do(t, h, http.MethodGet, base, nil))
	assert.Len(t, got.State.Batch, 2)
	assert.Equal(t, viewerInfo{Position: 1, Total: 2}, got.Viewer)

	w = do(t, h, http.MethodPost, base+"/select", selectRequest{Delta: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[sessionResponse](t, w).State.SelectedIndex)

	w = do(t, h, http.MethodGet, base+"/artifact", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "TEMUDESIGN_1717243200000.png")

	srv.Close()
}

func TestGenerateValidationError(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)
	sess := createSession(t, h, "")

	w := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/generate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	apiErr := decode[apiError](t, w)
	assert.Equal(t, "main_image", apiErr.Field)

	got := decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil))
	assert.Equal(t, studio.StatusError, got.State.Status.Kind)
	assert.False(t, got.Ready.Ready)
}

func TestAutoDesignSuggestionFlow(t *testing.T) {
	svc := &gatedService{artifacts: []studio.Artifact{"data:image/png;base64,AAAA"}}
	srv, h := newTestServer(t, svc, nil)
	defer srv.Close()
	sess := createSession(t, h, "")
	base := "/api/sessions/" + sess.ID

	w := uploadImage(t, h, sess.ID, "main_image", pngBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[sessionResponse](t, w).Ready.Ready)

	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, base+"/generate", nil).Code)
	require.Eventually(t, func() bool {
		got := decode[sessionResponse](t, do(t, h, http.MethodGet, base, nil))
		return got.State.Phase == studio.PhaseAwaitingConfirmation
	}, time.Second, 5*time.Millisecond)

	w = do(t, h, http.MethodPost, base+"/suggestion", map[string]string{"field": "headline", "value": "MEGA SALE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MEGA SALE", decode[sessionResponse](t, w).State.PendingSuggestion.Headline)

	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, base+"/suggestion/confirm", nil).Code)
	require.Eventually(t, func() bool {
		got := decode[sessionResponse](t, do(t, h, http.MethodGet, base, nil))
		return len(got.State.Batch) == 1 && got.State.Phase == studio.PhaseAwaitingInput
	}, time.Second, 5*time.Millisecond)
}

func TestServiceErrorSurfacesInSession(t *testing.T) {
	svc := &gatedService{err: errors.New("quota exhausted")}
	srv, h := newTestServer(t, svc, nil)
	defer srv.Close()
	sess := createSession(t, h, "creative")
	base := "/api/sessions/" + sess.ID

	do(t, h, http.MethodPost, base+"/inputs", inputsRequest{Values: map[string]string{"instruction": "poster"}})
	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, base+"/generate", nil).Code)

	require.Eventually(t, func() bool {
		got := decode[sessionResponse](t, do(t, h, http.MethodGet, base, nil))
		return got.State.Status == studio.ErrorStatus("quota exhausted")
	}, time.Second, 5*time.Millisecond)
}

func TestSetInputsRejectsForeignField(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)
	sess := createSession(t, h, "creative")

	w := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/inputs", inputsRequest{Values: map[string]string{
		"instruction": "poster",
		"pose":        "Standing",
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pose", decode[apiError](t, w).Field)

	got := decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil))
	assert.Empty(t, got.State.Inputs.Instruction)
}

func TestSetInputsAppliesPresetBeforeOverride(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)

	for i := 0; i < 20; i++ {
		sess := createSession(t, h, "affiliator")
		w := do(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/inputs", inputsRequest{Values: map[string]string{
			"scene_override": "Rainy alley at night",
			"scene":          "Outdoor: Rooftop Sunset (Golden Hour)",
		}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		in := decode[sessionResponse](t, w).State.Inputs
		assert.Equal(t, "Outdoor: Rooftop Sunset (Golden Hour)", in.Scene)
		require.Equal(t, "Rainy alley at night", in.SceneOverride)
		assert.Equal(t, "Rainy alley at night", in.ResolvedScene())
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)
	sess := createSession(t, h, "")

	big := append(append([]byte(nil), pngBytes...), make([]byte, upload.MaxBytes+2<<20)...)
	w := uploadImage(t, h, sess.ID, "main_image", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	got := decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil))
	assert.Empty(t, got.State.Inputs.MainImage)
}

func TestUploadRejectsNonImage(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)
	sess := createSession(t, h, "")

	w := uploadImage(t, h, sess.ID, "main_image", []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = uploadImage(t, h, sess.ID, "portrait_image", pngBytes)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCredentialFlow(t *testing.T) {
	v := validatorFunc(func(_ context.Context, key string) error {
		if key != "good-key" {
			return errors.New("API key not valid")
		}
		return nil
	})
	_, h := newTestServer(t, &gatedService{}, v)
	sess := createSession(t, h, "")
	base := "/api/sessions/" + sess.ID

	w := do(t, h, http.MethodPost, base+"/premium", map[string]bool{"on": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, studio.GatePendingCredential, decode[sessionResponse](t, w).State.Tier.Gate)

	w = do(t, h, http.MethodPost, base+"/credential", map[string]string{"key": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodPost, base+"/credential", map[string]string{"key": "  good-key "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[sessionResponse](t, w)
	assert.Equal(t, studio.GatePremium, got.State.Tier.Gate)
	assert.Equal(t, "Gemini 3 Pro", got.Model)
	assert.NotContains(t, w.Body.String(), "good-key")
}

func TestDeleteSession(t *testing.T) {
	_, h := newTestServer(t, &gatedService{}, nil)
	sess := createSession(t, h, "")

	w := do(t, h, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil).Code)
}
