package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"temudesign/internal/session"
	"temudesign/internal/studio"
	"temudesign/internal/upload"
)

type modeInfo struct {
	Mode     studio.Mode               `json:"mode"`
	Title    string                    `json:"title"`
	Required []studio.Field            `json:"required"`
	Optional []studio.Field            `json:"optional,omitempty"`
	Controls []studio.Field            `json:"controls,omitempty"`
	TwoPhase bool                      `json:"two_phase"`
	Choices  map[studio.Field][]string `json:"choices,omitempty"`
}

func (s *Server) listModes(c *gin.Context) {
	var out []modeInfo
	for _, m := range studio.Modes() {
		spec, _ := studio.Describe(m)
		info := modeInfo{
			Mode:     m,
			Title:    spec.Title,
			Required: spec.Required,
			Optional: spec.Optional,
			Controls: spec.Controls,
			TwoPhase: spec.TwoPhase,
			Choices:  map[studio.Field][]string{},
		}
		for _, f := range spec.Controls {
			if ch := studio.Choices(f); len(ch) > 0 {
				info.Choices[f] = ch
			}
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) createSession(c *gin.Context) {
	var req modeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
			return
		}
	}

	mode := studio.ModeAutoDesign
	if req.Mode != "" {
		m, ok := studio.ParseMode(req.Mode)
		if !ok {
			fail(c, studio.ErrUnknownMode)
			return
		}
		mode = m
	}

	e := s.sessions.GetOrCreate(newSessionID())
	if err := e.Studio.SetMode(mode); err != nil {
		fail(c, err)
		return
	}
	s.logger.Info("session created", "session", e.Key, "mode", mode)
	s.respond(c, http.StatusCreated, e)
}

func (s *Server) getSession(c *gin.Context) {
	s.respond(c, http.StatusOK, entryFrom(c))
}

func (s *Server) deleteSession(c *gin.Context) {
	e := entryFrom(c)
	// Invalidate anything in flight before forgetting the session.
	e.Studio.Reset()
	s.sessions.Delete(e.Key)
	c.Status(http.StatusNoContent)
}

func (s *Server) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	mode, ok := studio.ParseMode(req.Mode)
	if !ok {
		fail(c, studio.ErrUnknownMode)
		return
	}
	e := entryFrom(c)
	if err := e.Studio.SetMode(mode); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, e)
}

func (s *Server) reset(c *gin.Context) {
	e := entryFrom(c)
	e.Studio.Reset()
	s.respond(c, http.StatusOK, e)
}

type inputsRequest struct {
	Mode   string            `json:"mode"`
	Values map[string]string `json:"values"`
}

// setInputs applies a batch of values. Field names are checked against the
// mode's catalog entry before the first write.
func (s *Server) setInputs(c *gin.Context) {
	var req inputsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Values) == 0 {
		c.JSON(http.StatusBadRequest, apiError{Error: "values are required"})
		return
	}

	e := entryFrom(c)
	mode := e.Studio.Mode()
	if req.Mode != "" {
		m, ok := studio.ParseMode(req.Mode)
		if !ok {
			fail(c, studio.ErrUnknownMode)
			return
		}
		mode = m
	}

	spec, _ := studio.Describe(mode)
	for name := range req.Values {
		f := studio.Field(name)
		if f.IsImage() || !spec.Accepts(f) {
			c.JSON(http.StatusBadRequest, apiError{Error: "unknown field", Field: name})
			return
		}
	}
	for _, f := range spec.Fields() {
		value, ok := req.Values[string(f)]
		if !ok {
			continue
		}
		if err := e.Studio.UpdateInput(mode, f, value); err != nil {
			fail(c, err)
			return
		}
	}
	e.Studio.ClearError()
	s.respond(c, http.StatusOK, e)
}

func (s *Server) uploadImage(c *gin.Context) {
	e := entryFrom(c)
	slot := studio.Field(c.Param("slot"))
	st := e.Studio.Snapshot()
	spec, _ := studio.Describe(st.Mode)
	if !slot.IsImage() || !spec.Accepts(slot) {
		c.JSON(http.StatusBadRequest, apiError{Error: "unknown image slot", Field: string(slot)})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, upload.MaxBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, upload.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, apiError{Error: "missing image"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "failed to read image"})
		return
	}
	defer f.Close()

	img, err := upload.FromReader(f, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := e.Studio.UpdateInput(st.Mode, slot, string(img)); err != nil {
		fail(c, err)
		return
	}
	e.Studio.ClearError()
	s.respond(c, http.StatusOK, e)
}

func (s *Server) generate(c *gin.Context) {
	e := entryFrom(c)
	s.dispatch(c, e, func() (*studio.Call, error) {
		return s.orch.Start(e.Studio)
	})
}

type confirmRequest struct {
	Suggestion *studio.TextSuggestion `json:"suggestion"`
}

func (s *Server) confirmSuggestion(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
			return
		}
	}
	e := entryFrom(c)
	s.dispatch(c, e, func() (*studio.Call, error) {
		return s.orch.StartConfirm(e.Studio, req.Suggestion)
	})
}

// dispatch starts a request and answers 202 with the loading state; the
// service call finishes in the background.
func (s *Server) dispatch(c *gin.Context, e *session.Entry, start func() (*studio.Call, error)) {
	call, err := start()
	if err != nil {
		fail(c, err)
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		ctx, cancel := context.WithTimeout(s.base, s.timeout)
		defer cancel()
		if err := call.Wait(ctx); err != nil && !errors.Is(err, studio.ErrStale) {
			s.logger.Debug("background generation failed", "session", e.Key, "request_id", call.ID(), "err", err)
		}
	}()

	s.respond(c, http.StatusAccepted, e)
}

func (s *Server) editSuggestion(c *gin.Context) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	e := entryFrom(c)
	err := e.Studio.EditSuggestion(func(t *studio.TextSuggestion) error {
		return t.Set(req.Field, req.Value)
	})
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, e)
}

func (s *Server) cancelSuggestion(c *gin.Context) {
	e := entryFrom(c)
	if err := s.orch.CancelSuggestion(e.Studio); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, e)
}

type selectRequest struct {
	Index *int `json:"index"`
	Delta int  `json:"delta"`
}

func (s *Server) selectArtifact(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	e := entryFrom(c)
	if req.Index != nil {
		e.Studio.SetSelectedIndex(*req.Index)
	} else {
		e.Studio.StepSelection(req.Delta)
	}
	s.respond(c, http.StatusOK, e)
}

// downloadArtifact serves the selected artifact as a file attachment.
func (s *Server) downloadArtifact(c *gin.Context) {
	a, ok := studio.View(entryFrom(c).Studio.Snapshot()).Current()
	if !ok {
		c.JSON(http.StatusNotFound, apiError{Error: "no artifact"})
		return
	}
	mt, raw, err := upload.Decode(string(a))
	if err != nil {
		fail(c, err)
		return
	}
	name := studio.DownloadName(s.now())
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, mt, raw)
}

func (s *Server) setPremium(c *gin.Context) {
	var req struct {
		On bool `json:"on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	e := entryFrom(c)
	s.gate.SetPremium(e.Studio, req.On)
	s.respond(c, http.StatusOK, e)
}

func (s *Server) submitCredential(c *gin.Context) {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	e := entryFrom(c)
	if err := s.gate.SubmitCredential(c.Request.Context(), e.Studio, strings.TrimSpace(req.Key)); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, e)
}

func (s *Server) cancelCredential(c *gin.Context) {
	e := entryFrom(c)
	s.gate.CancelCredential(e.Studio)
	s.respond(c, http.StatusOK, e)
}
