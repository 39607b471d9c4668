package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"temudesign/internal/session"
	"temudesign/internal/studio"
	"temudesign/internal/upload"
)

// generate runs the next step of the active mode and reports the outcome in
// the panel. confirm selects the poster step of a reviewed suggestion.
func (h *Handler) generate(ctx context.Context, chatID, userID int64, e *session.Entry, confirm bool) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.tg.SendTyping(chatID)

	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		h.watch(chatID, userID, e, done)
	}()

	var err error
	if confirm {
		err = h.orch.ConfirmSuggestion(ctx, e.Studio, nil)
	} else {
		err = h.orch.Generate(ctx, e.Studio)
	}
	close(done)
	<-watched

	switch {
	case errors.Is(err, studio.ErrStale):
		// The user switched mode or reset; the panel already shows that.
		return nil
	case errors.Is(err, studio.ErrBusy):
		return h.tg.SendText(chatID, "⏳ "+userMessage(err))
	}

	if rerr := h.renderPanel(chatID, userID, e, true); rerr != nil {
		h.logger.Warn("render panel failed", "chat_id", chatID, "err", rerr)
	}
	if err != nil {
		h.logger.Debug("generate finished with error", "chat_id", chatID, "err", err)
		return nil
	}
	return h.deliver(chatID, e.Studio.Snapshot())
}

// watch redraws the panel whenever the loading message changes until done
// is closed.
func (h *Handler) watch(chatID, userID int64, e *session.Entry, done <-chan struct{}) {
	t := time.NewTicker(h.refresh)
	defer t.Stop()

	last := ""
	for {
		select {
		case <-done:
			return
		case <-t.C:
		}

		st := e.Studio.Snapshot()
		if st.Status.Kind != studio.StatusLoading || st.Status.Message == last {
			continue
		}
		last = st.Status.Message
		if err := h.renderPanel(chatID, userID, e, true); err != nil {
			h.logger.Debug("progress render failed", "chat_id", chatID, "err", err)
		}
	}
}

// deliver sends a fresh batch as photos. Text results live in the panel.
func (h *Handler) deliver(chatID int64, st studio.State) error {
	v := studio.View(st)
	if v.Empty() || st.Phase != studio.PhaseAwaitingInput {
		return nil
	}

	_, total := v.Position()
	for i, a := range v.Artifacts {
		caption := fmt.Sprintf("Variation %d / %d · %s", i+1, total, st.Tier.ModelLabel())
		if err := h.tg.SendArtifact(chatID, string(a), caption); err != nil {
			h.logger.Error("send artifact failed", "chat_id", chatID, "index", i, "err", err)
			return h.tg.SendText(chatID, "❌ Could not send the generated image.")
		}
	}
	return nil
}

// storePhotos downloads fileIDs concurrently and fills the active mode's
// image slots. A single photo goes to the next slot, an album fills the
// slots in order.
func (h *Handler) storePhotos(ctx context.Context, chatID, userID int64, caption string, fileIDs, declared []string) error {
	e := h.entry(chatID, userID)
	st := e.Studio.Snapshot()
	spec, _ := studio.Describe(st.Mode)
	p := e.Panel()

	targets := photoTargets(spec, st.Inputs, p.Slot, len(fileIDs))
	if len(targets) == 0 {
		return h.tg.SendText(chatID, "This mode works from text only. Type your instruction instead.")
	}
	fileIDs = fileIDs[:len(targets)]

	h.tg.SendTyping(chatID)

	images := make([]studio.Image, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			data, served, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			mt := served
			if i < len(declared) && declared[i] != "" {
				mt = declared[i]
			}
			img, err := upload.FromBytes(data, mt)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ "+uploadMessage(err))
	}

	for i, f := range targets {
		if err := e.Studio.UpdateInput(st.Mode, f, string(images[i])); err != nil {
			// The mode changed while downloading.
			h.logger.Debug("photo dropped", "field", f, "err", err)
			return nil
		}
	}
	if c := strings.TrimSpace(caption); c != "" && spec.Accepts(studio.FieldInstruction) {
		_ = e.Studio.UpdateInput(st.Mode, studio.FieldInstruction, c)
	}
	e.Studio.ClearError()
	e.UpdatePanel(func(p *session.Panel) { p.Slot = "" })

	h.logger.Info("photos stored", "chat_id", chatID, "mode", st.Mode, "count", len(targets))
	return h.renderPanel(chatID, userID, e, false)
}

// photoTargets maps n incoming photos to image slots. The first photo goes to
// the pinned or first empty slot and the rest follow in catalog order.
func photoTargets(spec studio.ModeSpec, in studio.Inputs, pinned studio.Field, n int) []studio.Field {
	imgs := spec.Images()
	if len(imgs) == 0 || n <= 0 {
		return nil
	}
	first, _ := nextSlot(spec, in, pinned)
	start := 0
	for i, f := range imgs {
		if f == first {
			start = i
			break
		}
	}
	rest := imgs[start:]
	if n > len(rest) {
		n = len(rest)
	}
	return rest[:n]
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return "That image is too large (15 MB max)."
	case errors.Is(err, upload.ErrNotImage):
		return "That file is not a supported image."
	case errors.Is(err, upload.ErrEmpty):
		return "The image was empty."
	}
	return "Could not load the image. Please send it again."
}
