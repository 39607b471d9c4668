package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"temudesign/internal/mediagroup"
	"temudesign/internal/session"
	"temudesign/internal/studio"
	"temudesign/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.InlineKeyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.InlineKeyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	DeleteMessage(chatID int64, messageID int) error
	SendTyping(chatID int64)
	SendArtifact(chatID int64, img string, caption string) error
	SendArtifactDocument(chatID int64, img string, name string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram     Messenger
	Orchestrator *studio.Orchestrator
	Gate         *studio.Gate
	Sessions     *session.Store
	Logger       *slog.Logger

	// RequestTimeout bounds one generation step.
	RequestTimeout time.Duration
	// RefreshInterval is how often the panel is redrawn while a request is
	// in flight, so phase hints reach the chat.
	RefreshInterval time.Duration
	Now             func() time.Time
}

type Handler struct {
	tg         Messenger
	orch       *studio.Orchestrator
	gate       *studio.Gate
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator

	timeout time.Duration
	refresh time.Duration
	now     func() time.Time
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = 2 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		tg:       opts.Telegram,
		orch:     opts.Orchestrator,
		gate:     opts.Gate,
		sessions: opts.Sessions,
		logger:   logger,
		timeout:  timeout,
		refresh:  refresh,
		now:      now,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func (h *Handler) entry(chatID, userID int64) *session.Entry {
	return h.sessions.GetOrCreate(sessionKey(chatID, userID))
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, chatID, userID, msg)
	case len(msg.Photo) > 0:
		return h.handlePhoto(ctx, chatID, userID, msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		return h.handlePhoto(ctx, chatID, userID, msg)
	case strings.TrimSpace(msg.Text) != "":
		return h.handleText(ctx, chatID, userID, msg)
	}
	return nil
}

// HandleMediaGroup fills the active mode's image slots from an album, in
// message order.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.storePhotos(ctx, group.ChatID, group.UserID, group.Caption, group.FileIDs, nil); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	e := h.entry(chatID, userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		e.UpdatePanel(func(p *session.Panel) { *p = session.Panel{Menu: menuMain} })
		return h.renderPanel(chatID, userID, e, false)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "mode":
		if args == "" {
			e.UpdatePanel(func(p *session.Panel) { p.Menu = menuMode })
			return h.renderPanel(chatID, userID, e, false)
		}
		mode, ok := studio.ParseMode(args)
		if !ok {
			return h.tg.SendText(chatID, "Unknown mode. Try: auto, reference, creative, magazine, affiliator.")
		}
		h.switchMode(e, mode)
		return h.renderPanel(chatID, userID, e, false)
	case "reset":
		e.Studio.Reset()
		e.UpdatePanel(func(p *session.Panel) { *p = session.Panel{Menu: menuMain, MessageID: p.MessageID} })
		return h.renderPanel(chatID, userID, e, false)
	case "cancel":
		h.cancelAwait(e)
		return h.renderPanel(chatID, userID, e, true)
	case "generate":
		return h.generate(ctx, chatID, userID, e, false)
	}
	return h.tg.SendText(chatID, "Unknown command. Use /help.")
}

const helpText = "🎨 TEMUDESIGN\n\n" +
	"/start - open the design panel\n" +
	"/mode <name> - switch mode (auto, reference, creative, magazine, affiliator)\n" +
	"/generate - run the active mode\n" +
	"/cancel - stop waiting for typed input\n" +
	"/reset - clear the session\n\n" +
	"Send photos to fill the image slots. An album fills them in order."

func (h *Handler) switchMode(e *session.Entry, mode studio.Mode) {
	if err := e.Studio.SetMode(mode); err != nil {
		h.logger.Warn("set mode failed", "mode", mode, "err", err)
		return
	}
	e.UpdatePanel(func(p *session.Panel) {
		p.Menu = menuMain
		p.Await = session.AwaitNone
		p.Slot = ""
	})
}

// cancelAwait stops waiting for typed input. An open credential gate is
// closed as well.
func (h *Handler) cancelAwait(e *session.Entry) {
	e.UpdatePanel(func(p *session.Panel) {
		p.Await = session.AwaitNone
		p.AwaitField = ""
		p.SuggestionField = ""
		p.Menu = menuMain
	})
	if e.Studio.Snapshot().Tier.Gate == studio.GatePendingCredential {
		h.gate.CancelCredential(e.Studio)
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	e := h.entry(chatID, userID)
	text := strings.TrimSpace(msg.Text)
	p := e.Panel()

	switch p.Await {
	case session.AwaitCredential:
		if err := h.tg.DeleteMessage(chatID, msg.MessageID); err != nil {
			h.logger.Debug("delete credential message failed", "err", err)
		}
		return h.submitCredential(ctx, chatID, userID, e, text)

	case session.AwaitSuggestion:
		err := e.Studio.EditSuggestion(func(t *studio.TextSuggestion) error {
			return t.Set(p.SuggestionField, text)
		})
		if err != nil {
			h.logger.Debug("edit suggestion rejected", "field", p.SuggestionField, "err", err)
		}
		e.UpdatePanel(func(p *session.Panel) {
			p.Await = session.AwaitNone
			p.SuggestionField = ""
		})
		return h.renderPanel(chatID, userID, e, false)

	case session.AwaitField:
		st := e.Studio.Snapshot()
		if err := e.Studio.UpdateInput(st.Mode, p.AwaitField, text); err != nil {
			return h.tg.SendText(chatID, "❌ "+userMessage(err))
		}
		e.UpdatePanel(func(p *session.Panel) {
			p.Await = session.AwaitNone
			p.AwaitField = ""
		})
		return h.renderPanel(chatID, userID, e, false)
	}

	// Without a pending prompt, plain text is the creative instruction when
	// the mode has one.
	st := e.Studio.Snapshot()
	spec, _ := studio.Describe(st.Mode)
	if spec.Accepts(studio.FieldInstruction) {
		if err := e.Studio.UpdateInput(st.Mode, studio.FieldInstruction, text); err != nil {
			return h.tg.SendText(chatID, "❌ "+userMessage(err))
		}
		return h.renderPanel(chatID, userID, e, false)
	}
	return h.tg.SendText(chatID, "Send a photo or use the panel buttons. /start shows the panel.")
}

func (h *Handler) submitCredential(ctx context.Context, chatID, userID int64, e *session.Entry, key string) error {
	h.tg.SendTyping(chatID)
	err := h.gate.SubmitCredential(ctx, e.Studio, key)

	var failure *studio.CredentialFailure
	switch {
	case err == nil:
		e.UpdatePanel(func(p *session.Panel) {
			p.Await = session.AwaitNone
			p.Menu = menuMain
		})
		_ = h.tg.SendText(chatID, "⭐ Premium model enabled.")
	case errors.As(err, &failure):
		// Gate stays open; the next message is another attempt.
	case errors.Is(err, studio.ErrStale), errors.Is(err, studio.ErrWrongPhase):
		e.UpdatePanel(func(p *session.Panel) { p.Await = session.AwaitNone })
	default:
		h.logger.Warn("credential submit failed", "err", err)
	}
	return h.renderPanel(chatID, userID, e, false)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	fileID, declared := photoFile(msg)
	if fileID == "" {
		return nil
	}

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MediaGroupID: msg.MediaGroupID,
			MessageID:    msg.MessageID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	return h.storePhotos(ctx, chatID, userID, msg.Caption, []string{fileID}, []string{declared})
}

// photoFile returns the largest photo size, or the image document.
func photoFile(msg *tgbotapi.Message) (fileID, mimeType string) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, "image/jpeg"
	}
	if msg.Document != nil {
		return msg.Document.FileID, msg.Document.MimeType
	}
	return "", ""
}

func (h *Handler) renderPanel(chatID, userID int64, e *session.Entry, edit bool) error {
	st := e.Studio.Snapshot()
	p := e.Panel()

	text := panelText(st, p)
	kb := panelKeyboard(userID, st, p)

	if edit && p.MessageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, p.MessageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	e.UpdatePanel(func(p *session.Panel) { p.MessageID = msgID })
	return nil
}

func userMessage(err error) string {
	var verr *studio.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	switch {
	case errors.Is(err, studio.ErrInvalidValue):
		return "That value is not allowed here."
	case errors.Is(err, studio.ErrUnknownField), errors.Is(err, studio.ErrWrongMode):
		return "That setting belongs to another mode."
	case errors.Is(err, studio.ErrBusy):
		return "Still working on the previous request."
	}
	return err.Error()
}
