package handlers

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"temudesign/internal/session"
	"temudesign/internal/studio"
)

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.Owner != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This panel belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	e := h.entry(chatID, c.Owner)
	e.UpdatePanel(func(p *session.Panel) { p.MessageID = q.Message.MessageID })

	arg := func(i int) string {
		if i < len(c.Args) {
			return c.Args[i]
		}
		return ""
	}
	setPanel := func(fn func(p *session.Panel)) { e.UpdatePanel(fn) }
	notice := ""
	alert := false

	switch c.Action {
	case "m":
		setPanel(func(p *session.Panel) { p.Menu = arg(0) })

	case "mode":
		modes := studio.Modes()
		if i, err := strconv.Atoi(arg(0)); err == nil && i >= 0 && i < len(modes) {
			h.switchMode(e, modes[i])
		}

	case "set":
		f := studio.Field(arg(0))
		choices := studio.Choices(f)
		i, err := strconv.Atoi(arg(1))
		if err != nil || i < 0 || i >= len(choices) {
			break
		}
		if err := e.Studio.UpdateInput(e.Studio.Mode(), f, choices[i]); err != nil {
			notice, alert = userMessage(err), true
		}
		setPanel(func(p *session.Panel) { p.Menu = menuMain })

	case "ask":
		f := studio.Field(arg(0))
		setPanel(func(p *session.Panel) {
			p.Await = session.AwaitField
			p.AwaitField = f
		})
		notice = "Type the " + fieldLabel(f) + "."

	case "slot":
		f := studio.Field(arg(0))
		setPanel(func(p *session.Panel) { p.Slot = f })
		notice = "Send the photo for " + fieldLabel(f) + "."

	case "edit":
		name := arg(0)
		setPanel(func(p *session.Panel) {
			p.Await = session.AwaitSuggestion
			p.SuggestionField = name
		})
		notice = "Type the new " + suggestionLabels[name] + "."

	case "gen", "ok":
		if err := studio.CheckReady(e.Studio.Snapshot()); errors.Is(err, studio.ErrBusy) {
			_ = h.tg.AnswerCallback(q.ID, userMessage(err), false)
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "Working...", false)
		return h.generate(ctx, chatID, c.Owner, e, c.Action == "ok")

	case "no":
		if err := h.orch.CancelSuggestion(e.Studio); err != nil {
			h.logger.Debug("cancel suggestion rejected", "err", err)
		}
		setPanel(func(p *session.Panel) { p.Await = session.AwaitNone })

	case "prev":
		e.Studio.StepSelection(-1)
	case "next":
		e.Studio.StepSelection(1)
	case "dl":
		a, ok := studio.View(e.Studio.Snapshot()).Current()
		if !ok {
			notice = "Nothing to download yet."
			break
		}
		_ = h.tg.AnswerCallback(q.ID, "Sending PNG...", false)
		if err := h.tg.SendArtifactDocument(chatID, string(a), studio.DownloadName(h.now())); err != nil {
			h.logger.Error("send document failed", "chat_id", chatID, "err", err)
		}
		return nil

	case "pro":
		t := h.gate.SetPremium(e.Studio, arg(0) == "on")
		setPanel(func(p *session.Panel) {
			if t.Gate == studio.GatePendingCredential {
				p.Await = session.AwaitCredential
				p.Menu = menuPremium
				return
			}
			p.Menu = menuMain
		})
	case "key":
		setPanel(func(p *session.Panel) { p.Await = session.AwaitCredential })
	case "keyx":
		h.gate.CancelCredential(e.Studio)
		setPanel(func(p *session.Panel) {
			p.Await = session.AwaitNone
			p.Menu = menuMain
		})

	case "reset":
		e.Studio.Reset()
		setPanel(func(p *session.Panel) { *p = session.Panel{Menu: menuMain, MessageID: p.MessageID} })
	}

	_ = h.tg.AnswerCallback(q.ID, notice, alert)
	return h.renderPanel(chatID, c.Owner, e, true)
}
