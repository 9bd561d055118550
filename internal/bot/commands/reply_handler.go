package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"reposcanner/internal/actions"
	"reposcanner/internal/cache"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
	"reposcanner/internal/utils"
)

// ReplyHandler commits the text of a reply to a /cat message as the new
// content of that file.
type ReplyHandler struct {
	Sessions     *session.Registry
	Runner       *actions.Runner
	ContextCache *cache.Cache[string, models.EditContext]
}

func NewReplyHandler(sessions *session.Registry, runner *actions.Runner, ctxCache *cache.Cache[string, models.EditContext]) *ReplyHandler {
	return &ReplyHandler{
		Sessions:     sessions,
		Runner:       runner,
		ContextCache: ctxCache,
	}
}

func (h *ReplyHandler) HandleReply(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg.ReplyToMessage == nil {
		return nil
	}

	key := ContextKey(ctx.EffectiveChat.Id, msg.ReplyToMessage.MessageId)
	edit, found := h.ContextCache.Get(key)
	if !found {
		return nil
	}

	st, err := h.Sessions.For(context.Background(), ctx.EffectiveUser.Id)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	content := msg.Text
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	repo := models.Repository{URL: edit.RepoURL, Branch: edit.Branch}
	res, err := h.Runner.CommitEdit(opCtx, st.Auth(), repo, edit.Path, content, "")
	if err != nil {
		log.Printf("Failed to commit %s to %s@%s: %v", edit.Path, edit.RepoURL, edit.Branch, err)
		return replyErr(b, ctx, err)
	}

	_, err = reply(b, ctx, fmt.Sprintf("✅ Committed %s to %s as %s", utils.Code(edit.Path), utils.Code(edit.Branch), utils.Code(shortSHA(res.SHA))))
	return err
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
