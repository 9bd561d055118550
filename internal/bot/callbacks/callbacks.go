package callbacks

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"reposcanner/internal/actions"
	"reposcanner/internal/bot/commands"
	"reposcanner/internal/browse"
	"reposcanner/internal/cache"
	"reposcanner/internal/models"
	"reposcanner/internal/rigobot"
	"reposcanner/internal/session"
	"reposcanner/internal/utils"
)

const jobTimeout = 15 * time.Minute

// noKeyboard removes the buttons of an edited message.
var noKeyboard = gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{}}

type CallbackHandler struct {
	Sessions    *session.Registry
	Runner      *actions.Runner
	ActionCache *cache.Cache[string, models.DescribeJob]
}

func NewCallbackHandler(sessions *session.Registry, runner *actions.Runner, actionCache *cache.Cache[string, models.DescribeJob]) *CallbackHandler {
	return &CallbackHandler{
		Sessions:    sessions,
		Runner:      runner,
		ActionCache: actionCache,
	}
}

func answer(b *gotgbot.Bot, ctx *ext.Context, text string, alert bool) {
	if _, err := ctx.CallbackQuery.Answer(b, &gotgbot.AnswerCallbackQueryOpts{Text: text, ShowAlert: alert}); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func edit(b *gotgbot.Bot, ctx *ext.Context, text string, markup gotgbot.InlineKeyboardMarkup) error {
	_, _, err := ctx.EffectiveMessage.EditText(b, text, &gotgbot.EditMessageTextOpts{
		ParseMode:          "HTML",
		ReplyMarkup:        markup,
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	})
	return err
}

// HandleBranch handles "br:<index>" from the /branches keyboard.
func (h *CallbackHandler) HandleBranch(b *gotgbot.Bot, ctx *ext.Context) error {
	idx, err := strconv.Atoi(strings.TrimPrefix(ctx.CallbackQuery.Data, "br:"))
	if err != nil {
		answer(b, ctx, "Invalid branch", true)
		return nil
	}

	st, err := h.Sessions.For(context.Background(), ctx.EffectiveUser.Id)
	if err != nil {
		answer(b, ctx, "Session unavailable", true)
		return err
	}

	repo := st.Repo()
	if idx < 0 || idx >= len(repo.Branches) {
		answer(b, ctx, "This branch list is out of date. Run /branches again.", true)
		return nil
	}
	name := repo.Branches[idx].Name
	if err := st.SelectBranch(name); err != nil {
		answer(b, ctx, err.Error(), true)
		return nil
	}

	answer(b, ctx, "Active branch: "+name, false)
	repo = st.Repo()
	return edit(b, ctx, fmt.Sprintf("Active branch: <b>%s</b>\nSelect a branch:", html.EscapeString(repo.Branch)), commands.BranchKeyboard(repo))
}

// HandleJob handles "job:run:<id>" and "job:cancel:<id>" from /describe.
func (h *CallbackHandler) HandleJob(b *gotgbot.Bot, ctx *ext.Context) error {
	parts := strings.SplitN(ctx.CallbackQuery.Data, ":", 3)
	if len(parts) != 3 {
		return nil
	}
	action, id := parts[1], parts[2]

	job, ok := h.ActionCache.Get(id)
	if !ok {
		answer(b, ctx, "This request has expired. Run /describe again.", true)
		return edit(b, ctx, "⌛ Request expired.", noKeyboard)
	}
	if job.UserID != ctx.EffectiveUser.Id {
		answer(b, ctx, "Only the user who asked can do that.", true)
		return nil
	}
	// a second tap while the first one runs finds nothing
	if _, ok := h.ActionCache.Take(id); !ok {
		answer(b, ctx, "Already running.", false)
		return nil
	}

	if action == "cancel" {
		answer(b, ctx, "Cancelled", false)
		return edit(b, ctx, "✖️ Cancelled.", noKeyboard)
	}

	answer(b, ctx, "Working on it…", false)
	if err := edit(b, ctx, fmt.Sprintf("⏳ Generating descriptions for %d files…", len(job.Paths)), noKeyboard); err != nil {
		log.Printf("Failed to update job message: %v", err)
	}

	res, err := h.run(job)
	if err != nil {
		log.Printf("Describe job %s failed: %v", id, err)
		return edit(b, ctx, utils.ErrorText(err), noKeyboard)
	}

	text := formatDescribeResult(res)
	chunks := utils.SplitMessage(text, utils.MessageLimit)
	if len(chunks) == 0 {
		chunks = []string{"Done."}
	}
	if err := edit(b, ctx, chunks[0], noKeyboard); err != nil {
		return err
	}
	for _, chunk := range chunks[1:] {
		if _, err := b.SendMessage(ctx.EffectiveChat.Id, chunk, &gotgbot.SendMessageOpts{ParseMode: "HTML"}); err != nil {
			return err
		}
	}
	return nil
}

func (h *CallbackHandler) run(job models.DescribeJob) (*actions.DescribeResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	st, err := h.Sessions.For(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	auth := st.Auth()
	if err := actions.RequireCredentials(auth); err != nil {
		return nil, err
	}
	repo, _, err := st.LoadRepo(ctx, job.RepoURL)
	if err != nil {
		return nil, err
	}
	repo.Branch = job.Branch

	if missing := browse.SelectPaths(repo.Files, job.Paths); len(missing) > 0 {
		return nil, fmt.Errorf("%w: no longer in the repository: %s", models.ErrNotFound, strings.Join(missing, ", "))
	}

	return h.Runner.GenerateDescriptions(ctx, auth, repo, browse.Selected(repo.Files), actions.DescribeOptions{
		MaxLength:      job.MaxLength,
		GenerateForAll: job.GenerateForAll,
		CommitMessage:  job.CommitMessage,
	})
}

func formatDescribeResult(res *actions.DescribeResult) string {
	var sb strings.Builder
	switch {
	case res.Commit != nil:
		sb.WriteString(fmt.Sprintf("✅ Committed <b>%d</b> files as %s\n", len(res.Updated), utils.Code(res.Commit.SHA)))
	case res.NothingToCommit:
		sb.WriteString("👌 Nothing to commit. Every file already has a good description.\n")
	}

	list := func(title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n<b>%s (%d)</b>\n", title, len(paths)))
		for _, p := range paths {
			sb.WriteString("• " + utils.Code(p) + "\n")
			if desc, ok := res.Descriptions[p]; ok {
				sb.WriteString("  <i>" + html.EscapeString(rigobot.PreviewAnswer(desc)) + "</i>\n")
			}
		}
	}
	list("Updated", res.Updated)
	list("Skipped", res.Skipped)
	list("Ignored", res.Ignored)

	if len(res.Failures) > 0 {
		sb.WriteString(fmt.Sprintf("\n<b>Failed (%d)</b>\n", len(res.Failures)))
		for _, f := range res.Failures {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", utils.Code(f.Path), html.EscapeString(f.Error)))
		}
	}
	return sb.String()
}
