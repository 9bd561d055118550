package commands

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/google/uuid"

	"reposcanner/internal/actions"
	"reposcanner/internal/browse"
	"reposcanner/internal/cache"
	"reposcanner/internal/config"
	gh "reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
	"reposcanner/internal/store"
	"reposcanner/internal/utils"
)

const (
	// opTimeout bounds the GitHub and Rigobot work behind one command.
	opTimeout  = 5 * time.Minute
	editTTL    = 48 * time.Hour
	jobTTL     = 30 * time.Minute
	oauthTTL   = 10 * time.Minute
	chunkLimit = utils.MessageLimit - 256
)

type CommandHandler struct {
	Config       *config.Config
	Sessions     *session.Registry
	GitHub       *gh.Client
	Runner       *actions.Runner
	OAuth        *gh.OAuth
	StateCache   *cache.Cache[string, int64]
	ContextCache *cache.Cache[string, models.EditContext]
	ActionCache  *cache.Cache[string, models.DescribeJob]
}

func NewCommandHandler(cfg *config.Config, sessions *session.Registry, client *gh.Client, runner *actions.Runner, oauth *gh.OAuth, stateCache *cache.Cache[string, int64], ctxCache *cache.Cache[string, models.EditContext], actionCache *cache.Cache[string, models.DescribeJob]) *CommandHandler {
	return &CommandHandler{
		Config:       cfg,
		Sessions:     sessions,
		GitHub:       client,
		Runner:       runner,
		OAuth:        oauth,
		StateCache:   stateCache,
		ContextCache: ctxCache,
		ActionCache:  actionCache,
	}
}

// ContextKey identifies a message in ContextCache.
func ContextKey(chatID, messageID int64) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func reply(b *gotgbot.Bot, ctx *ext.Context, text string) (*gotgbot.Message, error) {
	return ctx.EffectiveMessage.Reply(b, text, &gotgbot.SendMessageOpts{
		ParseMode:          "HTML",
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	})
}

func replyErr(b *gotgbot.Bot, ctx *ext.Context, err error) error {
	log.Printf("Command failed for user %d: %v", ctx.EffectiveUser.Id, err)
	_, rErr := reply(b, ctx, utils.ErrorText(err))
	return rErr
}

func (h *CommandHandler) session(ctx *ext.Context) (*store.Store, error) {
	return h.Sessions.For(context.Background(), ctx.EffectiveUser.Id)
}

// currentRepo returns the loaded repository or a not found error telling
// the user how to load one.
func currentRepo(st *store.Store) (models.Repository, error) {
	repo := st.Repo()
	if repo.IsZero() {
		return repo, fmt.Errorf("%w: no repository selected, use /load &lt;url&gt;", models.ErrNotFound)
	}
	return repo, nil
}

func (h *CommandHandler) Start(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := `<b>Welcome to RepoScanner!</b> 🤖

I can browse a GitHub repository, show and edit its files, and write frontmatter descriptions for Markdown files with Rigobot.

<b>Get Started:</b>
1. Use /token (or /connect) to add your GitHub token.
2. Use /rigobot to add your Rigobot token.
3. Use /load to open a repository.

Need help? Type /help for a full list of commands.`
	_, err := reply(b, ctx, msg)
	return err
}

func (h *CommandHandler) Help(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := `<b>RepoScanner Commands:</b>

<b>Account</b>
/token &lt;pat&gt; - Save a GitHub personal access token
/rigobot &lt;token&gt; - Save a Rigobot token
/connect - Sign in with GitHub (<i>private chat only</i>)
/whoami - Show the connected account
/logout - Forget your tokens

<b>Repository</b>
/load &lt;url&gt; - Open a repository (cached when possible)
/sync - Fetch the open repository again
/branches - Pick the active branch
/files [.ext] [dir ...] - List files, optionally filtered
/cat &lt;path&gt; - Show a file. Reply to it with new content to commit.
/forget [all] - Drop the cached repository, or all your data

<b>Descriptions</b>
/describe [paths ...] [--all] [--max=N] [-m message] - Generate descriptions for Markdown files`

	_, err := reply(b, ctx, msg)
	return err
}

func (h *CommandHandler) Token(b *gotgbot.Bot, ctx *ext.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		_, err := reply(b, ctx, "Usage: /token &lt;github personal access token&gt;")
		return err
	}

	// the token should not stay in the chat history
	if _, err := b.DeleteMessage(ctx.EffectiveChat.Id, ctx.EffectiveMessage.MessageId, nil); err != nil {
		log.Printf("Failed to delete token message: %v", err)
	}

	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	auth := st.Auth()
	auth.Token = args[1]
	if err := st.SetAuth(context.Background(), auth); err != nil {
		return replyErr(b, ctx, err)
	}

	text := "⚠️ Token saved, but GitHub did not accept it. Check the token and its scopes."
	if user := st.User(); user != nil {
		text = fmt.Sprintf("✅ GitHub token saved. Connected as <b>%s</b>.", html.EscapeString(user.Login))
	}
	_, err = b.SendMessage(ctx.EffectiveChat.Id, text, &gotgbot.SendMessageOpts{ParseMode: "HTML"})
	return err
}

func (h *CommandHandler) Rigobot(b *gotgbot.Bot, ctx *ext.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		_, err := reply(b, ctx, "Usage: /rigobot &lt;rigobot token&gt;")
		return err
	}

	if _, err := b.DeleteMessage(ctx.EffectiveChat.Id, ctx.EffectiveMessage.MessageId, nil); err != nil {
		log.Printf("Failed to delete token message: %v", err)
	}

	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	auth := st.Auth()
	auth.RigobotToken = args[1]
	if err := st.SetAuth(context.Background(), auth); err != nil {
		return replyErr(b, ctx, err)
	}

	_, err = b.SendMessage(ctx.EffectiveChat.Id, "✅ Rigobot token saved.", nil)
	return err
}

func (h *CommandHandler) Connect(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != gotgbot.ChatTypePrivate {
		_, err := ctx.EffectiveMessage.Reply(b, "⚠️ The /connect command can only be used in a private chat with the bot.", nil)
		return err
	}
	if h.OAuth == nil {
		_, err := reply(b, ctx, "GitHub sign-in is not configured here. Use /token with a personal access token instead.")
		return err
	}

	state, err := gh.GenerateState()
	if err != nil {
		return err
	}

	h.StateCache.Set(state, ctx.EffectiveUser.Id, oauthTTL)

	msg := fmt.Sprintf("Please <a href=\"%s\">connect your GitHub account</a> to let me read and commit to your repositories.", html.EscapeString(h.OAuth.GetLoginURL(state)))
	_, err = reply(b, ctx, msg)
	return err
}

func (h *CommandHandler) Whoami(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	_, err = reply(b, ctx, formatWhoami(st.Auth(), st.User(), st.Repo()))
	return err
}

func (h *CommandHandler) Logout(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	if err := st.Logout(context.Background()); err != nil {
		_, err = ctx.EffectiveMessage.Reply(b, "Error logging out.", nil)
		return err
	}
	_, err = ctx.EffectiveMessage.Reply(b, "✅ You have been logged out. Use /token or /connect to reconnect.", nil)
	return err
}

func (h *CommandHandler) Load(b *gotgbot.Bot, ctx *ext.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		_, err := reply(b, ctx, "Usage: /load https://github.com/owner/repo")
		return err
	}

	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	repo, cached, err := st.LoadRepo(opCtx, args[1])
	if err != nil {
		return replyErr(b, ctx, err)
	}
	_, err = reply(b, ctx, formatRepoSummary(repo, cached))
	return err
}

func (h *CommandHandler) Sync(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	repo, err = st.FetchRepo(opCtx, repo.URL)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	_, err = reply(b, ctx, formatRepoSummary(repo, false))
	return err
}

func (h *CommandHandler) Forget(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	if args := ctx.Args(); len(args) > 1 && args[1] == "all" {
		if err := st.Reset(context.Background()); err != nil {
			return replyErr(b, ctx, err)
		}
		_, err = reply(b, ctx, "🗑 All your tokens and cached repositories were removed.")
		return err
	}

	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	if err := st.ForgetRepo(context.Background(), repo.URL); err != nil {
		return replyErr(b, ctx, err)
	}
	_, err = reply(b, ctx, fmt.Sprintf("🗑 Cache for <b>%s</b> deleted. The next /load fetches it from GitHub.", html.EscapeString(repo.URL)))
	return err
}

func (h *CommandHandler) Branches(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	if len(repo.Branches) == 0 {
		_, err = reply(b, ctx, "This repository has no branches.")
		return err
	}

	_, err = ctx.EffectiveMessage.Reply(b, fmt.Sprintf("Active branch: <b>%s</b>\nSelect a branch:", html.EscapeString(repo.Branch)), &gotgbot.SendMessageOpts{
		ParseMode:   "HTML",
		ReplyMarkup: BranchKeyboard(repo),
	})
	return err
}

// BranchKeyboard lists the branches of repo, two per row. Callback data
// carries the branch index to stay under Telegram's 64 byte limit.
func BranchKeyboard(repo models.Repository) gotgbot.InlineKeyboardMarkup {
	var kb [][]gotgbot.InlineKeyboardButton
	var row []gotgbot.InlineKeyboardButton
	for i, br := range repo.Branches {
		text := br.Name
		if br.Name == repo.Branch {
			text = "· " + text + " ·"
		}
		row = append(row, gotgbot.InlineKeyboardButton{Text: text, CallbackData: fmt.Sprintf("br:%d", i)})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: kb}
}

func (h *CommandHandler) Files(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	filters := parseFilters(ctx.Args()[1:])
	text := formatFiles(repo, filters.Apply(repo.Files))
	for _, chunk := range utils.SplitMessage(text, chunkLimit) {
		if _, err := reply(b, ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (h *CommandHandler) Cat(b *gotgbot.Bot, ctx *ext.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		_, err := reply(b, ctx, "Usage: /cat &lt;path&gt;")
		return err
	}
	path := args[1]

	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	file, ok := repo.FindFile(path)
	if !ok {
		return replyErr(b, ctx, fmt.Errorf("%w: %s is not in %s", models.ErrNotFound, path, repo.URL))
	}
	if file.DownloadURL == nil {
		return replyErr(b, ctx, fmt.Errorf("%w: %s has no download url", models.ErrNotFound, path))
	}
	if browse.IsImage(file.Name) {
		_, err = reply(b, ctx, fmt.Sprintf("🖼 <a href=\"%s\">%s</a>", html.EscapeString(*file.DownloadURL), html.EscapeString(path)))
		return err
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	content, err := h.GitHub.FetchRawFile(opCtx, *file.DownloadURL)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	header := fmt.Sprintf("📄 %s @ %s", utils.Code(path), utils.Code(repo.Branch))
	chunks := utils.SplitMessage(content, chunkLimit)
	if len(chunks) <= 1 {
		text := header + "\n" + utils.Pre(content) + "\n<i>Reply to this message with the new content to commit it.</i>"
		sent, err := reply(b, ctx, text)
		if err != nil {
			return err
		}
		h.ContextCache.Set(ContextKey(ctx.EffectiveChat.Id, sent.MessageId), models.EditContext{
			RepoURL: repo.URL,
			Path:    path,
			Branch:  repo.Branch,
		}, editTTL)
		return nil
	}

	for i, chunk := range chunks {
		text := fmt.Sprintf("%s (%d/%d)\n%s", header, i+1, len(chunks), utils.Pre(chunk))
		if _, err := reply(b, ctx, text); err != nil {
			return err
		}
	}
	_, err = reply(b, ctx, "<i>This file is too long to edit by reply.</i>")
	return err
}

func (h *CommandHandler) Describe(b *gotgbot.Bot, ctx *ext.Context) error {
	st, err := h.session(ctx)
	if err != nil {
		return replyErr(b, ctx, err)
	}
	repo, err := currentRepo(st)
	if err != nil {
		return replyErr(b, ctx, err)
	}

	da, err := parseDescribeArgs(ctx.Args()[1:], h.Config.DescriptionMaxLength)
	if err != nil {
		_, err = reply(b, ctx, html.EscapeString(err.Error()))
		return err
	}

	if err := actions.RequireCredentials(st.Auth()); err != nil {
		return replyErr(b, ctx, err)
	}

	files := repo.Files
	if len(da.Paths) == 0 {
		for i := range files {
			files[i].Selected = browse.IsMarkdown(files[i].Name)
		}
	} else if missing := browse.SelectPaths(files, da.Paths); len(missing) > 0 {
		return replyErr(b, ctx, fmt.Errorf("%w: %s", models.ErrNotFound, strings.Join(missing, ", ")))
	}

	var paths []string
	for _, f := range browse.Selected(files) {
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		_, err = reply(b, ctx, "No files selected.")
		return err
	}

	id := uuid.New().String()
	h.ActionCache.Set(id, models.DescribeJob{
		UserID:         ctx.EffectiveUser.Id,
		RepoURL:        repo.URL,
		Branch:         repo.Branch,
		Paths:          paths,
		MaxLength:      da.MaxLength,
		GenerateForAll: da.All,
		CommitMessage:  da.Message,
	}, jobTTL)

	kb := [][]gotgbot.InlineKeyboardButton{{
		{Text: "✅ Generate and commit", CallbackData: "job:run:" + id},
		{Text: "✖️ Cancel", CallbackData: "job:cancel:" + id},
	}}
	_, err = ctx.EffectiveMessage.Reply(b, formatJob(repo, paths, da), &gotgbot.SendMessageOpts{
		ParseMode:   "HTML",
		ReplyMarkup: gotgbot.InlineKeyboardMarkup{InlineKeyboard: kb},
	})
	return err
}
