// Package bot wires the Telegram surface onto a gotgbot dispatcher.
package bot

import (
	"fmt"
	"log"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"

	"reposcanner/internal/actions"
	"reposcanner/internal/bot/callbacks"
	"reposcanner/internal/bot/commands"
	"reposcanner/internal/bot/middleware"
	"reposcanner/internal/cache"
	"reposcanner/internal/config"
	gh "reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
)

type Deps struct {
	Config     *config.Config
	Sessions   *session.Registry
	GitHub     *gh.Client
	Runner     *actions.Runner
	OAuth      *gh.OAuth
	StateCache *cache.Cache[string, int64]
}

type Bot struct {
	*gotgbot.Bot
	updater *ext.Updater
	stop    chan struct{}
}

func New(d Deps) (*Bot, error) {
	b, err := gotgbot.NewBot(d.Config.TelegramToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	contextCache := cache.New[string, models.EditContext]()
	actionCache := cache.New[string, models.DescribeJob]()

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			log.Printf("Error processing update: %v", err)
			return ext.DispatcherActionNoop
		},
	})
	dispatcher.AddHandlerToGroup(handlers.NewMessage(nil, middleware.EnsureSession(d.Sessions)), -1)

	cmd := commands.NewCommandHandler(d.Config, d.Sessions, d.GitHub, d.Runner, d.OAuth, d.StateCache, contextCache, actionCache)
	for name, h := range map[string]handlers.Response{
		"start":    cmd.Start,
		"help":     cmd.Help,
		"token":    cmd.Token,
		"rigobot":  cmd.Rigobot,
		"connect":  cmd.Connect,
		"whoami":   cmd.Whoami,
		"logout":   cmd.Logout,
		"load":     cmd.Load,
		"sync":     cmd.Sync,
		"branches": cmd.Branches,
		"files":    cmd.Files,
		"cat":      cmd.Cat,
		"describe": cmd.Describe,
		"forget":   cmd.Forget,
	} {
		dispatcher.AddHandler(handlers.NewCommand(name, h))
	}

	replyHandler := commands.NewReplyHandler(d.Sessions, d.Runner, contextCache)
	dispatcher.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		if msg.GetText() == "" {
			return false
		}

		ents := msg.GetEntities()
		if len(ents) != 0 && ents[0].Offset == 0 && ents[0].Type == "bot_command" {
			return false
		}

		return msg.ReplyToMessage != nil
	}, replyHandler.HandleReply))

	cb := callbacks.NewCallbackHandler(d.Sessions, d.Runner, actionCache)
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("br:"), cb.HandleBranch))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("job:"), cb.HandleJob))

	stop := make(chan struct{})
	contextCache.StartJanitor(time.Hour, stop)
	actionCache.StartJanitor(10*time.Minute, stop)

	return &Bot{Bot: b, updater: ext.NewUpdater(dispatcher, nil), stop: stop}, nil
}

// Start begins long polling in the background.
func (b *Bot) Start() error {
	err := b.updater.StartPolling(b.Bot, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	log.Printf("Bot started: @%s", b.User.Username)
	return nil
}

// Stop ends polling and the cache janitors.
func (b *Bot) Stop() error {
	close(b.stop)
	return b.updater.Stop()
}

// Notify sends an HTML message to a Telegram user.
func (b *Bot) Notify(userID int64, text string) error {
	_, err := b.SendMessage(userID, text, &gotgbot.SendMessageOpts{ParseMode: "HTML"})
	return err
}
