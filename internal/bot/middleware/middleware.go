package middleware

import (
	"context"
	"log"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"reposcanner/internal/session"
)

// EnsureSession loads the store of the sender before the handlers run, so
// saved tokens are in memory when a command needs them.
func EnsureSession(reg *session.Registry) func(b *gotgbot.Bot, ctx *ext.Context) error {
	return func(b *gotgbot.Bot, ctx *ext.Context) error {
		if ctx.EffectiveUser == nil || ctx.EffectiveUser.Id == session.WebUser {
			return nil
		}
		if _, err := reg.For(context.Background(), ctx.EffectiveUser.Id); err != nil {
			log.Printf("Failed to load session for user %d: %v", ctx.EffectiveUser.Id, err)
		}
		return nil
	}
}
