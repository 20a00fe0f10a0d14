package router

import (
	"time"

	tg "github.com/subgatebot/subgate/core/telegram"
	"github.com/subgatebot/subgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls routing of plain text updates. Commands found in the
// registry always win; Intercept then gets a chance to claim the message
// (active reply-mode sessions); PlainText handles whatever remains (the
// submission intake path).
type TextOptions struct {
	Intercept func(c tele.Context) (handled bool, err error)
	PlainText tele.HandlerFunc
}

// TextRoutes builds the handler for text updates.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.Intercept != nil {
			handled, err := opts.Intercept(c)
			if handled || err != nil {
				logHandlerSummary(c, "reply_relay", start, "", "", err)
				return err
			}
		}

		if opts.PlainText != nil {
			return handleWithSummary(c, "plain_text", start, "", "", func() error {
				return opts.PlainText(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}

// mediaEndpoints lists every update kind the submission pipeline accepts.
var mediaEndpoints = []any{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnAnimation,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnDocument,
	tele.OnSticker,
}

// MediaRoutes binds every media update kind to a single intake handler.
func MediaRoutes(intake tele.HandlerFunc) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		return handleWithSummary(c, "media_intake", start, "", "", func() error {
			return intake(c)
		})
	}
	wrapped := middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))

	routes := make([]tg.Route, 0, len(mediaEndpoints))
	for _, ep := range mediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrapped})
	}
	return routes
}
