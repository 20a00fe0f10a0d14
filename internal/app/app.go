// Package app wires the submission bot together: intake of submitter
// content, the anonymity choice flow, delivery to the review group, the
// moderation commands and the admin configuration surface.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/subgatebot/subgate/core/bootstrap"
	"github.com/subgatebot/subgate/core/buildinfo"
	"github.com/subgatebot/subgate/core/logger"
	coretelegram "github.com/subgatebot/subgate/core/telegram"
	"github.com/subgatebot/subgate/core/telegram/router"
	tgsender "github.com/subgatebot/subgate/core/telegram/sender"
	"github.com/subgatebot/subgate/internal/aggregator"
	"github.com/subgatebot/subgate/internal/gateway"
	"github.com/subgatebot/subgate/internal/notify"
	"github.com/subgatebot/subgate/internal/registry"
	"github.com/subgatebot/subgate/internal/replymode"
	"github.com/subgatebot/subgate/internal/review"
	"github.com/subgatebot/subgate/internal/store"
	"github.com/subgatebot/subgate/internal/warnings"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// App owns all long-lived components. The store runtime and warning ledger
// exist from construction; everything that needs a live bot (gateway,
// registry, state machine, notifier, aggregator) is bound in OnStart.
type App struct {
	cfg *Config
	db  *sqlx.DB

	settings *store.Runtime
	ledger   *warnings.Ledger

	mu       sync.RWMutex
	bot      *tele.Bot
	gw       gateway.Gateway
	reg      *registry.Registry
	machine  *review.Machine
	notifier *notify.Notifier
	sessions *replymode.Router
	agg      *aggregator.Aggregator
	choices  *choiceTable
	botName  string
	startAt  time.Time
}

// New bootstraps infrastructure (logger, optional database) and loads the
// persisted moderation settings.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	boot, err := bootstrap.Run(bootstrap.Options{
		Config:      &cfg.Core,
		Database:    cfg.Database,
		UseDatabase: cfg.Store.Backend == StoreBackendPostgres,
	})
	if err != nil {
		return nil, err
	}

	var backend store.Store
	switch cfg.Store.Backend {
	case StoreBackendPostgres:
		backend = store.NewPGStore(boot.DB)
	default:
		backend = store.NewFileStore(cfg.Store.FilePath)
	}

	settings, err := store.NewRuntime(context.Background(), backend)
	if err != nil {
		if boot.DB != nil {
			_ = boot.DB.Close()
		}
		return nil, fmt.Errorf("app: load settings: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       boot.DB,
		settings: settings,
		ledger:   warnings.NewLedger(settings),
		choices:  newChoiceTable(),
	}, nil
}

// TelegramRunOptions assembles the bot runtime: commands, callbacks,
// routes, middleware chain and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Core.Telegram.AdminID,
		OnAdminReject: rejectNonAdmin,
	})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		Intercept: a.interceptReplySession,
		PlainText: a.handleIncoming,
	})...)
	routes = append(routes, router.MediaRoutes(a.handleIncoming)...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:   &a.cfg.Core,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize:    a.cfg.Sender.QueueSize,
			Workers:      a.cfg.Sender.Workers,
			MaxRetries:   a.cfg.Sender.MaxRetries,
			RetryBackoff: time.Duration(a.cfg.Sender.RetryBackoffMS) * time.Millisecond,
		},
		Middlewares: coretelegram.DefaultMiddlewares(),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	gw := gateway.NewTelebot(rt.Bot)
	reg := registry.New(gw)
	notifier := notify.New(gw, rt.Dispatcher)

	botName := ""
	if rt.Bot != nil && rt.Bot.Me != nil {
		botName = rt.Bot.Me.Username
	}

	debounce := time.Duration(a.cfg.Submissions.DebounceMS) * time.Millisecond

	a.mu.Lock()
	a.bot = rt.Bot
	a.gw = gw
	a.reg = reg
	a.notifier = notifier
	a.machine = review.NewMachine(gw, reg, a.settings, botName)
	a.sessions = replymode.NewRouter(notifier)
	a.agg = aggregator.New(debounce, a.onBundle)
	a.botName = botName
	a.startAt = time.Now()
	a.mu.Unlock()

	a.notifyAdminStartup(ctx, gw)
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	a.mu.RLock()
	agg := a.agg
	a.mu.RUnlock()
	if agg != nil {
		agg.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn(ctx, "app", "db.close_failed", slog.Any("error", err))
		}
	}
	return nil
}

// notifyAdminStartup tells the admin the bot is up, mirroring the status
// card an operator expects after a deploy.
func (a *App) notifyAdminStartup(ctx context.Context, gw gateway.Gateway) {
	adminID := a.cfg.Core.Telegram.AdminID
	if adminID == 0 {
		return
	}
	text := fmt.Sprintf("🤖 Bot started (version %s).", buildinfo.Version)
	if _, err := gw.SendText(ctx, adminID, text, gateway.SendOpts{Silent: true}); err != nil {
		logger.Warn(ctx, "app", "startup_notice.failed", slog.Any("error", err))
	}
}

func rejectNonAdmin(c tele.Context) error {
	return c.Send("❌ You are not allowed to use this command.")
}

// runtime returns the bot-bound components. Handlers only run once the bot
// is started, so these are always populated by then.
func (a *App) runtime() (gateway.Gateway, *registry.Registry, *review.Machine, *notify.Notifier, *replymode.Router, *aggregator.Aggregator) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gw, a.reg, a.machine, a.notifier, a.sessions, a.agg
}
