package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/smile200420ff/Main-bot/internal/config"
	"github.com/smile200420ff/Main-bot/internal/logging"
	"github.com/smile200420ff/Main-bot/internal/repositories/repomanager"
	"github.com/smile200420ff/Main-bot/internal/security"
	"github.com/smile200420ff/Main-bot/internal/services"
)

// handleTimeout bounds the work done for a single update.
const handleTimeout = 30 * time.Second

// App owns the long-poll loop and everything behind it: database, security
// guard, services, and the update handler.
type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     *tgbotapi.BotAPI
	guard   *security.Guard
	monitor *security.Monitor
	handler *Handler
}

func NewApp(c *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := &repomanager.PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	audit := security.NewAuditLog(c.AuditLogPath)
	guard := security.NewGuard(c.RateLimitWindow, c.AdminHandle, m.RateLimits(db), m.Deals(db), logger)
	monitor := security.NewMonitor(guard, audit)

	userService := services.NewUserService(db, m)
	dealService := services.NewDealService(db, m, monitor, c)

	api, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot init error: %w", err)
	}
	api.Debug = false

	handler := NewHandler(api, api.Self.UserName, c, guard, monitor, audit, userService, dealService, logger)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		api:     api,
		guard:   guard,
		monitor: monitor,
		handler: handler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run polls Telegram until the context is cancelled or a shutdown signal
// arrives. Each update is handled on its own goroutine with its own
// deadline, so one slow conversation never stalls the poll loop; in-flight
// updates are drained before the database closes.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting escrow bot", "bot", app.api.Self.UserName)

	app.initSignalHandler(cancelFunc)
	app.guard.StartJanitor(ctx)
	app.monitor.StartJanitor(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = app.config.LongPollTimeout
	updates := app.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			app.api.StopReceivingUpdates()
			wg.Wait()
			if err := app.db.Close(); err != nil {
				app.logger.Error(ctx, "db close error", "error", err)
			}
			app.logger.Info(ctx, "escrow bot stopped")
			return
		case upd := <-updates:
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						app.logger.Error(ctx, "panic handling update", "panic", r)
					}
				}()

				hctx, hcancel := context.WithTimeout(context.Background(), handleTimeout)
				defer hcancel()
				app.handler.HandleUpdate(hctx, upd)
			}(upd)
		}
	}
}
