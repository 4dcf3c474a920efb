package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/app"
	"github.com/Freeeeeet/slotswap_bot/internal/controller"
	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/Freeeeeet/slotswap_bot/internal/repository"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BotOptions флаги команды bot
type BotOptions struct {
	Migrate bool
	NoAudit bool
}

// NewBotCommand создаёт команду запуска бота
func NewBotCommand() *cobra.Command {
	opts := &BotOptions{}

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot with the ops HTTP server and consistency auditor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", true, "apply pending migrations before start")
	cmd.Flags().BoolVar(&opts.NoAudit, "no-audit", false, "disable the periodic consistency audit")

	return cmd
}

func runBot(ctx context.Context, opts *BotOptions) error {
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.RequireTelegram(); err != nil {
		return err
	}

	logger := e.logger
	logger.Info("Starting slotswap bot",
		zap.String("environment", e.cfg.Environment),
		zap.String("http_addr", e.cfg.HTTPAddr),
	)

	if opts.Migrate {
		err := migrator(ctx, e, func(ctx context.Context, mg *app.Migrator) error {
			return mg.Up(ctx)
		})
		if err != nil {
			return err
		}
	}

	collector := metrics.NewCollector()

	slotRepo := repository.NewSlotRepository(e.pool)
	swapRepo := repository.NewSwapRequestRepository(e.pool)
	userRepo := repository.NewUserRepository(e.pool)
	txManager := base.NewTxManager(e.pool)

	services := controller.Services{
		Users:   service.NewUserService(userRepo, logger),
		Slots:   service.NewSlotService(slotRepo, collector, logger),
		Swaps:   service.NewSwapService(txManager, slotRepo, swapRepo, collector, logger),
		Queries: service.NewQueryService(slotRepo, swapRepo),
	}

	botOpts := []bot.Option{
		bot.WithErrorsHandler(func(err error) {
			logger.Error("Telegram API error", zap.Error(err))
		}),
	}
	if !e.cfg.IsProduction() {
		// В разработке видно все запросы к Bot API
		botOpts = append(botOpts,
			bot.WithDebug(),
			bot.WithDebugHandler(func(format string, args ...any) {
				logger.Sugar().Debugf(format, args...)
			}),
		)
	}

	botInstance, err := bot.New(e.cfg.TelegramToken, botOpts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	botController := controller.NewBotController(botInstance, services, time.Local, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}

	ops := app.NewOpsServer(e.cfg.HTTPAddr, e.pool, collector, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return botController.Start(gctx) })
	g.Go(func() error { return ops.Run(gctx) })
	if !opts.NoAudit {
		auditor := app.NewAuditor(slotRepo, collector, logger, e.cfg.AuditInterval)
		g.Go(func() error { return auditor.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("Shutdown complete")
	return err
}
