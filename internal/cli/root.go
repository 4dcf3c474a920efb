// Package cli команды бинарника slotswap.
package cli

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/app"
	"github.com/Freeeeeet/slotswap_bot/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand создаёт корневую команду
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slotswap",
		Short: "Telegram bot for swapping schedule slots",
		Long: `slotswap lets users publish calendar slots they are willing to give away
and trade them with other users through a Telegram bot.

Configuration comes from the environment or a .env file:
  DB_DSN, TELEGRAM_TOKEN, ENV, HTTP_ADDR, AUDIT_INTERVAL, DB_MAX_CONNS, LOG_LEVEL`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewBotCommand())
	cmd.AddCommand(NewMigrateCommand())

	return cmd
}

// env общее окружение команд: конфиг, логгер и пул
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)

	pool, err := app.NewPool(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

func migrator(ctx context.Context, e *env, apply func(ctx context.Context, mg *app.Migrator) error) error {
	mg, err := app.NewMigrator(e.pool, e.logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return apply(ctx, mg)
}
