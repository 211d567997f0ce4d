package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/db"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/logutil"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// newCleanupCmd sweeps expired conversations. Meant to run from cron; the
// serve process never deletes rows on its own.
func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			gdb, err := db.Open(db.Config{
				Driver: viper.GetString("db.driver"),
				DSN:    viper.GetString("db.dsn"),
				Pool: db.PoolConfig{
					MaxOpenConns:    viper.GetInt("db.pool.max_open_conns"),
					MaxIdleConns:    viper.GetInt("db.pool.max_idle_conns"),
					ConnMaxLifetime: viper.GetDuration("db.pool.conn_max_lifetime"),
				},
				SQLite: db.SQLiteConfig{
					BusyTimeoutMs: viper.GetInt("db.sqlite.busy_timeout_ms"),
					WAL:           viper.GetBool("db.sqlite.wal"),
					ForeignKeys:   viper.GetBool("db.sqlite.foreign_keys"),
				},
			})
			if err != nil {
				return err
			}

			sessions, err := session.NewStore(gdb, viper.GetDuration("session.ttl"))
			if err != nil {
				return err
			}
			removed, err := sessions.CleanupExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			logger.Info("cleanup_done", "removed", removed)
			return nil
		},
	}
}
