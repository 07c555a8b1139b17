package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/i-am-the-robot/Edulife/internal/app"
	"github.com/i-am-the-robot/Edulife/internal/platform/envutil"
	"github.com/i-am-the-robot/Edulife/internal/platform/shutdown"
)

var rootCmd = &cobra.Command{
	Use:           "edulife",
	Short:         "EduLife tutoring backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// a missing .env is fine; the environment may already be set
		_ = godotenv.Load()
		envutil.V()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := shutdown.NotifyContext(context.Background())
		defer stop()

		a, err := app.New(ctx)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer a.Close()
		return a.Serve(ctx)
	},
}

var dailyCheckInCmd = &cobra.Command{
	Use:   "daily-checkin",
	Short: "Run one daily check-in sweep over every active student and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := shutdown.NotifyContext(context.Background())
		defer stop()

		a, err := app.New(ctx)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer a.Close()
		return a.RunDailyCheckIns(ctx)
	},
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-mode", "development", `log mode, "development" or "production"`)
	rootCmd.PersistentFlags().String("db-driver", "postgres", `database driver, "postgres" or "sqlite"`)
	rootCmd.PersistentFlags().String("sqlite-path", "edulife.db", "sqlite database file")
	rootCmd.PersistentFlags().String("port", "8080", "HTTP port")

	bindFlag("LOG_MODE", "log-mode")
	bindFlag("DB_DRIVER", "db-driver")
	bindFlag("SQLITE_PATH", "sqlite-path")
	bindFlag("PORT", "port")

	rootCmd.AddCommand(serveCmd, dailyCheckInCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "edulife: %v\n", err)
		os.Exit(1)
	}
}
