package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ProgressSync/internal/api"
	"ProgressSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "progresssync",
		Short:         "ProgressSync - LeetCode study-group progress tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(leaderboardCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the periodic sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.catalog.EnsureRoot(ctx); err != nil {
				return fmt.Errorf("初始化题库失败: %w", err)
			}

			if a.cfg.Sync.Enabled {
				go service.NewScheduler(a.sync, a.cfg.Sync.Interval, a.logger).Run(ctx)
			} else {
				a.logger.Info("定时同步未开启，仅支持手动触发")
			}

			gin.SetMode(a.cfg.Server.Mode)
			r := api.NewRouter(api.Handlers{
				Sync:        api.NewSyncHandler(a.sync, a.logger),
				Leaderboard: api.NewLeaderboardHandler(a.leaderboard, a.sync, a.logger),
				Progress:    api.NewProgressHandler(a.catalog, a.progress, a.logger),
			}, a.metrics)
			a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)

			srv := &http.Server{Addr: fmt.Sprintf(":%d", a.cfg.Server.Port), Handler: r}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Infof("服务启动成功，端口：%d", a.cfg.Server.Port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("启动服务失败: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("收到退出信号，正在关闭服务")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sync [catalog|schedules|submissions|benchmark|all]",
		Short:     "Run one sync operation and exit",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"catalog", "schedules", "submissions", "benchmark", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			target := "all"
			if len(args) == 1 {
				target = args[0]
			}
			switch target {
			case "catalog":
				return a.sync.SyncCatalog(ctx)
			case "schedules":
				return a.sync.SyncSchedules(ctx)
			case "submissions":
				return a.sync.SyncSubmissions(ctx)
			case "benchmark":
				return a.sync.SyncBenchmark(ctx)
			default:
				return a.sync.SyncAll(ctx)
			}
		},
	}
}

func leaderboardCmd() *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := service.ParseWindow(window)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.leaderboard.Rank(ctx, w)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "all", "time window (day, week, all)")
	return cmd
}
