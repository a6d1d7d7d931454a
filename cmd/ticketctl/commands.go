package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/app"
	"github.com/did4510/Nexon/internal/auth"
	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/observability"
	"github.com/did4510/Nexon/internal/persistence"
)

var (
	migrationsDir string

	perfScope string
	perfID    string
	perfFrom  string
	perfTo    string

	tokenActor string
	tokenRole  string
	tokenGuild string
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().StringVarP(&migrationsDir, "dir", "d", persistence.DefaultMigrationsDir, "Directory holding *.sql migrations")
	return cmd
}

func newTickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one escalation tick",
		Long:  `Evaluate every active SLA timer once and fire due warnings and breaches.`,
		RunE:  runTick,
	}
}

func newFollowupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "followups",
		Short: "Notify tickets whose follow-up time has passed",
		RunE:  runFollowups,
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recount staff workload from assignments",
		RunE:  runReconcile,
	}
}

func newPerformanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Print staff or category performance",
		RunE:  runPerformance,
	}
	cmd.Flags().StringVar(&perfScope, "scope", string(domain.ScopeCategory), "staff or category")
	cmd.Flags().StringVar(&perfID, "id", "", "Staff or category id (required)")
	cmd.Flags().StringVar(&perfFrom, "from", "", "Window start, RFC3339 (inclusive)")
	cmd.Flags().StringVar(&perfTo, "to", "", "Window end, RFC3339 (exclusive)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an actor token",
		RunE:  runToken,
	}
	cmd.Flags().StringVar(&tokenActor, "actor", "", "Actor id (required)")
	cmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleStaff), "staff, user or gateway")
	cmd.Flags().StringVar(&tokenGuild, "guild", "", "Restrict the token to one guild")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func initEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not set; commands run against an empty in-memory store")
	}
	return app.Build(ctx, cfg, logger, app.Options{SkipMigrations: true})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required for migrate")
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	applied, err := persistence.RunMigrations(ctx, pg.Pool, migrationsDir, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}

func runTick(cmd *cobra.Command, _ []string) error {
	a, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Scheduler.RunTick(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func runFollowups(cmd *cobra.Command, _ []string) error {
	a, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Scheduler.ProcessDueFollowups(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	a, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Workload.Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	for _, fix := range report.Corrections {
		a.Logger.Info("workload corrected",
			zap.String("staff_id", fix.StaffID),
			zap.Int("stored", fix.Stored),
			zap.Int("actual", fix.Actual))
	}
	return printJSON(cmd, report)
}

func runPerformance(cmd *cobra.Command, _ []string) error {
	var window domain.Window
	var err error
	if window.From, err = parseFlagTime("from", perfFrom); err != nil {
		return err
	}
	if window.To, err = parseFlagTime("to", perfTo); err != nil {
		return err
	}

	a, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.Performance.ComputePerformance(cmd.Context(), domain.PerformanceScope(perfScope), perfID, window)
	if err != nil {
		return err
	}
	return printJSON(cmd, snapshot)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required to issue tokens")
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	token, expiresAt, err := tokens.Issue(tokenActor, auth.Role(tokenRole), tokenGuild)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"token": token, "expires_at": expiresAt})
}

func parseFlagTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return t.UTC(), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
