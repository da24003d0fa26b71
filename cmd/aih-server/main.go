package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aihaudit/aih/internal/config"
	"github.com/aihaudit/aih/internal/domain/identity"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aih-server",
		Short: "AIH audit workflow API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(maintenanceCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the pool and store the subcommands share. Callers close
// the returned pool.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Pool, *db.Store, error) {
	if err := ensureDir(cfg.DBPath); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		Path:          cfg.DBPath,
		Size:          cfg.DBPoolSize,
		BusyTimeoutMS: cfg.DBBusyTimeoutMS,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return pool, db.NewStore(pool, db.NewQueryCache(cfg.CacheTTL, cfg.CacheMaxEntries), logger), nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			public, _ := cmd.Flags().GetString("public")
			return runServer(public)
		},
	}
	cmd.Flags().String("public", "", "Directory with the web client to serve at /")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			pool, _, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.CloseAll()

			count, err := db.NewMigrator(pool, db.Migrations, logger).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			pool, _, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.CloseAll()

			statuses, err := db.NewMigrator(pool, db.Migrations, logger).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a rotated backup copy of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			pool, _, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.CloseAll()

			uploader, err := newUploader(ctx, cfg, logger)
			if err != nil {
				return err
			}
			path, err := db.NewBackup(pool, backupConfig(cfg), uploader, logger).Create(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Backup written to", path)
			return nil
		},
	}
}

func maintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Prune old logs and compact the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			pool, store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.CloseAll()

			report, err := db.NewMaintenance(store, maintenanceConfig(cfg), logger).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d access log(s) and %d deletion log(s) in %s.\n",
				report.AccessLogsRemoved, report.DeletionLogsRemoved, report.Duration)
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("nome")
			registration, _ := cmd.Flags().GetString("matricula")
			password, _ := cmd.Flags().GetString("senha")
			if name == "" || registration == "" || password == "" {
				return fmt.Errorf("--nome, --matricula and --senha are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			pool, store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.CloseAll()
			if _, err := db.NewMigrator(pool, db.Migrations, logger).Up(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			svc := identity.NewService(identity.NewRepo(store), auth.NewHasher(cfg.BcryptCost), nil, nil, logger)
			u, err := svc.CreateUser(ctx, identity.UserInput{Name: name, Registration: registration, Password: password})
			if err != nil {
				return err
			}
			fmt.Printf("Created user %s (id %d)\n", u.Name, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("nome", "", "Login name")
	createCmd.Flags().String("matricula", "", "Staff registration number")
	createCmd.Flags().String("senha", "", "Initial password (at least 6 characters)")

	cmd.AddCommand(createCmd)
	return cmd
}
