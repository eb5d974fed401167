// Command manualctl runs maintenance tasks against the machine manual
// database: migrations, sample data, QR images and admin password hashes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/db"
	"machine-manual-backend/internal/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "manualctl",
	Short: "Administer the machine manual backend",
	Long: `manualctl runs one-off tasks against the configured database.

Examples:
  manualctl migrate                     # Create or upgrade tables
  manualctl seed                        # Load the sample machines
  manualctl qr --force                  # Rewrite every QR image
  manualctl hash-password 's3cret'      # Print an admin.password_hash value`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: CONFIG_PATH or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(qrCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// loadConfig reads the configuration and sets up logging for a subcommand.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Configure(nil, cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB connects and migrates, so every command sees the current schema.
func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, func(), error) {
	gormDB, err := db.Init(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return gormDB, closeFn, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Debug("command failed")
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		stop()
		os.Exit(1)
	}
}
