package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/seed"
	"machine-manual-backend/internal/store"
)

var seedBaseURL string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample machines, issues and maintenance records",
	Long: `Load two sample machines with issues, updates and maintenance history.

Nothing is written when the database already contains machines.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedBaseURL, "base-url", "", "Address encoded in QR codes (default: server.base_url or http://localhost:<port>)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gormDB, closeDB, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	logger := log.StandardLogger()
	gen := qr.NewGenerator(cfg.QR.Dir, cfg.QR.Size, logger)
	res, err := seed.NewLoader(store.NewGormStore(gormDB), gen, logger).Load(cmd.Context(), baseURL(cfg.Server.BaseURL, seedBaseURL, cfg.Server.Port))
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Database already contains machines; nothing to do.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %d machines:\n", len(res.Machines))
	for _, m := range res.Machines {
		fmt.Fprintf(out, "  - %s (public: /m/%s)\n", m.Name, m.PublicSlug)
	}
	fmt.Fprintf(out, "Created %d issues, %d updates and %d maintenance records\n", res.Issues, res.Updates, res.Maintenance)
	fmt.Fprintf(out, "QR codes written to %s\n", cfg.QR.Dir)
	return nil
}

// baseURL prefers the flag, then the configured base URL, then localhost.
func baseURL(configured, flag string, port int) string {
	switch {
	case flag != "":
		return flag
	case configured != "":
		return configured
	default:
		return fmt.Sprintf("http://localhost:%d", port)
	}
}
