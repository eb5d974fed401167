package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/store"
)

var (
	qrBaseURL string
	qrForce   bool
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Write QR images for every machine",
	Long: `Write the QR image of every machine into qr.dir.

Existing images are kept unless --force is given, e.g. after base_url changed.`,
	Args: cobra.NoArgs,
	RunE: runQR,
}

func init() {
	qrCmd.Flags().StringVar(&qrBaseURL, "base-url", "", "Address encoded in QR codes (default: server.base_url or http://localhost:<port>)")
	qrCmd.Flags().BoolVarP(&qrForce, "force", "f", false, "Rewrite images that already exist")
}

func runQR(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gormDB, closeDB, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	st := store.NewGormStore(gormDB)
	gen := qr.NewGenerator(cfg.QR.Dir, cfg.QR.Size, log.StandardLogger())
	base := baseURL(cfg.Server.BaseURL, qrBaseURL, cfg.Server.Port)

	written := 0
	for page := (store.Page{Limit: 100}); ; page.Offset += page.Limit {
		machines, err := st.ListMachines(cmd.Context(), page)
		if err != nil {
			return err
		}
		for _, m := range machines {
			if !qrForce {
				if _, err := os.Stat(gen.Path(m.PublicSlug)); err == nil {
					continue
				}
			}
			if err := gen.Write(base, m.PublicSlug); err != nil {
				return err
			}
			written++
		}
		if len(machines) < page.Limit {
			break
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d QR images to %s\n", written, cfg.QR.Dir)
	return nil
}
