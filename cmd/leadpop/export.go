package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadpop/leadpop/internal/api"
	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/db"
	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/repository"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads as CSV",
	RunE:  runExport,
}

var (
	exportPopupID string
	exportSynced  string
	exportOutput  string
)

func init() {
	exportCmd.Flags().StringVar(&exportPopupID, "popup-id", "", "Only export leads for this popup")
	exportCmd.Flags().StringVar(&exportSynced, "synced", "", "Filter by synced state (yes/no)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadpop/leadpop.yaml", "Path to configuration file")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	filter := models.LeadListFilter{PopupID: exportPopupID}
	switch exportSynced {
	case "":
	case "yes", "true", "1":
		v := true
		filter.Synced = &v
	case "no", "false", "0":
		v := false
		filter.Synced = &v
	default:
		return fmt.Errorf("invalid --synced value %q, want yes or no", exportSynced)
	}

	leads := repository.NewLeadRepository(database.DB)
	list, total, err := leads.List(filter)
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := api.WriteLeadsCSV(out, list); err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Printf("Exported %d leads to %s\n", total, exportOutput)
	}
	return nil
}
