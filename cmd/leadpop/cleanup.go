package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/db"
	"github.com/leadpop/leadpop/internal/repository"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old data (leads past retention, expired sessions)",
	RunE:  runCleanup,
}

var (
	cleanupLeadsDays int
	cleanupDryRun    bool
)

func init() {
	cleanupCmd.Flags().IntVar(&cleanupLeadsDays, "leads-days", 365, "Delete leads older than N days")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	cleanupCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadpop/leadpop.yaml", "Path to configuration file")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if cleanupDryRun {
		fmt.Println("Dry run mode - no data will be deleted")
		fmt.Println()
	}

	cutoff := time.Now().AddDate(0, 0, -cleanupLeadsDays)

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM leads WHERE created_at < ?", cutoff).Scan(&count); err != nil {
		return fmt.Errorf("failed to count old leads: %w", err)
	}
	fmt.Printf("Leads older than %d days: %d\n", cleanupLeadsDays, count)

	if !cleanupDryRun && count > 0 {
		leads := repository.NewLeadRepository(database.DB)
		deleted, err := leads.DeleteOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete old leads: %w", err)
		}
		fmt.Printf("  Deleted: %d\n", deleted)
	}

	var sessionCount int
	err = database.QueryRow("SELECT COUNT(*) FROM sessions WHERE expires_at <= ?", time.Now()).Scan(&sessionCount)
	if err != nil {
		return fmt.Errorf("failed to count expired sessions: %w", err)
	}
	fmt.Printf("Expired sessions: %d\n", sessionCount)

	if !cleanupDryRun && sessionCount > 0 {
		users := repository.NewUserRepository(database.DB)
		deleted, err := users.DeleteExpiredSessions()
		if err != nil {
			return fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		fmt.Printf("  Deleted: %d\n", deleted)
	}

	if !cleanupDryRun {
		fmt.Println("\nCleanup completed")
	}

	return nil
}
