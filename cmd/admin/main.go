// Command admin is the operator CLI for destructive maintenance. Every verb
// is explicit, logged, and dry-run capable; nothing here runs as part of the
// ingestion pipeline.
package main

import (
	"fmt"
	"log"
	"os"

	"press-release-admin-backend/internal/config"
	"press-release-admin-backend/internal/repository"
	"press-release-admin-backend/internal/services/catalog"
	"press-release-admin-backend/internal/services/eviction"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative operations for the press-release store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEvictCmd())
	root.AddCommand(newForceFailCmd())
	root.AddCommand(newPruneCategoriesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newEvictCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "evict <batchId>",
		Short: "Atomically remove one batch's records, ledger entry and category counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch ID %q: %w", args[0], err)
			}

			evictor, _, _, err := buildServices()
			if err != nil {
				return err
			}

			var result *eviction.Result
			if dryRun {
				result, err = evictor.Preview(batchID)
			} else {
				result, err = evictor.Evict(batchID)
			}
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Printf("dry run: would delete %d records and %d ledger entries for batch %s\n",
					result.DeletedRecords, result.DeletedLedgerEntries, result.BatchID)
			} else {
				fmt.Printf("deleted %d records and %d ledger entries for batch %s\n",
					result.DeletedRecords, result.DeletedLedgerEntries, result.BatchID)
			}
			for _, delta := range result.CategoryDeltas {
				fmt.Printf("  %s/%s: -%d\n", delta.Type, delta.Name, delta.Count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting")
	return cmd
}

func newForceFailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "force-fail <batchId>",
		Short: "Mark a stranded pending/processing batch failed so it can be evicted",
		Long: "A batch whose coordinator died mid-ingestion is stuck in processing and " +
			"can never be evicted. force-fail moves it to failed; committed chunks are " +
			"kept and a subsequent evict removes them. Batches already completed or " +
			"failed are left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch ID %q: %w", args[0], err)
			}

			_, _, ledgerRepo, err := buildServices()
			if err != nil {
				return err
			}

			if err := ledgerRepo.ForceFail(batchID); err != nil {
				return err
			}
			fmt.Printf("batch %s marked failed; evict it to remove its records\n", batchID)
			return nil
		},
	}
	return cmd
}

func newPruneCategoriesCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune-categories",
		Short: "Deactivate category index entries whose usage count reached zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, index, _, err := buildServices()
			if err != nil {
				return err
			}

			affected, err := index.Prune(dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Printf("dry run: %d zero-count entries would be deactivated\n", affected)
			} else {
				fmt.Printf("deactivated %d zero-count entries\n", affected)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deactivated without changing anything")
	return cmd
}

func buildServices() (*eviction.Service, *catalog.Index, *repository.LedgerRepository, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := config.NewLogger(cfg.LogLevel)

	db, err := cfg.OpenDB()
	if err != nil {
		return nil, nil, nil, err
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	releaseRepo := repository.NewReleaseRepository(db)
	index := catalog.NewIndex(db, logger)
	evictor := eviction.NewService(db, ledgerRepo, releaseRepo, index, logger)
	return evictor, index, ledgerRepo, nil
}
