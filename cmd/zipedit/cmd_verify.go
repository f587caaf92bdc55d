package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"zipedit/internal/archive"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var verifyJobs int

// verifyCmd checks every entry against its stored checksum
var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Verify entry checksums",
	Long: `Decompresses every file entry and checks it against the CRC and
size recorded in the central directory. Entries are verified in
parallel; any mismatch makes the command exit non-zero.

Example:
  zipedit verify demo.zip
  zipedit verify demo.zip --jobs 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\n⏹️  Interrupted")
			cancel()
		}()

		archivePath := args[0]

		a, err := archive.Open(archivePath)
		if err != nil {
			return err
		}
		totals := a.Manifest().Totals()
		a.Close()

		fmt.Printf("🔍 Verifying %s (%d files)...\n", archivePath, totals.Files)

		timer := logging.StartTimer(logging.CategoryArchive, "verify "+archivePath)
		issues, err := archive.Verify(ctx, archivePath, verifyJobs)
		timer.Stop()
		if err != nil {
			return err
		}

		if len(issues) == 0 {
			fmt.Printf("✅ %s: %d files OK\n", archivePath, totals.Files)
			return nil
		}

		for _, issue := range issues {
			fmt.Printf("❌ %s: %v\n", issue.Name, issue.Err)
		}
		return fmt.Errorf("verification failed: %d of %d files bad", len(issues), totals.Files)
	},
}

func init() {
	verifyCmd.Flags().IntVarP(&verifyJobs, "jobs", "j", 0, "Parallel verification workers (0 = number of CPUs)")
}
