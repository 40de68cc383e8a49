package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curiousqa/internal/batch"
	"curiousqa/pkg/cache"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/scraper"
	"curiousqa/pkg/storage"
	"curiousqa/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	exportOutput       string
	exportConcurrency  int
	exportSkipExisting bool
)

var exportCmd = &cobra.Command{
	Use:   "export <username>...",
	Short: "Write profiles' questions and answers to .xlsx files",
	Long: `Walk each profile and write {username}_questions_answers.xlsx into the
output directory. A failed profile leaves no partial file behind; the other
profiles are still exported and the command exits non-zero.`,
	Example: `  # Write alice_questions_answers.xlsx into the working directory
  curiousqa export alice

  # Several profiles into ./exports, two at a time, saving merged snapshots
  curiousqa export alice bob carol -o ./exports --concurrency 2 --write-back`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", ".", "output directory")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 1, "profiles exported at the same time")
	exportCmd.Flags().BoolVar(&exportSkipExisting, "skip-existing", false, "skip profiles whose file already exists")
	exportCmd.Flags().String("base-url", "", "CuriousCat API base URL")
	exportCmd.Flags().Duration("page-delay", time.Second, "pause between page requests")
	exportCmd.Flags().String("cache-dir", "", "directory holding {username}.json snapshots")
	exportCmd.Flags().String("cache-backend", "", "snapshot backend: file or sqlite")
	exportCmd.Flags().Bool("write-back", false, "save merged snapshots after each export")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(changedFlags(cmd, "base-url", "page-delay", "cache-dir", "cache-backend", "write-back"))
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	seen := make(map[string]bool, len(args))
	usernames := make([]string, 0, len(args))
	for _, arg := range args {
		username, err := scraper.Normalize(arg)
		if err != nil {
			return err
		}
		if !seen[username] {
			seen[username] = true
			usernames = append(usernames, username)
		}
	}

	store, err := cache.New(cfg.Cache, log)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := storage.NewManager(exportOutput)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Profiles", fmt.Sprintf("%d", len(usernames)))
	ui.PrintInfo("Output", manager.GetOutputDir())

	sc := scraper.New(cfg, store, nil, log)
	results := batch.Run(ctx, usernames, exportConcurrency, sc, manager, exportSkipExisting, log)

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			ui.PrintError("Failed "+r.Job.Username, r.Err)
		case r.Skipped:
			ui.PrintWarning("Skipped "+r.Job.Username, "already at "+r.Path)
		default:
			ui.PrintSuccess(fmt.Sprintf("Saved %s (%s)", r.Path, r.Duration.Round(time.Millisecond)))
		}
	}

	ui.PrintInfo("Exports written", fmt.Sprintf("%d", manager.GetWrittenCount()))
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}
