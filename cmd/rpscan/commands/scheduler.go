package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/scheduler"
	"github.com/leiwong/rpscan/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily refresh-and-screen cycle on a cron schedule",
	Long: `Starts a long-lived process that refreshes the bar cache and runs both
screening profiles after the close on trading weekdays.

Example:
  rpscan scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	fetcher, cleanup, err := newFetcher(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	job := jobs.NewDailyScreenJob(
		fetcher,
		newUniverseBuilder(cfg, log),
		newEngine(cfg, log),
		cfg.FetchWorkers,
		log,
	)

	sched := scheduler.New(log)
	if err := sched.AddJob(job); err != nil {
		return err
	}
	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	sched.Stop()
	return nil
}
