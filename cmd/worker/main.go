package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tribelabs/tribe/internal/notify"
	"github.com/tribelabs/tribe/internal/setup"
	"github.com/tribelabs/tribe/internal/worker/digest"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// DigestWorker sweeps queued delivery jobs into batched digests.
	DigestWorker = "digest"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the tribe worker",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   1,
				Usage:   "Number of workers to start",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  DigestWorker,
				Usage: "Start digest sweep workers",
				Commands: []*cli.Command{
					{
						Name:  notify.DigestDaily,
						Usage: "Start daily digest workers",
						Action: func(ctx context.Context, c *cli.Command) error {
							runWorkers(ctx, notify.DigestDaily, c.Int("workers"))
							return nil
						},
					},
					{
						Name:  notify.DigestWeekly,
						Usage: "Start weekly digest workers",
						Action: func(ctx context.Context, c *cli.Command) error {
							runWorkers(ctx, notify.DigestWeekly, c.Int("workers"))
							return nil
						},
					},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runWorkers starts multiple instances of a digest worker cadence.
func runWorkers(ctx context.Context, digestType string, count int64) {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(ctx)

	if delay := app.Config.Worker.StartupDelay; delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}

	var wg sync.WaitGroup

	for i := range count {
		wg.Add(1)

		go func(workerID int64) {
			defer wg.Done()

			workerLogger := app.Logger.Named(fmt.Sprintf("digest_%s_worker_%d", digestType, workerID))
			w := digest.New(app, digestType, workerLogger)
			runWorker(ctx, w, workerLogger)
		}(i)
	}

	log.Printf("Started %d %s digest workers", count, digestType)
	wg.Wait()
	log.Println("All workers have finished. Exiting.")
}

// runWorker runs a single worker in a loop with panic recovery.
func runWorker(ctx context.Context, w *digest.Worker, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker")
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker execution failed",
							zap.Any("panic", r),
						)
						logger.Info("Restarting worker in 5 seconds...")
						time.Sleep(5 * time.Second)
					}
				}()

				logger.Info("Starting worker")
				w.Start(ctx)
			}()
		}
	}
}
