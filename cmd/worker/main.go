package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"course-video-service/pkg/di"
	"course-video-service/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := di.NewContainer(di.RoleWorker)
	if err := container.Initialize(ctx); err != nil {
		panic("Failed to initialize container: " + err.Error())
	}

	// memory queue รับ job จาก process เดียวกันเท่านั้น ให้รันผ่าน cmd/api
	if container.JobConsumer == nil || container.Config.Queue.Driver == "memory" {
		logger.Error("Worker needs a shared queue driver (nats or rabbitmq)", "queue", container.Config.Queue.Driver)
		_ = container.Cleanup()
		os.Exit(1)
	}

	logger.Info("Worker starting",
		"queue", container.Config.Queue.Driver,
		"max_concurrent_jobs", container.Config.Transcode.MaxConcurrentJobs,
		"qualities", container.Config.Transcode.Qualities,
	)

	// Start block จนได้ signal
	err := container.JobConsumer.Start(ctx, container.JobHandler())
	if err != nil && ctx.Err() == nil {
		logger.Error("Job consumer stopped unexpectedly", "error", err)
	}

	logger.Info("Worker shutting down...")
	if cerr := container.Cleanup(); cerr != nil {
		logger.Error("Error during cleanup", "error", cerr)
	}
	if err != nil && ctx.Err() == nil {
		os.Exit(1)
	}
}
