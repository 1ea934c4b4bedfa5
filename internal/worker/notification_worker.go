package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartScheduler delivers due timer messages in the background until ctx is
// canceled. The returned channel closes once the loop has exited.
func StartScheduler(ctx context.Context, timers *scheduler.Scheduler, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("scheduler started")
		// Messages that came due before the loop started.
		timers.RunPending(ctx)
		timers.Run(ctx)
		logger.Info("scheduler stopped")
	}()
	return done
}
