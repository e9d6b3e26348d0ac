package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Stop new cycles first; an in-flight execution still settles.
	a.engine.Pause()

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if a.httpServer != nil {
		err := a.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	a.engine.Wait()
	a.wg.Wait()

	a.closeResources()

	a.logger.Info("application-shutdown-complete")

	return nil
}

// closeResources releases everything New may have opened. Safe on a partially built App.
func (a *App) closeResources() {
	if a.executor != nil {
		err := a.executor.Close()
		if err != nil {
			a.logger.Error("executor-close-error", zap.Error(err))
		}
	}

	// In redis storage mode the publisher is the storage; close it once.
	if a.storage != nil && (a.publisher == nil || a.storage != a.publisher) {
		err := a.storage.Close()
		if err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}

	if a.publisher != nil {
		err := a.publisher.Close()
		if err != nil {
			a.logger.Error("publisher-close-error", zap.Error(err))
		}
	}

	if a.quoteCache != nil {
		a.quoteCache.Close()
	}
}
