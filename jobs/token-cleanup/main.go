package main

import (
	"log/slog"
	"time"
)

// One-shot sweep over the auth DB, run by an external scheduler. Deletes are
// idempotent predicates, so the sweep is safe to run while tokens are being
// issued and rotated.
func main() {
	slog.Info("Starting token cleanup job")
	start := time.Now()

	deletedTokens, err := authDBService.DeleteExpiredRefreshTokens()
	if err != nil {
		slog.Error("Failed to delete expired refresh tokens", slog.String("error", err.Error()))
	}

	deletedCodes, err := authDBService.DeleteSpentVerificationCodes(conf.CleanUpConfig.UsedCodeRetention)
	if err != nil {
		slog.Error("Failed to delete spent verification codes", slog.String("error", err.Error()))
	}

	activeTokens, err := authDBService.CountActiveRefreshTokens()
	if err != nil {
		slog.Error("Failed to count active refresh tokens", slog.String("error", err.Error()))
	}

	slog.Info("Token cleanup job completed",
		slog.Int64("deletedTokens", deletedTokens),
		slog.Int64("deletedCodes", deletedCodes),
		slog.Int64("activeTokens", activeTokens),
		slog.String("duration", time.Since(start).String()),
	)
}
