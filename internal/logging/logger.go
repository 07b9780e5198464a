package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTurn returns a logger with conversation turn context attached.
// Use this for all logging within one scheduler message round-trip.
func WithTurn(userID, messageID string) *slog.Logger {
	return slog.With(
		"user_id", userID,
		"message_id", messageID,
	)
}

// WithProposal returns a logger scoped to a specific proposal within a turn.
func WithProposal(logger *slog.Logger, proposalID, proposalType string) *slog.Logger {
	return logger.With(
		"proposal_id", proposalID,
		"proposal_type", proposalType,
	)
}
