package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogSender writes events to the structured log. It is the default sender
// and the fallback when no desktop notification backend is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender backed by logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, event *Event) error {
	attrs := []any{"event", event.Type}
	if event.Repository != "" {
		attrs = append(attrs, "repo", event.Repository)
	}
	if event.Account != "" {
		attrs = append(attrs, "account", event.Account)
	}
	if event.Path != "" {
		attrs = append(attrs, "path", event.Path)
	}
	for k, v := range event.Extra {
		attrs = append(attrs, k, v)
	}

	if !event.Success {
		attrs = append(attrs, "error", event.Error)
		s.logger.Warn(Summary(event), attrs...)
		return nil
	}
	s.logger.Info(Summary(event), attrs...)
	return nil
}

func (s *LogSender) Test(ctx context.Context) error {
	return s.Send(ctx, NewEvent(EventStatus).WithExtra("test", "true"))
}

// Summary renders a short human-readable line for an event, shared by all
// senders that show text to the user.
func Summary(event *Event) string {
	switch event.Type {
	case EventBackupStarted:
		return fmt.Sprintf("Backing up %s", event.Repository)
	case EventBackupCompleted:
		if !event.Success {
			return fmt.Sprintf("Backup of %s failed: %s", event.Repository, event.Error)
		}
		return fmt.Sprintf("Backed up %s", event.Repository)
	case EventNewProject:
		return fmt.Sprintf("New project detected: %s", event.Repository)
	case EventRepoCreated:
		return fmt.Sprintf("Created GitHub repository %s/%s", event.Account, event.Repository)
	case EventSweepCompleted:
		return "Backup sweep completed"
	case EventError:
		return fmt.Sprintf("Error: %s", event.Error)
	default:
		return strings.ReplaceAll(event.Type, "-", " ")
	}
}
