// Package tasks implements the scheduled housekeeping tasks of guildwatch.
package tasks

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/guildwatch/internal/config"
	"github.com/edgard/guildwatch/internal/database"
)

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Clock  clockwork.Clock
	Config *config.Config
}
