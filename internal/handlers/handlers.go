package handlers

import (
	"time"

	"media-library/internal/database"
	"media-library/internal/jobs"
	"media-library/internal/query"
	"media-library/internal/startup"
)

// Handlers serves the library API.
type Handlers struct {
	db        *database.Database
	engine    *query.Engine
	jobs      *jobs.Coordinator
	mediaDir  string
	startTime time.Time
}

// New creates the handler set. config may be nil in tests.
func New(db *database.Database, coord *jobs.Coordinator, config *startup.Config) *Handlers {
	h := &Handlers{
		db:        db,
		engine:    query.NewEngine(db),
		jobs:      coord,
		startTime: time.Now(),
	}
	if config != nil {
		h.mediaDir = config.MediaDir
	}
	return h
}
