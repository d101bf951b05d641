package service

import (
	"github.com/wfunc/remi-scorer/internal/logger"
	"github.com/wfunc/remi-scorer/internal/repository"
	"gorm.io/gorm"
)

// Services aggregates every service with its wired dependencies
type Services struct {
	Series  *SeriesService
	Session *SessionService
	Score   *ScoreService
}

// NewServices wires repositories, the id allocator and the notifier
// into the service layer
func NewServices(db *gorm.DB, notifier Notifier) *Services {
	seriesRepo := repository.NewSeriesRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	recentRepo := repository.NewRecentSeriesRepository(db)

	alloc := NewIDAllocator()
	log := logger.WithModule("service")

	// one lock instance covers every session mutation path
	sessionLocks := NewKeyMutex()

	return &Services{
		Series:  NewSeriesService(seriesRepo, sessionRepo, recentRepo, alloc, notifier, log),
		Session: NewSessionService(seriesRepo, sessionRepo, alloc, notifier, sessionLocks, log),
		Score:   NewScoreService(sessionRepo, notifier, sessionLocks, log),
	}
}
