package service

import (
	"sync"

	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// capturedEvent one notification seen by the capture notifier
type capturedEvent struct {
	SeriesID string
	Event    string
	Payload  interface{}
}

// captureNotifier records events instead of pushing them
type captureNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (n *captureNotifier) BroadcastAll(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, capturedEvent{Event: event, Payload: payload})
}

func (n *captureNotifier) BroadcastSeries(seriesID string, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, capturedEvent{SeriesID: seriesID, Event: event, Payload: payload})
}

func (n *captureNotifier) byEvent(event string) []capturedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []capturedEvent
	for _, e := range n.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// testEnv service layer over an in-memory database
type testEnv struct {
	db       *gorm.DB
	notifier *captureNotifier
	series   *SeriesService
	sessions *SessionService
	scores   *ScoreService
}

func newTestEnv() *testEnv {
	db := repository.SetupTestDB()
	notifier := &captureNotifier{}

	seriesRepo := repository.NewSeriesRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	recentRepo := repository.NewRecentSeriesRepository(db)
	alloc := NewIDAllocator()
	sessionLocks := NewKeyMutex()
	log := zap.NewNop()

	return &testEnv{
		db:       db,
		notifier: notifier,
		series:   NewSeriesService(seriesRepo, sessionRepo, recentRepo, alloc, notifier, log),
		sessions: NewSessionService(seriesRepo, sessionRepo, alloc, notifier, sessionLocks, log),
		scores:   NewScoreService(sessionRepo, notifier, sessionLocks, log),
	}
}

func (e *testEnv) close() {
	repository.CleanupTestDB(e.db)
}

var fullRoster = models.Players{
	Player1: "Ana", Player2: "Radu", Player3: "Ioana", Player4: "Mihai",
}
