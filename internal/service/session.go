package service

import (
	"context"

	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/repository"
	"go.uber.org/zap"
)

// CreateSessionInput fields for starting a session inside a series
type CreateSessionInput struct {
	SeriesID string
	DeviceID string
	// Players replaces the series roster for this session when set
	Players *models.Players
}

// SessionPatch the two mutable session fields. Status only moves
// forward, active to ended.
type SessionPatch struct {
	Players *models.Players
	Status  *string
}

// SessionService session lifecycle inside and outside series
type SessionService struct {
	seriesRepo  repository.SeriesRepository
	sessionRepo repository.SessionRepository
	alloc       *IDAllocator
	notifier    Notifier
	// seriesLocks serializes session creation per series so two
	// devices cannot both pass the active-session check
	seriesLocks *KeyMutex
	// sessionLocks serializes mutations per session, shared with the
	// score service so end and patch cannot race an append
	sessionLocks *KeyMutex
	log          *zap.Logger
}

// NewSessionService creates the session service. sessionLocks must be
// the same instance the score service holds.
func NewSessionService(
	seriesRepo repository.SeriesRepository,
	sessionRepo repository.SessionRepository,
	alloc *IDAllocator,
	notifier Notifier,
	sessionLocks *KeyMutex,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		seriesRepo:   seriesRepo,
		sessionRepo:  sessionRepo,
		alloc:        alloc,
		notifier:     notifier,
		seriesLocks:  NewKeyMutex(),
		sessionLocks: sessionLocks,
		log:          log,
	}
}

// Create starts the next session of a series. Only the series creator
// may start one, and only while no other session is active.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	series, err := s.seriesRepo.FindBySeriesID(ctx, in.SeriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
	}
	if series == nil {
		return nil, apperrors.New(apperrors.ErrSeriesNotFound)
	}

	if !series.IsCreator(in.DeviceID) {
		return nil, apperrors.New(apperrors.ErrNotSeriesCreator)
	}

	s.seriesLocks.Lock(in.SeriesID)
	defer s.seriesLocks.Unlock(in.SeriesID)

	active, err := s.sessionRepo.FindActiveBySeriesID(ctx, in.SeriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to check active session")
	}
	if active != nil {
		return nil, apperrors.Newf(apperrors.ErrActiveSessionExists, "session %s is still active", active.SessionID)
	}

	count, err := s.sessionRepo.CountBySeriesID(ctx, in.SeriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to count sessions")
	}

	players := series.Players
	if in.Players != nil {
		players = *in.Players
	}

	sessionID, err := s.alloc.Allocate(ctx, s.sessionRepo.ExistsBySessionID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		SessionID:      sessionID,
		SeriesID:       in.SeriesID,
		SequenceNumber: int(count) + 1,
		Password:       series.Password,
		CreatorID:      in.DeviceID,
		Players:        players,
		Status:         models.SessionStatusActive,
		GameScores:     models.RoundList{},
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "failed to create session")
	}

	if err := s.seriesRepo.IncrementSessionCount(ctx, in.SeriesID); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to bump session count")
	}

	s.log.Info("session created",
		zap.String("series_id", in.SeriesID),
		zap.String("session_id", sessionID),
		zap.Int("sequence", session.SequenceNumber))

	s.notifier.BroadcastSeries(in.SeriesID, EventSessionCreated, SessionCreatedPayload{
		SeriesID:       in.SeriesID,
		SessionID:      sessionID,
		SequenceNumber: session.SequenceNumber,
		Players:        session.Players,
	})

	return session, nil
}

// Get loads one session by identifier
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load session")
	}
	if session == nil {
		return nil, apperrors.New(apperrors.ErrSessionNotFound)
	}
	return session, nil
}

// ListAll returns every session newest first, including legacy
// free-standing ones
func (s *SessionService) ListAll(ctx context.Context) ([]*models.Session, error) {
	sessions, err := s.sessionRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to list sessions")
	}
	return sessions, nil
}

// Update applies a patch to a session of a series. Only the series
// creator may patch, and status can only move from active to ended.
func (s *SessionService) Update(ctx context.Context, seriesID, sessionID, deviceID string, patch SessionPatch) (*models.Session, error) {
	series, err := s.seriesRepo.FindBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
	}
	if series == nil {
		return nil, apperrors.New(apperrors.ErrSeriesNotFound)
	}

	if !series.IsCreator(deviceID) {
		return nil, apperrors.New(apperrors.ErrNotSeriesCreator)
	}

	s.sessionLocks.Lock(sessionID)
	defer s.sessionLocks.Unlock(sessionID)

	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load session")
	}
	if session == nil || session.SeriesID != seriesID {
		return nil, apperrors.New(apperrors.ErrSessionNotFound)
	}

	if patch.Players != nil {
		session.Players = *patch.Players
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.SessionStatusEnded:
			if !session.IsActive() {
				return nil, apperrors.New(apperrors.ErrSessionAlreadyEnded)
			}
			session.Status = models.SessionStatusEnded
		case models.SessionStatusActive:
			if session.Status == models.SessionStatusEnded {
				return nil, apperrors.New(apperrors.ErrInvalidStatus, "an ended session cannot be reopened")
			}
		default:
			return nil, apperrors.Newf(apperrors.ErrInvalidStatus, "unknown status %q", *patch.Status)
		}
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to update session")
	}

	s.notifier.BroadcastSeries(seriesID, EventSessionUpdated, SessionUpdatedPayload{
		SeriesID:  seriesID,
		SessionID: session.SessionID,
		Session:   session,
	})

	return session, nil
}

// End closes a session. Ending twice is a conflict. The creator check
// tolerates the unknown sentinel so legacy sessions stay closable.
func (s *SessionService) End(ctx context.Context, sessionID, deviceID string) (*models.Session, error) {
	s.sessionLocks.Lock(sessionID)
	defer s.sessionLocks.Unlock(sessionID)

	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load session")
	}
	if session == nil {
		return nil, apperrors.New(apperrors.ErrSessionNotFound)
	}

	if !session.CanMutate(deviceID) {
		return nil, apperrors.New(apperrors.ErrNotSessionCreator)
	}

	if !session.IsActive() {
		return nil, apperrors.New(apperrors.ErrSessionAlreadyEnded)
	}

	session.Status = models.SessionStatusEnded
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to end session")
	}

	s.log.Info("session ended",
		zap.String("session_id", sessionID),
		zap.Int("rounds", len(session.GameScores)))

	if session.SeriesID != "" {
		s.notifier.BroadcastSeries(session.SeriesID, EventSessionUpdated, SessionUpdatedPayload{
			SeriesID:  session.SeriesID,
			SessionID: session.SessionID,
			Session:   session,
		})
	}

	return session, nil
}
