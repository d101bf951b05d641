package service

import (
	"context"
	"time"

	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/repository"
	"go.uber.org/zap"
)

// AppendRoundInput one scored hand
type AppendRoundInput struct {
	SessionID      string
	DeviceID       string
	Scores         models.Scores
	AtuPlayerIndex *int
}

// AmendRoundInput replacement values for the newest ledger entry
type AmendRoundInput struct {
	SessionID      string
	DeviceID       string
	Scores         models.Scores
	AtuPlayerIndex *int
}

// ScoreService the append-mostly score ledger. Running totals always
// equal the slot-wise sum of the ledger.
type ScoreService struct {
	sessionRepo repository.SessionRepository
	notifier    Notifier
	// sessionLocks serializes every session mutation, shared with the
	// session service so end and patch cannot interleave with an
	// append and write a stale ledger back
	sessionLocks *KeyMutex
	log          *zap.Logger
}

// NewScoreService creates the score service. sessionLocks must be the
// same instance the session service holds.
func NewScoreService(sessionRepo repository.SessionRepository, notifier Notifier, sessionLocks *KeyMutex, log *zap.Logger) *ScoreService {
	return &ScoreService{
		sessionRepo:  sessionRepo,
		notifier:     notifier,
		sessionLocks: sessionLocks,
		log:          log,
	}
}

// loadMutable loads the session and checks it accepts score changes
// from this device
func (s *ScoreService) loadMutable(ctx context.Context, sessionID, deviceID string) (*models.Session, error) {
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
		return nil, apperrors.New(apperrors.ErrSessionNotActive)
	}
	return session, nil
}

// AppendRound records one hand at the end of the ledger and folds it
// into the running totals
func (s *ScoreService) AppendRound(ctx context.Context, in AppendRoundInput) (*models.Session, error) {
	s.sessionLocks.Lock(in.SessionID)
	defer s.sessionLocks.Unlock(in.SessionID)

	session, err := s.loadMutable(ctx, in.SessionID, in.DeviceID)
	if err != nil {
		return nil, err
	}

	round := models.RoundScore{
		Round:          len(session.GameScores) + 1,
		Scores:         in.Scores,
		AtuPlayerIndex: in.AtuPlayerIndex,
		Timestamp:      time.Now(),
	}

	session.GameScores = append(session.GameScores, round)
	session.FinalScores = session.FinalScores.Add(in.Scores)

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to save scores")
	}

	s.log.Debug("round appended",
		zap.String("session_id", in.SessionID),
		zap.Int("round", round.Round))

	s.broadcast(session)

	return session, nil
}

// AmendLastRound replaces the newest ledger entry. The totals move by
// the difference between the new and old values, so they still equal
// the ledger sum afterwards.
func (s *ScoreService) AmendLastRound(ctx context.Context, in AmendRoundInput) (*models.Session, error) {
	s.sessionLocks.Lock(in.SessionID)
	defer s.sessionLocks.Unlock(in.SessionID)

	session, err := s.loadMutable(ctx, in.SessionID, in.DeviceID)
	if err != nil {
		return nil, err
	}

	if len(session.GameScores) == 0 {
		return nil, apperrors.New(apperrors.ErrEmptyLedger)
	}

	last := &session.GameScores[len(session.GameScores)-1]
	diff := in.Scores.Diff(last.Scores)

	last.Scores = in.Scores
	if in.AtuPlayerIndex != nil {
		last.AtuPlayerIndex = in.AtuPlayerIndex
	}
	last.Timestamp = time.Now()

	session.FinalScores = session.FinalScores.Add(diff)

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to save scores")
	}

	s.log.Debug("last round amended",
		zap.String("session_id", in.SessionID),
		zap.Int("round", last.Round))

	s.broadcast(session)

	return session, nil
}

func (s *ScoreService) broadcast(session *models.Session) {
	if session.SeriesID == "" {
		return
	}
	s.notifier.BroadcastSeries(session.SeriesID, EventSessionUpdated, SessionUpdatedPayload{
		SeriesID:  session.SeriesID,
		SessionID: session.SessionID,
		Session:   session,
	})
}
