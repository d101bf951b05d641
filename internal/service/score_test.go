package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/models"
)

// activeSession creates a series with one active session
func activeSession(t *testing.T, env *testEnv) *models.Session {
	t.Helper()
	series := createSeries(t, env)
	session, err := env.sessions.Create(context.Background(), CreateSessionInput{
		SeriesID: series.SeriesID, DeviceID: "creator",
	})
	require.NoError(t, err)
	return session
}

// ledgerSum recomputes totals from the ledger
func ledgerSum(session *models.Session) models.Scores {
	var sum models.Scores
	for _, r := range session.GameScores {
		sum = sum.Add(r.Scores)
	}
	return sum
}

func TestAppendRound(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()
	session := activeSession(t, env)

	atu := 1
	updated, err := env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID:      session.SessionID,
		DeviceID:       "creator",
		Scores:         models.Scores{Player1: 25, Player2: -10, Player3: 0, Player4: 5},
		AtuPlayerIndex: &atu,
	})
	require.NoError(t, err)

	require.Len(t, updated.GameScores, 1)
	assert.Equal(t, 1, updated.GameScores[0].Round)
	assert.Equal(t, 25, updated.FinalScores.Player1)
	assert.Equal(t, -10, updated.FinalScores.Player2)
	require.NotNil(t, updated.GameScores[0].AtuPlayerIndex)
	assert.Equal(t, 1, *updated.GameScores[0].AtuPlayerIndex)

	updated, err = env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID,
		DeviceID:  "creator",
		Scores:    models.Scores{Player1: -5, Player2: 30},
	})
	require.NoError(t, err)

	require.Len(t, updated.GameScores, 2)
	assert.Equal(t, 2, updated.GameScores[1].Round)
	// totals always equal the ledger sum
	assert.Equal(t, ledgerSum(updated), updated.FinalScores)
	assert.Equal(t, 20, updated.FinalScores.Player1)
	assert.Equal(t, 20, updated.FinalScores.Player2)
}

func TestAppendRoundGuards(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()
	session := activeSession(t, env)

	// strangers may not score
	_, err := env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID, DeviceID: "stranger",
		Scores: models.Scores{Player1: 1},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotSessionCreator))

	// unknown session
	_, err = env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: "0000000000", DeviceID: "creator",
		Scores: models.Scores{Player1: 1},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	// ended session rejects scores
	_, err = env.sessions.End(ctx, session.SessionID, "creator")
	require.NoError(t, err)

	_, err = env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 1},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotActive))
}

func TestAmendLastRound(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()
	session := activeSession(t, env)

	_, err := env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 10, Player2: 20},
	})
	require.NoError(t, err)

	_, err = env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 5, Player2: 5},
	})
	require.NoError(t, err)

	// amend the second round, the first stays untouched
	updated, err := env.scores.AmendLastRound(ctx, AmendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: -5, Player2: 50},
	})
	require.NoError(t, err)

	require.Len(t, updated.GameScores, 2)
	assert.Equal(t, 10, updated.GameScores[0].Scores.Player1)
	assert.Equal(t, -5, updated.GameScores[1].Scores.Player1)
	assert.Equal(t, ledgerSum(updated), updated.FinalScores)
	assert.Equal(t, 5, updated.FinalScores.Player1)
	assert.Equal(t, 70, updated.FinalScores.Player2)
}

func TestAmendLastRoundEmptyLedger(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	session := activeSession(t, env)

	_, err := env.scores.AmendLastRound(context.Background(), AmendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 1},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrEmptyLedger))
}

func TestScoreMutationsTolerateUnknownCreator(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()

	legacy := &models.Session{
		SessionID:  "4444444444",
		CreatorID:  models.CreatorUnknown,
		Players:    fullRoster,
		Status:     models.SessionStatusActive,
		GameScores: models.RoundList{},
	}
	require.NoError(t, env.db.Create(legacy).Error)

	updated, err := env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: "4444444444", DeviceID: "whoever",
		Scores: models.Scores{Player1: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.FinalScores.Player1)
}

func TestEndCannotDropConcurrentRounds(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()
	session := activeSession(t, env)

	// one goroutine appends until the session is ended under it
	var acked int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, err := env.scores.AppendRound(ctx, AppendRoundInput{
				SessionID: session.SessionID, DeviceID: "creator",
				Scores: models.Scores{Player1: 1},
			})
			if err != nil {
				assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotActive))
				return
			}
			atomic.AddInt32(&acked, 1)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := env.sessions.End(ctx, session.SessionID, "creator")
	require.NoError(t, err)
	<-done

	final, err := env.sessions.Get(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, final.Status)

	// every acknowledged round survived the concurrent end
	assert.Len(t, final.GameScores, int(acked))
	assert.Equal(t, ledgerSum(final), final.FinalScores)
	assert.Equal(t, int(acked), final.FinalScores.Player1)
}

func TestScoreChangesBroadcast(t *testing.T) {
	env := newTestEnv()
	defer env.close()
	ctx := context.Background()
	session := activeSession(t, env)

	_, err := env.scores.AppendRound(ctx, AppendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 10},
	})
	require.NoError(t, err)

	_, err = env.scores.AmendLastRound(ctx, AmendRoundInput{
		SessionID: session.SessionID, DeviceID: "creator",
		Scores: models.Scores{Player1: 12},
	})
	require.NoError(t, err)

	events := env.notifier.byEvent(EventSessionUpdated)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, session.SeriesID, e.SeriesID)
	}
}
