package service

import (
	"context"
	"time"

	"github.com/wfunc/remi-scorer/internal/config"
	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/repository"
	"go.uber.org/zap"
)

// Login roles. Creators come back as admin, everyone else views.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// CreateSeriesInput fields for creating a series
type CreateSeriesInput struct {
	Password string
	Players  models.Players
	DeviceID string
}

// LoginInput credentials plus the requesting device
type LoginInput struct {
	SeriesID string
	Password string
	DeviceID string
}

// LoginResult authenticated series and the role granted
type LoginResult struct {
	Series *models.Series
	Role   string
}

// SeriesService series lifecycle, authentication and recency
type SeriesService struct {
	seriesRepo  repository.SeriesRepository
	sessionRepo repository.SessionRepository
	recentRepo  repository.RecentSeriesRepository
	alloc       *IDAllocator
	notifier    Notifier
	log         *zap.Logger
}

// NewSeriesService creates the series service
func NewSeriesService(
	seriesRepo repository.SeriesRepository,
	sessionRepo repository.SessionRepository,
	recentRepo repository.RecentSeriesRepository,
	alloc *IDAllocator,
	notifier Notifier,
	log *zap.Logger,
) *SeriesService {
	return &SeriesService{
		seriesRepo:  seriesRepo,
		sessionRepo: sessionRepo,
		recentRepo:  recentRepo,
		alloc:       alloc,
		notifier:    notifier,
		log:         log,
	}
}

// recentLimit reads the configured recency cap, falling back to five
func recentLimit() int {
	if c := config.Get(); c != nil && c.Game.RecentSeriesLimit > 0 {
		return c.Game.RecentSeriesLimit
	}
	return 5
}

// Create validates the roster, allocates an identifier and persists
// the series. Every connected client hears about it.
func (s *SeriesService) Create(ctx context.Context, in CreateSeriesInput) (*models.Series, error) {
	if in.Password == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "password is required")
	}
	if !in.Players.Complete() {
		return nil, apperrors.New(apperrors.ErrMissingPlayers)
	}

	creator := in.DeviceID
	if creator == "" {
		creator = models.CreatorUnknown
	}

	seriesID, err := s.alloc.Allocate(ctx, s.seriesRepo.ExistsBySeriesID)
	if err != nil {
		return nil, err
	}

	series := &models.Series{
		SeriesID:      seriesID,
		Password:      in.Password,
		CreatorID:     creator,
		Players:       in.Players,
		ViewerDevices: models.StringList{},
	}

	if err := s.seriesRepo.Create(ctx, series); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "failed to create series")
	}

	if in.DeviceID != "" {
		if err := s.recentRepo.Touch(ctx, seriesID, in.DeviceID, series.Players, recentLimit()); err != nil {
			// recency is best effort, the series itself is saved
			s.log.Warn("failed to record recent series",
				zap.String("series_id", seriesID),
				zap.Error(err))
		}
	}

	s.log.Info("series created",
		zap.String("series_id", seriesID),
		zap.String("creator_id", creator))

	s.notifier.BroadcastAll(EventSeriesCreated, SeriesCreatedPayload{
		SeriesID:  seriesID,
		Players:   series.Players,
		CreatedAt: series.CreatedAt,
	})

	return series, nil
}

// Authenticate checks credentials and grants a role. Unknown series
// and wrong passwords both answer with invalid credentials so the
// response does not leak which identifiers exist. Non-creator devices
// are remembered as viewers; the first login of a new viewer device
// is announced to the series room.
func (s *SeriesService) Authenticate(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.SeriesID == "" || in.Password == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "seriesId and password are required")
	}

	series, err := s.seriesRepo.FindBySeriesID(ctx, in.SeriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
	}
	if series == nil {
		s.log.Info("login failed, series not found", zap.String("series_id", in.SeriesID))
		return nil, apperrors.New(apperrors.ErrInvalidCredentials)
	}
	if series.Password != in.Password {
		s.log.Info("login failed, wrong password", zap.String("series_id", in.SeriesID))
		return nil, apperrors.New(apperrors.ErrInvalidCredentials)
	}

	role := RoleViewer
	if in.DeviceID != "" && series.IsCreator(in.DeviceID) {
		role = RoleAdmin
	}

	if role == RoleViewer && in.DeviceID != "" && !series.ViewerDevices.Contains(in.DeviceID) {
		if err := s.seriesRepo.AddViewerDevice(ctx, series, in.DeviceID); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "failed to record viewer device")
		}

		s.notifier.BroadcastSeries(series.SeriesID, EventViewerJoined, ViewerJoinedPayload{
			SeriesID:    series.SeriesID,
			DeviceID:    in.DeviceID,
			ViewerCount: len(series.ViewerDevices),
		})
	}

	if in.DeviceID != "" {
		if err := s.recentRepo.Touch(ctx, series.SeriesID, in.DeviceID, series.Players, recentLimit()); err != nil {
			s.log.Warn("failed to record recent series",
				zap.String("series_id", series.SeriesID),
				zap.Error(err))
		}
	}

	s.log.Info("series login",
		zap.String("series_id", series.SeriesID),
		zap.String("role", role))

	return &LoginResult{Series: series, Role: role}, nil
}

// Exists reports whether a series identifier is taken
func (s *SeriesService) Exists(ctx context.Context, seriesID string) (bool, error) {
	exists, err := s.seriesRepo.ExistsBySeriesID(ctx, seriesID)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to check series")
	}
	return exists, nil
}

// Get loads one series by identifier
func (s *SeriesService) Get(ctx context.Context, seriesID string) (*models.Series, error) {
	series, err := s.seriesRepo.FindBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
	}
	if series == nil {
		return nil, apperrors.New(apperrors.ErrSeriesNotFound)
	}
	return series, nil
}

// ListAll returns every series newest first
func (s *SeriesService) ListAll(ctx context.Context) ([]*models.Series, error) {
	series, err := s.seriesRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to list series")
	}
	return series, nil
}

// ListSessions returns a series' sessions newest first
func (s *SeriesService) ListSessions(ctx context.Context, seriesID string) ([]*models.Session, error) {
	series, err := s.seriesRepo.FindBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
	}
	if series == nil {
		return nil, apperrors.New(apperrors.ErrSeriesNotFound)
	}

	sessions, err := s.sessionRepo.FindBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to list sessions")
	}
	return sessions, nil
}

// RecentSeriesSummary one recency entry enriched with the series'
// current session count
type RecentSeriesSummary struct {
	SeriesID       string         `json:"seriesId"`
	LastAccessedAt time.Time      `json:"lastAccessedDate"`
	Players        models.Players `json:"players"`
	SessionCount   int            `json:"sessionCount"`
}

// ListRecent returns the device's recently accessed series, newest
// first. Entries whose series has since disappeared stay listed with
// a zero session count.
func (s *SeriesService) ListRecent(ctx context.Context, deviceID string) ([]*RecentSeriesSummary, error) {
	if deviceID == "" {
		return nil, apperrors.New(apperrors.ErrMissingDeviceID)
	}

	entries, err := s.recentRepo.FindByDeviceID(ctx, deviceID, recentLimit())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to list recent series")
	}

	summaries := make([]*RecentSeriesSummary, 0, len(entries))
	for _, e := range entries {
		summary := &RecentSeriesSummary{
			SeriesID:       e.SeriesID,
			LastAccessedAt: e.LastAccessedAt,
			Players:        e.Players,
		}

		series, err := s.seriesRepo.FindBySeriesID(ctx, e.SeriesID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "failed to load series")
		}
		if series != nil {
			summary.SessionCount = series.SessionCount
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
