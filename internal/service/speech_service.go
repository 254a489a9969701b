package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schulwerk/untis-speech-api/internal/models"
	"github.com/schulwerk/untis-speech-api/internal/untis"
	appErrors "github.com/schulwerk/untis-speech-api/pkg/errors"
)

type untisClient interface {
	Authenticate(ctx context.Context, username, password string) (*untis.Session, error)
	Logout(ctx context.Context, sessionID string) error
	WeeklyTimetable(ctx context.Context, sessionID string, personID int64, date time.Time) ([]byte, error)
}

// SpeakableRequest carries the WebUntis credentials for one lookup. They are
// forwarded upstream and never stored.
type SpeakableRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SpeakableResult is the rendered deviation report for one day.
type SpeakableResult struct {
	Date   string   `json:"date"`
	Lines  []string `json:"lines"`
	Speech string   `json:"speech"`
}

// SpeechService runs the full pipeline: session acquisition, timetable fetch,
// reconciliation, and deviation rendering. It holds no per-request state; the
// optional session store is the only thing shared across calls.
type SpeechService struct {
	client    untisClient
	sessions  untis.SessionStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewSpeechService instantiates SpeechService. sessions and metrics may be
// nil; now defaults to time.Now.
func NewSpeechService(client untisClient, sessions untis.SessionStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, now func() time.Time) *SpeechService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &SpeechService{
		client:    client,
		sessions:  sessions,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		now:       now,
	}
}

// Speakable renders today's timetable deviations for the given credentials.
func (s *SpeechService) Speakable(ctx context.Context, req SpeakableRequest) (*SpeakableResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and password are required")
	}

	today := s.now()

	session, cached, err := s.acquireSession(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, err := s.fetchAndRender(ctx, session, today)
	if err != nil && cached {
		// The cached upstream session may have expired; evict it and
		// retry once with a fresh login.
		s.logger.Info("cached session failed, re-authenticating", zap.String("username", req.Username), zap.Error(err))
		if delErr := s.sessions.Delete(ctx, req.Username); delErr != nil {
			s.logger.Warn("failed to evict cached session", zap.Error(delErr))
		}
		session, err = s.authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		cached = false
		lines, err = s.fetchAndRender(ctx, session, today)
	}

	s.releaseSession(ctx, req.Username, session, cached)

	if err != nil {
		return nil, s.mapPipelineError(err)
	}

	return &SpeakableResult{
		Date:   today.Format("2006-01-02"),
		Lines:  lines,
		Speech: strings.Join(lines, "\n"),
	}, nil
}

// acquireSession returns a cached session when the store has one, otherwise
// logs in. The second return reports whether the session came from the cache.
func (s *SpeechService) acquireSession(ctx context.Context, req SpeakableRequest) (*untis.Session, bool, error) {
	if s.sessions != nil {
		session, err := s.sessions.Get(ctx, req.Username)
		if err != nil {
			s.logger.Warn("session cache lookup failed", zap.Error(err))
		}
		s.metrics.RecordSessionLookup(session != nil)
		if session != nil {
			return session, true, nil
		}
	}
	session, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

func (s *SpeechService) authenticate(ctx context.Context, req SpeakableRequest) (*untis.Session, error) {
	start := time.Now()
	session, err := s.client.Authenticate(ctx, req.Username, req.Password)
	s.metrics.ObserveUpstreamCall("authenticate", time.Since(start))
	if err != nil {
		if errors.Is(err, untis.ErrInvalidCredentials) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, appErrors.ErrInvalidCredentials.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "webuntis login failed")
	}
	return session, nil
}

func (s *SpeechService) fetchAndRender(ctx context.Context, session *untis.Session, today time.Time) ([]string, error) {
	start := time.Now()
	raw, err := s.client.WeeklyTimetable(ctx, session.ID, session.PersonID, today)
	s.metrics.ObserveUpstreamCall("timetable", time.Since(start))
	if err != nil {
		return nil, err
	}

	periods, err := untis.ParseTimetable(raw, session.PersonID, s.logger)
	if err != nil {
		return nil, err
	}

	return deviationLines(periods, today), nil
}

// releaseSession either writes the session back to the cache or logs out,
// mirroring the single-shot upstream flow when no cache is configured.
func (s *SpeechService) releaseSession(ctx context.Context, username string, session *untis.Session, cached bool) {
	if session == nil {
		return
	}
	if s.sessions != nil {
		if err := s.sessions.Put(ctx, username, session); err != nil {
			s.logger.Warn("failed to cache session", zap.Error(err))
		}
		return
	}
	if cached {
		return
	}
	start := time.Now()
	if err := s.client.Logout(ctx, session.ID); err != nil {
		s.logger.Warn("webuntis logout failed", zap.Error(err))
	}
	s.metrics.ObserveUpstreamCall("logout", time.Since(start))
}

func (s *SpeechService) mapPipelineError(err error) error {
	if errors.Is(err, untis.ErrNoTimetable) {
		return appErrors.Wrap(err, appErrors.ErrNoTimetable.Code, appErrors.ErrNoTimetable.Status, appErrors.ErrNoTimetable.Message)
	}
	var parseErr *untis.ParseError
	if errors.As(err, &parseErr) {
		return appErrors.Wrap(err, appErrors.ErrTimetableParse.Code, appErrors.ErrTimetableParse.Status, parseErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "webuntis timetable fetch failed")
}

// RenderDeviations exposes the renderer for callers that already hold a
// period list, e.g. replaying a stored payload.
func RenderDeviations(periods []models.Period, today time.Time) string {
	return strings.Join(deviationLines(periods, today), "\n")
}
