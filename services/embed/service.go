// Package embed resolves playback sessions against a prioritized list of
// external embed providers, falling back down the list when a provider fails.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Om-Prakash-Verma/new-flix/models"
	tmdbsvc "github.com/Om-Prakash-Verma/new-flix/services/tmdb"
)

var (
	ErrSessionNotFound    = errors.New("playback session not found")
	ErrInvalidTarget      = errors.New("invalid playback target")
	ErrUnknownProvider    = errors.New("unknown embed provider")
	ErrProvidersExhausted = errors.New("all embed providers exhausted")
)

const exhaustedMessage = "All servers were tried and failed to load. Please try again later."

// externalIDSource is the cross-reference lookup the resolver needs from the
// metadata provider.
type externalIDSource interface {
	ExternalIDs(ctx context.Context, kind models.MediaKind, tmdbID string) (string, error)
}

var _ externalIDSource = (*tmdbsvc.Client)(nil)

// session is the mutable per-playback state. All fields are guarded by mu.
// epoch increments on every transition that invalidates in-flight work
// (fallback, manual provider change, close); a lookup that finishes against
// an older epoch discards its result.
type session struct {
	mu sync.Mutex

	id     string
	target models.PlaybackTarget

	providerIndex int
	imdbID        string
	imdbResolved  bool

	embedURL string
	status   models.PlaybackStatus
	message  string

	epoch     uint64
	resolving bool
	closed    bool

	createdAt  time.Time
	lastAccess time.Time
}

// Service owns all live playback sessions. Sessions are held in memory only;
// an idle session past its TTL is swept by a background loop.
type Service struct {
	providers []Provider
	ids       externalIDSource
	ttl       time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService builds the resolver over the given provider catalog. A zero or
// negative ttl falls back to four hours.
func NewService(providers []Provider, ids externalIDSource, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	s := &Service{
		providers: providers,
		ids:       ids,
		ttl:       ttl,
		sessions:  make(map[string]*session),
	}
	go s.cleanupLoop()
	return s
}

// Providers returns the catalog names in priority order.
func (s *Service) Providers() []string {
	return ProviderNames(s.providers)
}

// StartPlayback creates a new session for the target and resolves it against
// the first provider in the catalog.
func (s *Service) StartPlayback(ctx context.Context, target models.PlaybackTarget) (models.PlaybackSession, error) {
	if err := validateTarget(target); err != nil {
		return models.PlaybackSession{}, err
	}

	now := time.Now()
	sess := &session{
		id:         uuid.NewString(),
		target:     target,
		status:     models.PlaybackStatusResolving,
		createdAt:  now,
		lastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	log.Printf("[embed] session %s started for %s %s", sess.id, target.Kind, target.TMDBID)
	s.resolve(ctx, sess)
	return s.snapshot(sess), nil
}

// Session returns the current state of a session.
func (s *Service) Session(sessionID string) (models.PlaybackSession, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return models.PlaybackSession{}, err
	}
	return s.snapshot(sess), nil
}

// ReportFailure advances a session to the next provider after the client saw
// the current embed fail to load. The provider index only moves forward; once
// the catalog is exhausted the session stays failed and further reports are
// no-ops. A report that lands while a resolution is still in flight is
// ignored so a flurry of error events cannot skip providers.
func (s *Service) ReportFailure(ctx context.Context, sessionID string) (models.PlaybackSession, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return models.PlaybackSession{}, err
	}

	sess.mu.Lock()
	if sess.resolving || sess.status == models.PlaybackStatusFailed {
		sess.mu.Unlock()
		return s.snapshot(sess), nil
	}
	failed := s.providers[sess.providerIndex].Name
	if sess.providerIndex+1 >= len(s.providers) {
		// Exhausted. The index stays on the last provider tried.
		sess.status = models.PlaybackStatusFailed
		sess.embedURL = ""
		sess.message = exhaustedMessage
		sess.epoch++
		sess.mu.Unlock()
		log.Printf("[embed] session %s exhausted all %d providers", sess.id, len(s.providers))
		return s.snapshot(sess), nil
	}
	sess.providerIndex++
	sess.epoch++
	sess.status = models.PlaybackStatusResolving
	sess.embedURL = ""
	sess.message = fmt.Sprintf("%s failed to load, trying next server", failed)
	sess.mu.Unlock()

	log.Printf("[embed] session %s falling back from %s", sess.id, failed)
	s.resolve(ctx, sess)
	return s.snapshot(sess), nil
}

// SelectProvider jumps a session to a specific provider by name. Unlike
// automatic fallback this may move anywhere in the catalog, and it clears a
// failed state so the user can retry an earlier server.
func (s *Service) SelectProvider(ctx context.Context, sessionID, providerName string) (models.PlaybackSession, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return models.PlaybackSession{}, err
	}

	idx := -1
	for i, p := range s.providers {
		if strings.EqualFold(p.Name, providerName) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.PlaybackSession{}, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	sess.mu.Lock()
	if sess.resolving {
		// A resolve is already in flight for this session; switching
		// now would race the pending lookup. Ignore, like ReportFailure.
		sess.mu.Unlock()
		return s.snapshot(sess), nil
	}
	sess.providerIndex = idx
	sess.epoch++
	sess.status = models.PlaybackStatusResolving
	sess.embedURL = ""
	sess.message = ""
	sess.mu.Unlock()

	s.resolve(ctx, sess)
	return s.snapshot(sess), nil
}

// CloseSession removes a session. In-flight lookups for it discard their
// results when they land.
func (s *Service) CloseSession(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	sess.closed = true
	sess.epoch++
	sess.mu.Unlock()
	return nil
}

// resolve drives the session to a ready embed URL or onward through the
// catalog. Providers that need an IMDB ID trigger a single cross-reference
// lookup per session; the result (including "no mapping exists") is kept on
// the session, so later providers reuse it without another lookup. A provider
// that needs an IMDB ID when the title has none is skipped.
func (s *Service) resolve(ctx context.Context, sess *session) {
	// A failed lookup counts as "no mapping" for the rest of this
	// resolution but is not written to the session, so a later resolve
	// may retry it.
	lookupFailed := false
	for {
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			return
		}
		if sess.providerIndex >= len(s.providers) {
			sess.status = models.PlaybackStatusFailed
			sess.embedURL = ""
			sess.message = exhaustedMessage
			sess.mu.Unlock()
			return
		}
		prov := s.providers[sess.providerIndex]

		if prov.RequiresIMDB && !sess.imdbResolved && !lookupFailed {
			epoch := sess.epoch
			sess.resolving = true
			sess.mu.Unlock()

			imdbID, err := s.ids.ExternalIDs(ctx, sess.target.Kind, sess.target.TMDBID)
			if err != nil {
				log.Printf("[embed] session %s imdb lookup failed: %v", sess.id, err)
				imdbID = ""
				lookupFailed = true
			}

			sess.mu.Lock()
			sess.resolving = false
			if sess.closed || sess.epoch != epoch {
				// Session moved on while we were looking up; the result
				// is stale, but the mapping itself is still valid.
				sess.imdbID = imdbID
				sess.imdbResolved = err == nil
				sess.mu.Unlock()
				return
			}
			sess.imdbID = imdbID
			sess.imdbResolved = err == nil
			sess.mu.Unlock()
			continue
		}

		if prov.RequiresIMDB && sess.imdbID == "" {
			log.Printf("[embed] session %s skipping %s: no IMDB ID for %s %s",
				sess.id, prov.Name, sess.target.Kind, sess.target.TMDBID)
			if sess.providerIndex+1 >= len(s.providers) {
				sess.status = models.PlaybackStatusFailed
				sess.embedURL = ""
				sess.message = exhaustedMessage
				sess.mu.Unlock()
				return
			}
			sess.providerIndex++
			sess.epoch++
			sess.mu.Unlock()
			continue
		}

		id := sess.target.TMDBID
		if prov.RequiresIMDB {
			id = sess.imdbID
		}
		sess.embedURL = buildEmbedURL(prov, sess.target, id)
		sess.status = models.PlaybackStatusReady
		sess.lastAccess = time.Now()
		sess.mu.Unlock()
		return
	}
}

func buildEmbedURL(prov Provider, target models.PlaybackTarget, id string) string {
	if target.Kind == models.MediaKindTV {
		return prov.EpisodeURL(id, target.Season, target.Episode)
	}
	return prov.MovieURL(id)
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.lastAccess = time.Now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *Service) snapshot(sess *session) models.PlaybackSession {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := models.PlaybackSession{
		ID:            sess.id,
		Target:        sess.target,
		ProviderIndex: sess.providerIndex,
		ProviderCount: len(s.providers),
		EmbedURL:      sess.embedURL,
		Status:        sess.status,
		Message:       sess.message,
		CreatedAt:     sess.createdAt,
	}
	if sess.providerIndex < len(s.providers) {
		snap.Provider = s.providers[sess.providerIndex].Name
	}
	return snap
}

func validateTarget(target models.PlaybackTarget) error {
	if strings.TrimSpace(target.TMDBID) == "" {
		return fmt.Errorf("%w: missing tmdb id", ErrInvalidTarget)
	}
	if !target.Kind.Valid() {
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidTarget, target.Kind)
	}
	if target.Kind == models.MediaKindTV && (target.Season < 1 || target.Episode < 1) {
		return fmt.Errorf("%w: tv playback needs season and episode", ErrInvalidTarget)
	}
	if target.Kind == models.MediaKindMovie && (target.Season != 0 || target.Episode != 0) {
		return fmt.Errorf("%w: movie playback takes no season or episode", ErrInvalidTarget)
	}
	return nil
}

// cleanupLoop sweeps idle sessions past their TTL.
func (s *Service) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.sweep(time.Now())
	}
}

func (s *Service) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastAccess)
		sess.mu.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[embed] cleaned up %d expired playback sessions", removed)
	}
	return removed
}
