// Package shelf runs every user-facing operation: it resolves the session,
// applies the table operation and writes durable collections back to the drive.
package shelf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/drive"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/metadata"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/sheet"
)

const (
	noticePublicFallback = "invalid password, continuing in public mode"
	noticeTemporary      = "public links are temporary, export them to keep a copy"
)

// Fetcher extracts page metadata. A non-nil error is a warning: the returned
// Metadata is still usable.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (metadata.Metadata, error)
}

// Options wires a Service.
type Options struct {
	Gate     *domain.Gate
	Sessions session.Store
	Drive    drive.Drive
	Fetcher  Fetcher
	Clock    domain.Clock
	IDs      session.IDGenerator
	Logger   logger.Logger
}

// Service is safe for concurrent use. Work on one session is serialized, and
// so are writes to one drive file.
type Service struct {
	gate     *domain.Gate
	sessions session.Store
	drive    drive.Drive
	fetcher  Fetcher
	clock    domain.Clock
	ids      session.IDGenerator
	log      logger.Logger

	sessionLocks *keyedMutex
	fileLocks    *keyedMutex
}

func New(opts Options) *Service {
	s := &Service{
		gate:         opts.Gate,
		sessions:     opts.Sessions,
		drive:        opts.Drive,
		fetcher:      opts.Fetcher,
		clock:        opts.Clock,
		ids:          opts.IDs,
		log:          opts.Logger,
		sessionLocks: newKeyedMutex(),
		fileLocks:    newKeyedMutex(),
	}
	if s.clock == nil {
		s.clock = domain.RealClock{}
	}
	if s.ids == nil {
		s.ids = session.UUIDs{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Info describes a session to its owner.
type Info struct {
	SessionID string      `json:"-"`
	Mode      domain.Mode `json:"mode"`
	Username  string      `json:"username,omitempty"`
	Label     string      `json:"label"`
	Durable   bool        `json:"durable"`
	LinkCount int         `json:"link_count"`
	Notice    string      `json:"notice,omitempty"`
}

// Outcome is the result of a mutation. Persisted is false when the drive
// write failed (Warning says why) or the identity has no drive file.
type Outcome struct {
	Link      *domain.Link  `json:"link,omitempty"`
	Action    domain.Action `json:"action,omitempty"`
	Removed   int           `json:"removed,omitempty"`
	Persisted bool          `json:"persisted"`
	Warning   string        `json:"warning,omitempty"`
	Notice    string        `json:"notice,omitempty"`
	LinkCount int           `json:"link_count"`
}

func infoOf(sess *session.Session) Info {
	return Info{
		SessionID: sess.ID,
		Mode:      sess.Identity.Mode,
		Username:  sess.Identity.Username,
		Label:     sess.Identity.Label(),
		Durable:   sess.Identity.Durable(),
		LinkCount: len(sess.Links),
	}
}

// Login runs the gate and starts a session for the resolved identity. A
// rejected login (guest secret without a valid username) leaves current
// untouched. A successful one replaces current.
func (s *Service) Login(ctx context.Context, current, password, username string) (Info, error) {
	id, err := s.gate.Authenticate(password, username)
	if err != nil {
		return Info{}, err
	}

	info, err := s.start(ctx, current, id)
	if err != nil {
		return Info{}, err
	}
	if id.Mode == domain.ModePublic && password != "" {
		info.Notice = noticePublicFallback
	}
	return info, nil
}

// ContinuePublic starts a public session without credentials.
func (s *Service) ContinuePublic(ctx context.Context, current string) (Info, error) {
	return s.start(ctx, current, domain.Public())
}

func (s *Service) start(ctx context.Context, current string, id domain.Identity) (Info, error) {
	links, err := s.load(ctx, id)
	if err != nil {
		return Info{}, err
	}

	if current != "" {
		if err := s.Exit(ctx, current); err != nil {
			return Info{}, err
		}
	}

	now := s.clock.Now()
	sess := &session.Session{
		ID:         s.ids.NewID(),
		Identity:   id,
		Links:      links,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Info{}, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info("session started",
		logger.String("mode", string(id.Mode)),
		logger.String("username", id.Username),
		logger.Int("links", len(links)))

	return infoOf(sess), nil
}

// Exit deletes the session. Unknown ids are ignored.
func (s *Service) Exit(ctx context.Context, sessionID string) error {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.log.Info("session ended",
		logger.String("mode", string(sess.Identity.Mode)),
		logger.Duration("age", sessionAge(sess, s.clock.Now())))
	return nil
}

// Info returns the session summary.
func (s *Service) Info(ctx context.Context, sessionID string) (Info, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Info{}, err
	}
	return infoOf(sess), nil
}

// Save upserts a link by url.
func (s *Service) Save(ctx context.Context, sessionID string, in domain.LinkInput) (Outcome, error) {
	in = in.Normalize()

	var out Outcome
	err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		var action domain.Action
		res, err := s.apply(ctx, sess, func(t domain.Table) (domain.Table, error) {
			next, a, err := t.Save(in, s.clock.Now())
			action = a
			return next, err
		})
		if err != nil {
			return err
		}

		link, _ := sess.Links.Lookup(in.URL)
		res.Link, res.Action = &link, action
		out = res

		s.log.Info("link "+string(action),
			logger.String("mode", string(sess.Identity.Mode)),
			logger.String("url", link.URL),
			logger.Bool("persisted", out.Persisted))
		return nil
	})
	return out, err
}

// Delete removes every link whose url is in urls.
func (s *Service) Delete(ctx context.Context, sessionID string, urls []string) (Outcome, error) {
	var out Outcome
	err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		var removed int
		res, err := s.apply(ctx, sess, func(t domain.Table) (domain.Table, error) {
			next, n, err := t.Delete(urls)
			removed = n
			return next, err
		})
		if err != nil {
			return err
		}

		res.Removed = removed
		out = res

		s.log.Info("links deleted",
			logger.String("mode", string(sess.Identity.Mode)),
			logger.Int("requested", len(urls)),
			logger.Int("removed", removed),
			logger.Bool("persisted", out.Persisted))
		return nil
	})
	return out, err
}

// Search filters the working table. It never modifies it.
func (s *Service) Search(ctx context.Context, sessionID, query string, tags []string) (domain.Table, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Links.Filter(query, tags), nil
}

// Tags is the sorted union of the table's tags and the default suggestions.
func (s *Service) Tags(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return mergeTags(sess.Links.AllTags(), domain.DefaultSuggestedTags), nil
}

// Export returns the download name and workbook for the session's links.
// Durable identities get the drive file as is; if it is missing, or the
// session holds unsynced changes, the workbook is encoded from the working
// table.
func (s *Service) Export(ctx context.Context, sessionID string) (string, []byte, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	if len(sess.Links) == 0 {
		return "", nil, domain.ErrEmptyStore
	}

	name := sess.Identity.ExportName()
	if sess.Identity.Durable() && !sess.Unsynced {
		data, err := s.drive.Get(ctx, sess.Identity.FileName())
		switch {
		case err == nil:
			return name, data, nil
		case errors.Is(err, drive.ErrNotFound):
			s.log.Warn("drive file missing, exporting working table",
				logger.String("file", sess.Identity.FileName()))
		default:
			return "", nil, fmt.Errorf("failed to read %s: %w", sess.Identity.FileName(), err)
		}
	}

	data, err := sheet.Encode(sess.Links)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

// Fetch returns page metadata for url. warning is set when the page could not
// be used; the metadata then falls back to the url as title. err is only set
// when the session is unusable.
func (s *Service) Fetch(ctx context.Context, sessionID, url string) (md metadata.Metadata, warning, err error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return metadata.Metadata{}, nil, err
	}

	md, warning = s.fetcher.Fetch(ctx, url)
	if warning != nil {
		s.log.Warn("metadata fetch failed", logger.String("url", url), logger.Error(warning))
	}
	return md, warning, nil
}

// Resync reloads a durable working table from the drive, dropping changes
// whose write failed. Public sessions are returned unchanged.
func (s *Service) Resync(ctx context.Context, sessionID string) (Info, error) {
	var info Info
	err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		if sess.Identity.Durable() {
			links, err := s.load(ctx, sess.Identity)
			if err != nil {
				return err
			}
			sess.Links = links
			sess.Unsynced = false
		}
		info = infoOf(sess)
		return nil
	})
	return info, err
}

// Ready checks both backends.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.PingSessions(ctx); err != nil {
		return err
	}
	return s.PingDrive(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

func (s *Service) PingDrive(ctx context.Context) error {
	if err := s.drive.Ping(ctx); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	return nil
}

// SessionCount returns the number of live sessions. ok is false when the
// session store cannot count.
func (s *Service) SessionCount(ctx context.Context) (n int, ok bool, err error) {
	counter, ok := s.sessions.(session.Counter)
	if !ok {
		return 0, false, nil
	}
	n, err = counter.Count(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("session store: %w", err)
	}
	return n, true, nil
}

// Backends names the session store and drive implementations.
func (s *Service) Backends() (sessions, drive string) {
	return s.sessions.Kind(), s.drive.Kind()
}

// mutate runs fn on the session under its lock and saves the result. When fn
// fails nothing is saved.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*session.Session) error) error {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}

	sess.LastSeenAt = s.clock.Now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// apply runs op on the session's table and writes durable results back.
//
// Durable identities apply op to the drive file as currently stored, read
// under the file lock, so links written by imports or other sessions are kept.
// A session with unsynced changes applies op to its own table instead and
// writes that, so a failed write is retried rather than dropped.
func (s *Service) apply(ctx context.Context, sess *session.Session, op func(domain.Table) (domain.Table, error)) (Outcome, error) {
	if !sess.Identity.Durable() {
		table, err := op(sess.Links)
		if err != nil {
			return Outcome{}, err
		}
		sess.Links = table
		return Outcome{LinkCount: len(table), Notice: noticeTemporary}, nil
	}

	id := sess.Identity
	unlock := s.fileLocks.Lock(id.FileName())
	defer unlock()

	base := sess.Links
	if !sess.Unsynced {
		latest, err := s.readTable(ctx, id)
		if err != nil {
			s.log.Warn("failed to reload drive file, using working table",
				logger.String("file", id.FileName()),
				logger.Error(err))
		} else {
			base = latest
		}
	}

	table, err := op(base)
	if err != nil {
		return Outcome{}, err
	}
	sess.Links = table
	out := Outcome{LinkCount: len(table)}

	if err := s.writeTable(ctx, id, table); err != nil {
		s.log.Error("failed to persist links",
			logger.String("file", id.FileName()),
			logger.Error(err))
		sess.Unsynced = true
		out.Warning = "changes are kept for this session but could not be saved: " + err.Error()
		return out, nil
	}
	sess.Unsynced = false
	out.Persisted = true
	return out, nil
}

// load reads the table behind an identity under its file lock. Missing files
// and public identities give an empty table.
func (s *Service) load(ctx context.Context, id domain.Identity) (domain.Table, error) {
	if !id.Durable() {
		return domain.Table{}, nil
	}

	unlock := s.fileLocks.Lock(id.FileName())
	defer unlock()
	return s.readTable(ctx, id)
}

// readTable and writeTable expect the caller to hold the file lock.
func (s *Service) readTable(ctx context.Context, id domain.Identity) (domain.Table, error) {
	data, err := s.drive.Get(ctx, id.FileName())
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return domain.Table{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", id.FileName(), err)
	}

	table, err := sheet.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id.FileName(), err)
	}
	return table, nil
}

func (s *Service) writeTable(ctx context.Context, id domain.Identity, table domain.Table) error {
	data, err := sheet.Encode(table)
	if err != nil {
		return err
	}
	return s.drive.Put(ctx, id.FileName(), data)
}

func mergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

func sessionAge(sess *session.Session, now time.Time) time.Duration {
	return now.Sub(sess.CreatedAt).Truncate(time.Second)
}
