// scraper.go decides between the month cache and the portal, client.go does
// the actual requests.

package sam

import (
	"context"
	"fmt"
	"samtimesheet/internal/components/assert"
	"samtimesheet/internal/components/chrono"
	"samtimesheet/internal/components/store"
	"samtimesheet/internal/components/telemetry"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("samtimesheet/scrapers/sam")

const (
	report_scraper_cache_hits = "scraper.cache-hits"
	report_scraper_fetch      = "scraper.fetch"
	report_scraper_parse      = "scraper.parse"
	report_scraper_persist    = "scraper.persist"
	report_scraper_relogin    = "scraper.relogin"
)

// maxRelogins is how many times a timesheet request is retried after the
// portal dropped the session on its side.
const maxRelogins = 1

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl  string
	Username string
	Password string

	// CacheExpiry defaults to DefaultCacheExpiry.
	CacheExpiry time.Duration
	// TokenTTL defaults to DefaultTokenTTL.
	TokenTTL time.Duration
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	CloudflareBypass bool
	// Notifier is optional.
	Notifier Notifier
	// Dump receives every request/response pair when set.
	Dump telemetry.MessageOutput
}

// Scraper retrieves the shifts of a month, serving them from the store while
// they are fresh.
//
// Calls are serialized, the record loaded at the start of a call is owned by
// that call until it returns.
type Scraper struct {
	session     *Session
	client      *client
	storage     store.Storage
	time        chrono.TimeAPI
	tel         telemetry.API
	cacheExpiry time.Duration

	mutex     sync.Mutex
	cacheHits int64
}

func NewScraper(storage store.Storage, time chrono.TimeAPI, tel telemetry.API, opts Options) *Scraper {
	assert.NotNil(storage)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Username)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.CacheExpiry == 0 {
		opts.CacheExpiry = DefaultCacheExpiry
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	assert.PositiveDuration("cache expiry", opts.CacheExpiry)
	assert.PositiveDuration("token ttl", opts.TokenTTL)
	assert.PositiveDuration("timeout", opts.Timeout)

	tel = telemetry.NewScopedAPI("sam", tel)

	c := newClient(clientOptions{
		BaseUrl:          opts.BaseUrl,
		Timeout:          opts.Timeout,
		CloudflareBypass: opts.CloudflareBypass,
		Dump:             opts.Dump,
	}, tel)

	return &Scraper{
		session: &Session{
			client:   c,
			storage:  storage,
			time:     time,
			tel:      tel,
			notifier: opts.Notifier,
			username: opts.Username,
			password: opts.Password,
			ttl:      opts.TokenTTL,
		},
		client:      c,
		storage:     storage,
		time:        time,
		tel:         tel,
		cacheExpiry: opts.CacheExpiry,
	}
}

// State reports the session state of the persisted record.
func (s *Scraper) State(ctx context.Context) (State, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.storage.Read(ctx)
	if err != nil {
		return 0, err
	}
	return s.session.State(record), nil
}

// Get returns the shifts of the month containing target. A fresh cached month
// is returned without any request, otherwise the month is fetched (logging
// in first if needed), parsed and cached.
func (s *Scraper) Get(ctx context.Context, target time.Time) (store.CachedMonth, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := store.MonthKey(target)

	ctx, span := tracer.Start(ctx, "scraper:Get")
	defer span.End()
	span.SetAttributes(attribute.String("month", key))

	record, err := s.storage.Read(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.CachedMonth{}, err
	}

	if record.Flagged() {
		span.SetStatus(codes.Error, ErrAlreadyFlagged.Error())
		return store.CachedMonth{}, ErrAlreadyFlagged
	}

	if s.session.State(record) != STATE_VALID {
		err = s.session.Login(ctx, record)
		if err != nil {
			return store.CachedMonth{}, err
		}
	}

	cached, ok := record.Month(key)
	if ok && IsFresh(cached, target, s.time.Now(), s.cacheExpiry) {
		s.tel.ReportDebug("cache hit", key)
		s.cacheHits++
		s.tel.ReportCount(report_scraper_cache_hits, s.cacheHits)
		span.SetAttributes(attribute.Bool("cached", true))
		return cached, nil
	}

	html, err := s.fetch(ctx, record, key, maxRelogins)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.CachedMonth{}, err
	}

	shifts, err := ParseTimesheet(html, s.time.Location())
	if err != nil {
		s.tel.ReportBroken(report_scraper_parse, err, key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.CachedMonth{}, err
	}

	month := store.CachedMonth{
		Updated: s.time.Now(),
		Parsed:  shifts,
	}
	record.PutMonth(key, month)
	err = s.storage.Write(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_scraper_persist, err, key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.CachedMonth{}, fmt.Errorf("persist month %s: %w", key, err)
	}

	span.SetAttributes(attribute.Int("shifts", len(shifts)))
	return month, nil
}

// fetch requests the timesheet page of a month. When the portal answers that
// the session is gone it logs in again and retries, at most `relogins` times.
func (s *Scraper) fetch(ctx context.Context, record *store.Record, key string, relogins int) (string, error) {
	res, err := s.client.timesheet(ctx, record.Token(), key)
	if err != nil {
		return "", err
	}

	if res.loginRequired {
		if relogins <= 0 {
			s.tel.ReportBroken(report_scraper_fetch, "session rejected right after a fresh login", key)
			return "", &ProtocolError{
				Op:     "timesheet",
				Reason: "portal requested a login again right after a fresh login",
			}
		}

		s.tel.ReportWarning(report_scraper_relogin, "portal dropped the session", key)
		record.Invalidate()
		err = s.session.Login(ctx, record)
		if err != nil {
			return "", err
		}
		return s.fetch(ctx, record, key, relogins-1)
	}

	err = s.session.Refresh(ctx, record)
	if err != nil {
		return "", err
	}
	return res.html, nil
}

// GetCached returns the cached month containing target if it is fresh. It
// never makes a request and ignores the error flag.
func (s *Scraper) GetCached(ctx context.Context, target time.Time) (store.CachedMonth, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.storage.Read(ctx)
	if err != nil {
		return store.CachedMonth{}, err
	}

	key := store.MonthKey(target)
	cached, ok := record.Month(key)
	if !ok || !IsFresh(cached, target, s.time.Now(), s.cacheExpiry) {
		s.tel.ReportDebug("cache miss", key)
		return store.CachedMonth{}, fmt.Errorf("%s: %w", key, ErrNoCachedData)
	}
	return cached, nil
}

// Months lists the cached months, oldest first.
func (s *Scraper) Months(ctx context.Context) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.storage.Read(ctx)
	if err != nil {
		return nil, err
	}
	return record.Months(), nil
}

// Reset clears the error flag and drops the token so that the next Get logs
// in with the (presumably corrected) credentials.
func (s *Scraper) Reset(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.storage.Read(ctx)
	if err != nil {
		return err
	}
	record.ClearFlag()
	record.Invalidate()
	return s.storage.Write(ctx, record)
}
