package sam

import (
	"context"
	"errors"
	"fmt"
	"samtimesheet/internal/components/chrono"
	"samtimesheet/internal/components/store"
	"samtimesheet/internal/components/telemetry"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_session_login   = "session.login"
	report_session_persist = "session.persist"
	report_session_notify  = "session.notify"
	report_session_logins  = "session.logins"
)

// DefaultTokenTTL is the sliding lifetime of a session token, every
// successful authenticated request moves the expiry forward by this much.
const DefaultTokenTTL = time.Hour

type State int

const (
	STATE_NO_TOKEN State = iota
	STATE_VALID
	STATE_EXPIRED
	// STATE_ERROR_LOCKED is left only by clearing the flag by hand.
	STATE_ERROR_LOCKED
)

func (s State) String() string {
	switch s {
	case STATE_NO_TOKEN:
		return "no token"
	case STATE_VALID:
		return "valid"
	case STATE_EXPIRED:
		return "expired"
	case STATE_ERROR_LOCKED:
		return "error locked"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Notifier is told when the portal rejects the configured credentials, it
// only happens once per flag since every later call is refused up front.
type Notifier interface {
	CredentialsRejected(ctx context.Context, username string) error
}

// Session decides when to log in and keeps the session fields of the record
// up to date. The record is passed in by the caller, who owns it for the
// duration of the call.
type Session struct {
	client   *client
	storage  store.Storage
	time     chrono.TimeAPI
	tel      telemetry.API
	notifier Notifier

	username string
	password string
	ttl      time.Duration

	logins int64
}

// State derives the session state of a record at the current time.
func (s *Session) State(record *store.Record) State {
	switch {
	case record.Flagged():
		return STATE_ERROR_LOCKED
	case record.Token() == "":
		return STATE_NO_TOKEN
	case record.Expired(s.time.Now()):
		return STATE_EXPIRED
	}
	return STATE_VALID
}

// Login performs the pre-auth request followed by the credential post and
// persists the new token. On rejected credentials the record is flagged and
// persisted before ErrCredentialsRejected is returned.
func (s *Session) Login(ctx context.Context, record *store.Record) error {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	if record.Flagged() {
		return ErrAlreadyFlagged
	}

	preauth, err := s.client.session(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	token, err := s.client.login(ctx, preauth, s.username, s.password)
	if errors.Is(err, ErrCredentialsRejected) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_session_login, err)
		s.reject(ctx, record)
		return err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	record.Authenticate(token, s.time.Now(), s.ttl)
	err = s.storage.Write(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_session_persist, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("persist session: %w", err)
	}

	s.logins++
	s.tel.ReportCount(report_session_logins, s.logins)
	span.SetAttributes(attribute.String("created", record.Created()))
	return nil
}

// reject flags the record so that no further login is attempted with the
// same credentials.
func (s *Session) reject(ctx context.Context, record *store.Record) {
	record.Flag()
	record.Invalidate()
	err := s.storage.Write(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_session_persist, fmt.Errorf("persist error flag: %w", err))
	}

	if s.notifier == nil {
		return
	}
	err = s.notifier.CredentialsRejected(ctx, s.username)
	if err != nil {
		s.tel.ReportWarning(report_session_notify, err)
	}
}

// Refresh slides the expiry forward after a successful authenticated
// request.
func (s *Session) Refresh(ctx context.Context, record *store.Record) error {
	record.Refresh(s.time.Now(), s.ttl)
	err := s.storage.Write(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_session_persist, err)
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
