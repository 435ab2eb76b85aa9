package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Shift is a single scheduled work interval.
type Shift struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CachedMonth is the parsed timesheet of one month and when it was fetched.
type CachedMonth struct {
	Updated time.Time `json:"updated"`
	Parsed  []Shift   `json:"parsed"`
}

// MonthKey formats the cache key of t's month, ex. "3/2024".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d/%04d", int(t.Month()), t.Year())
}

// document is the on-disk shape of a Record.
type document struct {
	Token   string                 `json:"token,omitempty"`
	Expiry  int64                  `json:"expiry,omitempty"`
	Error   bool                   `json:"error,omitempty"`
	Created string                 `json:"created,omitempty"`
	Shifts  map[string]CachedMonth `json:"shifts"`
}

// Record is the whole persisted state: the portal session and the monthly cache.
//
// Fields are only reachable through methods so that session state changes
// always move token, expiry and created together.
type Record struct {
	token string
	// expiry is in unix milliseconds, 0 means already expired
	expiry  int64
	flagged bool
	created string
	shifts  map[string]CachedMonth
}

func NewRecord() *Record {
	return &Record{shifts: map[string]CachedMonth{}}
}

func (r *Record) Token() string {
	return r.token
}

func (r *Record) Expiry() time.Time {
	return time.UnixMilli(r.expiry)
}

// Expired reports whether the token must be treated as stale at now.
// A record without a token is always expired.
func (r *Record) Expired(now time.Time) bool {
	return r.token == "" || now.UnixMilli() > r.expiry
}

// Authenticate stores a freshly acquired token valid for ttl.
func (r *Record) Authenticate(token string, now time.Time, ttl time.Duration) {
	r.token = token
	r.created = now.Format(time.DateTime)
	r.Refresh(now, ttl)
}

// Refresh slides the expiry window of the current token forward.
func (r *Record) Refresh(now time.Time, ttl time.Duration) {
	r.expiry = now.Add(ttl).UnixMilli()
}

// Invalidate drops the token so the next retrieval logs in again.
func (r *Record) Invalidate() {
	r.token = ""
	r.expiry = 0
}

// Created is the time of the last successful login, it is only informative.
func (r *Record) Created() string {
	return r.created
}

// Flagged reports whether a login was rejected because of bad credentials.
func (r *Record) Flagged() bool {
	return r.flagged
}

func (r *Record) Flag() {
	r.flagged = true
}

func (r *Record) ClearFlag() {
	r.flagged = false
}

func (r *Record) Month(key string) (CachedMonth, bool) {
	month, ok := r.shifts[key]
	return month, ok
}

func (r *Record) PutMonth(key string, month CachedMonth) {
	if r.shifts == nil {
		r.shifts = map[string]CachedMonth{}
	}
	r.shifts[key] = month
}

// Months returns all cached month keys sorted chronologically.
func (r *Record) Months() []string {
	keys := make([]string, 0, len(r.shifts))
	for k := range r.shifts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return monthOrdinal(keys[i]) < monthOrdinal(keys[j])
	})
	return keys
}

func monthOrdinal(key string) int {
	var month, year int
	_, err := fmt.Sscanf(key, "%d/%d", &month, &year)
	if err != nil {
		return 0
	}
	return year*12 + month
}

func (r *Record) toDocument() document {
	shifts := r.shifts
	if shifts == nil {
		shifts = map[string]CachedMonth{}
	}
	return document{
		Token:   r.token,
		Expiry:  r.expiry,
		Error:   r.flagged,
		Created: r.created,
		Shifts:  shifts,
	}
}

func fromDocument(doc document) *Record {
	shifts := doc.Shifts
	if shifts == nil {
		shifts = map[string]CachedMonth{}
	}
	return &Record{
		token:   doc.Token,
		expiry:  doc.Expiry,
		flagged: doc.Error,
		created: doc.Created,
		shifts:  shifts,
	}
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toDocument())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var doc document
	err := json.Unmarshal(data, &doc)
	if err != nil {
		return err
	}
	*r = *fromDocument(doc)
	return nil
}
