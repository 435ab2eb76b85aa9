package sam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"samtimesheet/internal/components/chrono"
	"samtimesheet/internal/components/store"
	"samtimesheet/internal/components/telemetry"
)

const (
	testUsername = "12345678"
	testPassword = "hunter2"
	preauthValue = "PD-H-SESSION-ID=preauth"
)

// fakePortal imitates the three endpoints the scraper talks to and counts
// every request it receives.
type fakePortal struct {
	t      testing.TB
	server *httptest.Server

	mutex    sync.Mutex
	requests []*http.Request
	logins   int

	// rejectLogin makes the login form render again instead of redirecting.
	rejectLogin bool
	// omitCookie leaves out the pre-auth Set-Cookie header.
	omitCookie bool
	// timesheet answers authenticated timesheet requests, it defaults to
	// serving testdata/timesheet.html.
	timesheet func(w http.ResponseWriter, r *http.Request, n int)
}

// newFakePortal starts the portal, configure runs before the server accepts
// any request.
func newFakePortal(t testing.TB, configure ...func(p *fakePortal)) *fakePortal {
	p := &fakePortal{t: t}
	for _, c := range configure {
		c(p)
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	p.requests = append(p.requests, r.Clone(context.Background()))
	p.mutex.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == timesheetPath && r.Header.Get("Cookie") == "":
		if !p.omitCookie {
			w.Header().Add("Set-Cookie", preauthValue+"; Path=/; Secure; HttpOnly")
			w.Header().Add("Set-Cookie", "other=ignored; Path=/")
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><form action=\"/pkmslogin.form\"></form></body></html>")

	case r.Method == http.MethodPost && r.URL.Path == loginPath:
		err := r.ParseForm()
		if err != nil {
			p.t.Error(err)
		}
		if r.Header.Get("Cookie") != preauthValue {
			p.t.Errorf("login did not carry the pre-auth cookie: %q", r.Header.Get("Cookie"))
		}
		if r.PostForm.Get("username") != testUsername ||
			r.PostForm.Get("password") != testPassword ||
			r.PostForm.Get("login-form-type") != "pwd" {
			p.t.Errorf("unexpected login form: %v", r.PostForm)
		}

		p.mutex.Lock()
		reject := p.rejectLogin
		p.mutex.Unlock()
		if reject {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>Ongeldige gebruikersnaam of wachtwoord</body></html>")
			return
		}

		p.mutex.Lock()
		p.logins++
		token := fmt.Sprintf("PD-ID=token-%d", p.logins)
		p.mutex.Unlock()

		w.Header().Add("Set-Cookie", token+"; Path=/; Secure")
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusFound)

	case r.Method == http.MethodGet && r.URL.Path == timesheetPath:
		n := p.count(timesheetPath, true)
		if p.timesheet != nil {
			p.timesheet(w, r, n)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, timesheetHtml)

	default:
		p.t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		w.WriteHeader(http.StatusNotFound)
	}
}

// count returns the number of requests to path, optionally only the ones
// carrying a cookie.
func (p *fakePortal) count(path string, authenticated bool) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	n := 0
	for _, r := range p.requests {
		if r.URL.Path != path {
			continue
		}
		if authenticated && r.Header.Get("Cookie") == "" {
			continue
		}
		n++
	}
	return n
}

func (p *fakePortal) setRejectLogin(reject bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.rejectLogin = reject
}

func (p *fakePortal) total() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.requests)
}

func (p *fakePortal) last() *http.Request {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.requests[len(p.requests)-1]
}

func (p *fakePortal) loginCount() int {
	return p.count(loginPath, false)
}

func (p *fakePortal) timesheetCount() int {
	return p.count(timesheetPath, true)
}

func serveLoginPayload(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"operation": "login"}`)
}

type fakeNotifier struct {
	mutex sync.Mutex
	calls []string
}

func (n *fakeNotifier) CredentialsRejected(ctx context.Context, username string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.calls = append(n.calls, username)
	return nil
}

type harness struct {
	scraper  *Scraper
	storage  store.Storage
	clock    *chrono.FixedTime
	tel      *telemetry.Recorder
	notifier *fakeNotifier
	portal   *fakePortal
}

func newHarness(t testing.TB, portal *fakePortal) harness {
	loc := amsterdam(t)
	storage := store.NewFileStorage(filepath.Join(t.TempDir(), "store.json"))
	clock := chrono.NewFixedTime(time.Date(2024, time.March, 20, 12, 0, 0, 0, loc))
	return newHarnessWith(t, portal, storage, clock)
}

func newHarnessWith(t testing.TB, portal *fakePortal, storage store.Storage, clock *chrono.FixedTime) harness {
	tel := &telemetry.Recorder{}
	notifier := &fakeNotifier{}
	scraper := NewScraper(storage, clock, tel, Options{
		BaseUrl:  portal.server.URL,
		Username: testUsername,
		Password: testPassword,
		Timeout:  2 * time.Second,
		Notifier: notifier,
	})
	return harness{
		scraper:  scraper,
		storage:  storage,
		clock:    clock,
		tel:      tel,
		notifier: notifier,
		portal:   portal,
	}
}

func march(loc *time.Location) time.Time {
	return time.Date(2024, time.March, 1, 0, 0, 0, 0, loc)
}

func cookieOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Cookie"))
}
