// client.go contains the raw requests made to the portal, it does not decide
// when to make them.

package sam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"samtimesheet/internal/components/telemetry"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_session   = "client.session"
	report_client_login     = "client.login"
	report_client_timesheet = "client.timesheet"
)

const (
	DefaultBaseUrl = "https://sam.ahold.com/"

	timesheetPath = "/wrkbrn_jct/etm/time/timesheet/etmTnsMonth.jsp"
	loginPath     = "/pkmslogin.form"

	// DefaultTimeout applies to every outbound request.
	DefaultTimeout = 5 * time.Second
)

type clientOptions struct {
	BaseUrl          string
	Timeout          time.Duration
	CloudflareBypass bool
	Dump             telemetry.MessageOutput
}

type client struct {
	http *resty.Client
	tel  telemetry.API
}

func newClient(opts clientOptions, tel telemetry.API) *client {
	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	// cookies are attached by hand, the portal session must never leak
	// between the pre-auth and authenticated requests
	httpClient.SetCookieJar(nil)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &client{
		http: httpClient,
		tel:  tel,
	}
}

// firstCookie returns the "name=value" part of the first Set-Cookie header.
func firstCookie(headers http.Header) (string, bool) {
	values := headers.Values("Set-Cookie")
	if len(values) == 0 {
		return "", false
	}
	cookie := strings.TrimSpace(strings.SplitN(values[0], ";", 2)[0])
	return cookie, cookie != ""
}

// session requests the timesheet page without credentials to obtain a pre-auth
// session cookie.
func (c *client) session(ctx context.Context) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(timesheetPath)
	if err != nil {
		c.tel.ReportBroken(report_client_session, fmt.Errorf("fetch: %w", err))
		return "", &TransportError{Op: "session", Err: err}
	}
	if res.StatusCode() >= 400 {
		c.tel.ReportBroken(report_client_session, res.Status())
		return "", &TransportError{Op: "session", Status: res.StatusCode()}
	}

	cookie, ok := firstCookie(res.Header())
	if !ok {
		c.tel.ReportBroken(report_client_session, "missing set-cookie")
		return "", &ProtocolError{Op: "session", Reason: "response did not set a session cookie"}
	}
	return cookie, nil
}

// login posts the credentials with the pre-auth cookie, only a redirect
// means the credentials were accepted.
func (c *client) login(ctx context.Context, preauth, username, password string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", preauth).
		SetFormData(map[string]string{
			"username":        username,
			"password":        password,
			"login-form-type": "pwd",
		}).
		Post(loginPath)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return "", &TransportError{Op: "login", Err: err}
	}

	switch res.StatusCode() {
	case http.StatusFound:
	case http.StatusOK:
		// the login page is rendered again when the credentials are wrong
		return "", ErrCredentialsRejected
	default:
		c.tel.ReportBroken(report_client_login, res.Status())
		return "", &TransportError{Op: "login", Status: res.StatusCode()}
	}

	token, ok := firstCookie(res.Header())
	if !ok {
		c.tel.ReportBroken(report_client_login, "missing set-cookie")
		return "", &ProtocolError{Op: "login", Reason: "redirect did not set a session cookie"}
	}
	return token, nil
}

type timesheetResponse struct {
	html string
	// loginRequired is set when the portal dropped the session on its side.
	loginRequired bool
}

// timesheet requests the calendar of a month, `when` is a month key.
func (c *client) timesheet(ctx context.Context, token, when string) (timesheetResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", token).
		Get(timesheetPath + "?NEW_MONTH_YEAR=" + when)
	if err != nil {
		c.tel.ReportBroken(report_client_timesheet, fmt.Errorf("fetch: %w", err), when)
		return timesheetResponse{}, &TransportError{Op: "timesheet", Err: err}
	}
	if !res.IsSuccess() {
		c.tel.ReportBroken(report_client_timesheet, res.Status(), when)
		return timesheetResponse{}, &TransportError{Op: "timesheet", Status: res.StatusCode()}
	}

	out, err := classifyTimesheet(res.Header().Get("Content-Type"), res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_timesheet, err, when)
		return timesheetResponse{}, err
	}
	return out, nil
}

// classifyTimesheet tells an HTML page apart from the structured payload the
// portal answers with once it has invalidated a session.
func classifyTimesheet(contentType string, body []byte) (timesheetResponse, error) {
	trimmed := bytes.TrimSpace(body)
	isJson := strings.Contains(contentType, "json")
	if !isJson && !bytes.HasPrefix(trimmed, []byte("{")) {
		return timesheetResponse{html: string(body)}, nil
	}

	var payload struct {
		Operation string `json:"operation"`
	}
	err := json.Unmarshal(trimmed, &payload)
	if err != nil {
		if !isJson {
			return timesheetResponse{html: string(body)}, nil
		}
		return timesheetResponse{}, &ProtocolError{
			Op:     "timesheet",
			Reason: fmt.Sprintf("unreadable structured payload: %v", err),
		}
	}
	if payload.Operation == "login" {
		return timesheetResponse{loginRequired: true}, nil
	}
	return timesheetResponse{}, &ProtocolError{
		Op:     "timesheet",
		Reason: fmt.Sprintf("unrecognized payload (operation %q)", payload.Operation),
	}
}
