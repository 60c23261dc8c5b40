package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/internal/assert/helpers"
	"github.com/stepwise/formwizard/internal/events"
	"github.com/stepwise/formwizard/internal/server"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
)

// client drives the router while carrying cookies between requests, the
// way a browser session would
type client struct {
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newTestServer(
	t *testing.T, codec *storage.CookieCodec,
) (*server.Server, *client, *helpers.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := helpers.NewRecorder()
	w, err := helpers.NewTestWizard(rec)
	assert.NoError(t, err)

	s := server.NewServer(storage.NewMemoryStore(), codec, events.NewHub())
	assert.NoError(t, s.Register(w))

	return s, &client{
		router:  s.SetupRoutes(),
		cookies: map[string]*http.Cookie{},
	}, rec
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest("GET", path, nil))
}

func (c *client) getJSON(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) postForm(
	path string, form url.Values,
) *httptest.ResponseRecorder {
	req := httptest.NewRequest(
		"POST", path, strings.NewReader(form.Encode()),
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func decodeStep(
	t *testing.T, w *httptest.ResponseRecorder,
) *api.StepResponse {
	t.Helper()
	var res api.StepResponse
	body, err := io.ReadAll(w.Body)
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(body, &res))
	return &res
}

func formOf(raw api.RawValues) url.Values {
	return url.Values(raw)
}

func TestHealthEndpoint(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.get("/health")
	as.Equal(http.StatusOK, w.Code)

	var res api.HealthResponse
	as.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	as.Equal("ok", res.Status)
	as.Equal(1, res.Wizards)
}

func TestWebSocketWithoutEventHub(t *testing.T) {
	as := assert.New(t)
	gin.SetMode(gin.TestMode)

	s := server.NewServer(storage.NewMemoryStore(), nil, nil)
	w := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))

	as.Equal(http.StatusServiceUnavailable, w.Code)

	var res api.ErrorResponse
	as.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	as.Contains(res.Error, "event stream")
}

func TestUnknownWizard(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.get("/wizard/missing")
	as.Equal(http.StatusNotFound, w.Code)
}

func TestEntryRedirectsToFirstStep(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.get("/wizard/signup")
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
	as.Contains(c.cookies, "wizard_session")
}

func TestGetStepJSON(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.getJSON("/wizard/signup/account")
	as.Equal(http.StatusOK, w.Code)

	res := decodeStep(t, w)
	as.Equal("signup", res.Wizard)
	as.Equal(api.Name("account"), res.Step)
	as.Equal(api.Name("account"), res.First)
	as.Equal(api.Name("confirm"), res.Last)
	as.Equal(0, res.Index)
	as.Equal(1, res.Index1)
	as.Equal(2, res.Count)
}

func TestGetStepHTML(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.get("/wizard/signup/account")
	as.Equal(http.StatusOK, w.Code)
	as.Contains(w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	as.Contains(body, `name="username"`)
	as.Contains(body, `name="plan"`)
	as.Contains(body, "Step 1 of 2")
}

func TestGetInactiveStepRedirects(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	// The company step is inactive until a business plan is stored
	w := c.get("/wizard/signup/company")
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
}

func TestSubmitAdvances(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/company", w.Header().Get("Location"))

	// The submitted data now prefills the revisited step
	res := decodeStep(t, c.getJSON("/wizard/signup/account"))
	as.Equal("business", res.Data.Get("plan"))
	as.Equal(3, res.Count)
}

func TestSubmitRejected(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.postForm("/wizard/signup/account", url.Values{
		"username": {"ada"},
		"email":    {"nope"},
		"plan":     {"business"},
	})
	as.Equal(http.StatusUnprocessableEntity, w.Code)

	res := decodeStep(t, w)
	as.Equal(api.Name("account"), res.Step)
	as.Contains(res.Errors, "email")
}

func TestStaleStepURLRedirects(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	// Posting to a step the session is not on redirects instead of
	// validating the wrong schema
	w := c.postForm(
		"/wizard/signup/confirm", formOf(helpers.ConfirmData()),
	)
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
}

func TestPrevStepNavigation(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)

	w = c.postForm("/wizard/signup/company", url.Values{
		"wizard_prev_step": {"account"},
	})
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
}

func TestFullFlowCompletes(t *testing.T) {
	as := assert.New(t)
	_, c, rec := newTestServer(t, nil)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("personal")),
	)
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/confirm", w.Header().Get("Location"))

	w = c.postForm(
		"/wizard/signup/confirm", formOf(helpers.ConfirmData()),
	)
	as.Equal(http.StatusOK, w.Code)

	var res api.CompletedResponse
	as.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	as.Equal("signup", res.Wizard)
	as.Equal("ada", res.Data["username"])

	as.Len(rec.Completions(), 1)

	// The completed session starts over
	w = c.get("/wizard/signup")
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
}

func TestDoneStepGate(t *testing.T) {
	as := assert.New(t)
	_, c, rec := newTestServer(t, nil)

	// Visiting done before every step validates rewinds to the first
	// incomplete step
	w := c.getJSON("/wizard/signup/done")
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))
	as.Empty(rec.Completions())
}

func TestProgressEndpoint(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)

	w = c.getJSON("/progress/signup")
	as.Equal(http.StatusOK, w.Code)

	var res api.ProgressResponse
	as.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	as.Equal("signup", res.Wizard)
	as.Equal(api.Name("company"), res.Current)
	as.Equal(1, res.Index)
	as.Equal(3, res.Count)
	as.Equal(
		[]api.Name{"account", "company", "confirm"}, res.Steps,
	)
}

func TestEntryResetDiscardsProgress(t *testing.T) {
	as := assert.New(t)
	_, c, _ := newTestServer(t, nil)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)

	w = c.get("/wizard/signup?reset")
	as.Equal(http.StatusFound, w.Code)
	as.Equal("/wizard/signup/account", w.Header().Get("Location"))

	res := decodeStep(t, c.getJSON("/wizard/signup/account"))
	as.Empty(res.Data)
}

func TestCookieBackedSessions(t *testing.T) {
	as := assert.New(t)

	codec, err := storage.NewCookieCodec("s3cret")
	as.NoError(err)
	_, c, _ := newTestServer(t, codec)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)

	// State rides the signed cookie, not the server-side store
	found := false
	for name := range c.cookies {
		if strings.HasPrefix(name, "wizard_state_") {
			found = true
		}
	}
	as.True(found)

	res := decodeStep(t, c.getJSON("/wizard/signup/account"))
	as.Equal("business", res.Data.Get("plan"))
}

func TestCookieTamperingRejected(t *testing.T) {
	as := assert.New(t)

	codec, err := storage.NewCookieCodec("s3cret")
	as.NoError(err)
	_, c, _ := newTestServer(t, codec)

	w := c.postForm(
		"/wizard/signup/account", formOf(helpers.AccountData("business")),
	)
	as.Equal(http.StatusFound, w.Code)

	for name, cookie := range c.cookies {
		if strings.HasPrefix(name, "wizard_state_") {
			cookie.Value = "tampered" + cookie.Value
		}
	}

	w = c.getJSON("/wizard/signup/account")
	as.Equal(http.StatusInternalServerError, w.Code)
}
