// Package server provides the HTTP glue around the wizard core: routing,
// session cookies, step rendering, and the event stream. The wizard logic
// itself lives in pkg/wizard
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	app "github.com/stepwise/formwizard"
	"github.com/stepwise/formwizard/internal/events"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/util"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// Server hosts registered wizards over HTTP. State rides either the shared
// store or, when a cookie codec is configured, signed per-wizard cookies
type Server struct {
	wizards map[string]*wizard.Wizard
	store   storage.Store
	codec   *storage.CookieCodec
	hub     *events.Hub
	sockets util.Set[*Client]
	mu      sync.Mutex
}

const sessionCookie = "wizard_session"

var (
	ErrWizardExists   = errors.New("wizard already registered")
	ErrWizardNotFound = errors.New("wizard not found")
	ErrLoadSession    = errors.New("failed to load session")
	ErrNoEventHub     = errors.New("event stream not configured")
)

// NewServer creates a server persisting sessions through store. A non-nil
// codec switches persistence to signed cookies instead
func NewServer(
	store storage.Store, codec *storage.CookieCodec, hub *events.Hub,
) *Server {
	return &Server{
		wizards: map[string]*wizard.Wizard{},
		store:   store,
		codec:   codec,
		hub:     hub,
		sockets: util.Set[*Client]{},
	}
}

// Register adds a wizard to the server under its declared name
func (s *Server) Register(w *wizard.Wizard) error {
	if _, ok := s.wizards[w.Name]; ok {
		return fmt.Errorf("%w: %s", ErrWizardExists, w.Name)
	}
	s.wizards[w.Name] = w
	return nil
}

// SetupRoutes configures and returns the HTTP router with all endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))
	router.SetHTMLTemplate(stepTemplates())

	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWebSocket)
	router.GET("/progress/:name", s.handleProgress)

	wiz := router.Group("/wizard")
	{
		wiz.GET("/:name", s.handleEntry)
		wiz.GET("/:name/:step", s.handleGetStep)
		wiz.POST("/:name/:step", s.handlePostStep)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: app.Name,
		Status:  "ok",
		Wizards: len(s.wizards),
	})
}

// session resolves the wizard and its loaded session for this request,
// minting the session cookie on first contact
func (s *Server) session(
	c *gin.Context, name string,
) (*wizard.Wizard, *wizard.Session, bool) {
	w, ok := s.wizards[name]
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrWizardNotFound, name),
			Status: http.StatusNotFound,
		})
		return nil, nil, false
	}

	sess := wizard.NewSession(w, s.sessionStore(c), s.sessionKey(c, name))
	if err := sess.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrLoadSession, err),
			Status: http.StatusInternalServerError,
		})
		return nil, nil, false
	}
	return w, sess, true
}

func (s *Server) sessionStore(c *gin.Context) storage.Store {
	if s.codec != nil {
		return newCookieStore(c, s.codec)
	}
	return s.store
}

func (s *Server) sessionKey(c *gin.Context, name string) string {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		id = uuid.NewString()
		c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	}
	return name + ":" + id
}

func (s *Server) publish(typ events.Type, sess *wizard.Session, step api.Name) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(&events.Event{
		Type:    typ,
		Wizard:  wizardName(sess.Key()),
		Session: sess.Key(),
		Step:    step,
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
