package main

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkhatri/portfolio/internal/config"
	"github.com/dkhatri/portfolio/internal/content"
	"github.com/dkhatri/portfolio/internal/logging"
	"github.com/dkhatri/portfolio/internal/sections"
	"github.com/dkhatri/portfolio/internal/session"
	"github.com/dkhatri/portfolio/internal/store"
	"github.com/dkhatri/portfolio/internal/theme"
	"github.com/dkhatri/portfolio/internal/typewriter"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const visitorCookie = "visitor_id"

type server struct {
	cfg      *config.Config
	logger   *zap.Logger
	content  *content.Portfolio
	store    *store.Store
	prefs    *theme.Preferences
	anim     *typewriter.Animator
	sessions *session.Manager
	mailer   mailer
	admin    *adminAuth

	// in-flight visit writes
	tracking sync.WaitGroup
}

func newServer(cfg *config.Config, logger *zap.Logger, p *content.Portfolio, st *store.Store, opts ...session.Option) *server {
	anim := typewriter.New(p.Phrases)
	return &server{
		cfg:      cfg,
		logger:   logger,
		content:  p,
		store:    st,
		prefs:    theme.NewPreferences(st),
		anim:     anim,
		sessions: session.NewManager(anim, logger, opts...),
		mailer:   &smtpMailer{cfg: cfg.SMTP, logger: logger},
		admin:    newAdminAuth(cfg, logger),
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(logging.GinLogger(s.logger), logging.GinRecovery(s.logger))
	r.Use(s.visitorMiddleware(), s.visitorTrackingMiddleware())

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"navLabel": content.NavLabel,
		"join":     strings.Join,
	}).ParseFS(templateFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))
	r.Static("/images", "./images")

	r.GET("/", s.handleIndex)

	// HTMX contact form, returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})
	r.POST("/contact", s.handleContact)

	r.GET("/theme", s.handleTheme)
	r.POST("/theme/toggle", s.handleThemeToggle)

	api := r.Group("/api")
	api.GET("/session/stream", s.handleStream)
	api.POST("/session/:id/scroll", s.handleScroll)
	api.POST("/session/:id/scroll-to/:section", s.handleScrollTo)
	api.POST("/sections/resolve", s.handleResolve)

	s.setupAdminRoutes(r)
	return r
}

// visitorMiddleware gives every browser a stable anonymous id, used as the
// owner of its theme preference.
func (s *server) visitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(visitorCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(visitorCookie, id, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
		}
		c.Set(visitorCookie, id)
		c.Next()
	}
}

func visitorID(c *gin.Context) string {
	return c.GetString(visitorCookie)
}

func (s *server) loadTheme(c *gin.Context) theme.Theme {
	th, err := s.prefs.Load(c.Request.Context(), visitorID(c))
	if err != nil {
		s.logger.Warn("falling back to default theme", zap.Error(err))
	}
	return th
}

func (s *server) handleIndex(c *gin.Context) {
	th := s.loadTheme(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"content":    s.content,
		"nav":        s.content.Sections,
		"active":     s.content.Sections[0],
		"theme":      string(th),
		"variant":    string(theme.VariantFor(th, s.cfg.Variant)),
		"typewriter": s.anim.Initial().Display(),
	})
}

func (s *server) handleTheme(c *gin.Context) {
	th := s.loadTheme(c)
	c.JSON(http.StatusOK, gin.H{
		"theme":   th,
		"variant": theme.VariantFor(th, s.cfg.Variant),
	})
}

func (s *server) handleThemeToggle(c *gin.Context) {
	th, err := s.prefs.Toggle(c.Request.Context(), visitorID(c))
	if err != nil {
		s.logger.Error("toggle theme", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save theme"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"theme":   th,
		"variant": theme.VariantFor(th, s.cfg.Variant),
	})
}

// handleStream mounts a session for the connected page and streams its
// events until the client goes away.
func (s *server) handleStream(c *gin.Context) {
	sess, err := s.sessions.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer s.sessions.Close(sess.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("session", gin.H{"id": sess.ID})
	c.SSEvent(session.KindTypewriter, sess.Frame())
	c.Writer.Flush()

	keepalive := time.NewTicker(session.Keepalive)
	defer keepalive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sess.Events():
			if !ok {
				return
			}
			c.SSEvent(e.Kind, e.Data)
			c.Writer.Flush()
		case <-keepalive.C:
			c.SSEvent("ping", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

type scrollRequest struct {
	ScrollY  float64           `json:"scrollY"`
	Sections []sections.Section `json:"sections"`
}

func (s *server) lookupSession(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (s *server) handleScroll(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": sess.Scroll(req.ScrollY, req.Sections)})
}

func (s *server) handleScrollTo(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}
	top, found := sess.ScrollTo(c.Param("section"))
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"top": top})
}

type resolveRequest struct {
	Active   string            `json:"active"`
	ScrollY  float64           `json:"scrollY"`
	Sections []sections.Section `json:"sections" binding:"required"`
}

// handleResolve is the stateless form of the tracker for pages that keep
// the active id themselves.
func (s *server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": sections.Resolve(req.Active, req.ScrollY, req.Sections),
		"probe":  sections.Probe(req.ScrollY),
	})
}
