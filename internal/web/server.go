// Package web serves the server-rendered frontend. Every page relays to the
// JSON API through apiclient with the token kept in the access_token cookie.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"bajeti/internal/api"
	"bajeti/internal/apiclient"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/middleware/security"
	"bajeti/internal/middleware/trace"
	appweb "bajeti/web"
)

const (
	cookieName   = "access_token"
	cookieMaxAge = 86400
)

var pages = []string{"login", "register", "forgot_password", "dashboard", "profile"}

type Options struct {
	Addr          string
	API           *apiclient.Client
	Logger        *log.Logger
	SecureCookies bool
}

type Server struct {
	http.Server
	api       *apiclient.Client
	logger    *log.Logger
	templates map[string]*template.Template
	secure    bool

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every page. A template
// error is returned rather than served.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWeb)
	}
	tmpls, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}
	s := &Server{api: opts.API, logger: logger, templates: tmpls, secure: opts.SecureCookies}

	mux := http.NewServeMux()
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.render("login"))
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.render("register"))
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /forgot-password", s.render("forgot_password"))
	mux.HandleFunc("POST /forgot-password", s.handleForgotPassword)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.HandleFunc("GET /dashboard", s.session(s.handleDashboard))
	mux.HandleFunc("GET /profile", s.session(s.handleProfile))
	mux.HandleFunc("POST /profile", s.session(s.handleUpdateProfile))
	mux.HandleFunc("POST /expenses", s.session(s.handleCreateExpense))
	mux.HandleFunc("POST /expenses/{id}/delete", s.session(s.handleDeleteExpense))
	mux.HandleFunc("POST /transfers", s.session(s.handleCreateTransfer))
	mux.HandleFunc("POST /categories", s.session(s.handleCreateCategory))
	mux.HandleFunc("POST /budget", s.session(s.handleUpdateBudget))
	mux.HandleFunc("POST /dashboard/categories/{id}/edit", s.session(s.handleUpdateCategory))
	mux.HandleFunc("POST /dashboard/categories/{id}/delete", s.session(s.handleDeleteCategory))
	mux.HandleFunc("POST /dashboard/expenses/{id}/edit", s.session(s.handleUpdateExpense))
	mux.HandleFunc("POST /dashboard/transfers/{id}/undo", s.session(s.handleUndoTransfer))

	tracer := trace.NewMiddleware(security.NewDetector().ExtractClientIP, logger)
	var h http.Handler = mux
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(logger)(h)
	h = tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.PageHeadersConfig()).Middleware(h)

	s.Server = http.Server{Addr: opts.Addr, Handler: h}
	return s, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() { err = s.Server.Shutdown(ctx) })
	return err
}

var funcs = template.FuncMap{
	"money": func(n json.Number) string {
		return core.FormatAmount(api.Decimal(n))
	},
	"negative": func(n json.Number) bool {
		return api.Decimal(n).IsNegative()
	},
	"side": func(name *string) string {
		if name == nil {
			return "external"
		}
		return *name
	},
}

// parseTemplates builds one template set per page on top of layout.html.
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if out[page], err = clone.ParseFS(fsys, "templates/"+page+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
	}
	return out, nil
}

// pageData is what every template receives.
type pageData struct {
	Title  string
	Toast  string
	Kind   string
	User   *api.User
	Page   any
	Values map[string]string
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if data.Toast == "" {
		data.Toast = r.URL.Query().Get("toast")
		data.Kind = r.URL.Query().Get("kind")
	}
	if data.Title == "" {
		data.Title = strings.ReplaceAll(name, "_", " ")
	}
	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err.Error())
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) render(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, http.StatusOK, name, pageData{})
	}
}
