// Package httpapi exposes the book operations over HTTP. It owns routing,
// bearer-token authentication and the mapping of typed errors onto
// responses; the book logic itself lives in services.BookService.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// BookService is the set of book operations the API serves.
type BookService interface {
	CreateBook(ctx context.Context, email string, in *dto.BookIn) error
	GetBooks(ctx context.Context, email string) ([]dto.Book, error)
	DeleteBooks(ctx context.Context, email string, ids []uuid.UUID) error
	UpdateBook(ctx context.Context, email string, id uuid.UUID, doc services.UpdateDocument) error
	AddBookBinaryData(ctx context.Context, email string, id uuid.UUID, r io.Reader) error
	GetBookBinaryData(ctx context.Context, email string, id uuid.UUID) (io.ReadCloser, error)
	GetBookCover(ctx context.Context, email string, id uuid.UUID) (io.ReadCloser, error)
	ChangeBookCover(ctx context.Context, email string, id uuid.UUID, r io.Reader) error
	DeleteBookCover(ctx context.Context, email string, id uuid.UUID) error
	GetUsedStorage(ctx context.Context, email string) (dto.StorageInfo, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	books        BookService
	jwtSecret    []byte
	maxCoverSize int64
	validator    *Validator
	router       *chi.Mux
	logger       logging.Logger
}

// NewServer creates a Server with all routes configured.
func NewServer(books BookService, jwtSecret []byte, maxCoverSize int64, l logging.Logger) *Server {
	s := &Server{
		books:        books,
		jwtSecret:    jwtSecret,
		maxCoverSize: maxCoverSize,
		validator:    NewValidator(),
		router:       chi.NewRouter(),
		logger:       l.With("module", "http_api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/books", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/", s.handleGetBooks)
		r.Post("/", s.handleCreateBook)
		r.Delete("/", s.handleDeleteBooks)
		r.Get("/usedStorage", s.handleGetUsedStorage)

		r.Put("/{id}", s.handleUpdateBook)
		r.Get("/{id}/bookData", s.handleGetBookData)
		r.Post("/{id}/bookData", s.handleAddBookData)
		r.Get("/{id}/cover", s.handleGetCover)
		r.Post("/{id}/cover", s.handleChangeCover)
		r.Delete("/{id}/cover", s.handleDeleteCover)
	})
}
