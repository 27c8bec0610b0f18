package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleGetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.GetBooks(r.Context(), emailFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in dto.BookIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, common.ErrInvalidParameter.WithMessage("malformed book").WithCause(err))
		return
	}
	if err := s.validator.Validate(&in); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.books.CreateBook(r.Context(), emailFromContext(r.Context()), &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteBooks(w http.ResponseWriter, r *http.Request) {
	var ids []uuid.UUID
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		s.writeError(w, r, common.ErrInvalidParameter.WithMessage("expected a list of book ids").WithCause(err))
		return
	}

	if err := s.books.DeleteBooks(r.Context(), emailFromContext(r.Context()), ids); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	var doc services.UpdateDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, r, common.ErrInvalidParameter.WithMessage("malformed update document").WithCause(err))
		return
	}

	if err := s.books.UpdateBook(r.Context(), emailFromContext(r.Context()), id, doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBookData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	body, err := uploadBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.books.AddBookBinaryData(r.Context(), emailFromContext(r.Context()), id, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetBookData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	rc, err := s.books.GetBookBinaryData(r.Context(), emailFromContext(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, rc)
}

func (s *Server) handleGetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	rc, err := s.books.GetBookCover(r.Context(), emailFromContext(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, rc)
}

func (s *Server) handleChangeCover(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxCoverSize)
	body, err := uploadBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.books.ChangeBookCover(r.Context(), emailFromContext(r.Context()), id, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteCover(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	if err := s.books.DeleteBookCover(r.Context(), emailFromContext(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetUsedStorage(w http.ResponseWriter, r *http.Request) {
	info, err := s.books.GetUsedStorage(r.Context(), emailFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// bookID parses the {id} path parameter, answering 400 when it is not a UUID.
func (s *Server) bookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, common.ErrInvalidParameter.WithMessage("book id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, rc io.ReadCloser) {
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// headers are out; all that is left is to record it
		s.logger.Warn(r.Context(), "download interrupted", "path", r.URL.Path, "error", err)
	}
}

// uploadBody returns the payload of an upload request without buffering
// it: the first file part of a multipart form, or the raw body otherwise.
func uploadBody(r *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, common.ErrInvalidParameter.WithMessage("malformed multipart body").WithCause(err)
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, common.ErrInvalidParameter.WithMessage("multipart body has no file")
			}
			return nil, common.ErrInvalidParameter.WithMessage("malformed multipart body").WithCause(err)
		}
		if part.FileName() != "" {
			return part, nil
		}
		drain(part)
	}
}

func drain(p *multipart.Part) {
	_, _ = io.Copy(io.Discard, p)
	_ = p.Close()
}
