// Package services contains the server-side business logic. BookService
// orchestrates the book lifecycle across the metadata store and the blob
// store.
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/blobstore"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/metadata"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
)

// BookService implements the book operations exposed to the HTTP layer.
// Users are identified by email, as carried in the bearer token.
type BookService struct {
	meta   metadata.Store
	blobs  blobstore.Store
	logger logging.Logger
	now    func() time.Time
}

func NewBookService(meta metadata.Store, blobs blobstore.Store, l logging.Logger) *BookService {
	return &BookService{
		meta:   meta,
		blobs:  blobs,
		logger: l.With("module", "book_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateBook registers the metadata of a new book. Content is attached
// later with AddBookBinaryData.
//
// The quota check is an admission check on what is already stored: it
// rejects any create once usage has reached the limit. Concurrent creates
// may both pass it.
func (s *BookService) CreateBook(ctx context.Context, email string, in *dto.BookIn) error {
	u, err := s.meta.GetUser(ctx, email, metadata.Tracked)
	if err != nil {
		return err
	}

	exists, err := s.meta.BookExists(ctx, u.ID, in.ID)
	if err != nil {
		return err
	}
	if exists {
		return common.ErrDuplicateBook.WithMessage(fmt.Sprintf("book %s already exists", in.ID))
	}

	used, err := s.meta.UsedStorage(ctx, u.ID)
	if err != nil {
		return err
	}
	if used >= u.StorageLimit {
		return common.ErrQuotaExceeded.WithMessage(
			fmt.Sprintf("storage limit reached: %d of %d bytes used", used, u.StorageLimit))
	}

	book := in.ToModel()
	if book.AddedToLibrary.IsZero() {
		book.AddedToLibrary = s.now()
	}
	u.AddBook(book)

	if err := ReconcileTags(book, in.Tags, u); err != nil {
		return err
	}

	if _, err := s.meta.Save(ctx, u); err != nil {
		return fmt.Errorf("save new book: %w", err)
	}

	s.logger.Info(ctx, "book created", "user", email, "book_id", book.ID)
	return nil
}

// GetBooks lists all books of the user with their tags.
func (s *BookService) GetBooks(ctx context.Context, email string) ([]dto.Book, error) {
	u, err := s.meta.GetUser(ctx, email, metadata.Untracked)
	if err != nil {
		return nil, err
	}

	out := make([]dto.Book, 0, len(u.Books))
	for _, b := range u.Books {
		out = append(out, dto.BookFromModel(b, u.TagsOf(b)))
	}
	return out, nil
}

// DeleteBooks deletes the given books. Nothing is deleted unless every id
// exists. For each book the record goes first, then its content and cover
// blobs on a best-effort basis.
func (s *BookService) DeleteBooks(ctx context.Context, email string, ids []uuid.UUID) error {
	u, err := s.meta.GetUser(ctx, email, metadata.Tracked)
	if err != nil {
		return err
	}

	var books []*models.Book
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		b := u.FindBook(id)
		if b == nil {
			return bookNotFound(id)
		}
		books = append(books, b)
	}

	for _, b := range books {
		if err := s.meta.DeleteBook(ctx, u, b.ID); err != nil {
			return fmt.Errorf("delete book %s: %w", b.ID, err)
		}

		s.removeBlob(ctx, blobstore.Books, b)
		if b.HasCover {
			s.removeBlob(ctx, blobstore.Covers, b)
		}
		s.logger.Info(ctx, "book deleted", "user", email, "book_id", b.ID)
	}

	return nil
}

// UpdateBook applies a sparse update document to the book.
func (s *BookService) UpdateBook(ctx context.Context, email string, id uuid.UUID, doc UpdateDocument) error {
	u, book, err := s.loadBook(ctx, email, id, metadata.Tracked)
	if err != nil {
		return err
	}

	if err := ApplyUpdate(book, doc, u); err != nil {
		return err
	}

	if _, err := s.meta.Save(ctx, u); err != nil {
		return fmt.Errorf("save book: %w", err)
	}
	return nil
}

// AddBookBinaryData streams the book content into the blob store and
// records its size. If the upload fails the book record is deleted so no
// record points at missing content.
func (s *BookService) AddBookBinaryData(ctx context.Context, email string, id uuid.UUID, r io.Reader) error {
	u, book, err := s.loadBook(ctx, email, id, metadata.Tracked)
	if err != nil {
		return err
	}

	n, err := s.blobs.Upload(ctx, blobstore.Books, id, r)
	if err != nil {
		return s.compensate(ctx, OpAttachContent, u, book, err)
	}

	book.FileSize = n
	if _, err := s.meta.Save(ctx, u); err != nil {
		return fmt.Errorf("save book size: %w", err)
	}

	s.logger.Info(ctx, "book content stored", "user", email, "book_id", id, "bytes", n)
	return nil
}

// GetBookBinaryData opens the stored book content. The caller closes it.
func (s *BookService) GetBookBinaryData(ctx context.Context, email string, id uuid.UUID) (io.ReadCloser, error) {
	return s.download(ctx, email, id, blobstore.Books)
}

// GetBookCover opens the stored cover image. The caller closes it.
func (s *BookService) GetBookCover(ctx context.Context, email string, id uuid.UUID) (io.ReadCloser, error) {
	return s.download(ctx, email, id, blobstore.Covers)
}

// ChangeBookCover stores a new cover image. On upload failure the book's
// metadata is left as it was.
func (s *BookService) ChangeBookCover(ctx context.Context, email string, id uuid.UUID, r io.Reader) error {
	u, book, err := s.loadBook(ctx, email, id, metadata.Tracked)
	if err != nil {
		return err
	}

	n, err := s.blobs.Upload(ctx, blobstore.Covers, id, r)
	if err != nil {
		return s.compensate(ctx, OpChangeCover, u, book, err)
	}

	book.CoverSize = n
	book.HasCover = true
	book.CoverLastModified = s.now()
	if _, err := s.meta.Save(ctx, u); err != nil {
		return fmt.Errorf("save cover metadata: %w", err)
	}
	return nil
}

// DeleteBookCover clears the cover flag and size, then removes the cover
// blob. The metadata change is committed first so a failed blob delete
// leaves an orphan blob rather than a flag pointing at nothing.
func (s *BookService) DeleteBookCover(ctx context.Context, email string, id uuid.UUID) error {
	u, book, err := s.loadBook(ctx, email, id, metadata.Tracked)
	if err != nil {
		return err
	}

	book.HasCover = false
	book.CoverSize = 0
	book.CoverLastModified = s.now()
	if _, err := s.meta.Save(ctx, u); err != nil {
		return fmt.Errorf("save cover metadata: %w", err)
	}

	s.removeBlob(ctx, blobstore.Covers, book)
	return nil
}

// GetUsedStorage reports how much of the quota the user's stored content
// and covers take.
func (s *BookService) GetUsedStorage(ctx context.Context, email string) (dto.StorageInfo, error) {
	u, err := s.meta.GetUser(ctx, email, metadata.Untracked)
	if err != nil {
		return dto.StorageInfo{}, err
	}

	used, err := s.meta.UsedStorage(ctx, u.ID)
	if err != nil {
		return dto.StorageInfo{}, err
	}
	return dto.StorageInfo{Used: used, Limit: u.StorageLimit}, nil
}

func (s *BookService) download(ctx context.Context, email string, id uuid.UUID, ns blobstore.Namespace) (io.ReadCloser, error) {
	if _, _, err := s.loadBook(ctx, email, id, metadata.Untracked); err != nil {
		return nil, err
	}
	return s.blobs.Download(ctx, ns, id)
}

func (s *BookService) loadBook(ctx context.Context, email string, id uuid.UUID, mode metadata.ReadMode) (*models.User, *models.Book, error) {
	u, err := s.meta.GetUser(ctx, email, mode)
	if err != nil {
		return nil, nil, err
	}
	b := u.FindBook(id)
	if b == nil {
		return nil, nil, bookNotFound(id)
	}
	return u, b, nil
}

func bookNotFound(id uuid.UUID) error {
	return common.ErrBookNotFound.WithMessage(fmt.Sprintf("no book with id %s exists", id))
}
