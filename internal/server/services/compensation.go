package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/blobstore"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
)

// Operation names a book operation that writes to both stores.
type Operation string

const (
	OpAttachContent Operation = "attach_content"
	OpChangeCover   Operation = "change_cover"
)

// cleanupTimeout bounds compensations and best-effort blob cleanup.
const cleanupTimeout = 30 * time.Second

// detached keeps ctx values but drops its cancellation. Compensation and
// cleanup run after the request failed, often because the client went away.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// Compensation undoes the metadata phase of an operation whose blob phase
// failed. It runs in the same request, before the error is returned.
type Compensation func(ctx context.Context, s *BookService, u *models.User, book *models.Book) error

// compensations is the per-operation table. An operation mapped to nil has
// nothing to undo: its metadata is only written after the blob is stored.
var compensations = map[Operation]Compensation{
	OpAttachContent: dropBookRecord,
	OpChangeCover:   nil,
}

// dropBookRecord deletes a book whose content never made it to the blob
// store, then removes whatever part of the content did.
func dropBookRecord(ctx context.Context, s *BookService, u *models.User, book *models.Book) error {
	if err := s.meta.DeleteBook(ctx, u, book.ID); err != nil {
		return fmt.Errorf("delete book record: %w", err)
	}
	s.removeBlob(ctx, blobstore.Books, book)
	return nil
}

// compensate runs the compensation registered for op and returns the
// UploadFailure reported to the caller. A failing compensation is logged
// and joined to the cause.
func (s *BookService) compensate(ctx context.Context, op Operation, u *models.User, book *models.Book, cause error) error {
	s.logger.Warn(ctx, "blob upload failed", "op", op, "book_id", book.ID, "error", cause)

	if c := compensations[op]; c != nil {
		cctx, cancel := detached(ctx)
		defer cancel()

		if err := c(cctx, s, u, book); err != nil {
			s.logger.Error(ctx, "compensation failed", "op", op, "book_id", book.ID, "error", err)
			cause = errors.Join(cause, err)
		}
	}

	return common.ErrUploadFailure.
		WithMessage(fmt.Sprintf("upload of book %s failed", book.ID)).
		WithCause(cause)
}

// removeBlob is the best-effort blob cleanup that follows a committed
// metadata change. Failures leave an orphan blob and are only logged.
func (s *BookService) removeBlob(ctx context.Context, ns blobstore.Namespace, book *models.Book) {
	cctx, cancel := detached(ctx)
	defer cancel()

	if err := s.blobs.Delete(cctx, ns, book.ID); err != nil {
		s.logger.Warn(ctx, "blob cleanup failed", "namespace", ns, "book_id", book.ID, "error", err)
	}
}
