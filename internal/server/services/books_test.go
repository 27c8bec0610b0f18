package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/blobstore"
	"github.com/dmitrijs2005/bookshelf/internal/server/dto"
	"github.com/dmitrijs2005/bookshelf/internal/server/metadata"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const email = "u@example.com"

// flakyBlobs wraps the in-memory store with injectable failures.
type flakyBlobs struct {
	*blobstore.MemoryStore
	uploadErr error
	deleteErr error
	deletes   []string
}

func (f *flakyBlobs) Upload(ctx context.Context, ns blobstore.Namespace, id uuid.UUID, r io.Reader) (int64, error) {
	if f.uploadErr != nil {
		// consume a little, as a real backend would before failing
		n, _ := io.CopyN(io.Discard, r, 16)
		return n, f.uploadErr
	}
	return f.MemoryStore.Upload(ctx, ns, id, r)
}

func (f *flakyBlobs) Delete(ctx context.Context, ns blobstore.Namespace, id uuid.UUID) error {
	f.deletes = append(f.deletes, blobstore.Key(ns, id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, ns, id)
}

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg})
}

func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { r.add("debug", msg) }
func (r *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { r.add("info", msg) }
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { r.add("warn", msg) }
func (r *recordingLogger) Error(_ context.Context, msg string, _ ...any) { r.add("error", msg) }
func (r *recordingLogger) With(...any) logging.Logger                    { return r }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type fixture struct {
	svc   *BookService
	meta  *metadata.MemoryStore
	blobs *flakyBlobs
	log   *recordingLogger
}

func newFixture(t *testing.T, quota int64) *fixture {
	t.Helper()
	meta := metadata.NewMemoryStore()
	meta.AddUser(&models.User{ID: "u-1", Email: email, StorageLimit: quota})
	blobs := &flakyBlobs{MemoryStore: blobstore.NewMemoryStore()}
	log := &recordingLogger{}
	return &fixture{
		svc:   NewBookService(meta, blobs, log),
		meta:  meta,
		blobs: blobs,
		log:   log,
	}
}

func (f *fixture) create(t *testing.T, id uuid.UUID, tags ...dto.TagIn) {
	t.Helper()
	require.NoError(t, f.svc.CreateBook(context.Background(), email, &dto.BookIn{ID: id, Title: "Book " + id.String()[:8], Tags: tags}))
}

func (f *fixture) book(t *testing.T, id uuid.UUID) (*models.User, *models.Book) {
	t.Helper()
	u, err := f.meta.GetUser(context.Background(), email, metadata.Untracked)
	require.NoError(t, err)
	return u, u.FindBook(id)
}

func TestCreateBook(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	tagID := uuid.New()

	f.create(t, id, dto.TagIn{ID: tagID, Name: "scifi"})

	u, b := f.book(t, id)
	require.NotNil(t, b)
	assert.False(t, b.AddedToLibrary.IsZero())
	assert.Equal(t, []uuid.UUID{tagID}, b.TagIDs)
	assert.Equal(t, "scifi", u.FindTag(tagID).Name)
	assert.False(t, f.blobs.Has(blobstore.Books, id), "create does not upload")
}

func TestCreateBook_UnknownUser(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.svc.CreateBook(context.Background(), "ghost@example.com", &dto.BookIn{ID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreateBook_Duplicate(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)

	err := f.svc.CreateBook(context.Background(), email, &dto.BookIn{ID: id, Title: "again"})
	require.ErrorIs(t, err, common.ErrDuplicateBook)

	var e *common.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 409, e.Status)
}

func TestCreateBook_QuotaExceeded(t *testing.T) {
	tests := []struct {
		name  string
		quota int64
		used  int
	}{
		{name: "at quota", quota: 10, used: 10},
		{name: "over quota", quota: 10, used: 25},
		{name: "zero quota", quota: 0, used: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.quota)
			ctx := context.Background()

			if tt.used > 0 {
				// bypass the admission check to put usage where the case needs it
				u, _ := f.meta.GetUser(ctx, email, metadata.Tracked)
				u.AddBook(&models.Book{ID: uuid.New(), FileSize: int64(tt.used)})
				_, err := f.meta.Save(ctx, u)
				require.NoError(t, err)
			}

			id := uuid.New()
			err := f.svc.CreateBook(ctx, email, &dto.BookIn{ID: id, Title: "x"})
			require.ErrorIs(t, err, common.ErrQuotaExceeded)

			var e *common.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, 426, e.Status)

			exists, _ := f.meta.BookExists(ctx, "u-1", id)
			assert.False(t, exists, "no record is persisted")
		})
	}
}

func TestCreateBook_DuplicateTagNameNotPersisted(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()

	err := f.svc.CreateBook(context.Background(), email, &dto.BookIn{ID: id, Title: "x", Tags: []dto.TagIn{
		{ID: uuid.New(), Name: "same"},
		{ID: uuid.New(), Name: "same"},
	}})
	require.ErrorIs(t, err, common.ErrDuplicateName)

	u, b := f.book(t, id)
	assert.Nil(t, b)
	assert.Empty(t, u.Tags)
}

func TestGetBooks(t *testing.T) {
	f := newFixture(t, 1000)
	shared := dto.TagIn{ID: uuid.New(), Name: "shared"}
	id1, id2 := uuid.New(), uuid.New()
	f.create(t, id1, shared)
	f.create(t, id2, shared)

	books, err := f.svc.GetBooks(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, b := range books {
		assert.Equal(t, []dto.Tag{{ID: shared.ID, Name: "shared"}}, b.Tags)
	}
}

func TestGetBooks_Empty(t *testing.T) {
	f := newFixture(t, 1000)

	books, err := f.svc.GetBooks(context.Background(), email)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestDeleteBooks(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)
	require.NoError(t, f.svc.AddBookBinaryData(ctx, email, id, strings.NewReader("content")))
	require.NoError(t, f.svc.ChangeBookCover(ctx, email, id, strings.NewReader("cover")))

	require.NoError(t, f.svc.DeleteBooks(ctx, email, []uuid.UUID{id}))

	_, b := f.book(t, id)
	assert.Nil(t, b)
	assert.False(t, f.blobs.Has(blobstore.Books, id))
	assert.False(t, f.blobs.Has(blobstore.Covers, id))
	assert.Equal(t, []string{blobstore.Key(blobstore.Books, id), blobstore.Key(blobstore.Covers, id)}, f.blobs.deletes)
}

func TestDeleteBooks_ToleratesAbsentBlobs(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)

	require.NoError(t, f.svc.DeleteBooks(context.Background(), email, []uuid.UUID{id}))
	_, b := f.book(t, id)
	assert.Nil(t, b)
	assert.Len(t, f.blobs.deletes, 1, "no cover delete without a cover")
}

func TestDeleteBooks_BlobFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)
	require.NoError(t, f.svc.AddBookBinaryData(ctx, email, id, strings.NewReader("content")))

	f.blobs.deleteErr = errors.New("bucket unavailable")
	require.NoError(t, f.svc.DeleteBooks(ctx, email, []uuid.UUID{id}))

	_, b := f.book(t, id)
	assert.Nil(t, b, "metadata is deleted even when blob cleanup fails")
	assert.Equal(t, 1, f.log.count("warn"))
}

func TestDeleteBooks_UnknownIDDeletesNothing(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)

	err := f.svc.DeleteBooks(context.Background(), email, []uuid.UUID{id, uuid.New()})
	require.ErrorIs(t, err, common.ErrBookNotFound)

	_, b := f.book(t, id)
	assert.NotNil(t, b)
	assert.Empty(t, f.blobs.deletes)
}

func TestDeleteBooks_DuplicateIDs(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)

	require.NoError(t, f.svc.DeleteBooks(context.Background(), email, []uuid.UUID{id, id}))
}

func TestUpdateBook(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)

	require.NoError(t, f.svc.UpdateBook(context.Background(), email, id, doc(t, `{"title":"Renamed","currentPage":7}`)))

	_, b := f.book(t, id)
	assert.Equal(t, "Renamed", b.Title)
	assert.Equal(t, 7, b.CurrentPage)
}

func TestUpdateBook_NotFound(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.svc.UpdateBook(context.Background(), email, uuid.New(), doc(t, `{"title":"x"}`))
	require.ErrorIs(t, err, common.ErrBookNotFound)
}

func TestUpdateBook_UnknownFieldNotPersisted(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)
	_, before := f.book(t, id)

	err := f.svc.UpdateBook(context.Background(), email, id, doc(t, `{"title":"x","nope":1}`))
	require.ErrorIs(t, err, common.ErrUnknownField)

	_, after := f.book(t, id)
	assert.Equal(t, before.Title, after.Title)
}

func TestAddBookBinaryData(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)

	require.NoError(t, f.svc.AddBookBinaryData(ctx, email, id, strings.NewReader(strings.Repeat("b", 300))))

	_, b := f.book(t, id)
	assert.Equal(t, int64(300), b.FileSize)

	rc, err := f.svc.GetBookBinaryData(ctx, email, id)
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Len(t, got, 300)
}

func TestAddBookBinaryData_FailureCompensates(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)

	cause := errors.New("connection reset by peer")
	f.blobs.uploadErr = cause

	err := f.svc.AddBookBinaryData(ctx, email, id, strings.NewReader(strings.Repeat("b", 300)))
	require.ErrorIs(t, err, common.ErrUploadFailure)
	require.ErrorIs(t, err, cause, "original failure is surfaced")

	var e *common.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 500, e.Status)

	_, b := f.book(t, id)
	assert.Nil(t, b, "book record is removed")
	assert.Equal(t, []string{blobstore.Key(blobstore.Books, id)}, f.blobs.deletes, "partial blob is cleaned up")
}

func TestAddBookBinaryData_NotFound(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.svc.AddBookBinaryData(context.Background(), email, uuid.New(), strings.NewReader("x"))
	require.ErrorIs(t, err, common.ErrBookNotFound)
	assert.Empty(t, f.blobs.deletes)
}

func TestGetBookBinaryData_NotFound(t *testing.T) {
	f := newFixture(t, 1000)

	_, err := f.svc.GetBookBinaryData(context.Background(), email, uuid.New())
	require.ErrorIs(t, err, common.ErrBookNotFound)
}

func TestChangeBookCover(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)

	require.NoError(t, f.svc.ChangeBookCover(ctx, email, id, strings.NewReader("png-bytes")))

	_, b := f.book(t, id)
	assert.True(t, b.HasCover)
	assert.Equal(t, int64(len("png-bytes")), b.CoverSize)
	assert.False(t, b.CoverLastModified.IsZero())

	rc, err := f.svc.GetBookCover(ctx, email, id)
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "png-bytes", string(got))
}

func TestChangeBookCover_FailureLeavesMetadata(t *testing.T) {
	f := newFixture(t, 1000)
	id := uuid.New()
	f.create(t, id)
	f.blobs.uploadErr = errors.New("timeout")

	err := f.svc.ChangeBookCover(context.Background(), email, id, strings.NewReader("png"))
	require.ErrorIs(t, err, common.ErrUploadFailure)

	_, b := f.book(t, id)
	require.NotNil(t, b, "cover failure does not delete the book")
	assert.False(t, b.HasCover)
	assert.Zero(t, b.CoverSize)
}

func TestDeleteBookCover(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)
	require.NoError(t, f.svc.ChangeBookCover(ctx, email, id, strings.NewReader("png")))

	require.NoError(t, f.svc.DeleteBookCover(ctx, email, id))

	_, b := f.book(t, id)
	assert.False(t, b.HasCover)
	assert.Zero(t, b.CoverSize)
	assert.False(t, f.blobs.Has(blobstore.Covers, id))

	_, err := f.svc.GetBookCover(ctx, email, id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteBookCover_BlobFailureStillClearsFlag(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)
	require.NoError(t, f.svc.ChangeBookCover(ctx, email, id, strings.NewReader("png")))
	f.blobs.deleteErr = errors.New("denied")

	require.NoError(t, f.svc.DeleteBookCover(ctx, email, id))

	_, b := f.book(t, id)
	assert.False(t, b.HasCover)
	assert.Equal(t, 1, f.log.count("warn"))
}

func TestGetUsedStorage(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	id := uuid.New()
	f.create(t, id)
	require.NoError(t, f.svc.AddBookBinaryData(ctx, email, id, strings.NewReader(strings.Repeat("b", 100))))
	require.NoError(t, f.svc.ChangeBookCover(ctx, email, id, strings.NewReader(strings.Repeat("c", 20))))

	info, err := f.svc.GetUsedStorage(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, dto.StorageInfo{Used: 120, Limit: 1000}, info)
}

// TestLibraryScenario walks one book through create, upload and three tag
// updates: create, rename, detach.
func TestLibraryScenario(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	bookID := uuid.New()
	tagID := uuid.New()

	f.create(t, bookID)
	require.NoError(t, f.svc.AddBookBinaryData(ctx, email, bookID, strings.NewReader(strings.Repeat("x", 400_000))))

	info, err := f.svc.GetUsedStorage(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), info.Used)

	err = f.svc.CreateBook(ctx, email, &dto.BookIn{ID: bookID, Title: "again"})
	require.ErrorIs(t, err, common.ErrDuplicateBook)

	require.NoError(t, f.svc.UpdateBook(ctx, email, bookID, doc(t, fmt.Sprintf(`{"tags":[{"guid":%q,"name":"scifi"}]}`, tagID))))
	u, b := f.book(t, bookID)
	require.Len(t, u.Tags, 1)
	assert.Equal(t, "scifi", u.Tags[0].Name)
	assert.Equal(t, []uuid.UUID{tagID}, b.TagIDs)

	require.NoError(t, f.svc.UpdateBook(ctx, email, bookID, doc(t, fmt.Sprintf(`{"tags":[{"guid":%q,"name":"sci-fi"}]}`, tagID))))
	u, _ = f.book(t, bookID)
	require.Len(t, u.Tags, 1, "rename does not create a tag")
	assert.Equal(t, "sci-fi", u.Tags[0].Name)

	require.NoError(t, f.svc.UpdateBook(ctx, email, bookID, doc(t, `{"tags":[]}`)))
	u, b = f.book(t, bookID)
	assert.Empty(t, b.TagIDs)
	require.Len(t, u.Tags, 1, "detached tag stays in the user's universe")
	assert.Equal(t, tagID, u.Tags[0].ID)
}
