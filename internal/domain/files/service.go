package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fileservices/internal/storage"
)

const DefaultMaxUploadSize = 100 * 1024 * 1024 // 100 MB

// Service implements the upload-and-retrieval contract on top of a storage
// backend. Operations on the same filename are serialized; operations on
// different filenames never contend.
type Service struct {
	store         storage.Backend
	journal       Journal
	notifier      Notifier
	locks         *keyLocks
	maxUploadSize int64
	now           func() time.Time
}

// NewService wires the storage backend with optional journal and notifier.
// A nil journal or notifier disables that side channel.
func NewService(store storage.Backend, journal Journal, notifier Notifier, maxUploadSize int64) *Service {
	if journal == nil {
		journal = nopJournal{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &Service{
		store:         store,
		journal:       journal,
		notifier:      notifier,
		locks:         newKeyLocks(),
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

// MaxUploadSize is the largest accepted payload in bytes.
func (s *Service) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// Upload names, places and writes a single payload.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, ErrMissingPayload
	}
	if in.Size > s.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	filename := StoredName(s.now(), in.OriginalName)
	kind := KindFor(in.ContentType)

	body := &limitedReader{r: in.Body, remaining: s.maxUploadSize}

	unlock := s.locks.Lock(filename)
	info, err := s.store.Put(ctx, kind, filename, body)
	unlock()
	if err != nil {
		if body.exceeded {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("store %s: %w", filename, mapStorageError(err))
	}

	result := &UploadResult{
		Filename: filename,
		Path:     info.Location,
		URL:      URLFor(kind, filename),
		IsImage:  kind == storage.KindImage,
		Kind:     kind,
		Size:     info.Size,
	}

	s.emit(ctx, &Event{
		Action:      ActionUploaded,
		Filename:    filename,
		Kind:        string(kind),
		ContentType: in.ContentType,
		Size:        info.Size,
		URL:         result.URL,
	})

	return result, nil
}

// List enumerates both namespaces independently.
func (s *Service) List(ctx context.Context) (*Listing, error) {
	var listing Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := s.store.List(gctx, storage.KindUpload)
		listing.Uploads = names
		return err
	})
	g.Go(func() error {
		names, err := s.store.List(gctx, storage.KindImage)
		listing.Images = names
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return &listing, nil
}

// ListImages enumerates the image namespace only.
func (s *Service) ListImages(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, storage.KindImage)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return names, nil
}

// OpenImage looks in the image namespace only.
func (s *Service) OpenImage(ctx context.Context, filename string) (*storage.Object, error) {
	return s.open(ctx, storage.KindImage, filename)
}

// OpenDownload looks in the generic upload namespace only.
func (s *Service) OpenDownload(ctx context.Context, filename string) (*storage.Object, error) {
	return s.open(ctx, storage.KindUpload, filename)
}

// open holds the filename's read lock until the returned object is closed.
func (s *Service) open(ctx context.Context, kind storage.Kind, filename string) (*storage.Object, error) {
	if err := storage.ValidateName(filename); err != nil {
		return nil, ErrInvalidFilename
	}

	unlock := s.locks.RLock(filename)
	obj, err := s.store.Open(ctx, kind, filename)
	if err != nil {
		unlock()
		return nil, mapStorageError(err)
	}

	obj.ReadCloser = &unlockCloser{ReadCloser: obj.ReadCloser, unlock: unlock}
	return obj, nil
}

// Delete removes filename from the generic namespace if present there,
// otherwise from the image namespace. It reports which namespace it hit.
func (s *Service) Delete(ctx context.Context, filename string) (storage.Kind, error) {
	if err := storage.ValidateName(filename); err != nil {
		return "", ErrInvalidFilename
	}

	unlock := s.locks.Lock(filename)
	kind, err := s.deleteLocked(ctx, filename)
	unlock()
	if err != nil {
		return "", err
	}

	s.emit(ctx, &Event{
		Action:   ActionDeleted,
		Filename: filename,
		Kind:     string(kind),
	})
	return kind, nil
}

func (s *Service) deleteLocked(ctx context.Context, filename string) (storage.Kind, error) {
	for _, kind := range storage.Kinds {
		ok, err := s.store.Exists(ctx, kind, filename)
		if err != nil {
			return "", mapStorageError(err)
		}
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, kind, filename); err != nil {
			return "", mapStorageError(err)
		}
		return kind, nil
	}
	return "", ErrNotFound
}

// Events returns the most recent journaled events, newest first.
func (s *Service) Events(ctx context.Context, limit int) ([]*Event, error) {
	return s.journal.Recent(ctx, clampLimit(limit))
}

func (s *Service) emit(ctx context.Context, e *Event) {
	e.CreatedAt = s.now()
	if err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("files_event_error action=%s filename=%s error=%q", e.Action, e.Filename, err.Error())
	}
	s.notifier.Publish(e)
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrInvalidName):
		return ErrInvalidFilename
	}
	return err
}

// limitedReader fails the read that would cross the size limit.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}

type unlockCloser struct {
	io.ReadCloser
	once   sync.Once
	unlock func()
}

func (u *unlockCloser) Close() error {
	err := u.ReadCloser.Close()
	u.once.Do(u.unlock)
	return err
}
