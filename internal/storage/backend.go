// Package storage holds the named-blob backends behind the file service.
// A backend exposes two fixed namespaces (kinds) and addresses objects by
// plain filename inside a kind; it never interprets the bytes it stores.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Kind selects one of the two storage namespaces.
type Kind string

const (
	KindUpload Kind = "uploads"
	KindImage  Kind = "images"
)

// Kinds lists every namespace in lookup order.
var Kinds = []Kind{KindUpload, KindImage}

func (k Kind) Valid() bool {
	return k == KindUpload || k == KindImage
}

const maxNameLength = 255

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidName = errors.New("invalid object name")
	ErrInvalidKind = errors.New("invalid storage kind")
)

// Info describes a stored object.
type Info struct {
	Name     string
	Kind     Kind
	Location string // backend-specific address, e.g. a disk path or s3:// URL
	Size     int64
	ModTime  time.Time
}

// Object is an open stored object. Callers must Close it.
type Object struct {
	Info
	io.ReadCloser
}

// Backend is durable named-blob storage split into kinds.
type Backend interface {
	// Put writes r in full under name, replacing any existing object.
	Put(ctx context.Context, kind Kind, name string, r io.Reader) (*Info, error)
	// Open returns ErrNotFound when the object is absent.
	Open(ctx context.Context, kind Kind, name string) (*Object, error)
	Exists(ctx context.Context, kind Kind, name string) (bool, error)
	// List returns an empty, non-nil slice for a missing or empty kind.
	List(ctx context.Context, kind Kind) ([]string, error)
	// Delete returns ErrNotFound when the object is absent.
	Delete(ctx context.Context, kind Kind, name string) error
}

// ValidateName rejects names that cannot be used as a single path element.
func ValidateName(name string) error {
	switch {
	case name == "":
		return ErrInvalidName
	case len(name) > maxNameLength:
		return ErrInvalidName
	case name == "." || name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidName
	}
	return nil
}

func validate(kind Kind, name string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	return ValidateName(name)
}
