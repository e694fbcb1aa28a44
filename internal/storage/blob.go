package storage

import (
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

type Object struct {
	Key  string
	Size int64
}

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	List(prefix string) ([]Object, error) // sorted by key
}
