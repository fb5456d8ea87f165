// Package storage persists downloaded media and hands out download links.
// Two backends exist: Wasabi (S3-compatible) with presigned URLs, and a local
// files directory served over HTTP.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("file not found")

// Object describes a stored file.
type Object struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
	ETag         string `json:"etag,omitempty"`
}

// Info reports backend identity and reachability.
type Info struct {
	Backend    string `json:"backend"`
	Bucket     string `json:"bucket_name,omitempty"`
	Region     string `json:"region,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	Accessible bool   `json:"accessible"`
	Error      string `json:"error,omitempty"`
}

// Backend stores media files and generates download URLs.
type Backend interface {
	// Put stores the file at localPath under a fresh key derived from
	// filename's extension and returns the key.
	Put(ctx context.Context, localPath, filename, contentType string) (string, error)
	// URL returns a download link for key, valid for at least ttl where the
	// backend supports expiry.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes the object.
	Delete(ctx context.Context, key string) error
	// List returns up to maxKeys objects with the given key prefix.
	List(ctx context.Context, prefix string, maxKeys int) ([]Object, error)
	// Info probes the backend.
	Info(ctx context.Context) Info
}

// extOf returns the lowercase extension of filename without the dot,
// defaulting to "bin".
func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "bin"
	}
	return strings.ToLower(filename[idx+1:])
}
