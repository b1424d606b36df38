// Package cache decides whether a stored annotation set satisfies a
// request and whether a forced refresh over it is authorized.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ryokun6/ryos-sub006/internal/prompt"
	"github.com/ryokun6/ryos-sub006/internal/store"
)

// ErrNotAuthorized rejects a forced refresh by a caller who may not
// modify the song. It fails the request before any SSE stream opens.
var ErrNotAuthorized = errors.New("not authorized to regenerate")

// AnnotationReader is the slice of the store the gate consults.
type AnnotationReader interface {
	GetAnnotation(ctx context.Context, songID, kind, lang string) (*store.Annotation, error)
}

// Ownership is the external ownership model the gate delegates forced
// refreshes to.
type Ownership interface {
	CanModifySong(song *store.Song, username string) (canModify bool, reason string)
}

// Decision is the gate's verdict: either Cached carries a payload that
// satisfies the request, or the caller must regenerate.
type Decision struct {
	Cached json.RawMessage
}

// Gate guards generation behind the annotation cache.
type Gate struct {
	annotations AnnotationReader
	owners      Ownership
}

// NewGate creates a gate over the given store and ownership model.
func NewGate(annotations AnnotationReader, owners Ownership) *Gate {
	return &Gate{annotations: annotations, owners: owners}
}

// Check resolves a request against the cache. A cached set generated
// against the song's current lyric hash short-circuits the request
// unless force is set; forcing over such a set requires the caller to be
// allowed to modify the song. A hash mismatch always regenerates, force
// or not, and needs no authorization since the cache is already invalid.
func (g *Gate) Check(ctx context.Context, song *store.Song, kind prompt.Kind, lang string, force bool, username string) (*Decision, error) {
	a, err := g.annotations.GetAnnotation(ctx, song.ID, string(kind), lang)
	if err != nil {
		if errors.Is(err, store.ErrAnnotationNotFound) {
			return &Decision{}, nil
		}
		return nil, err
	}

	if a.Hash != song.Hash {
		return &Decision{}, nil
	}
	if !force {
		return &Decision{Cached: a.Payload}, nil
	}

	canModify, reason := g.owners.CanModifySong(song, username)
	if !canModify {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, reason)
	}
	return &Decision{}, nil
}

// OwnerOnly is the default ownership model: the song owner may force a
// refresh, and ownerless (public) songs are open to any caller,
// anonymous included.
type OwnerOnly struct{}

// CanModifySong implements Ownership.
func (OwnerOnly) CanModifySong(song *store.Song, username string) (bool, string) {
	if song.Owner == "" {
		return true, ""
	}
	if username == "" {
		return false, "authentication required"
	}
	if song.Owner != username {
		return false, "only the song owner can force a refresh"
	}
	return true, ""
}
