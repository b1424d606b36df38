// Package server exposes the annotation pipeline over HTTP as SSE
// endpoints. Routing here is deliberately thin; CORS, rate limiting and
// token validation belong to the outer layer that fronts this service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ryokun6/ryos-sub006/internal"
	"github.com/ryokun6/ryos-sub006/internal/annotate"
	"github.com/ryokun6/ryos-sub006/internal/cache"
	"github.com/ryokun6/ryos-sub006/internal/lyrics"
	"github.com/ryokun6/ryos-sub006/internal/prompt"
	"github.com/ryokun6/ryos-sub006/internal/provider"
	"github.com/ryokun6/ryos-sub006/internal/ruby"
	"github.com/ryokun6/ryos-sub006/internal/store"
)

// Server wires the cache gate, prompt framer, session and persister
// behind the SSE endpoints.
type Server struct {
	store    *store.Store
	provider provider.Provider
	gate     *cache.Gate
	logger   *log.Logger
}

// New creates a server over the given store, provider and ownership
// model.
func New(st *store.Store, p provider.Provider, owners cache.Ownership, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:    st,
		provider: p,
		gate:     cache.NewGate(st, owners),
		logger:   logger,
	}
}

// Register attaches the annotation endpoints to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /songs", s.createSong)
	mux.HandleFunc("PUT /songs/{id}", s.saveSong)
	mux.HandleFunc("GET /songs/{id}", s.getSong)
	mux.HandleFunc("GET /songs/{id}/translation", func(w http.ResponseWriter, r *http.Request) {
		s.annotate(w, r, prompt.KindTranslation)
	})
	mux.HandleFunc("GET /songs/{id}/furigana", func(w http.ResponseWriter, r *http.Request) {
		s.annotate(w, r, prompt.KindFurigana)
	})
	mux.HandleFunc("GET /songs/{id}/soramimi", func(w http.ResponseWriter, r *http.Request) {
		s.annotate(w, r, prompt.KindSoramimi)
	})
}

type songBody struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Owner  string `json:"owner"`
	Lyrics string `json:"lyrics"`
}

// createSong stores a new song document under a generated ID.
func (s *Server) createSong(w http.ResponseWriter, r *http.Request) {
	var body songBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid song document", http.StatusBadRequest)
		return
	}
	s.writeSong(w, r, internal.GenerateSongID(body.Title), body, http.StatusCreated)
}

// saveSong upserts a song document. Changing the lyric source clears all
// cached annotation sets atomically with the write.
func (s *Server) saveSong(w http.ResponseWriter, r *http.Request) {
	var body songBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid song document", http.StatusBadRequest)
		return
	}
	s.writeSong(w, r, r.PathValue("id"), body, http.StatusOK)
}

func (s *Server) writeSong(w http.ResponseWriter, r *http.Request, id string, body songBody, status int) {
	song := &store.Song{
		ID:     id,
		Title:  body.Title,
		Artist: body.Artist,
		Owner:  body.Owner,
		Lyrics: body.Lyrics,
	}
	if err := s.store.SaveSong(r.Context(), song); err != nil {
		s.logger.Printf("save song %s: %v", song.ID, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"id": song.ID, "lyricsHash": song.Hash})
}

// getSong returns a song document without its raw lyrics.
func (s *Server) getSong(w http.ResponseWriter, r *http.Request) {
	song, err := s.store.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			http.Error(w, "song not found", http.StatusNotFound)
			return
		}
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":         song.ID,
		"title":      song.Title,
		"artist":     song.Artist,
		"owner":      song.Owner,
		"lyricsHash": song.Hash,
		"lines":      len(lyrics.Split(song.Lyrics, song.Title, song.Artist)),
	})
}

// annotate drives one end-to-end request: gate, frame, stream, persist.
// Authorization and input failures reject with plain HTTP status codes
// before the SSE stream opens; once streaming, failures surface as error
// events instead.
func (s *Server) annotate(w http.ResponseWriter, r *http.Request, kind prompt.Kind) {
	songID := r.PathValue("id")
	lang := r.URL.Query().Get("lang")
	if kind == prompt.KindFurigana {
		lang = ""
	} else if lang == "" {
		lang = "en"
	}
	force := r.URL.Query().Get("force") == "true" || r.URL.Query().Get("force") == "1"
	username := r.Header.Get("X-Username")

	song, err := s.store.GetSong(r.Context(), songID)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			http.Error(w, "song not found", http.StatusNotFound)
			return
		}
		s.logger.Printf("load song %s: %v", songID, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	lines := lyrics.Split(song.Lyrics, song.Title, song.Artist)
	if len(lines) == 0 {
		http.Error(w, annotate.ErrNoLyrics.Error(), http.StatusBadRequest)
		return
	}

	decision, err := s.gate.Check(r.Context(), song, kind, lang, force, username)
	if err != nil {
		if errors.Is(err, cache.ErrNotAuthorized) {
			status := http.StatusForbidden
			if username == "" {
				status = http.StatusUnauthorized
			}
			http.Error(w, err.Error(), status)
			return
		}
		s.logger.Printf("cache gate %s/%s: %v", songID, kind, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	sse, err := NewEventWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if decision.Cached != nil && s.emitCached(sse, kind, decision.Cached) {
		return
	}

	// Generation outlives the client: a disconnect must not stop the run,
	// so the result still lands in the cache for the next request.
	ctx := context.WithoutCancel(r.Context())

	// Word-synced sources can carry their own translation; no model call
	// needed, but the result still writes through to the cache.
	if kind == prompt.KindTranslation && lang == "zh" {
		if embedded, ok := lyrics.EmbeddedTranslation(song.Lyrics, song.Title, song.Artist); ok && len(embedded) == len(lines) {
			sse.Emit(annotate.CachedEvent{Type: "cached", Translation: embedded})
			if err := s.store.SaveTranslation(ctx, song.ID, lang, song.Hash, embedded); err != nil {
				s.logger.Printf("persist embedded translation %s: %v", songID, err)
			}
			return
		}
	}

	var furigana [][]ruby.Segment
	if kind == prompt.KindSoramimi {
		furigana = s.furiganaContext(r.Context(), song)
	}

	frame := prompt.New(kind, lang, lines, furigana)
	session := annotate.NewSession(kind, lang, lines, frame, sse)
	session.Start()

	if frame.SentCount() == 0 {
		session.Complete()
		s.persist(ctx, song, kind, lang, session)
		return
	}

	chunks, err := s.provider.Stream(ctx, frame.System, frame.User)
	if err != nil {
		s.logger.Printf("session %s: open stream: %v", session.ID, err)
		sse.Emit(annotate.ErrorEvent{Type: "error", Error: "model connection failed"})
		return
	}
	if err := session.Run(ctx, chunks); err != nil {
		// Error event already emitted; nothing is persisted for failures.
		s.logger.Printf("session %s: %v", session.ID, err)
		return
	}
	s.persist(ctx, song, kind, lang, session)
}

// emitCached replays a stored payload as a single cached event. A payload
// that no longer decodes is treated as a miss so the request regenerates.
func (s *Server) emitCached(sse *EventWriter, kind prompt.Kind, payload json.RawMessage) bool {
	event := annotate.CachedEvent{Type: "cached"}
	switch kind {
	case prompt.KindTranslation:
		if json.Unmarshal(payload, &event.Translation) != nil {
			return false
		}
	case prompt.KindFurigana:
		if json.Unmarshal(payload, &event.Furigana) != nil {
			return false
		}
	case prompt.KindSoramimi:
		if json.Unmarshal(payload, &event.Soramimi) != nil {
			return false
		}
	}
	sse.Emit(event)
	return true
}

// furiganaContext loads the song's furigana set when one exists for the
// current lyric hash, so soramimi can reuse its readings to disambiguate
// pronunciation. Missing or stale context is fine; soramimi works
// without it.
func (s *Server) furiganaContext(ctx context.Context, song *store.Song) [][]ruby.Segment {
	a, err := s.store.GetAnnotation(ctx, song.ID, string(prompt.KindFurigana), "")
	if err != nil || a.Hash != song.Hash {
		return nil
	}
	var segments [][]ruby.Segment
	if err := json.Unmarshal(a.Payload, &segments); err != nil {
		return nil
	}
	return segments
}

// persist writes a completed session through to storage. The client has
// already received the complete event, so a write failure only means the
// result is not yet cached; the next request regenerates.
func (s *Server) persist(ctx context.Context, song *store.Song, kind prompt.Kind, lang string, session *annotate.Session) {
	var err error
	switch kind {
	case prompt.KindTranslation:
		err = s.store.SaveTranslation(ctx, song.ID, lang, song.Hash, session.Translations())
	case prompt.KindFurigana:
		err = s.store.SaveFurigana(ctx, song.ID, song.Hash, session.Segments())
	case prompt.KindSoramimi:
		err = s.store.SaveSoramimi(ctx, song.ID, lang, song.Hash, session.Segments())
	}
	if err != nil {
		s.logger.Printf("persist %s %s/%s: %v", kind, song.ID, lang, err)
	}
}
