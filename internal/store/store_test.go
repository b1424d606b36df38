package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ryokun6/ryos-sub006/internal/ruby"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "lyrics.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveAndGetSong(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{
		ID:     "song1",
		Title:  "夜に駆ける",
		Artist: "YOASOBI",
		Owner:  "ryo",
		Lyrics: "[00:01.00]沈むように",
	}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}
	if song.Hash == "" {
		t.Fatal("SaveSong did not compute the lyric hash")
	}

	loaded, err := st.GetSong(ctx, "song1")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if loaded.Title != song.Title || loaded.Owner != song.Owner || loaded.Hash != song.Hash {
		t.Errorf("Loaded song differs: %+v vs %+v", loaded, song)
	}
}

func TestGetSong_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetSong(context.Background(), "missing")
	if !errors.Is(err, ErrSongNotFound) {
		t.Errorf("Expected ErrSongNotFound, got %v", err)
	}
}

func TestSaveAndGetAnnotation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{ID: "song1", Lyrics: "[00:01.00]猫が好き"}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}

	translations := []string{"I like cats"}
	if err := st.SaveTranslation(ctx, "song1", "en", song.Hash, translations); err != nil {
		t.Fatalf("SaveTranslation failed: %v", err)
	}

	a, err := st.GetAnnotation(ctx, "song1", "translation", "en")
	if err != nil {
		t.Fatalf("GetAnnotation failed: %v", err)
	}
	if a.Hash != song.Hash {
		t.Errorf("Expected hash %s, got %s", song.Hash, a.Hash)
	}
	var got []string
	if err := json.Unmarshal(a.Payload, &got); err != nil {
		t.Fatalf("Payload did not decode: %v", err)
	}
	if !reflect.DeepEqual(got, translations) {
		t.Errorf("Expected %v, got %v", translations, got)
	}
}

func TestGetAnnotation_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetAnnotation(context.Background(), "song1", "translation", "en")
	if !errors.Is(err, ErrAnnotationNotFound) {
		t.Errorf("Expected ErrAnnotationNotFound, got %v", err)
	}
}

func TestSaveAnnotation_Upsert(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{ID: "song1", Lyrics: "[00:01.00]走る"}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}

	if err := st.SaveTranslation(ctx, "song1", "en", song.Hash, []string{"first"}); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := st.SaveTranslation(ctx, "song1", "en", song.Hash, []string{"second"}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	a, err := st.GetAnnotation(ctx, "song1", "translation", "en")
	if err != nil {
		t.Fatalf("GetAnnotation failed: %v", err)
	}
	var got []string
	json.Unmarshal(a.Payload, &got)
	if !reflect.DeepEqual(got, []string{"second"}) {
		t.Errorf("Expected last write to win, got %v", got)
	}
}

func TestSaveSong_LyricChangeClearsAllAnnotationKinds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{ID: "song1", Lyrics: "[00:01.00]猫が好き"}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}
	oldHash := song.Hash

	segments := [][]ruby.Segment{{{Text: "猫", Reading: "ねこ"}, {Text: "が好き"}}}
	if err := st.SaveFurigana(ctx, "song1", oldHash, segments); err != nil {
		t.Fatalf("SaveFurigana failed: %v", err)
	}
	if err := st.SaveSoramimi(ctx, "song1", "en", oldHash, segments); err != nil {
		t.Fatalf("SaveSoramimi failed: %v", err)
	}
	if err := st.SaveTranslation(ctx, "song1", "en", oldHash, []string{"I like cats"}); err != nil {
		t.Fatalf("SaveTranslation failed: %v", err)
	}

	// New lyric source: every kind must be discarded atomically with the
	// write, since old line boundaries no longer apply.
	song.Lyrics = "[00:01.00]猫が好き\n[00:02.00]走る"
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong with new lyrics failed: %v", err)
	}
	if song.Hash == oldHash {
		t.Fatal("Hash did not change with lyrics")
	}

	for _, key := range [][2]string{{"furigana", ""}, {"soramimi", "en"}, {"translation", "en"}} {
		if _, err := st.GetAnnotation(ctx, "song1", key[0], key[1]); !errors.Is(err, ErrAnnotationNotFound) {
			t.Errorf("Expected %s/%s cleared, got %v", key[0], key[1], err)
		}
	}
}

func TestSaveSong_SameLyricsKeepAnnotations(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{ID: "song1", Title: "old title", Lyrics: "[00:01.00]走る"}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}
	if err := st.SaveFurigana(ctx, "song1", song.Hash, [][]ruby.Segment{{{Text: "走る"}}}); err != nil {
		t.Fatalf("SaveFurigana failed: %v", err)
	}

	// Metadata-only update; lyric hash is unchanged.
	song.Title = "new title"
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}

	if _, err := st.GetAnnotation(ctx, "song1", "furigana", ""); err != nil {
		t.Errorf("Annotation lost on metadata update: %v", err)
	}
}

func TestLanguageVariantsAreIndependent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	song := &Song{ID: "song1", Lyrics: "[00:01.00]走る"}
	if err := st.SaveSong(ctx, song); err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}
	if err := st.SaveTranslation(ctx, "song1", "en", song.Hash, []string{"Running"}); err != nil {
		t.Fatalf("SaveTranslation en failed: %v", err)
	}
	if err := st.SaveTranslation(ctx, "song1", "zh", song.Hash, []string{"奔跑"}); err != nil {
		t.Fatalf("SaveTranslation zh failed: %v", err)
	}

	en, err := st.GetAnnotation(ctx, "song1", "translation", "en")
	if err != nil {
		t.Fatalf("GetAnnotation en failed: %v", err)
	}
	zh, err := st.GetAnnotation(ctx, "song1", "translation", "zh")
	if err != nil {
		t.Fatalf("GetAnnotation zh failed: %v", err)
	}
	if string(en.Payload) == string(zh.Payload) {
		t.Error("Language variants collided")
	}
}
