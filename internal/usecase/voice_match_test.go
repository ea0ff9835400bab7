package usecase

import (
	"context"
	"errors"
	"testing"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

func voices(ids ...string) []model.VoiceCandidate {
	out := make([]model.VoiceCandidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.VoiceCandidate{VoiceID: id, Name: "voice-" + id})
	}
	return out
}

func TestVoiceMatcher_SmallResultSkipsRerank(t *testing.T) {
	catalog := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return voices("a", "b", "c"), nil
	}}
	ranked := false
	reranker := &fakeReranker{fn: func([]model.VoiceCandidate, model.FieldSet) ([]string, error) {
		ranked = true
		return nil, nil
	}}
	m := NewVoiceMatcher(catalog, catalog, reranker, testLogger())

	got, err := m.Match(context.Background(), model.FieldSet{VoiceGender: "female"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	if ranked {
		t.Fatal("re-rank must not run for 3 or fewer candidates")
	}
}

func TestVoiceMatcher_RerankTrimsToTopThree(t *testing.T) {
	catalog := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return voices("a", "b", "c", "d", "e"), nil
	}}
	reranker := &fakeReranker{fn: func(cands []model.VoiceCandidate, f model.FieldSet) ([]string, error) {
		return []string{"e", "a", "d", "b", "c"}, nil
	}}
	m := NewVoiceMatcher(catalog, catalog, reranker, testLogger())

	got, err := m.Match(context.Background(), model.FieldSet{VoiceGender: "male"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	want := []string{"e", "a", "d"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].VoiceID != id {
			t.Fatalf("position %d = %q, want %q", i, got[i].VoiceID, id)
		}
	}
}

func TestVoiceMatcher_RerankFailureKeepsCatalogOrder(t *testing.T) {
	catalog := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return voices("a", "b", "c", "d"), nil
	}}
	reranker := &fakeReranker{fn: func([]model.VoiceCandidate, model.FieldSet) ([]string, error) {
		return nil, errors.New("model overloaded")
	}}
	m := NewVoiceMatcher(catalog, catalog, reranker, testLogger())

	got, err := m.Match(context.Background(), model.FieldSet{VoiceGender: "male"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 3 || got[0].VoiceID != "a" {
		t.Fatalf("expected first three in catalog order, got %+v", got)
	}
}

func TestVoiceMatcher_UnknownRerankIDsFallBack(t *testing.T) {
	catalog := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return voices("a", "b", "c", "d"), nil
	}}
	reranker := &fakeReranker{fn: func([]model.VoiceCandidate, model.FieldSet) ([]string, error) {
		return []string{"x", "y"}, nil
	}}
	m := NewVoiceMatcher(catalog, catalog, reranker, testLogger())

	got, err := m.Match(context.Background(), model.FieldSet{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 3 || got[0].VoiceID != "a" {
		t.Fatalf("expected catalog-order fallback, got %+v", got)
	}
}

func TestVoiceMatcher_CatalogOutageUsesFallback(t *testing.T) {
	primary := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return nil, errors.New("throttled")
	}}
	fallback := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return voices("builtin-1", "builtin-2"), nil
	}}
	m := NewVoiceMatcher(primary, fallback, &fakeReranker{}, testLogger())

	got, err := m.Match(context.Background(), model.FieldSet{VoiceGender: "female"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 2 || got[0].VoiceID != "builtin-1" {
		t.Fatalf("expected fallback candidates, got %+v", got)
	}
}

func TestVoiceMatcher_BothCatalogsFailingSurfacesCollaboratorError(t *testing.T) {
	broken := &fakeCatalog{fn: func(adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
		return nil, errors.New("throttled")
	}}
	m := NewVoiceMatcher(broken, broken, &fakeReranker{}, testLogger())

	if _, err := m.Match(context.Background(), model.FieldSet{VoiceGender: "female"}); !errors.Is(err, domain.ErrCollaboratorFailed) {
		t.Fatalf("err = %v, want ErrCollaboratorFailed", err)
	}
}

func TestFilterFromFields(t *testing.T) {
	f := model.FieldSet{
		VoiceGender:        "female",
		VoiceAccent:        "german",
		VoiceTone:          []string{"calm"},
		PersonaDescription: "patient tutor",
		SupportedLanguages: []string{"German"},
	}
	filter := filterFromFields(f)
	if filter.Gender != "female" || filter.Accent != "german" {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if filter.Language != "German" {
		t.Fatalf("language = %q", filter.Language)
	}
	if filter.Query == "" {
		t.Fatal("query must aggregate descriptive fields")
	}
}
