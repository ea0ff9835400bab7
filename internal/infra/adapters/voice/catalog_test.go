package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog"

	"voicesmith/internal/domain/ports/adapter"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeDescribeClient struct {
	input  *polly.DescribeVoicesInput
	voices []pollytypes.Voice
	err    error
}

func (f *fakeDescribeClient) DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &polly.DescribeVoicesOutput{Voices: f.voices}, nil
}

func strptr(s string) *string { return &s }

func pollyVoice(id, name string, gender pollytypes.Gender, language string) pollytypes.Voice {
	return pollytypes.Voice{
		Id:           pollytypes.VoiceId(id),
		Name:         strptr(name),
		Gender:       gender,
		LanguageName: strptr(language),
	}
}

func TestPollyCatalog_FiltersByGenderAndLanguage(t *testing.T) {
	client := &fakeDescribeClient{voices: []pollytypes.Voice{
		pollyVoice("Vicki", "Vicki", pollytypes.GenderFemale, "German"),
		pollyVoice("Hans", "Hans", pollytypes.GenderMale, "German"),
		pollyVoice("Marlene", "Marlene", pollytypes.GenderFemale, "German"),
	}}
	c := NewPollyCatalogWithClient(PollyConfig{Engine: "neural"}, client, nopLogger())

	got, err := c.Search(context.Background(), adapter.VoiceFilter{Gender: "female", Accent: "german"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2 female voices", len(got))
	}
	for _, v := range got {
		if v.Labels["gender"] != "female" {
			t.Fatalf("male voice leaked through: %+v", v)
		}
	}
	if client.input.LanguageCode != pollytypes.LanguageCode("de-DE") {
		t.Fatalf("language code = %q, want de-DE", client.input.LanguageCode)
	}
}

func TestPollyCatalog_PrimaryLanguageBeatsAccent(t *testing.T) {
	client := &fakeDescribeClient{}
	c := NewPollyCatalogWithClient(PollyConfig{}, client, nopLogger())

	_, err := c.Search(context.Background(), adapter.VoiceFilter{Accent: "british", Language: "German"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if client.input.LanguageCode != pollytypes.LanguageCode("de-DE") {
		t.Fatalf("language code = %q, want de-DE", client.input.LanguageCode)
	}
}

func TestPollyCatalog_CapsAtFifteen(t *testing.T) {
	var voices []pollytypes.Voice
	for i := 0; i < 30; i++ {
		voices = append(voices, pollyVoice("V", "V", pollytypes.GenderFemale, "US English"))
	}
	client := &fakeDescribeClient{voices: voices}
	c := NewPollyCatalogWithClient(PollyConfig{}, client, nopLogger())

	got, err := c.Search(context.Background(), adapter.VoiceFilter{Gender: "female"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != maxCatalogResults {
		t.Fatalf("candidates = %d, want %d", len(got), maxCatalogResults)
	}
}

func TestPollyCatalog_SurfacesAPIErrors(t *testing.T) {
	client := &fakeDescribeClient{err: errors.New("throttled")}
	c := NewPollyCatalogWithClient(PollyConfig{}, client, nopLogger())

	if _, err := c.Search(context.Background(), adapter.VoiceFilter{}); err == nil {
		t.Fatal("expected the API error to surface")
	}
}

func TestBuiltinCatalog_NeverEmpty(t *testing.T) {
	c := NewBuiltinCatalog()
	got, err := c.Search(context.Background(), adapter.VoiceFilter{Query: "completely unrelated request"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("builtin catalog returned nothing")
	}
}

func TestBuiltinCatalog_GenderIsAHardFilter(t *testing.T) {
	c := NewBuiltinCatalog()
	got, err := c.Search(context.Background(), adapter.VoiceFilter{Gender: "female", Query: "female warm american"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no candidates")
	}
	for _, v := range got {
		if v.Name == "Adam" || v.Name == "Josh" || v.Name == "Arnold" {
			t.Fatalf("male voice %s in female results", v.Name)
		}
	}
}

func TestBuiltinCatalog_KeywordScoringOrders(t *testing.T) {
	c := NewBuiltinCatalog()
	got, err := c.Search(context.Background(), adapter.VoiceFilter{Gender: "female", Query: "female british professional clear"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got[0].Name != "Charlotte" {
		t.Fatalf("best match = %s, want Charlotte", got[0].Name)
	}
}
