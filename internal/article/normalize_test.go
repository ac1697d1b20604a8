package article

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestReadTimeAndCredits(t *testing.T) {
	tests := []struct {
		words    int
		readTime int
		credits  int
	}{
		{0, 1, 5},
		{1, 1, 5},
		{200, 1, 5},
		{201, 2, 5},
		{300, 2, 6},
		{1000, 5, 20},
		{1500, 8, 30},
		{5000, 25, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.readTime, ReadTime(tt.words), "readTime(%d)", tt.words)
		assert.Equal(t, tt.credits, Credits(tt.words), "credits(%d)", tt.words)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		sourceID string
		want     Category
	}{
		{"tech by name", "TechCrunch", "", Technology},
		{"tech by slug", "The Verge", "", Technology},
		{"business", "Bloomberg", "", Business},
		{"business substring", "Reuters UK", "", Business},
		{"sports by slug", "BBC Sport", "", Sports},
		{"sports by id", "Sport News", "espn", Sports},
		{"tech wins priority", "Wired Bloomberg", "", Technology},
		{"unknown", "Some Local Paper", "", General},
		{"empty", "", "", General},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.source, tt.sourceID))
		})
	}
}

func TestNormalize_Fallbacks(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Normalize(Raw{}, "article-x", Options{Now: now})

	assert.Equal(t, "article-x", a.ExternalID)
	assert.Equal(t, NoTitle, a.Title)
	assert.Equal(t, NoDescription, a.Description)
	assert.Equal(t, NoContent, a.Content)
	assert.Equal(t, DefaultImageURL, a.ImageURL)
	assert.Equal(t, UnknownSource, a.Source.Name)
	assert.Equal(t, UnknownAuthor, a.Author)
	assert.Equal(t, General, a.Category)
	assert.Equal(t, "en", a.Language)
	assert.Equal(t, "us", a.Country)
	assert.Equal(t, now, a.PublishedAt)
	assert.Equal(t, 1, a.ReadTime)
	assert.Equal(t, 5, a.Credits)
	assert.True(t, a.IsActive)
	assert.NotNil(t, a.Tags)
}

func TestNormalize_ContentFallsBackToDescription(t *testing.T) {
	desc := strings.Repeat("word ", 1000)
	r := Raw{Description: ptr(desc)}

	a := Normalize(r, "k", Options{})
	assert.Equal(t, strings.TrimSpace(desc), a.Content)
	assert.Equal(t, 5, a.ReadTime)
	assert.Equal(t, 20, a.Credits)
}

func TestNormalize_FullRecord(t *testing.T) {
	r := Raw{
		Author:      ptr("Jane Doe"),
		Title:       ptr("Chips"),
		Description: ptr("About chips"),
		URL:         ptr("https://techcrunch.com/chips"),
		URLToImage:  ptr("https://img.example/1.png"),
		PublishedAt: ptr("2024-02-29T08:30:00Z"),
		Content:     ptr("A B C"),
	}
	r.Source.Name = "TechCrunch"
	r.Source.ID = ptr("techcrunch")

	a := Normalize(r, ExternalID(r), Options{Language: "de", Country: "de"})
	assert.Equal(t, "https://techcrunch.com/chips", a.ExternalID)
	assert.Equal(t, "A B C", a.Content)
	assert.Equal(t, Technology, a.Category)
	assert.Equal(t, "techcrunch", a.Source.ID)
	assert.Equal(t, time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC), a.PublishedAt)
	assert.Equal(t, "de", a.Language)
	assert.Equal(t, "de", a.Country)
}

func TestNormalize_Deterministic(t *testing.T) {
	r := Raw{Content: ptr(strings.Repeat("x ", 420))}
	r.Source.Name = "Reuters"
	opts := Options{Now: time.Unix(0, 0).UTC()}

	assert.Equal(t, Normalize(r, "k", opts), Normalize(r, "k", opts))
}

func TestExternalID(t *testing.T) {
	assert.Equal(t, "https://a.example/1", ExternalID(Raw{URL: ptr("https://a.example/1")}))

	first, second := ExternalID(Raw{}), ExternalID(Raw{})
	require.True(t, strings.HasPrefix(first, "article-"))
	assert.NotEqual(t, first, second)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("technology")
	assert.True(t, ok)
	assert.Equal(t, Technology, c)

	_, ok = ParseCategory("gossip")
	assert.False(t, ok)
	assert.Len(t, Selectable, 8)
}
