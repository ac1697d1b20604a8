package article

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	NoTitle       = "No title available"
	NoDescription = "No description available"
	NoContent     = "No content available"
	UnknownSource = "Unknown Source"
	UnknownAuthor = "Unknown Author"

	DefaultImageURL = "https://picsum.photos/400/600"
	DefaultLanguage = "en"
	DefaultCountry  = "us"

	wordsPerMinute = 200
	wordsPerCredit = 50
	minCredits     = 5
	maxCredits     = 30
)

// Raw is an article record as returned by the news provider.
type Raw struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt *string `json:"publishedAt"`
	Content     *string `json:"content"`
}

// Options carries per-query context applied during normalization.
type Options struct {
	Language string
	Country  string
	Now      time.Time
}

// ExternalID returns the dedup key for r: its URL, or a generated key.
func ExternalID(r Raw) string {
	if u := str(r.URL); u != "" {
		return u
	}
	return "article-" + uuid.NewString()
}

// Normalize builds an Article from r, applying every fallback.
// The returned article has no ID; the store assigns one.
func Normalize(r Raw, externalID string, opts Options) *Article {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	description := orDefault(str(r.Description), NoDescription)
	body := bodyText(r)
	words := WordCount(body)

	sourceID := str(r.Source.ID)
	sourceName := orDefault(strings.TrimSpace(r.Source.Name), UnknownSource)

	return &Article{
		ExternalID:  externalID,
		Title:       orDefault(str(r.Title), NoTitle),
		Description: description,
		Content:     orDefault(body, NoContent),
		URL:         str(r.URL),
		ImageURL:    orDefault(str(r.URLToImage), DefaultImageURL),
		PublishedAt: parsePublished(str(r.PublishedAt), now),
		Source:      Source{Name: sourceName, ID: sourceID},
		Category:    Classify(sourceName, sourceID),
		Author:      orDefault(str(r.Author), UnknownAuthor),
		ReadTime:    ReadTime(words),
		Credits:     Credits(words),
		Tags:        []string{},
		Language:    orDefault(opts.Language, DefaultLanguage),
		Country:     orDefault(opts.Country, DefaultCountry),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// bodyText is content, else description, else empty.
func bodyText(r Raw) string {
	if c := str(r.Content); c != "" {
		return c
	}
	return str(r.Description)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadTime is minutes at 200 words per minute, at least 1.
func ReadTime(words int) int {
	return max(1, ceilDiv(words, wordsPerMinute))
}

// Credits is one credit per 50 words, clamped to [5, 30].
func Credits(words int) int {
	return min(maxCredits, max(minCredits, ceilDiv(words, wordsPerCredit)))
}

func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{Technology, []string{"techcrunch", "the-verge", "wired", "ars-technica"}},
	{Business, []string{"bloomberg", "reuters", "cnbc", "financial-times"}},
	{Sports, []string{"espn", "bbc-sport", "the-sport-bible"}},
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Classify maps a source to a category by keyword containment. The
// lowercased name is tried first, then its hyphenated slug, then the
// provider's source id. Keywords are provider slugs, so "The Verge" is
// Technology, "BBC Sport" is Sports, and a source with id "espn" is Sports
// whatever its display name.
func Classify(sourceName, sourceID string) Category {
	name := strings.ToLower(strings.TrimSpace(sourceName))
	slug := strings.Trim(nonSlug.ReplaceAllString(name, "-"), "-")
	id := strings.ToLower(strings.TrimSpace(sourceID))

	for _, candidate := range []string{name, slug, id} {
		if candidate == "" {
			continue
		}
		for _, set := range categoryKeywords {
			for _, kw := range set.keywords {
				if strings.Contains(candidate, kw) {
					return set.category
				}
			}
		}
	}
	return General
}

func parsePublished(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
