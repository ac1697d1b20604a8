package v1

import (
	"encoding/json"
	"time"
)

// Envelope is embedded in every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK returns a success envelope.
func OK() Envelope { return Envelope{Success: true} }

// Preferences are the user's feed preferences.
type Preferences struct {
	Categories []string `json:"categories"`
	Sources    []string `json:"sources"`
	Languages  []string `json:"languages"`
	Countries  []string `json:"countries"`
}

// User is the public view of an account.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar"`
	Credits     int         `json:"credits"`
	Preferences Preferences `json:"preferences"`
}

// Profile is a User with its saved list and reading history.
type Profile struct {
	User
	SavedArticles  []string       `json:"savedArticles"`
	ReadingHistory []HistoryEntry `json:"readingHistory"`
}

// HistoryEntry records when an article was read.
type HistoryEntry struct {
	ArticleID string    `json:"articleId"`
	ReadAt    time.Time `json:"readAt"`
}

// Source identifies the publisher of an article.
type Source struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Article is a stored, normalized news article.
type Article struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"externalId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	ReadTime    int       `json:"readTime"`
	Credits     int       `json:"credits"`
	Tags        []string  `json:"tags"`
	Language    string    `json:"language"`
	Country     string    `json:"country"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SigninRequest is the body of POST /api/auth/signin.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SocialRequest is the body of POST /api/auth/google and /api/auth/facebook.
// Only the id field matching the provider is read.
type SocialRequest struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Picture     Picture `json:"picture"`
	GoogleID    string  `json:"googleId,omitempty"`
	FacebookID  string  `json:"facebookId,omitempty"`
	AccessToken string  `json:"accessToken,omitempty"`
}

// Picture is an avatar URL. Clients may send either a plain string or the
// Facebook Graph shape {"data":{"url":"..."}}.
type Picture string

// UnmarshalJSON accepts a string, a Graph picture object or null.
func (p *Picture) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Picture(s)
		return nil
	}
	var graph struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &graph); err != nil {
		return err
	}
	*p = Picture(graph.Data.URL)
	return nil
}

// AuthResponse is returned by every sign-in endpoint.
type AuthResponse struct {
	Envelope
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Envelope
	User User `json:"user"`
}

// ProfileResponse is returned by GET /api/user/profile.
type ProfileResponse struct {
	Envelope
	User Profile `json:"user"`
}

// ProfileUpdateRequest is the body of PUT /api/user/profile. Absent fields
// are left unchanged.
type ProfileUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// PreferencesRequest is the body of PUT /api/user/preferences. Absent fields
// are left unchanged.
type PreferencesRequest struct {
	Categories []string `json:"categories,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Countries  []string `json:"countries,omitempty"`
}

// ChangePasswordRequest is the body of PUT /api/user/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ArticleRequest names an article for the saved list or reading history.
type ArticleRequest struct {
	ArticleID string `json:"articleId"`
}

// SavedListResponse carries the saved article ids after a change.
type SavedListResponse struct {
	Envelope
	SavedArticles []string `json:"savedArticles"`
}

// ArticlesResponse carries resolved saved articles.
type ArticlesResponse struct {
	Envelope
	Articles []Article `json:"articles"`
}

// HistoryResponse carries the reading history, most recent first.
type HistoryResponse struct {
	Envelope
	ReadingHistory []HistoryEntry `json:"readingHistory"`
}

// FeedResponse is returned by the feed endpoints. Exactly one of Query,
// Category and Source is set for the filtered feeds.
type FeedResponse struct {
	Envelope
	Count    int       `json:"count"`
	Query    string    `json:"query,omitempty"`
	Category string    `json:"category,omitempty"`
	Source   string    `json:"source,omitempty"`
	Articles []Article `json:"articles"`
}

// CategoriesResponse lists the selectable categories.
type CategoriesResponse struct {
	Envelope
	Categories []string `json:"categories"`
}

// SourcesResponse lists the known sources.
type SourcesResponse struct {
	Envelope
	Sources []string `json:"sources"`
}

// IndexResponse describes a route group.
type IndexResponse struct {
	Envelope
	Endpoints map[string]string `json:"endpoints,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
