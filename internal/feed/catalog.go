package feed

import "github.com/fyrsmithlabs/newsd/internal/article"

var knownSources = []string{
	"BBC",
	"CNN",
	"Reuters",
	"TechCrunch",
	"The Verge",
	"Bloomberg",
	"Associated Press",
	"The Guardian",
	"New York Times",
	"Washington Post",
}

// Categories lists the user-selectable categories.
func Categories() []article.Category {
	return append([]article.Category(nil), article.Selectable...)
}

// Sources lists well-known source names.
func Sources() []string {
	return append([]string(nil), knownSources...)
}
