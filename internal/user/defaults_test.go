package user

import (
	"testing"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDefaults(t *testing.T) {
	d := BuiltinDefaults()

	assert.Equal(t, 100, d[Local].Credits)
	assert.Equal(t, 1000, d[Developer].Credits)
	assert.Equal(t, 50, d[Guest].Credits)
	assert.Equal(t, 100, d[Google].Credits)
	assert.Equal(t, 100, d[Facebook].Credits)

	assert.Equal(t, "developer@newsapp.com", d[Developer].Email)
	assert.Equal(t, "developer-user", d[Developer].ProviderID)
	assert.Equal(t, []string{"Google News", "BBC", "CNN"}, d[Google].Preferences.Sources)
	assert.Equal(t, []string{"Facebook News", "BBC", "CNN"}, d[Facebook].Preferences.Sources)
	assert.Equal(t, []article.Category{article.Technology, article.World, article.Business}, d[Guest].Preferences.Categories)
	assert.Len(t, d[Local].Preferences.Categories, 5)
}

func TestProviderDefaults_Avatar(t *testing.T) {
	d := BuiltinDefaults()
	assert.Equal(t,
		"https://ui-avatars.com/api/?name=Ada%20Lovelace&background=667eea&color=fff",
		d[Local].Avatar("Ada Lovelace"))
	assert.Equal(t, "https://via.placeholder.com/150/cccccc/ffffff?text=GUEST", d[Guest].Avatar("ignored"))
	assert.Empty(t, d[Google].Avatar("x"))
}

func TestProviderDefaults_NewPreferencesIsCopy(t *testing.T) {
	d := BuiltinDefaults()
	p := d[Local].NewPreferences()
	p.Sources[0] = "Mutated"
	assert.Equal(t, "BBC", d[Local].Preferences.Sources[0])
}

func TestLoadDefaults_Errors(t *testing.T) {
	_, err := LoadDefaults([]byte("not = [toml"))
	assert.Error(t, err)

	_, err = LoadDefaults([]byte("[local]\ncredits = 1\n"))
	assert.ErrorContains(t, err, "missing provider")

	bad := `
[local.preferences]
categories = ["Gossip"]
[google]
[facebook]
[developer]
[guest]
`
	_, err = LoadDefaults([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}
