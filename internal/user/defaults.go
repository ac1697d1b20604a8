package user

import (
	_ "embed"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/newsd/internal/article"
)

//go:embed defaults.toml
var defaultsTOML []byte

// ProviderDefaults seeds a new account created through one provider.
type ProviderDefaults struct {
	Credits        int         `toml:"credits"`
	Name           string      `toml:"name"`
	Email          string      `toml:"email"`
	ProviderID     string      `toml:"provider_id"`
	AvatarTemplate string      `toml:"avatar_template"`
	Preferences    Preferences `toml:"preferences"`
}

// Avatar renders the avatar template for name. "{name}" is replaced with the
// percent-encoded name.
func (d ProviderDefaults) Avatar(name string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return strings.ReplaceAll(d.AvatarTemplate, "{name}", escaped)
}

// NewPreferences returns a copy of the default preferences.
func (d ProviderDefaults) NewPreferences() Preferences {
	return Preferences{
		Categories: slices.Clone(d.Preferences.Categories),
		Sources:    slices.Clone(d.Preferences.Sources),
		Languages:  slices.Clone(d.Preferences.Languages),
		Countries:  slices.Clone(d.Preferences.Countries),
	}
}

// Defaults maps each provider to its account defaults.
type Defaults map[Provider]ProviderDefaults

// LoadDefaults decodes a TOML defaults table and checks that every provider
// is present with known categories.
func LoadDefaults(data []byte) (Defaults, error) {
	var d Defaults
	if _, err := toml.Decode(string(data), &d); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	for _, p := range Providers {
		pd, ok := d[p]
		if !ok {
			return nil, fmt.Errorf("defaults missing provider %q", p)
		}
		if pd.Credits < 0 {
			return nil, fmt.Errorf("defaults for %q: negative credits", p)
		}
		for _, c := range pd.Preferences.Categories {
			if _, ok := article.ParseCategory(string(c)); !ok {
				return nil, fmt.Errorf("defaults for %q: unknown category %q", p, c)
			}
		}
	}
	return d, nil
}

// BuiltinDefaults returns the embedded defaults table.
func BuiltinDefaults() Defaults {
	d, err := LoadDefaults(defaultsTOML)
	if err != nil {
		panic(fmt.Sprintf("user: embedded defaults: %v", err))
	}
	return d
}
