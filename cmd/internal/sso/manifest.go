package sso

import (
	"encoding/json"
	"net/http"
	"regexp"
)

// Manifest is the descriptor a wallet reads to discover the site.
type Manifest struct {
	Name        string         `json:"name"`
	StartURL    string         `json:"start_url"`
	Description string         `json:"description"`
	Icons       []ManifestIcon `json:"icons"`
}

// ManifestIcon is one entry of Manifest.Icons.
type ManifestIcon struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

var iconExtRe = regexp.MustCompile(`^.+\.(\w+)$`)

// BuildManifest derives the manifest from site config.
func BuildManifest(site SiteConfig) Manifest {
	return Manifest{
		Name:        site.Name,
		StartURL:    site.URL,
		Description: site.Description,
		Icons: []ManifestIcon{{
			Src:  site.LogoURL,
			Type: IconType(site.LogoURL),
		}},
	}
}

// IconType infers "image/<ext>" from the last extension of logo, defaulting to jpg.
func IconType(logo string) string {
	if m := iconExtRe.FindStringSubmatch(logo); m != nil {
		return "image/" + m[1]
	}
	return "image/jpg"
}

// ManifestResponse renders m as the raw response served to wallets.
// The endpoint is open to any origin.
func ManifestResponse(m Manifest) (RawResponse, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return RawResponse{}, err
	}
	return RawResponse{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Header:      http.Header{"Access-Control-Allow-Origin": []string{"*"}},
		Body:        body,
	}, nil
}
