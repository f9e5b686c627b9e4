package sso

import (
	"fmt"
	"net/url"
	"strings"
)

// SiteConfig describes the host site to the wallet.
type SiteConfig struct {
	Name        string
	URL         string // absolute base URL, no trailing slash
	Description string
	LogoURL     string

	// AssetsPath prefixes the client script includes of the validation page.
	AssetsPath string
	// LoginPath is where the validation page posts the signed assertion.
	LoginPath string
}

// DefaultSiteConfig returns development defaults.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Name:       "bsso",
		URL:        "http://localhost:8080",
		LogoURL:    "/logo.png",
		AssetsPath: "/assets",
		LoginPath:  "/sso/login",
	}
}

// Normalize trims fields, drops trailing slashes and checks that URL is absolute.
func (c SiteConfig) Normalize() (SiteConfig, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.Description = strings.TrimSpace(c.Description)
	c.LogoURL = strings.TrimSpace(c.LogoURL)
	c.AssetsPath = strings.TrimRight(strings.TrimSpace(c.AssetsPath), "/")
	c.LoginPath = strings.TrimSpace(c.LoginPath)

	if c.Name == "" {
		return SiteConfig{}, fmt.Errorf("sso: empty site name")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return SiteConfig{}, fmt.Errorf("sso: site url must be absolute: %q", c.URL)
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultSiteConfig().LoginPath
	}
	return c, nil
}

// ManifestURL is the absolute URL of the manifest endpoint.
func (c SiteConfig) ManifestURL() string {
	return c.URL + "/sso/manifest"
}

// PostbackURL is the absolute URL the validation page posts to.
func (c SiteConfig) PostbackURL() string {
	if strings.HasPrefix(c.LoginPath, "http://") || strings.HasPrefix(c.LoginPath, "https://") {
		return c.LoginPath
	}
	return c.URL + "/" + strings.TrimLeft(c.LoginPath, "/")
}
