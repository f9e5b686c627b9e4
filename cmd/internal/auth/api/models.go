package authapi

import (
	"net/url"
	"time"

	"bsso/cmd/internal/sso"
)

type secretRequest struct {
	Secret string `json:"secret"`
}

func (r *secretRequest) fromForm(v url.Values) {
	r.Secret = firstNonEmpty(v.Get("secret"), v.Get("wpSecretKey"))
}

type loginRequest struct {
	DID   string `json:"did"`
	Proof string `json:"proof"`
}

func (r *loginRequest) fromForm(v url.Values) {
	r.DID = firstNonEmpty(v.Get("did"), v.Get("bsDid"))
	r.Proof = v.Get("proof")
}

type linkRequest struct {
	DID         string `json:"did"`
	Proof       string `json:"proof"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (r *linkRequest) fromForm(v url.Values) {
	r.DID = firstNonEmpty(v.Get("did"), v.Get("bsDid"))
	r.Proof = v.Get("proof")
	r.Username = v.Get("username")
	r.Password = v.Get("password")
	r.DisplayName = v.Get("display_name")
}

type checkResponse struct {
	ID *int64 `json:"id"`
}

const (
	statusAuthenticated = "authenticated"
	statusNeedsLink     = "needs_link"
)

type loginResponse struct {
	Status      string        `json:"status"`
	AccountID   int64         `json:"account_id,omitempty"`
	AccessToken string        `json:"access_token,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	DID         string        `json:"did,omitempty"`
	Form        *formResponse `json:"form,omitempty"`
}

type formResponse struct {
	Fields []sso.FormField `json:"fields"`
	Button sso.LoginButton `json:"button"`
}

type configResponse struct {
	ManifestURL string `json:"manifest_url"`
}

type meResponse struct {
	AccountID int64     `json:"account_id"`
	DID       string    `json:"did"`
	ExpiresAt time.Time `json:"expires_at"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
