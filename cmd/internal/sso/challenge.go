package sso

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"bsso/cmd/identity"
)

// Challenge is what the validation page hands to the client script: where to
// post the assertion, the salt to derive the secret from, and whether the
// secret already exists (confirm) or must be created (first use).
type Challenge struct {
	PostbackURL string
	Salt        string
	SecretIsSet bool
}

// BuildChallenge reads (or lazily creates) the salt. The secret itself never
// leaves the store.
func BuildChallenge(ctx context.Context, secrets identity.SecretStore, site SiteConfig) (Challenge, error) {
	salt, present, err := secrets.GetOrCreateSalt(ctx)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		PostbackURL: site.PostbackURL(),
		Salt:        salt,
		SecretIsSet: present,
	}, nil
}

var challengePage = template.Must(template.New("validate").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Blockstack validation page</title>
<script src="{{.Assets}}/BlockstackCommon/blockstack-common.min.js"></script>
<script src="{{.Assets}}/modules/validate.js"></script>
<script>
window.action={{.Action}};
window.salt={{.Salt}};
window.key={{.Key}};
</script>
</head>
<body onload="window.validate()"></body>
</html>
`))

type challengeView struct {
	Assets string
	Action string
	Salt   string
	Key    string
}

// RenderChallenge renders c as a self-contained HTML page. window.key is "1"
// when a secret is stored and "" otherwise.
func RenderChallenge(c Challenge, assetsPath string) (RawResponse, error) {
	v := challengeView{
		Assets: assetsPath,
		Action: c.PostbackURL,
		Salt:   c.Salt,
	}
	if c.SecretIsSet {
		v.Key = "1"
	}

	var buf bytes.Buffer
	if err := challengePage.Execute(&buf, v); err != nil {
		return RawResponse{}, err
	}
	return RawResponse{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Header:      http.Header{"Cache-Control": []string{"no-store"}},
		Body:        buf.Bytes(),
	}, nil
}
