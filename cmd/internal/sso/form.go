package sso

// FormField describes one field of the manual link form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // string | password | hidden
	Label    string `json:"label,omitempty"`
	Help     string `json:"help,omitempty"`
	Optional bool   `json:"optional"`
	Value    string `json:"value,omitempty"`
}

// LinkFormFields returns the manual link form, carrying did in a hidden field.
func LinkFormFields(did string) []FormField {
	return []FormField{
		{
			Name:  "username",
			Type:  "string",
			Label: "Username",
			Help:  "The existing account to link your Blockstack ID to.",
		},
		{
			Name:  "password",
			Type:  "password",
			Label: "Password",
			Help:  "The password of that account.",
		},
		{
			Name:  "bsDid",
			Type:  "hidden",
			Value: did,
		},
	}
}

// LoginButtonKey is the host form descriptor entry of the sign-in button.
const LoginButtonKey = "blockstacksso"

// LoginButton is the styling merged over the host's sign-in button descriptor.
type LoginButton struct {
	Weight            int      `json:"weight"`
	Flags             []string `json:"flags"`
	PresentationClass string   `json:"class"`
}

// DefaultLoginButton places the button below the password login button.
func DefaultLoginButton() LoginButton {
	return LoginButton{
		Weight:            100,
		Flags:             []string{},
		PresentationClass: "HTMLButtonField",
	}
}

// MergeButton overlays b onto the host's form descriptor. Only the entry under
// LoginButtonKey is touched; its "type" is dropped since the class defines it.
// The input map is not modified.
func MergeButton(form map[string]map[string]any, b LoginButton) map[string]map[string]any {
	out := make(map[string]map[string]any, len(form))
	for k, v := range form {
		out[k] = v
	}

	entry, ok := form[LoginButtonKey]
	if !ok {
		return out
	}

	merged := make(map[string]any, len(entry)+3)
	for k, v := range entry {
		merged[k] = v
	}
	flags := b.Flags
	if flags == nil {
		flags = []string{}
	}
	merged["weight"] = b.Weight
	merged["flags"] = append(make([]string, 0, len(flags)), flags...)
	merged["class"] = b.PresentationClass
	delete(merged, "type")

	out[LoginButtonKey] = merged
	return out
}
