package domain

// Identity describes the signed-in user as reported by the OAuth
// provider. The zero value means "signed out".
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// SignedIn reports whether the identity refers to an authenticated user.
func (i Identity) SignedIn() bool { return i.ID != "" }
