package domain

// Provider identifies a supported external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderTelegram Provider = "telegram"
)

// Providers returns the fixed set of supported providers.
func Providers() []Provider {
	return []Provider{ProviderGoogle, ProviderGitHub, ProviderTelegram}
}

// ParseProvider validates a provider name supplied by a client.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderGoogle, ProviderGitHub, ProviderTelegram:
		return Provider(name), nil
	default:
		return "", ErrUnsupportedProvider(name)
	}
}

// ExternalIdentity is the normalized output of a provider client: a
// provider-scoped user reference plus optional profile fields, not yet
// matched to a local account.
type ExternalIdentity struct {
	Provider     Provider
	ExternalID   string // provider-scoped unique id, never empty
	Email        string // optional; telegram never supplies one
	UsernameHint string
	DisplayName  string // optional
	AvatarURL    string // optional
}

// LinkKind tags the outcome of resolving an external identity.
type LinkKind string

const (
	// LinkCreated means a new account was created for the identity.
	LinkCreated LinkKind = "created"
	// LinkAttached means the identity was attached to an existing account
	// matched by email.
	LinkAttached LinkKind = "attached"
	// LinkReused means the identity was already linked to a known account.
	LinkReused LinkKind = "reused"
)

// LinkOutcome is the result of a successful identity resolution. Conflicts
// are reported as domain errors, not outcomes.
type LinkOutcome struct {
	Kind LinkKind
	User User
}
