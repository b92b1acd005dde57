package domain

// User is a local account. Each provider has exactly one external-id slot;
// a non-nil slot value is unique across all accounts.
type User struct {
	ID           string
	Email        string // empty for accounts created from providers without email
	Username     string
	PasswordHash string // empty for provider-only accounts
	AvatarID     *string

	GoogleID   *string
	GitHubID   *string
	TelegramID *string
}

// ProviderID returns the external-id slot for the given provider.
// Nil when the account is not linked to that provider.
func (u *User) ProviderID(p Provider) *string {
	switch p {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderGitHub:
		return u.GitHubID
	case ProviderTelegram:
		return u.TelegramID
	}
	return nil
}

// SetProviderID sets (or clears, with nil) the external-id slot for the
// given provider. Unknown providers are a no-op; callers validate first.
func (u *User) SetProviderID(p Provider, externalID *string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = externalID
	case ProviderGitHub:
		u.GitHubID = externalID
	case ProviderTelegram:
		u.TelegramID = externalID
	}
}

// Linked reports whether the account has an external identity for p.
func (u *User) Linked(p Provider) bool {
	return u.ProviderID(p) != nil
}
