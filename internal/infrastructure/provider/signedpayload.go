package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

// maxAuthAge bounds how old a signed payload may be. The signature
// carries no nonce, so the auth_date window is the only replay bound.
const maxAuthAge = 24 * time.Hour

// SignedPayloadConfig configures a signed-payload client.
type SignedPayloadConfig struct {
	Provider domain.Provider
	// BotToken is the shared secret the provider signed the payload with.
	BotToken string
}

// SignedPayloadClient verifies widget logins where the provider signs a
// flat field map and the browser forwards it verbatim (telegram). No
// network calls are made; the HMAC is the whole verification.
type SignedPayloadClient struct {
	cfg SignedPayloadConfig
	now func() time.Time
}

func NewSignedPayloadClient(cfg SignedPayloadConfig) *SignedPayloadClient {
	return &SignedPayloadClient{cfg: cfg, now: time.Now}
}

func (c *SignedPayloadClient) Name() domain.Provider { return c.cfg.Provider }

func (c *SignedPayloadClient) Normalize(ctx context.Context, cred Credential) (domain.ExternalIdentity, error) {
	if len(cred.Payload) == 0 {
		return domain.ExternalIdentity{}, domain.ErrMissingCredential("auth_data")
	}

	suppliedHash, ok := cred.Payload["hash"]
	if !ok || suppliedHash == "" {
		return domain.ExternalIdentity{}, domain.ErrMissingCredential("hash")
	}

	if !c.verify(cred.Payload, suppliedHash) {
		return domain.ExternalIdentity{}, domain.ErrSignatureMismatch()
	}

	if err := c.checkFreshness(cred.Payload["auth_date"]); err != nil {
		return domain.ExternalIdentity{}, err
	}

	externalID := cred.Payload["id"]
	if externalID == "" {
		return domain.ExternalIdentity{}, domain.ErrMissingCredential("id")
	}

	return domain.ExternalIdentity{
		Provider:     c.cfg.Provider,
		ExternalID:   externalID,
		UsernameHint: cred.Payload["username"],
		DisplayName:  cred.Payload["first_name"],
		AvatarURL:    cred.Payload["photo_url"],
	}, nil
}

// checkFreshness rejects payloads whose auth_date is absent, unreadable,
// or outside the accepted window. Small clock skew into the future is
// tolerated.
func (c *SignedPayloadClient) checkFreshness(authDate string) error {
	if authDate == "" {
		return domain.ErrMissingCredential("auth_date")
	}
	ts, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil {
		return domain.ErrInvalidField("auth_date", "not a unix timestamp")
	}
	age := c.now().Sub(time.Unix(ts, 0))
	if age > maxAuthAge || age < -5*time.Minute {
		return domain.ErrStalePayload()
	}
	return nil
}

// verify recomputes the payload HMAC: the key is the SHA-256 digest of the
// bot token, the message is every field except "hash" sorted by name and
// joined as key=value lines.
func (c *SignedPayloadClient) verify(payload map[string]string, suppliedHash string) bool {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+payload[k])
	}
	checkString := strings.Join(lines, "\n")

	secret := sha256.Sum256([]byte(c.cfg.BotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	// Constant-time compare; the supplied hash is attacker-controlled.
	return hmac.Equal([]byte(computed), []byte(suppliedHash))
}
