package external

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// coinbaseSigner mints the short-lived ES256 bearer tokens the Advanced
// Trade API expects, one per request.
type coinbaseSigner struct {
	keyName string
	key     *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

func newCoinbaseSigner(keyName, privateKeyPEM string) (*coinbaseSigner, error) {
	if keyName == "" || privateKeyPEM == "" {
		return nil, fmt.Errorf("coinbase key name and private key are required")
	}
	// Keys pasted into env files usually carry literal \n sequences.
	privateKeyPEM = strings.ReplaceAll(privateKeyPEM, `\n`, "\n")

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse coinbase private key: %w", err)
	}
	return &coinbaseSigner{keyName: keyName, key: key, ttl: 2 * time.Minute, now: time.Now}, nil
}

// token signs a JWT bound to a single method + host + path.
func (s *coinbaseSigner) token(method, host, path string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss": "cdp",
		"sub": s.keyName,
		"nbf": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"uri": fmt.Sprintf("%s %s%s", method, host, path),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = s.keyName

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	tok.Header["nonce"] = hex.EncodeToString(nonce)

	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign coinbase token: %w", err)
	}
	return signed, nil
}
