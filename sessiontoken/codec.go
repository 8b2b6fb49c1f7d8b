package sessiontoken

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair (alg EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrInvalidToken is wrapped by every [Codec.Decode] failure.
var ErrInvalidToken = errors.New("sessiontoken: invalid token")

// Config configures a [Codec].
//
// Keys may be raw bytes or PEM. For Ed25519 a codec built with only a public
// key can decode but not encode.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	KeyID         string
}

// Claims is the JWT payload.
type Claims struct {
	UID  int64  `json:"uid"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes session snapshots. It is safe for concurrent use.
type Codec struct {
	cfg       Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

// New validates cfg and returns a codec.
func New(cfg Config) (*Codec, error) {
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	c := &Codec{cfg: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("sessiontoken: hs256 secret must be at least 32 bytes")
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case MethodEd25519:
		c.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
			c.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verifyKey = pub
		}
		if c.verifyKey == nil {
			return nil, errors.New("sessiontoken: ed25519 requires a private or public key")
		}
	default:
		return nil, fmt.Errorf("sessiontoken: unsupported signing method %q", cfg.SigningMethod)
	}
	return c, nil
}

// Encode signs s. A nil or guest current user is encoded as uid 0.
func (c *Codec) Encode(s passAuth.SessionSnapshot) (string, error) {
	if c.signKey == nil {
		return "", errors.New("sessiontoken: codec has no signing key")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   c.cfg.Issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if !passAuth.IsGuest(s.CurrentUser) {
		claims.UID = s.CurrentUser.ID
		claims.Name = s.CurrentUser.Name
	}
	if !s.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(s.ExpiresAt)
	}

	token := jwt.NewWithClaims(c.method, claims)
	if c.cfg.KeyID != "" {
		token.Header["kid"] = c.cfg.KeyID
	}
	return token.SignedString(c.signKey)
}

// Decode verifies token and rebuilds the snapshot. Signature, algorithm,
// issuer and key id are checked; an elapsed exp is not an error.
//
// The rebuilt CurrentUser carries only ID and Name.
func (c *Codec) Decode(token string) (passAuth.SessionSnapshot, error) {
	claims, err := c.parse(token)
	if err != nil {
		return passAuth.SessionSnapshot{}, err
	}

	var snap passAuth.SessionSnapshot
	if claims.UID < 1 {
		guest := passAuth.Guest()
		snap.CurrentUser = &guest
	} else {
		snap.CurrentUser = &passAuth.UserRecord{ID: claims.UID, Name: claims.Name}
	}
	if claims.ExpiresAt != nil {
		snap.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return snap, nil
}

func (c *Codec) parse(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	}
	parser := jwt.NewParser(options...)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if c.cfg.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != c.cfg.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if c.cfg.Issuer != "" && claims.Issuer != c.cfg.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("sessiontoken: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("sessiontoken: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("sessiontoken: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("sessiontoken: invalid ed25519 public key type")
	}
	return edKey, nil
}
