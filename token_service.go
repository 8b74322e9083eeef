package authapi

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RevocationStore tracks invalidated token ids until their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	revocations     RevocationStore
	logger          Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// WithRevocationStore wires the denylist consulted on Validate and written on
// Invalidate. Without a store tokens only expire through their exp claim.
func (ts *TokenServiceImpl) WithRevocationStore(store RevocationStore) *TokenServiceImpl {
	ts.revocations = store
	return ts
}

// Generate creates a signed JWT bound to the given identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", ErrIdentityNotFound
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UID: identity.ID(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Revoked token ids are rejected even when the signature is still valid.
func (ts *TokenServiceImpl) Validate(ctx context.Context, tokenString string) (AuthClaims, error) {
	claims, err := ts.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if ts.revocations != nil {
		revoked, err := ts.revocations.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Invalidate records the token's jti in the revocation store until the token
// would expire on its own. Invalidating an already revoked token is a no-op.
func (ts *TokenServiceImpl) Invalidate(ctx context.Context, tokenString string) error {
	if ts.revocations == nil {
		return errors.New("no revocation store configured", errors.CategoryInternal)
	}

	claims, err := ts.parse(tokenString)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		// Revocation keys on the jti, a non-uuid subject only loses attribution.
		ts.logger.Warn("TokenService invalidate: subject %q is not a uuid", claims.UserID())
	}

	if err := ts.revocations.Revoke(ctx, claims.TokenID(), userID, claims.Expires()); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token")
	}

	return nil
}

func (ts *TokenServiceImpl) parse(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

// ensureTokenID assigns a unique jti so individual tokens can be revoked.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
