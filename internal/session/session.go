// Package session reads the back-office access token: who the user is, which
// stores they belong to and which one is current.
package session

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/storectx"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type StoreClaim struct {
	ID     domain.StoreID `json:"id"`
	Name   string         `json:"name"`
	Active bool           `json:"active"`
}

type backofficeClaims struct {
	jwtlib.RegisteredClaims
	Role    string         `json:"role"`
	StoreID domain.StoreID `json:"store_id,omitempty"`
	Stores  []StoreClaim   `json:"stores,omitempty"`
}

type Session struct {
	Username  string
	Role      string
	Token     string
	StoreID   *domain.StoreID
	Stores    []domain.Store
	ExpiresAt time.Time
}

// StoreContext seeds a current-store context from the session.
func (s *Session) StoreContext() *storectx.Context {
	return storectx.New(s.StoreID, s.Stores)
}

// CacheScope identifies what the session may see: the user, the role and
// the stores they belong to. Sessions with the same scope may share cached
// list pages.
func (s *Session) CacheScope() string {
	ids := make([]int64, 0, len(s.Stores))
	for _, st := range s.Stores {
		ids = append(ids, int64(st.ID))
	}
	slices.Sort(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range slices.Compact(ids) {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return "user:" + s.Username + "|role:" + s.Role + "|stores:" + strings.Join(parts, ",")
}

type Parser struct {
	secret []byte
	now    func() time.Time
}

// NewParser verifies HS256 signatures with secret. With an empty secret the
// signature is not checked, only the claims and expiry; that mode is for
// clients that only forward the token to the API that issued it.
func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

func (p *Parser) Verifies() bool {
	return len(p.secret) > 0
}

func (p *Parser) Parse(tokenStr string) (*Session, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenStr), "Bearer "))
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	claims := &backofficeClaims{}
	if p.Verifies() {
		token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return p.secret, nil
		}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(p.now))
		if err != nil || !token.Valid {
			return nil, ErrInvalidToken
		}
	} else {
		if _, _, err := jwtlib.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, ErrInvalidToken
		}
		if claims.ExpiresAt != nil && !claims.ExpiresAt.After(p.now()) {
			return nil, ErrInvalidToken
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	s := &Session{
		Username: sub,
		Role:     claims.Role,
		Token:    tokenStr,
		Stores:   make([]domain.Store, 0, len(claims.Stores)),
	}
	for _, st := range claims.Stores {
		s.Stores = append(s.Stores, domain.Store{ID: st.ID, Name: st.Name, Active: st.Active})
	}
	if claims.StoreID > 0 {
		id := claims.StoreID
		s.StoreID = &id
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Sign issues an HS256 token for s that expires after ttl.
func Sign(secret string, s Session, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := time.Now().UTC()
	claims := backofficeClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   s.Username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			Issuer:    "kasirinaja",
		},
		Role: s.Role,
	}
	if s.StoreID != nil {
		claims.StoreID = *s.StoreID
	}
	for _, st := range s.Stores {
		claims.Stores = append(claims.Stores, StoreClaim{ID: st.ID, Name: st.Name, Active: st.Active})
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
