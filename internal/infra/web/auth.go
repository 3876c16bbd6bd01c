package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadPassword  = errors.New("invalid admin password")
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type AuthConfig struct {
	Password     string
	HMACSecret   []byte
	CookieName   string
	SecureCookie bool
	TTL          time.Duration
}

// AuthManager issues and checks the HS256 admin session token.
type AuthManager struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthManager(password, secret string, secure bool, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AuthManager{
		cfg: AuthConfig{
			Password:     password,
			HMACSecret:   []byte(secret),
			CookieName:   "admin_session",
			SecureCookie: secure,
			TTL:          ttl,
		},
		now: time.Now,
	}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login checks password and, on success, returns a signed token and sets it as a cookie.
// An empty configured password disables login entirely.
func (a *AuthManager) Login(w http.ResponseWriter, password string) (string, time.Time, error) {
	if a.cfg.Password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) != 1 {
		return "", time.Time{}, ErrBadPassword
	}
	return a.Mint(w)
}

func (a *AuthManager) Mint(w http.ResponseWriter) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.cfg.TTL)
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "admin",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, exp, nil
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
		return nil, ErrInvalidToken
	}
	if c, err := r.Cookie(a.cfg.CookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, ErrMissingToken
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid || claims.Role != "admin" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
