package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	sessionCookie = "fva_session"
	stateCookie   = "fva_oauth_state"
)

var errBadSession = errors.New("invalid session cookie")

type sessionPayload struct {
	User    User  `json:"u"`
	Expires int64 `json:"e"`
}

// Sessions stores the signed-in user in an HMAC-signed cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions creates a cookie session store. secure marks cookies HTTPS-only.
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Set writes the session cookie for user.
func (s *Sessions) Set(w http.ResponseWriter, user *User) error {
	data, err := json.Marshal(sessionPayload{User: *user, Expires: s.now().Add(s.ttl).Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sign(data),
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get returns the user of a valid, unexpired session.
func (s *Sessions) Get(r *http.Request) (*User, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}
	data, err := s.verify(c.Value)
	if err != nil {
		return nil, err
	}
	var p sessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errBadSession
	}
	if s.now().Unix() > p.Expires {
		return nil, errors.New("session expired")
	}
	return &p.User, nil
}

// Clear removes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})
}

// NewState stores a random OAuth state value in a short-lived cookie and returns it.
func (s *Sessions) NewState(w http.ResponseWriter) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    s.sign([]byte(state)),
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// CheckState reports whether state matches the cookie set by NewState, and clears it.
func (s *Sessions) CheckState(w http.ResponseWriter, r *http.Request, state string) bool {
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return false
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})
	want, err := s.verify(c.Value)
	if err != nil || state == "" {
		return false
	}
	return hmac.Equal(want, []byte(state))
}

func (s *Sessions) sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Sessions) verify(value string) ([]byte, error) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, errBadSession
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, errBadSession
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, errBadSession
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return nil, errBadSession
	}
	return data, nil
}
