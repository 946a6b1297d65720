package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestPolicyService(t *testing.T) {
	p := NewPolicyService("1, 2", "3,notanumber").WithEmails([]string{"Chief@Gov.bc.ca"}, []string{"ranger@gov.bc.ca"})

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"admin id", p.IsAdmin(1), true},
		{"allowed id", p.IsAllowed(3), true},
		{"admin implicitly allowed", p.IsAllowed(2), true},
		{"stranger id", p.IsAllowed(9), false},
		{"allowed email", p.IsEmailAllowed("ranger@gov.bc.ca"), true},
		{"admin email case-insensitive", p.IsEmailAdmin("chief@gov.bc.ca"), true},
		{"admin email allowed", p.IsEmailAllowed("CHIEF@gov.bc.ca"), true},
		{"stranger email", p.IsEmailAllowed("someone@example.com"), false},
		{"empty email", p.IsEmailAllowed(""), false},
		{"search tool", p.IsToolAllowed(9, "web_search"), true},
		{"speech for allowed user", p.IsToolAllowed(3, "speech"), true},
		{"unknown tool", p.IsToolAllowed(3, "delete_index"), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	open := NewPolicyService("", "")
	if !open.IsAllowed(42) || !open.IsEmailAllowed("any@example.com") {
		t.Fatalf("empty allow lists should admit everyone")
	}
}

func cookieRequest(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessions(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	rec := httptest.NewRecorder()
	if err := s.Set(rec, &User{Subject: "auth0|1", Email: "ranger@gov.bc.ca"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	user, err := s.Get(cookieRequest(rec))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if user.Email != "ranger@gov.bc.ca" {
		t.Fatalf("unexpected user %+v", user)
	}

	other := NewSessions("different", time.Hour, false)
	if _, err := other.Get(cookieRequest(rec)); err == nil {
		t.Fatalf("cookie signed with another secret must be rejected")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	c := rec.Result().Cookies()[0]
	r.AddCookie(&http.Cookie{Name: c.Name, Value: "x" + c.Value})
	if _, err := s.Get(r); err == nil {
		t.Fatalf("tampered cookie must be rejected")
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Get(cookieRequest(rec)); err == nil {
		t.Fatalf("expired session must be rejected")
	}
}

func TestOAuthState(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	rec := httptest.NewRecorder()
	state, err := s.NewState(rec)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if !s.CheckState(httptest.NewRecorder(), cookieRequest(rec), state) {
		t.Fatalf("matching state rejected")
	}
	if s.CheckState(httptest.NewRecorder(), cookieRequest(rec), "forged") {
		t.Fatalf("forged state accepted")
	}
}

func TestAuth0Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			r.ParseForm()
			if r.Form.Get("code") != "abc" {
				t.Errorf("unexpected code %q", r.Form.Get("code"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			w.Write([]byte(`{"sub":"auth0|1","email":"ranger@gov.bc.ca","name":"Ranger"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewAuth0(Auth0Config{
		Domain:            srv.URL,
		ClientID:          "cid",
		ClientSecret:      "secret",
		CallbackURL:       "http://localhost:8501/callback",
		LogoutCallbackURL: "http://localhost:8501/",
	})

	login, err := url.Parse(a.LoginURL("st"))
	if err != nil {
		t.Fatalf("parse login url: %v", err)
	}
	if login.Path != "/authorize" || login.Query().Get("state") != "st" || !strings.Contains(login.Query().Get("scope"), "email") {
		t.Fatalf("unexpected login url %s", login)
	}
	if !strings.Contains(a.LogoutURL(), "returnTo=http%3A%2F%2Flocalhost%3A8501%2F") {
		t.Fatalf("unexpected logout url %s", a.LogoutURL())
	}

	user, err := a.Exchange(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if user.Email != "ranger@gov.bc.ca" || user.Name != "Ranger" {
		t.Fatalf("unexpected user %+v", user)
	}
}
