package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// chainRecorder drives the fake Xbox Live chain and records what the
// flow sent to it.
type chainRecorder struct {
	hits        map[string]int
	bodies      map[string]string
	bearer      string
	accessToken string

	xblStatus     int
	xblMessage    string
	xstsStatus    int
	xstsUhs       string
	profileStatus int
	profileName   string
}

func newChainServer(t *testing.T) *chainRecorder {
	t.Helper()
	rec := &chainRecorder{
		hits:        map[string]int{},
		bodies:      map[string]string{},
		accessToken: fakeJWT(`{"xuid": "2535408740"}`),
		xstsUhs:     "uhs-1",
		profileName: "Notch",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.hits[r.URL.Path]++
		rec.bodies[r.URL.Path] = string(body)
		switch r.URL.Path {
		case "/xbl":
			if rec.xblStatus != 0 {
				w.WriteHeader(rec.xblStatus)
				fmt.Fprintf(w, `{"Message": %q}`, rec.xblMessage)
				return
			}
			fmt.Fprint(w, `{"Token": "xbl-token", "DisplayClaims": {"xui": [{"uhs": "uhs-1"}]}}`)
		case "/xsts":
			if rec.xstsStatus != 0 {
				w.WriteHeader(rec.xstsStatus)
				return
			}
			fmt.Fprintf(w, `{"Token": "xsts-token", "DisplayClaims": {"xui": [{"uhs": %q}]}}`, rec.xstsUhs)
		case "/login":
			fmt.Fprintf(w, `{"access_token": %q, "expires_in": 86400}`, rec.accessToken)
		case "/profile":
			rec.bearer = r.Header.Get("Authorization")
			if rec.profileStatus != 0 {
				w.WriteHeader(rec.profileStatus)
				return
			}
			fmt.Fprintf(w, `{"id": "069a79f444e94726a5befca90e38aaf5", "name": %q}`, rec.profileName)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	saved := endpoints
	endpoints.xblAuth = server.URL + "/xbl"
	endpoints.xstsAuth = server.URL + "/xsts"
	endpoints.mcLogin = server.URL + "/login"
	endpoints.mcProfile = server.URL + "/profile"
	t.Cleanup(func() { endpoints = saved })
	return rec
}

// tokenRecorder fakes the Microsoft token endpoint.
type tokenRecorder struct {
	hits int
	form url.Values
}

func newOAuthConfig(t *testing.T) (*oauth2.Config, *tokenRecorder) {
	t.Helper()
	rec := &tokenRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		rec.hits++
		rec.form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"access_token": "ms-access-token",
			"token_type": "Bearer",
			"refresh_token": "ms-refresh-token-2",
			"expires_in": 3600
		}`)
	}))
	t.Cleanup(server.Close)
	return &oauth2.Config{
		ClientID: "test-app",
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/authorize",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"XboxLive.signin", "offline_access"},
	}, rec
}

func newTestMicrosoft(t *testing.T) (*Microsoft, *chainRecorder, *tokenRecorder) {
	t.Helper()
	chain := newChainServer(t)
	conf, tokens := newOAuthConfig(t)
	return &Microsoft{Config: conf, Timeout: 10 * time.Second}, chain, tokens
}

// browse acts as the user authorizing in the browser, following the
// redirect back to the local server with the given query.
func browse(t *testing.T, authorize *url.Values, answer func(q url.Values) url.Values) func(string) error {
	t.Helper()
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		if authorize != nil {
			*authorize = q
		}
		res, err := http.Get(q.Get("redirect_uri") + "?" + answer(q).Encode())
		if err != nil {
			return err
		}
		return res.Body.Close()
	}
}

func grant(q url.Values) url.Values {
	return url.Values{"code": {"fake-code"}, "state": {q.Get("state")}}
}

func fakeJWT(claims string) string {
	return "e30." + base64.RawURLEncoding.EncodeToString([]byte(claims)) + ".sig"
}

func TestMicrosoftAuthenticate(t *testing.T) {
	m, chain, tokens := newTestMicrosoft(t)
	var authorize url.Values
	m.OpenURL = browse(t, &authorize, grant)

	sess, err := m.Authenticate(context.Background(), "Someone@Example.com")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if authorize.Get("login_hint") != "Someone@Example.com" {
		t.Errorf("login_hint = %q", authorize.Get("login_hint"))
	}
	if authorize.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q", authorize.Get("code_challenge_method"))
	}
	sum := sha256.Sum256([]byte(tokens.form.Get("code_verifier")))
	if challenge := base64.RawURLEncoding.EncodeToString(sum[:]); authorize.Get("code_challenge") != challenge {
		t.Errorf("code_challenge = %q, want %q", authorize.Get("code_challenge"), challenge)
	}
	if got := tokens.form.Get("grant_type"); got != "authorization_code" {
		t.Errorf("grant_type = %q", got)
	}
	if got := tokens.form.Get("code"); got != "fake-code" {
		t.Errorf("code = %q", got)
	}

	if sess.Email != "someone@example.com" {
		t.Errorf("email = %q", sess.Email)
	}
	if sess.Name != "Notch" || sess.ID != "069a79f444e94726a5befca90e38aaf5" {
		t.Errorf("profile = %q %q", sess.Name, sess.ID)
	}
	if sess.XID != "2535408740" {
		t.Errorf("xuid = %q", sess.XID)
	}
	if sess.AppID != "test-app" {
		t.Errorf("app id = %q", sess.AppID)
	}
	if sess.AccessToken != chain.accessToken {
		t.Errorf("access token = %q", sess.AccessToken)
	}
	if sess.RefreshToken != "ms-refresh-token-2" {
		t.Errorf("refresh token = %q", sess.RefreshToken)
	}
	if left := time.Until(sess.ExpiresAt); left < 23*time.Hour || left > 25*time.Hour {
		t.Errorf("expires in %v", left)
	}
	if sess.Expired() {
		t.Error("fresh session already expired")
	}
	if sess.UserType() != "msa" {
		t.Errorf("user type = %q", sess.UserType())
	}
	if got := sess.TokenArgument(true); got != "token:"+chain.accessToken+":"+sess.ID {
		t.Errorf("legacy token argument = %q", got)
	}

	for _, path := range []string{"/xbl", "/xsts", "/login", "/profile"} {
		if chain.hits[path] != 1 {
			t.Errorf("%s requested %d times", path, chain.hits[path])
		}
	}
	if !strings.Contains(chain.bodies["/xbl"], `"d=ms-access-token"`) {
		t.Errorf("xbl body = %s", chain.bodies["/xbl"])
	}
	if !strings.Contains(chain.bodies["/login"], "XBL3.0 x=uhs-1;xsts-token") {
		t.Errorf("login body = %s", chain.bodies["/login"])
	}
}

func TestMicrosoftAuthenticateDeclined(t *testing.T) {
	m, chain, _ := newTestMicrosoft(t)
	m.OpenURL = browse(t, nil, func(q url.Values) url.Values {
		return url.Values{"error": {"access_denied"}, "state": {q.Get("state")}}
	})

	_, err := m.Authenticate(context.Background(), "someone@example.com")
	declined := &DeclinedError{}
	if !errors.As(err, &declined) {
		t.Fatalf("authenticate: %v", err)
	}
	if chain.hits["/xbl"] != 0 {
		t.Error("chain reached after a declined authorization")
	}
}

func TestMicrosoftAuthenticateStateMismatch(t *testing.T) {
	m, _, tokens := newTestMicrosoft(t)
	m.OpenURL = browse(t, nil, func(url.Values) url.Values {
		return url.Values{"code": {"fake-code"}, "state": {"forged"}}
	})

	_, err := m.Authenticate(context.Background(), "someone@example.com")
	unknown := &UnknownError{}
	if !errors.As(err, &unknown) {
		t.Fatalf("authenticate: %v", err)
	}
	if tokens.hits != 0 {
		t.Error("code exchanged despite the state mismatch")
	}
}

func TestMicrosoftAuthenticateTimeout(t *testing.T) {
	m, _, _ := newTestMicrosoft(t)
	m.Timeout = 50 * time.Millisecond
	m.OpenURL = func(string) error { return nil }

	_, err := m.Authenticate(context.Background(), "someone@example.com")
	timedOut := &TimedOutError{}
	if !errors.As(err, &timedOut) {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestMicrosoftAuthenticateProfileErrors(t *testing.T) {
	m, chain, _ := newTestMicrosoft(t)
	m.OpenURL = browse(t, nil, grant)

	chain.profileStatus = http.StatusNotFound
	_, err := m.Authenticate(context.Background(), "someone@example.com")
	noGame := &DoesNotOwnGameError{}
	if !errors.As(err, &noGame) {
		t.Errorf("profile 404: %v", err)
	}

	chain.profileStatus = http.StatusUnauthorized
	_, err = m.Authenticate(context.Background(), "someone@example.com")
	outdated := &OutdatedTokenError{}
	if !errors.As(err, &outdated) {
		t.Errorf("profile 401: %v", err)
	}

	chain.profileStatus = http.StatusInternalServerError
	_, err = m.Authenticate(context.Background(), "someone@example.com")
	status := &StatusError{}
	if !errors.As(err, &status) || status.Status != http.StatusInternalServerError {
		t.Errorf("profile 500: %v", err)
	}
}

func TestMicrosoftAuthenticateChainErrors(t *testing.T) {
	m, chain, _ := newTestMicrosoft(t)
	m.OpenURL = browse(t, nil, grant)

	chain.xblStatus = http.StatusUnauthorized
	chain.xblMessage = "account has no xbox profile"
	_, err := m.Authenticate(context.Background(), "someone@example.com")
	unknown := &UnknownError{}
	if !errors.As(err, &unknown) || unknown.Message != "account has no xbox profile" {
		t.Errorf("xbl error: %v", err)
	}

	chain.xblStatus = 0
	chain.xstsStatus = http.StatusInternalServerError
	_, err = m.Authenticate(context.Background(), "someone@example.com")
	status := &StatusError{}
	if !errors.As(err, &status) || status.Status != http.StatusInternalServerError {
		t.Errorf("xsts error: %v", err)
	}

	chain.xstsStatus = 0
	chain.xstsUhs = "uhs-2"
	_, err = m.Authenticate(context.Background(), "someone@example.com")
	if !errors.As(err, &unknown) || unknown.Message != "incoherent user hash" {
		t.Errorf("uhs mismatch: %v", err)
	}
}

func TestMicrosoftRefresh(t *testing.T) {
	m, chain, tokens := newTestMicrosoft(t)
	sess := &MicrosoftSession{
		Email:        "someone@example.com",
		Name:         "OldName",
		ID:           "old-id",
		AppID:        "test-app",
		LauncherID:   "launcher-1",
		RefreshToken: "old-refresh",
	}

	if err := m.Refresh(context.Background(), sess); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := tokens.form.Get("grant_type"); got != "refresh_token" {
		t.Errorf("grant_type = %q", got)
	}
	if got := tokens.form.Get("refresh_token"); got != "old-refresh" {
		t.Errorf("refresh_token = %q", got)
	}
	if got := tokens.form.Get("client_id"); got != "test-app" {
		t.Errorf("client_id = %q", got)
	}

	if sess.Name != "Notch" || sess.ID != "069a79f444e94726a5befca90e38aaf5" {
		t.Errorf("profile = %q %q", sess.Name, sess.ID)
	}
	if sess.AccessToken != chain.accessToken {
		t.Errorf("access token = %q", sess.AccessToken)
	}
	if sess.RefreshToken != "ms-refresh-token-2" {
		t.Errorf("refresh token = %q", sess.RefreshToken)
	}
	if sess.Email != "someone@example.com" || sess.LauncherID != "launcher-1" {
		t.Errorf("identity lost on refresh: %q %q", sess.Email, sess.LauncherID)
	}
	if sess.XID != "2535408740" {
		t.Errorf("xuid = %q", sess.XID)
	}
}

func TestMicrosoftRefreshWithoutToken(t *testing.T) {
	m, chain, tokens := newTestMicrosoft(t)

	err := m.Refresh(context.Background(), &MicrosoftSession{Email: "someone@example.com"})
	outdated := &OutdatedTokenError{}
	if !errors.As(err, &outdated) {
		t.Fatalf("refresh: %v", err)
	}
	if tokens.hits != 0 || chain.hits["/xbl"] != 0 {
		t.Error("network reached without a refresh token")
	}
}

func TestMicrosoftValidate(t *testing.T) {
	m, chain, _ := newTestMicrosoft(t)
	chain.profileName = "Renamed"

	sess := &MicrosoftSession{
		Name:        "OldName",
		AccessToken: "token-x",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if !m.Validate(context.Background(), sess) {
		t.Fatal("valid session rejected")
	}
	if sess.Name != "Renamed" {
		t.Errorf("username = %q", sess.Name)
	}
	if chain.bearer != "Bearer token-x" {
		t.Errorf("authorization = %q", chain.bearer)
	}

	// An expired token is rejected without asking the services.
	expired := &MicrosoftSession{AccessToken: "token-x", ExpiresAt: time.Now().Add(-time.Hour)}
	if m.Validate(context.Background(), expired) {
		t.Error("expired session accepted")
	}
	if m.Validate(context.Background(), &MicrosoftSession{ExpiresAt: time.Now().Add(time.Hour)}) {
		t.Error("session without a token accepted")
	}
	if chain.hits["/profile"] != 1 {
		t.Errorf("profile requested %d times", chain.hits["/profile"])
	}

	chain.profileStatus = http.StatusUnauthorized
	sess.ExpiresAt = time.Now().Add(time.Hour)
	if m.Validate(context.Background(), sess) {
		t.Error("rejected token accepted")
	}
}

func TestMicrosoftSessionExpired(t *testing.T) {
	sess := &MicrosoftSession{ExpiresAt: time.Now().Add(30 * time.Second)}
	if !sess.Expired() {
		t.Error("session about to expire not refreshed")
	}
	sess.ExpiresAt = time.Now().Add(2 * time.Minute)
	if sess.Expired() {
		t.Error("session with time left expired")
	}
}

func TestXuidClaim(t *testing.T) {
	cases := []struct {
		name  string
		token string
		want  string
	}{
		{"valid", fakeJWT(`{"xuid": "123"}`), "123"},
		{"no claim", fakeJWT(`{}`), ""},
		{"not json", fakeJWT("junk"), ""},
		{"not a jwt", "opaque-token", ""},
		{"bad encoding", "a.!!!.c", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := xuidClaim(c.token); got != c.want {
				t.Errorf("xuid = %q, want %q", got, c.want)
			}
		})
	}
}
