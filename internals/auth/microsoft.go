package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/portablemc/portablemc/internals/utils"
)

// AzureAppID identifies the launcher to the Microsoft identity platform.
const AzureAppID = "708e91b5-99f8-4a1d-80ec-e746cbb24771"

// MicrosoftSession is an authenticated Minecraft account. The secrets are
// the Minecraft access token and the Microsoft refresh token renewing it.
type MicrosoftSession struct {
	Email        string    `json:"-"`
	Name         string    `json:"username"`
	ID           string    `json:"uuid"`
	XID          string    `json:"xuid"`
	AppID        string    `json:"app_id"`
	LauncherID   string    `json:"client_id"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *MicrosoftSession) Username() string { return s.Name }

func (s *MicrosoftSession) UUID() string { return s.ID }

// TokenArgument renders the access token, legacy versions want the full
// session string.
func (s *MicrosoftSession) TokenArgument(legacy bool) string {
	if legacy {
		return "token:" + s.AccessToken + ":" + s.ID
	}
	return s.AccessToken
}

func (s *MicrosoftSession) Xuid() string { return s.XID }

func (s *MicrosoftSession) ClientID() string { return s.LauncherID }

func (s *MicrosoftSession) UserType() string { return "msa" }

// Expired reports whether the access token needs a refresh, with a
// minute of margin for clock skew.
func (s *MicrosoftSession) Expired() bool {
	return s.ExpiresAt.Before(time.Now().Add(time.Minute))
}

// Microsoft authenticates accounts with the authorization code flow: the
// browser logs the user in against the consumers tenant and redirects to
// a short lived local server, then the Xbox Live chain turns the account
// token into a Minecraft session.
type Microsoft struct {
	// Client performs the chain requests, defaults to http.DefaultClient.
	Client *http.Client
	// Config overrides the oauth application, defaulting to the
	// launcher's Azure app.
	Config *oauth2.Config
	// ListenAddr is the local address the browser is redirected to,
	// defaults to a dynamic loopback port.
	ListenAddr string
	// OpenURL opens the authorization page, defaults to the system
	// browser.
	OpenURL func(url string) error
	// Timeout bounds the wait for the browser redirect, defaults to five
	// minutes.
	Timeout time.Duration
}

// callbackPage is served to the browser once the redirect came in.
const callbackPage = `<!DOCTYPE html>
<html lang="en">
<head><script>window.close();</script></head>
<body>Login done, you can close this window.</body>
</html>`

// Authenticate runs the full flow for an email, the hint preselects the
// account in the browser.
func (m *Microsoft) Authenticate(ctx context.Context, email string) (*MicrosoftSession, error) {
	code, conf, verifier, err := m.authorizationCode(ctx, email)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client())
	token, err := conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, &OutdatedTokenError{}
	}
	sess, err := m.completeChain(ctx, token)
	if err != nil {
		return nil, err
	}
	sess.Email = strings.ToLower(email)
	sess.AppID = conf.ClientID
	return sess, nil
}

// Refresh renews the session from its refresh token and runs the chain
// again, updating the profile fields in place.
func (m *Microsoft) Refresh(ctx context.Context, sess *MicrosoftSession) error {
	if sess.RefreshToken == "" {
		return &OutdatedTokenError{}
	}
	conf := m.config()
	if sess.AppID != "" {
		conf.ClientID = sess.AppID
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client())
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: sess.RefreshToken}).Token()
	if err != nil {
		return &OutdatedTokenError{}
	}
	fresh, err := m.completeChain(ctx, token)
	if err != nil {
		return err
	}
	fresh.Email = sess.Email
	fresh.AppID = conf.ClientID
	fresh.LauncherID = sess.LauncherID
	*sess = *fresh
	return nil
}

// Validate checks the session against the profile endpoint, updating the
// username when the account was renamed. An expired token fails directly.
func (m *Microsoft) Validate(ctx context.Context, sess *MicrosoftSession) bool {
	if sess.AccessToken == "" || sess.Expired() {
		return false
	}
	profile, err := m.profile(ctx, sess.AccessToken)
	if err != nil {
		return false
	}
	sess.Name = profile.Name
	return true
}

// authorizationCode drives the browser round trip: a local server takes
// the redirect while the user authorizes in the browser.
func (m *Microsoft) authorizationCode(ctx context.Context, email string) (string, *oauth2.Config, string, error) {
	listenAddr := m.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return "", nil, "", err
	}
	defer ln.Close()

	conf := m.config()
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uniuri.New()
	verifier := uniuri.NewLen(128)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	url := conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("login_hint", email),
	)

	type answer struct {
		code string
		err  error
	}
	answers := make(chan answer, 1)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Browsers also ask for favicons, only the root is the redirect.
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, callbackPage)
		query := r.URL.Query()
		var a answer
		switch {
		case query.Get("state") != state:
			a.err = &UnknownError{Message: "authorization state mismatch"}
		case query.Get("error") == "access_denied":
			a.err = &DeclinedError{}
		case query.Get("code") == "":
			a.err = &UnknownError{Message: "authorization failed with " + query.Get("error")}
		default:
			a.code = query.Get("code")
		}
		select {
		case answers <- a:
		default:
		}
	})}
	go server.Serve(ln)
	defer server.Close()

	open := m.OpenURL
	if open == nil {
		open = utils.OpenBrowser
	}
	if err := open(url); err != nil {
		return "", nil, "", err
	}

	timeout := m.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	select {
	case a := <-answers:
		if a.err != nil {
			return "", nil, "", a.err
		}
		return a.code, conf, verifier, nil
	case <-time.After(timeout):
		return "", nil, "", &TimedOutError{}
	case <-ctx.Done():
		return "", nil, "", ctx.Err()
	}
}

func (m *Microsoft) config() *oauth2.Config {
	if m.Config != nil {
		conf := *m.Config
		return &conf
	}
	return &oauth2.Config{
		ClientID: AzureAppID,
		Endpoint: microsoft.AzureADEndpoint("consumers"),
		Scopes:   []string{"XboxLive.signin", "offline_access"},
	}
}

func (m *Microsoft) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return http.DefaultClient
}
