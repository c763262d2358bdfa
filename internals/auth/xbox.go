package auth

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// endpoints of the Xbox Live chain, swapped in tests.
var endpoints = struct {
	xblAuth   string
	xstsAuth  string
	mcLogin   string
	mcProfile string
}{
	xblAuth:   "https://user.auth.xboxlive.com/user/authenticate",
	xstsAuth:  "https://xsts.auth.xboxlive.com/xsts/authorize",
	mcLogin:   "https://api.minecraftservices.com/authentication/login_with_xbox",
	mcProfile: "https://api.minecraftservices.com/minecraft/profile",
}

type xblResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		Xui []struct {
			Uhs string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

type mcLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// completeChain turns a Microsoft account token into a Minecraft session:
// Xbox Live authenticate, XSTS authorize, Minecraft services login, then
// the profile.
func (m *Microsoft) completeChain(ctx context.Context, token *oauth2.Token) (*MicrosoftSession, error) {
	xblClient := m.xblClient()

	user, err := xblRequest(ctx, xblClient, endpoints.xblAuth, fmt.Sprintf(`{
		"Properties": {
			"AuthMethod": "RPS",
			"SiteName": "user.auth.xboxlive.com",
			"RpsTicket": "d=%s"
		},
		"RelyingParty": "http://auth.xboxlive.com",
		"TokenType": "JWT"
	}`, token.AccessToken))
	if err != nil {
		return nil, err
	}

	xsts, err := xblRequest(ctx, xblClient, endpoints.xstsAuth, fmt.Sprintf(`{
		"Properties": {
			"SandboxId": "RETAIL",
			"UserTokens": ["%s"]
		},
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType": "JWT"
	}`, user.Token))
	if err != nil {
		return nil, err
	}
	if len(user.DisplayClaims.Xui) == 0 || len(xsts.DisplayClaims.Xui) == 0 ||
		user.DisplayClaims.Xui[0].Uhs != xsts.DisplayClaims.Xui[0].Uhs {
		return nil, &UnknownError{Message: "incoherent user hash"}
	}

	login, err := m.mcLogin(ctx, xsts.DisplayClaims.Xui[0].Uhs, xsts.Token)
	if err != nil {
		return nil, err
	}

	profile, err := m.profile(ctx, login.AccessToken)
	if err != nil {
		return nil, err
	}

	return &MicrosoftSession{
		Name:         profile.Name,
		ID:           profile.ID,
		XID:          xuidClaim(login.AccessToken),
		AccessToken:  login.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(login.ExpiresIn) * time.Second),
	}, nil
}

// xblClient relaxes TLS renegotiation, user.auth.xboxlive.com renegotiates
// mid request and the default transport refuses that.
func (m *Microsoft) xblClient() *http.Client {
	client := *m.client()
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{Renegotiation: tls.RenegotiateOnceAsClient},
	}
	return &client
}

func xblRequest(ctx context.Context, client *http.Client, url string, body string) (*xblResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		// XSTS explains some failures, like accounts without an Xbox
		// profile.
		var xblErr struct {
			Message string `json:"Message"`
		}
		if json.NewDecoder(res.Body).Decode(&xblErr) == nil && xblErr.Message != "" {
			return nil, &UnknownError{Message: xblErr.Message}
		}
		return nil, &StatusError{Status: res.StatusCode}
	}
	response := &xblResponse{}
	if err := json.NewDecoder(res.Body).Decode(response); err != nil {
		return nil, err
	}
	return response, nil
}

func (m *Microsoft) mcLogin(ctx context.Context, userHash, xstsToken string) (*mcLoginResponse, error) {
	body := fmt.Sprintf(`{"identityToken": "XBL3.0 x=%s;%s"}`, userHash, xstsToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoints.mcLogin, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	res, err := m.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: res.StatusCode}
	}
	login := &mcLoginResponse{}
	if err := json.NewDecoder(res.Body).Decode(login); err != nil {
		return nil, err
	}
	return login, nil
}

func (m *Microsoft) profile(ctx context.Context, accessToken string) (*profileResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoints.mcProfile, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	res, err := m.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &DoesNotOwnGameError{}
	case http.StatusUnauthorized:
		return nil, &OutdatedTokenError{}
	default:
		return nil, &StatusError{Status: res.StatusCode}
	}
	profile := &profileResponse{}
	if err := json.NewDecoder(res.Body).Decode(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// xuidClaim pulls the xuid out of the access token payload. The token is
// not validated, only decoded.
func xuidClaim(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return ""
	}
	var claims struct {
		Xuid string `json:"xuid"`
	}
	if json.Unmarshal(payload, &claims) != nil {
		return ""
	}
	return claims.Xuid
}
