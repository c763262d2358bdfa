package installer

// Session provides the player identity filled into the game arguments.
// The auth package implements it for offline and Microsoft accounts.
type Session interface {
	// Username is the in-game player name.
	Username() string
	// UUID is the undashed player uuid.
	UUID() string
	// TokenArgument renders the access token placeholder. The legacy form
	// is the pre-1.6 "token:<token>:<uuid>" session string.
	TokenArgument(legacy bool) string
	// Xuid is the xbox user id, empty outside Microsoft sessions.
	Xuid() string
	// ClientID is the authentication client id, empty offline.
	ClientID() string
	// UserType is the value of the user_type placeholder, msa for
	// Microsoft accounts.
	UserType() string
}

// anonymousSession is the fallback when no Session is configured.
type anonymousSession struct{}

func (anonymousSession) Username() string { return "Player" }

func (anonymousSession) UUID() string { return "00000000000000000000000000000000" }

func (anonymousSession) TokenArgument(legacy bool) string { return "" }

func (anonymousSession) Xuid() string { return "" }

func (anonymousSession) ClientID() string { return "" }

func (anonymousSession) UserType() string { return "" }

func (i *Installer) session() Session {
	if i.Session != nil {
		return i.Session
	}
	return anonymousSession{}
}
