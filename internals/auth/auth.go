// Package auth provides the player sessions filled into the game
// arguments: offline sessions with derived uuids, and Microsoft accounts
// authenticated through the browser and kept in a session database.
package auth

import (
	"crypto/md5"
	"encoding/hex"
	"os"

	"github.com/google/uuid"
)

// offlineNamespace salts the uuids derived for sessions without a
// username, so they cannot collide with any account uuid.
var offlineNamespace = uuid.MustParse("8df5a464-38de-11ec-aa66-3fd636ee2ed7")

// OfflineSession is a local identity, the game runs without any account.
type OfflineSession struct {
	Name string
	ID   string
}

// NewOfflineSession derives the missing part of the identity: an explicit
// uuid names the player after its first characters, a username alone maps
// to the uuid authlib derives for offline mode servers, and neither falls
// back to an identity stable for this machine.
func NewOfflineSession(username, rawUUID string) *OfflineSession {
	if id, ok := normalizeUUID(rawUUID); ok {
		if username == "" {
			username = id[:8]
		}
		return &OfflineSession{Name: truncateName(username), ID: id}
	}
	if username != "" {
		username = truncateName(username)
		return &OfflineSession{Name: username, ID: offlineUUID(username)}
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	derived := uuid.NewSHA1(offlineNamespace, []byte(host))
	id := hex.EncodeToString(derived[:])
	return &OfflineSession{Name: id[:8], ID: id}
}

// offlineUUID matches the authlib derivation, so offline mode servers
// agree with the client on the player uuid.
func offlineUUID(username string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return hex.EncodeToString(sum[:])
}

func normalizeUUID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return hex.EncodeToString(id[:]), true
}

// The game refuses usernames above 16 characters.
func truncateName(name string) string {
	if len(name) > 16 {
		return name[:16]
	}
	return name
}

func (s *OfflineSession) Username() string { return s.Name }

func (s *OfflineSession) UUID() string { return s.ID }

// TokenArgument is empty offline, even in the legacy session form.
func (s *OfflineSession) TokenArgument(legacy bool) string { return "" }

func (s *OfflineSession) Xuid() string { return "" }

func (s *OfflineSession) ClientID() string { return "" }

func (s *OfflineSession) UserType() string { return "" }
