package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

// ServiceMicrosoft keys the Microsoft sessions in the database.
const ServiceMicrosoft = "microsoft"

const (
	databaseVersion = "1"
	keyringService  = "portablemc"
)

// Database keeps the authenticated sessions of the launcher in a json
// file, one session per service and email. Access and refresh tokens go
// to the system keyring when one is usable, the file then only holds the
// public part of each session.
type Database struct {
	// File is the location of the database.
	File string
	// NoKeyring keeps the secrets inline in the file. It turns itself on
	// when the keyring is not usable, like the headless systems the
	// launcher commonly runs on.
	NoKeyring bool

	data databaseData
}

type databaseData struct {
	Version  string                                `json:"version"`
	ClientID string                                `json:"client_id,omitempty"`
	Sessions map[string]map[string]json.RawMessage `json:"sessions,omitempty"`
}

// NewDatabase returns the database stored at the given file. Nothing is
// read until Load.
func NewDatabase(file string) *Database {
	return &Database{File: file}
}

// Load reads the database file. A missing file is an empty database.
func (db *Database) Load() error {
	db.data = databaseData{}
	raw, err := os.ReadFile(db.File)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &db.data); err != nil {
		return &CorruptedError{File: db.File}
	}
	return nil
}

// Save writes the database back, creating the parent directory first.
func (db *Database) Save() error {
	db.data.Version = databaseVersion
	raw, err := json.MarshalIndent(&db.data, "", "  ")
	if err != nil {
		return &WriteError{File: db.File, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(db.File), 0755); err != nil {
		return &WriteError{File: db.File, Err: err}
	}
	tmp := db.File + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return &WriteError{File: db.File, Err: err}
	}
	if err := os.Rename(tmp, db.File); err != nil {
		return &WriteError{File: db.File, Err: err}
	}
	return nil
}

// ClientID returns the identity of this launcher installation, generated
// on first use and shared by every session.
func (db *Database) ClientID() string {
	if db.data.ClientID == "" {
		db.data.ClientID = uuid.NewString()
	}
	return db.data.ClientID
}

// Microsoft returns the stored session for an email, nil when absent.
// Secrets kept in the keyring are grafted back onto the session.
func (db *Database) Microsoft(email string) (*MicrosoftSession, error) {
	email = strings.ToLower(email)
	raw := db.data.Sessions[ServiceMicrosoft][email]
	if raw == nil {
		return nil, nil
	}
	sess := &MicrosoftSession{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return nil, &CorruptedError{File: db.File}
	}
	sess.Email = email
	if sess.AccessToken != "" || db.NoKeyring {
		return sess, nil
	}
	secret, err := keyring.Get(keyringService, keyringUser(ServiceMicrosoft, email))
	switch err {
	case nil:
		var s sessionSecrets
		if json.Unmarshal([]byte(secret), &s) == nil {
			sess.AccessToken = s.AccessToken
			sess.RefreshToken = s.RefreshToken
		}
	case keyring.ErrNotFound:
		// Lost secret, the session will need a fresh login.
	default:
		db.NoKeyring = true
	}
	return sess, nil
}

// PutMicrosoft stores the session under its email and saves the database.
func (db *Database) PutMicrosoft(sess *MicrosoftSession) error {
	stored := *sess
	stored.Email = strings.ToLower(sess.Email)
	if !db.NoKeyring {
		secret, _ := json.Marshal(sessionSecrets{stored.AccessToken, stored.RefreshToken})
		err := keyring.Set(keyringService, keyringUser(ServiceMicrosoft, stored.Email), string(secret))
		if err != nil {
			db.NoKeyring = true
		} else {
			stored.AccessToken = ""
			stored.RefreshToken = ""
		}
	}
	raw, err := json.Marshal(&stored)
	if err != nil {
		return &WriteError{File: db.File, Err: err}
	}
	if db.data.Sessions == nil {
		db.data.Sessions = map[string]map[string]json.RawMessage{}
	}
	if db.data.Sessions[ServiceMicrosoft] == nil {
		db.data.Sessions[ServiceMicrosoft] = map[string]json.RawMessage{}
	}
	db.data.Sessions[ServiceMicrosoft][stored.Email] = raw
	return db.Save()
}

// RemoveMicrosoft deletes the session and its keyring secret, reporting
// whether one existed.
func (db *Database) RemoveMicrosoft(email string) (bool, error) {
	email = strings.ToLower(email)
	if _, ok := db.data.Sessions[ServiceMicrosoft][email]; !ok {
		return false, nil
	}
	delete(db.data.Sessions[ServiceMicrosoft], email)
	// The keyring entry does not exist in fallback mode.
	_ = keyring.Delete(keyringService, keyringUser(ServiceMicrosoft, email))
	return true, db.Save()
}

// Emails lists the stored session emails of a service, sorted.
func (db *Database) Emails(service string) []string {
	emails := make([]string, 0, len(db.data.Sessions[service]))
	for email := range db.data.Sessions[service] {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

type sessionSecrets struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func keyringUser(service, email string) string {
	return service + ":" + email
}
