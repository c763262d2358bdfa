package downloadmgr

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is a URL, target pair with optional verification properties that
// will be downloaded using http(s).
type Entry struct {
	URL string
	// Dst is the absolute target path
	Dst string
	// Size in bytes, 0 means unknown and is not enforced
	Size int64
	// Sha1 is the expected hex digest, empty to skip verification
	Sha1 string
	// Name is used in progress events, defaults to the URL
	Name string
	// Executable marks the file executable for everyone able to read it
	Executable bool
}

// DisplayName returns the name to show in progress events.
func (e *Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.URL
}

// Error codes classifying why a download failed.
const (
	ErrorConnection  = "connection"
	ErrorNotFound    = "not_found"
	ErrorInvalidSize = "invalid_size"
	ErrorInvalidSha1 = "invalid_sha1"
)

// EntryError is the failure of a single entry after all its retries.
type EntryError struct {
	Entry Entry
	// Code is one of the Error* constants
	Code string
	// Err carries the underlying transport or io error, when there is one
	Err error
}

func (e *EntryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download of %s failed: %s: %v", e.Entry.DisplayName(), e.Code, e.Err)
	}
	return fmt.Sprintf("download of %s failed: %s", e.Entry.DisplayName(), e.Code)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// BatchError collects every failed entry of a batch. Successful entries
// of the same batch stay downloaded.
type BatchError struct {
	Errors []*EntryError
}

func (e *BatchError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for _, entryErr := range e.Errors {
		names = append(names, entryErr.Entry.DisplayName())
	}
	return fmt.Sprintf("%d downloads failed: %s", len(e.Errors), strings.Join(names, ", "))
}

// ErrInvalidSha is returned when a present file's sha1 sum does not match
// the expected one during a strict check.
type ErrInvalidSha struct {
	FileName    string
	ExpectedSha string
	ActualSha   string
}

func (e *ErrInvalidSha) Error() string {
	return fmt.Sprintf(
		"File corrupted: %s sha1 is invalid.\n\texpected to be \"%s\"\n\tbut actually is \"%s\"\n",
		e.FileName,
		e.ExpectedSha,
		e.ActualSha,
	)
}

// CheckSha1 verifies a file on disk against an expected hex digest.
func CheckSha1(srcPath string, sha string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, src); err != nil {
		// probably io error during hashing
		return err
	}

	actualSha := hex.EncodeToString(hasher.Sum(nil))
	if actualSha != sha {
		return &ErrInvalidSha{srcPath, sha, actualSha}
	}
	return nil
}
