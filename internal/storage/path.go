package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const sessionsRoot = "sessions"

// BuildDatabasePath returns the object key of the database file uploaded for a session.
func BuildDatabasePath(sessionToken, fileName string) (string, error) {
	if err := validatePathComponent(sessionToken, "session token"); err != nil {
		return "", err
	}
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if err := validatePathComponent(base, "file name"); err != nil {
		return "", err
	}
	return path.Join(sessionsRoot, sessionToken, base), nil
}

// SessionPrefix is the key prefix holding every object of one session.
func SessionPrefix(sessionToken string) (string, error) {
	if err := validatePathComponent(sessionToken, "session token"); err != nil {
		return "", err
	}
	return sessionsRoot + "/" + sessionToken + "/", nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
