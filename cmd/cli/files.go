package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/laatu08/Offline-Note-App/internal/auth"
	"github.com/laatu08/Offline-Note-App/internal/config"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      u.UUID    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func tokenPath() string     { return filepath.Join(config.Dir(), "token.json") }
func deletionsPath() string { return filepath.Join(config.Dir(), "deletions.json") }

// tokenFromString reads the user id and expiry a token claims. The server
// verifies the signature; the client only needs to know who it is.
func tokenFromString(tok string) (tokenFile, error) {
	uid, err := auth.Subject(tok)
	if err != nil {
		return tokenFile{}, fmt.Errorf("token subject: %w", err)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return tokenFile{}, err
	}
	if claims.ExpiresAt == nil {
		return tokenFile{}, errors.New("token has no expiry")
	}
	return tokenFile{AccessToken: tok, UserID: uid, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func saveToken(tf tokenFile) error { return writeJSONFile(tokenPath(), tf) }

func loadToken() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return tokenFile{}, errors.New("not logged in (run: notes login --token <jwt>)")
	}
	if err != nil {
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errors.New("no valid token (login required)")
	}
	return tf, nil
}

// ---- pending deletions ----
// The orchestrator keeps its deletion guard in memory; one-shot commands
// carry unconfirmed ids over to the next invocation through this file.

func saveDeletions(ids []u.UUID) error {
	if len(ids) == 0 {
		err := os.Remove(deletionsPath())
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return writeJSONFile(deletionsPath(), ids)
}

func loadDeletions() ([]u.UUID, error) {
	b, err := os.ReadFile(deletionsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []u.UUID
	return ids, json.Unmarshal(b, &ids)
}

func removeState() error {
	for _, p := range []string{tokenPath(), deletionsPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
