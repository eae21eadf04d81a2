package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read/write access to calendars.
const Scope = "https://www.googleapis.com/auth/calendar"

// authorizedUser is the token.json layout written by Google's client libraries
// for an authorized user.
type authorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// TokenSourceFromFile returns a refreshing token source for the authorized-user
// token file at path.
func TokenSourceFromFile(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	access := au.Token
	if access == "" {
		access = au.AccessToken
	}
	if access == "" && au.RefreshToken == "" {
		return nil, errors.New("token file has neither an access token nor a refresh token")
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: au.RefreshToken}
	if au.Expiry != "" {
		if exp, err := parseExpiry(au.Expiry); err == nil {
			tok.Expiry = exp
		}
	}

	scopes := au.Scopes
	if len(scopes) == 0 {
		scopes = []string{Scope}
	}
	endpoint := google.Endpoint
	if au.TokenURI != "" {
		endpoint.TokenURL = au.TokenURI
	}
	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
	return cfg.TokenSource(ctx, tok), nil
}

// parseExpiry accepts RFC 3339 and the naive UTC timestamp Python writes.
func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999", s)
}
