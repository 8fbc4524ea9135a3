// Package console exchanges temporary credentials for a federated console
// sign-in URL and memoizes the result per profile.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/awsbridge/aws-profile-bridge/pkg/credential"
)

const (
	defaultFederationURL   = "https://signin.aws.amazon.com/federation"
	defaultConsoleURL      = "https://console.aws.amazon.com/"
	defaultExchangeTimeout = 10 * time.Second
	federationIssuer       = "aws-profile-bridge"
)

var (
	// ErrExchangeFailed covers network and non-2xx failures of the
	// federation endpoint. Messages built on it never carry key material.
	ErrExchangeFailed = errors.New("federation exchange failed")
	// ErrExchangeTimeout means the bounded federation call ran out of time.
	ErrExchangeTimeout = errors.New("federation exchange timed out")
)

type federationHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FederationClient calls the federation endpoint to build console URLs.
type FederationClient struct {
	client        federationHTTPClient
	federationURL string
	consoleURL    string
}

// NewFederationClient creates a federation client with sane defaults.
func NewFederationClient() *FederationClient {
	return newFederationClient(
		&http.Client{Timeout: defaultExchangeTimeout},
		defaultFederationURL,
		defaultConsoleURL,
	)
}

func newFederationClient(client federationHTTPClient, federationURL string, consoleURL string) *FederationClient {
	return &FederationClient{
		client:        client,
		federationURL: federationURL,
		consoleURL:    consoleURL,
	}
}

// BuildConsoleURL exchanges creds for a one-time signin token and embeds it
// in a console login URL. creds must carry a session token.
func (f *FederationClient) BuildConsoleURL(ctx context.Context, creds credential.Credentials, durationSeconds int32) (string, error) {
	sessionData := map[string]string{
		"sessionId":    creds.AccessKeyID,
		"sessionKey":   creds.SecretAccessKey,
		"sessionToken": creds.SessionToken,
	}

	sessionJSON, err := json.Marshal(sessionData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	tokenURL := fmt.Sprintf(
		"%s?Action=getSigninToken&SessionDuration=%d&Session=%s",
		f.federationURL,
		durationSeconds,
		url.QueryEscape(string(sessionJSON)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build federation request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", fmt.Errorf("%w: %v", ErrExchangeTimeout, netErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrExchangeTimeout, err)
		}
		return "", fmt.Errorf("%w: requesting signin token", ErrExchangeFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading federation response", ErrExchangeFailed)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: federation endpoint returned HTTP %d", ErrExchangeFailed, resp.StatusCode)
	}

	var tokenResp struct {
		SigninToken string `json:"SigninToken"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: unparseable signin token response", ErrExchangeFailed)
	}

	if tokenResp.SigninToken == "" {
		return "", fmt.Errorf("%w: empty signin token", ErrExchangeFailed)
	}

	loginURL := fmt.Sprintf(
		"%s?Action=login&Issuer=%s&Destination=%s&SigninToken=%s",
		f.federationURL,
		url.QueryEscape(federationIssuer),
		url.QueryEscape(f.consoleURL),
		url.QueryEscape(tokenResp.SigninToken),
	)

	return loginURL, nil
}

// ConsoleHomeURL is the generic landing URL returned for long-term
// credentials, which are never sent over the network.
func (f *FederationClient) ConsoleHomeURL() string {
	return f.consoleURL
}
