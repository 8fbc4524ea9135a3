package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awssso "github.com/aws/aws-sdk-go-v2/service/sso"
	log "github.com/charmbracelet/log"
)

const (
	defaultExchangeTimeout = 10 * time.Second
	defaultSSORegion       = "us-east-1"
)

// ErrNoToken signals that no valid bearer token exists for the profile's
// start URL; the user has to re-run the provider login.
var ErrNoToken = errors.New("no valid sso token")

// RoleRequest names the role to mint temporary credentials for.
type RoleRequest struct {
	StartURL  string
	Region    string
	AccountID string
	RoleName  string
}

// RoleCredentials are the temporary credentials returned by the exchange.
type RoleCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

type roleCredentialsAPI interface {
	GetRoleCredentials(ctx context.Context, params *awssso.GetRoleCredentialsInput, optFns ...func(*awssso.Options)) (*awssso.GetRoleCredentialsOutput, error)
}

type clientFactory func(region string) roleCredentialsAPI

func defaultClientFactory(region string) roleCredentialsAPI {
	cfg := awsv2.Config{Region: region, Credentials: awsv2.AnonymousCredentials{}}
	return awssso.NewFromConfig(cfg)
}

// Exchanger converts a cached bearer token into temporary role credentials
// via the role-credential exchange endpoint. Stateless apart from the token
// cache it consults.
type Exchanger struct {
	tokens    *TokenCache
	newClient clientFactory
	timeout   time.Duration
}

// NewExchanger builds an exchanger over the given token cache.
func NewExchanger(tokens *TokenCache) *Exchanger {
	return &Exchanger{
		tokens:    tokens,
		newClient: defaultClientFactory,
		timeout:   defaultExchangeTimeout,
	}
}

// Exchange mints temporary credentials for req. It returns ErrNoToken when no
// valid bearer token is cached for the start URL, and wraps the context error
// when the bounded call times out.
func (e *Exchanger) Exchange(ctx context.Context, req RoleRequest) (RoleCredentials, error) {
	if req.StartURL == "" || req.AccountID == "" || req.RoleName == "" {
		return RoleCredentials{}, fmt.Errorf("incomplete sso configuration for role %q", req.RoleName)
	}

	token, ok := e.tokens.GetToken(req.StartURL)
	if !ok {
		return RoleCredentials{}, ErrNoToken
	}

	region := req.Region
	if region == "" {
		region = defaultSSORegion
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.newClient(region).GetRoleCredentials(ctx, &awssso.GetRoleCredentialsInput{
		AccessToken: awsv2.String(token.AccessToken),
		AccountId:   awsv2.String(req.AccountID),
		RoleName:    awsv2.String(req.RoleName),
	})
	if err != nil {
		log.Warn("role credential exchange failed", "account", req.AccountID, "role", req.RoleName, "err", err)
		return RoleCredentials{}, fmt.Errorf("role credential exchange: %w", err)
	}
	if out.RoleCredentials == nil {
		return RoleCredentials{}, fmt.Errorf("role credential exchange returned no credentials")
	}

	rc := out.RoleCredentials
	return RoleCredentials{
		AccessKeyID:     awsv2.ToString(rc.AccessKeyId),
		SecretAccessKey: awsv2.ToString(rc.SecretAccessKey),
		SessionToken:    awsv2.ToString(rc.SessionToken),
		Expiration:      time.UnixMilli(rc.Expiration).UTC(),
	}, nil
}
