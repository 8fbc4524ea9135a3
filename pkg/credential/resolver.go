// Package credential resolves a profile name into concrete, time-bounded
// access credentials. Nothing here is cached: every call re-resolves so an
// expired source is never replayed.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	log "github.com/charmbracelet/log"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
	"github.com/awsbridge/aws-profile-bridge/pkg/sso"
)

var (
	// ErrNotFound means no source knows the profile.
	ErrNotFound = errors.New("no credentials found for profile")
	// ErrIncomplete means a source answered with a partial record.
	ErrIncomplete = errors.New("incomplete credentials for profile")
)

// Credentials is the ephemeral value object handed to the console flow. It
// is never logged and never written anywhere.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      *time.Time
}

// Temporary reports whether the credentials carry a session token and are
// therefore safe to exchange over the network.
func (c Credentials) Temporary() bool {
	return c.SessionToken != ""
}

func (c Credentials) complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// SDKSource is the optional SDK-native resolution. It is a black box that
// either returns a complete credential or an error.
type SDKSource interface {
	Retrieve(ctx context.Context, profileName string) (Credentials, error)
}

// RoleExchanger mints temporary credentials from a cached bearer token.
// Satisfied by sso.Exchanger.
type RoleExchanger interface {
	Exchange(ctx context.Context, req sso.RoleRequest) (sso.RoleCredentials, error)
}

// Resolver tries each source in order: SDK, credentials store, SSO exchange.
type Resolver struct {
	sdk       SDKSource
	reader    *awsconfig.ProfileReader
	exchanger RoleExchanger
}

// NewResolver wires a resolver. sdk may be nil when no SDK resolution is
// wanted (tests, restricted environments).
func NewResolver(sdk SDKSource, reader *awsconfig.ProfileReader, exchanger RoleExchanger) *Resolver {
	return &Resolver{sdk: sdk, reader: reader, exchanger: exchanger}
}

// Resolve returns credentials for name from the first source that succeeds.
func (r *Resolver) Resolve(ctx context.Context, name string) (Credentials, error) {
	if r.sdk != nil {
		creds, err := r.sdk.Retrieve(ctx, name)
		if err == nil && creds.complete() {
			log.Debug("resolved credentials via sdk", "profile", name)
			return creds, nil
		}
		if err != nil {
			log.Debug("sdk resolution failed, trying stores", "profile", name, "err", err)
		}
	}

	if raw, ok := r.reader.Credentials(name); ok {
		creds := Credentials{
			AccessKeyID:     raw["aws_access_key_id"],
			SecretAccessKey: raw["aws_secret_access_key"],
			SessionToken:    raw["aws_session_token"],
		}
		if !creds.complete() {
			return Credentials{}, fmt.Errorf("%w: %s", ErrIncomplete, name)
		}
		log.Debug("resolved credentials from credentials store", "profile", name)
		return creds, nil
	}

	if cfg, ok := r.reader.Config(name); ok && cfg["sso_start_url"] != "" {
		role, err := r.exchanger.Exchange(ctx, sso.RoleRequest{
			StartURL:  cfg["sso_start_url"],
			Region:    cfg["sso_region"],
			AccountID: cfg["sso_account_id"],
			RoleName:  cfg["sso_role_name"],
		})
		if err != nil {
			return Credentials{}, fmt.Errorf("sso resolution for %s: %w", name, err)
		}
		expiration := role.Expiration
		log.Debug("resolved credentials via sso exchange", "profile", name)
		return Credentials{
			AccessKeyID:     role.AccessKeyID,
			SecretAccessKey: role.SecretAccessKey,
			SessionToken:    role.SessionToken,
			Expiration:      &expiration,
		}, nil
	}

	return Credentials{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// DefaultSDKSource resolves through the AWS SDK's shared-config chain, which
// already encapsulates its own token refresh.
type DefaultSDKSource struct{}

// Retrieve loads the shared config for profileName and asks the SDK's
// credential chain for a value.
func (DefaultSDKSource) Retrieve(ctx context.Context, profileName string) (Credentials, error) {
	var opts []func(*config.LoadOptions) error
	if profileName != "" {
		opts = append(opts, config.WithSharedConfigProfile(profileName))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return Credentials{}, fmt.Errorf("load shared config: %w", err)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return Credentials{}, err
	}

	resolved := Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}
	if creds.CanExpire {
		expires := creds.Expires.UTC()
		resolved.Expiration = &expires
	}
	return resolved, nil
}
