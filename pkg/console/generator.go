package console

import (
	"context"
	"errors"
	"fmt"

	log "github.com/charmbracelet/log"

	"github.com/awsbridge/aws-profile-bridge/pkg/credential"
	"github.com/awsbridge/aws-profile-bridge/pkg/sso"
)

// DefaultSessionDuration is the signin token lifetime requested from the
// federation endpoint (12 hours, the federation maximum).
const DefaultSessionDuration int32 = 43200

// CredentialResolver resolves a profile name to credentials. Satisfied by
// credential.Resolver.
type CredentialResolver interface {
	Resolve(ctx context.Context, name string) (credential.Credentials, error)
}

// URLBuilder builds a federated console login URL from temporary
// credentials. Satisfied by FederationClient.
type URLBuilder interface {
	BuildConsoleURL(ctx context.Context, creds credential.Credentials, durationSeconds int32) (string, error)
	ConsoleHomeURL() string
}

// Generator is the per-profile console URL flow: resolve, consult the cache,
// exchange on miss, cache the result.
type Generator struct {
	resolver        CredentialResolver
	builder         URLBuilder
	cache           *URLCache
	sessionDuration int32
}

// NewGenerator wires a generator over the given collaborators.
func NewGenerator(resolver CredentialResolver, builder URLBuilder, cache *URLCache) *Generator {
	return &Generator{
		resolver:        resolver,
		builder:         builder,
		cache:           cache,
		sessionDuration: DefaultSessionDuration,
	}
}

// URLFor returns a console URL for profileName.
//
// Long-term credentials (no session token) short-circuit to the generic
// console landing URL: static secrets are never sent over the network.
func (g *Generator) URLFor(ctx context.Context, profileName string) (string, error) {
	creds, err := g.resolver.Resolve(ctx, profileName)
	if err != nil {
		if errors.Is(err, sso.ErrNoToken) {
			return "", fmt.Errorf("no valid sso session for profile %q; run: aws sso login --profile %s: %w", profileName, profileName, err)
		}
		return "", fmt.Errorf("no credentials for profile %q: %w", profileName, err)
	}

	if !creds.Temporary() {
		log.Debug("long-term credentials, returning console landing url", "profile", profileName)
		return g.builder.ConsoleHomeURL(), nil
	}

	if url, ok := g.cache.Get(profileName, creds.Expiration); ok {
		log.Debug("console url cache hit", "profile", profileName)
		return url, nil
	}

	url, err := g.builder.BuildConsoleURL(ctx, creds, g.sessionDuration)
	if err != nil {
		return "", err
	}

	g.cache.Set(profileName, url, creds.Expiration)
	log.Debug("console url generated", "profile", profileName)
	return url, nil
}

// Invalidate drops the cached URL for profileName so the next request
// regenerates it.
func (g *Generator) Invalidate(profileName string) {
	g.cache.Invalidate(profileName)
}
