// Package engine wires the profile resolution components and their caches
// into one facade for the transports. Caches are constructed here, once per
// process, and handed to each component explicitly; there is no package-level
// state.
package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
	"github.com/awsbridge/aws-profile-bridge/pkg/console"
	"github.com/awsbridge/aws-profile-bridge/pkg/credential"
	"github.com/awsbridge/aws-profile-bridge/pkg/profile"
	"github.com/awsbridge/aws-profile-bridge/pkg/sso"
)

// Options configure engine construction. Zero values resolve to the
// conventional locations under the user's home directory.
type Options struct {
	AWSDir          string // default ~/.aws
	CredentialsPath string // default $AWS_SHARED_CREDENTIALS_FILE or AWSDir/credentials
	ConfigPath      string // default $AWS_CONFIG_FILE or AWSDir/config
	SSOCacheDir     string // default AWSDir/sso/cache

	// DisableSDK turns off SDK-native credential resolution.
	DisableSDK bool
	// DisableEnumerator forces the manual store-union listing path.
	DisableEnumerator bool
}

func (o *Options) applyDefaults() {
	if o.AWSDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		o.AWSDir = filepath.Join(home, ".aws")
	}
	if o.CredentialsPath == "" {
		if env := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); env != "" {
			o.CredentialsPath = env
		} else {
			o.CredentialsPath = filepath.Join(o.AWSDir, "credentials")
		}
	}
	if o.ConfigPath == "" {
		if env := os.Getenv("AWS_CONFIG_FILE"); env != "" {
			o.ConfigPath = env
		} else {
			o.ConfigPath = filepath.Join(o.AWSDir, "config")
		}
	}
	if o.SSOCacheDir == "" {
		o.SSOCacheDir = filepath.Join(o.AWSDir, "sso", "cache")
	}
}

// Lister lists profiles at a depth. Satisfied by profile.Aggregator.
type Lister interface {
	List(depth profile.Depth) []profile.Profile
}

// Resolver resolves a profile to credentials. Satisfied by
// credential.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, name string) (credential.Credentials, error)
}

// URLGenerator produces console URLs. Satisfied by console.Generator.
type URLGenerator interface {
	URLFor(ctx context.Context, profileName string) (string, error)
	Invalidate(profileName string)
}

// Engine is the facade the transports call into.
type Engine struct {
	lister    Lister
	resolver  Resolver
	generator URLGenerator

	files  *awsconfig.FileCache
	tokens *sso.TokenCache
	urls   *console.URLCache
}

// New builds a fully wired engine.
func New(opts Options) *Engine {
	opts.applyDefaults()

	files := awsconfig.NewFileCache()
	credentialsParser := awsconfig.NewCredentialsParser(opts.CredentialsPath, files)
	configParser := awsconfig.NewConfigParser(opts.ConfigPath, files)
	reader := awsconfig.NewProfileReader(opts.CredentialsPath, opts.ConfigPath)

	tokens := sso.NewTokenCache(opts.SSOCacheDir)

	var sdk credential.SDKSource
	if !opts.DisableSDK {
		sdk = credential.DefaultSDKSource{}
	}
	resolver := credential.NewResolver(sdk, reader, sso.NewExchanger(tokens))

	var enumerator profile.Enumerator
	if !opts.DisableEnumerator {
		enumerator = profile.NewSharedFilesEnumerator()
	}
	aggregator := profile.NewAggregator(profile.AggregatorOptions{
		Credentials: credentialsParser,
		Config:      configParser,
		Reader:      reader,
		Tokens:      tokens,
		Enumerator:  enumerator,
		AWSDir:      opts.AWSDir,
	})

	urls := console.NewURLCache()
	generator := console.NewGenerator(resolver, console.NewFederationClient(), urls)

	return newEngine(aggregator, resolver, generator, files, tokens, urls)
}

func newEngine(lister Lister, resolver Resolver, generator URLGenerator, files *awsconfig.FileCache, tokens *sso.TokenCache, urls *console.URLCache) *Engine {
	return &Engine{
		lister:    lister,
		resolver:  resolver,
		generator: generator,
		files:     files,
		tokens:    tokens,
		urls:      urls,
	}
}

// ListProfiles enumerates all known profiles at the requested depth.
func (e *Engine) ListProfiles(_ context.Context, depth profile.Depth) []profile.Profile {
	return e.lister.List(depth)
}

// ResolveCredentials resolves name to concrete credentials.
func (e *Engine) ResolveCredentials(ctx context.Context, name string) (credential.Credentials, error) {
	return e.resolver.Resolve(ctx, name)
}

// ConsoleURL returns a console URL for name, served from cache when the
// underlying credential has not rotated.
func (e *Engine) ConsoleURL(ctx context.Context, name string) (string, error) {
	return e.generator.URLFor(ctx, name)
}

// InvalidateURL drops the cached console URL for name.
func (e *Engine) InvalidateURL(name string) {
	e.generator.Invalidate(name)
}

// ClearCaches empties every process-local cache tier. The provider-owned
// token files on disk are untouched.
func (e *Engine) ClearCaches() {
	if e.files != nil {
		e.files.Clear()
	}
	if e.tokens != nil {
		e.tokens.Clear()
	}
	if e.urls != nil {
		e.urls.Clear()
	}
}

// URLCacheStats reports console URL cache occupancy.
func (e *Engine) URLCacheStats() console.Stats {
	if e.urls == nil {
		return console.Stats{}
	}
	return e.urls.CacheStats()
}
