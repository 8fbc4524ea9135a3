package profile

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/charmbracelet/log"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
)

// SkipSSOMarker is the sentinel file in the root config directory that
// disables all SSO enumeration.
const SkipSSOMarker = ".nosso"

// TokenStatus reports whether a valid bearer token exists for a start URL.
// Satisfied by the sso token cache.
type TokenStatus interface {
	TokenExpiry(startURL string) (time.Time, bool)
}

// AggregatorOptions are the collaborators an Aggregator is wired with. All
// caches are owned by the caller so tests can construct fresh instances.
type AggregatorOptions struct {
	Credentials *awsconfig.CredentialsParser
	Config      *awsconfig.ConfigParser
	Reader      *awsconfig.ProfileReader
	Tokens      TokenStatus
	Enumerator  Enumerator // nil falls back to the manual store union
	Metadata    *MetadataProvider
	AWSDir      string
}

// Aggregator merges the credentials and config stores into one profile list.
type Aggregator struct {
	credentials *awsconfig.CredentialsParser
	config      *awsconfig.ConfigParser
	reader      *awsconfig.ProfileReader
	tokens      TokenStatus
	enumerator  Enumerator
	metadata    *MetadataProvider
	awsDir      string
	now         func() time.Time
}

// NewAggregator wires an aggregator from opts.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	metadata := opts.Metadata
	if metadata == nil {
		metadata = DefaultMetadataProvider()
	}
	return &Aggregator{
		credentials: opts.Credentials,
		config:      opts.Config,
		reader:      opts.Reader,
		tokens:      opts.Tokens,
		enumerator:  opts.Enumerator,
		metadata:    metadata,
		awsDir:      opts.AWSDir,
		now:         time.Now,
	}
}

// List returns every known profile. Fast depth leaves SSO liveness
// unresolved so listing never blocks on token I/O; full depth consults the
// bearer token cache per SSO profile.
func (a *Aggregator) List(depth Depth) []Profile {
	skipSSO := a.ssoDisabled()
	if skipSSO {
		log.Debug("sso enumeration disabled by marker file", "marker", filepath.Join(a.awsDir, SkipSSOMarker))
	}

	var profiles []Profile
	if a.enumerator != nil {
		names, err := a.enumerator.ProfileNames()
		if err == nil {
			profiles = a.fromEnumeration(names, depth, skipSSO)
		} else {
			log.Warn("profile enumeration failed, falling back to store union", "err", err)
		}
	}
	if profiles == nil {
		profiles = a.storeUnion(depth, skipSSO)
	}

	for i := range profiles {
		if !profiles[i].IsSSO {
			// Defense against source drift: SSO-only fields never appear on a
			// non-SSO profile.
			profiles[i].SSO = nil
		}
		a.metadata.Apply(&profiles[i])
	}
	return profiles
}

// fromEnumeration builds each profile's record from the stores, with the
// enumerator authoritative for which names exist.
func (a *Aggregator) fromEnumeration(names []string, depth Depth, skipSSO bool) []Profile {
	credRecords := recordsByName(a.credentials.Parse())

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		cfg, hasConfig := a.reader.Config(name)
		if hasConfig && (cfg["sso_start_url"] != "" || cfg["sso_session"] != "") {
			if skipSSO {
				continue
			}
			p := Profile{
				Name:  name,
				IsSSO: true,
				// The resolver minting credentials on demand makes SSO
				// profiles usable until the full-depth check says otherwise.
				HasCredentials: true,
				Region:         cfg["region"],
				SSO: &SSOConfig{
					StartURL:  cfg["sso_start_url"],
					Session:   cfg["sso_session"],
					Region:    ssoRegionOrDefault(cfg["sso_region"]),
					AccountID: cfg["sso_account_id"],
					RoleName:  cfg["sso_role_name"],
				},
			}
			if depth == DepthFull {
				a.enrichSSO(&p)
			}
			profiles = append(profiles, p)
			continue
		}

		p := Profile{Name: name}
		if rec, ok := credRecords[name]; ok {
			p.HasCredentials = rec.HasCredentials
			p.Expiration = rec.Expiration
			p.Expired = rec.Expired
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// storeUnion merges the two store parses directly, config-store SSO entries
// taking precedence over credentials-store entries of the same name.
func (a *Aggregator) storeUnion(depth Depth, skipSSO bool) []Profile {
	profiles := []Profile{}
	index := map[string]int{}
	for _, rec := range a.credentials.Parse() {
		index[rec.Name] = len(profiles)
		profiles = append(profiles, fromRecord(rec))
	}

	if skipSSO {
		return profiles
	}

	for _, rec := range a.config.Parse() {
		p := fromRecord(rec)
		if depth == DepthFull {
			a.enrichSSO(&p)
		}
		if i, ok := index[p.Name]; ok {
			profiles[i] = p
		} else {
			index[p.Name] = len(profiles)
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// enrichSSO resolves the profile's liveness from the bearer token cache.
// Profiles referencing a session section without a start URL are left as-is.
func (a *Aggregator) enrichSSO(p *Profile) {
	if p.SSO == nil || p.SSO.StartURL == "" {
		return
	}

	expiry, ok := a.tokens.TokenExpiry(p.SSO.StartURL)
	if !ok {
		p.Expiration = nil
		p.Expired = true
		p.HasCredentials = false
		return
	}

	expiry = expiry.UTC()
	p.Expiration = &expiry
	p.Expired = expiry.Before(a.now())
	p.HasCredentials = !p.Expired
}

func (a *Aggregator) ssoDisabled() bool {
	_, err := os.Stat(filepath.Join(a.awsDir, SkipSSOMarker))
	return err == nil
}

func recordsByName(records []awsconfig.Record) map[string]awsconfig.Record {
	byName := make(map[string]awsconfig.Record, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}
	return byName
}

func ssoRegionOrDefault(region string) string {
	if region == "" {
		return "us-east-1"
	}
	return region
}
