package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
)

const testStartURL = "https://example.awsapps.com/start"

type fakeTokens struct {
	expiry map[string]time.Time
	calls  int
}

func (f *fakeTokens) TokenExpiry(startURL string) (time.Time, bool) {
	f.calls++
	expiry, ok := f.expiry[startURL]
	return expiry, ok
}

type fixture struct {
	dir     string
	tokens  *fakeTokens
	options AggregatorOptions
}

func newFixture(t *testing.T, credentials, config string) *fixture {
	t.Helper()

	dir := t.TempDir()
	credsPath := filepath.Join(dir, "credentials")
	configPath := filepath.Join(dir, "config")
	if credentials != "" {
		require.NoError(t, os.WriteFile(credsPath, []byte(credentials), 0o600))
	}
	if config != "" {
		require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))
	}

	cache := awsconfig.NewFileCache()
	tokens := &fakeTokens{expiry: map[string]time.Time{}}
	return &fixture{
		dir:    dir,
		tokens: tokens,
		options: AggregatorOptions{
			Credentials: awsconfig.NewCredentialsParser(credsPath, cache),
			Config:      awsconfig.NewConfigParser(configPath, cache),
			Reader:      awsconfig.NewProfileReader(credsPath, configPath),
			Tokens:      tokens,
			AWSDir:      dir,
		},
	}
}

const sampleCredentials = `[default]
aws_access_key_id = AKIAEXAMPLE
aws_secret_access_key = secret

[shared]
aws_access_key_id = AKIASHARED
aws_secret_access_key = sharedsecret
`

const sampleConfig = `[profile shared]
sso_start_url = https://example.awsapps.com/start
sso_region = us-west-2
sso_account_id = 123456789012
sso_role_name = Developer

[profile sso-only]
sso_start_url = https://example.awsapps.com/start
sso_account_id = 210987654321
sso_role_name = ReadOnly
`

func TestListManualUnionPrecedence(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sampleCredentials, sampleConfig)
	agg := NewAggregator(f.options)

	profiles := agg.List(DepthFast)
	require.Len(t, profiles, 3)

	byName := map[string]Profile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}

	// Config-store SSO entry wins over the credentials-store entry of the
	// same name.
	shared := byName["shared"]
	assert.True(t, shared.IsSSO)
	require.NotNil(t, shared.SSO)
	assert.Equal(t, testStartURL, shared.SSO.StartURL)
	assert.Equal(t, "Developer", shared.SSO.RoleName)

	def := byName["default"]
	assert.False(t, def.IsSSO)
	assert.True(t, def.HasCredentials)
	assert.Nil(t, def.SSO)

	assert.True(t, byName["sso-only"].IsSSO)
}

func TestListFastDepthNeverConsultsTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sampleCredentials, sampleConfig)
	agg := NewAggregator(f.options)

	agg.List(DepthFast)
	assert.Zero(t, f.tokens.calls)
}

func TestListFullDepthEnrichesSSO(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", sampleConfig)
	expiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	f.tokens.expiry[testStartURL] = expiry

	agg := NewAggregator(f.options)
	profiles := agg.List(DepthFull)
	require.Len(t, profiles, 2)

	for _, p := range profiles {
		assert.True(t, p.HasCredentials, p.Name)
		assert.False(t, p.Expired, p.Name)
		require.NotNil(t, p.Expiration, p.Name)
		assert.True(t, p.Expiration.Equal(expiry), p.Name)
	}
	assert.Positive(t, f.tokens.calls)
}

func TestListFullDepthMissingTokenMarksExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", sampleConfig)
	agg := NewAggregator(f.options)

	profiles := agg.List(DepthFull)
	require.Len(t, profiles, 2)
	for _, p := range profiles {
		assert.True(t, p.Expired, p.Name)
		assert.False(t, p.HasCredentials, p.Name)
		assert.Nil(t, p.Expiration, p.Name)
	}
}

func TestListSkipSSOMarker(t *testing.T) {
	t.Parallel()

	for _, depth := range []Depth{DepthFast, DepthFull} {
		f := newFixture(t, sampleCredentials, sampleConfig)
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, SkipSSOMarker), nil, 0o600))

		agg := NewAggregator(f.options)
		profiles := agg.List(depth)

		require.Len(t, profiles, 2, depth)
		for _, p := range profiles {
			assert.False(t, p.IsSSO, p.Name)
			assert.Nil(t, p.SSO, p.Name)
		}
		assert.Zero(t, f.tokens.calls, depth)
	}
}

func TestListIdempotentWithoutFileChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sampleCredentials, sampleConfig)
	agg := NewAggregator(f.options)

	first := agg.List(DepthFast)
	second := agg.List(DepthFast)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("listings differ (-first +second):\n%s", diff)
	}
}

func TestListEnumeratorDrivesNames(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sampleCredentials, sampleConfig)
	f.options.Enumerator = EnumeratorFunc(func() ([]string, error) {
		return []string{"default", "shared", "ghost"}, nil
	})

	agg := NewAggregator(f.options)
	profiles := agg.List(DepthFast)

	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	// Enumerator decides which names exist; sso-only is not among them, and
	// the unknown name still yields a skeleton record.
	assert.Equal(t, []string{"default", "shared", "ghost"}, names)

	byName := map[string]Profile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}
	assert.True(t, byName["shared"].IsSSO)
	assert.True(t, byName["shared"].HasCredentials)
	assert.Equal(t, "us-west-2", byName["shared"].SSO.Region)
	assert.False(t, byName["ghost"].HasCredentials)
	assert.False(t, byName["ghost"].IsSSO)
}

func TestListEnumeratorFailureFallsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sampleCredentials, "")
	f.options.Enumerator = EnumeratorFunc(func() ([]string, error) {
		return nil, os.ErrPermission
	})

	agg := NewAggregator(f.options)
	profiles := agg.List(DepthFast)
	require.Len(t, profiles, 2)
}

func TestListAppliesMetadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `[prod-main]
aws_access_key_id = a
aws_secret_access_key = b

[dev-sandbox]
aws_access_key_id = c
aws_secret_access_key = d

[misc]
aws_access_key_id = e
aws_secret_access_key = f
`, "")

	agg := NewAggregator(f.options)
	profiles := agg.List(DepthFast)
	require.Len(t, profiles, 3)

	byName := map[string]Profile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}
	assert.Equal(t, "red", byName["prod-main"].Color)
	assert.Equal(t, "briefcase", byName["prod-main"].Icon)
	assert.Equal(t, "green", byName["dev-sandbox"].Color)
	assert.Equal(t, "blue", byName["misc"].Color)
	assert.Equal(t, "circle", byName["misc"].Icon)
}
