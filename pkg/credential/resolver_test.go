package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
	"github.com/awsbridge/aws-profile-bridge/pkg/sso"
)

type fakeSDK struct {
	creds Credentials
	err   error
	calls int
}

func (f *fakeSDK) Retrieve(ctx context.Context, profileName string) (Credentials, error) {
	f.calls++
	return f.creds, f.err
}

type fakeExchanger struct {
	creds sso.RoleCredentials
	err   error
	calls int
	req   sso.RoleRequest
}

func (f *fakeExchanger) Exchange(ctx context.Context, req sso.RoleRequest) (sso.RoleCredentials, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return sso.RoleCredentials{}, f.err
	}
	return f.creds, nil
}

func newReader(t *testing.T, credentials, config string) *awsconfig.ProfileReader {
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
	return awsconfig.NewProfileReader(credsPath, configPath)
}

func TestResolveSDKFirst(t *testing.T) {
	t.Parallel()

	sdk := &fakeSDK{creds: Credentials{AccessKeyID: "AKIASDK", SecretAccessKey: "sdksecret", SessionToken: "sdktoken"}}
	exchanger := &fakeExchanger{}
	resolver := NewResolver(sdk, newReader(t, "", ""), exchanger)

	creds, err := resolver.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "AKIASDK", creds.AccessKeyID)
	assert.Zero(t, exchanger.calls)
}

func TestResolveFallsBackToCredentialsStore(t *testing.T) {
	t.Parallel()

	sdk := &fakeSDK{err: errors.New("sdk chain empty")}
	resolver := NewResolver(sdk, newReader(t, `[default]
aws_access_key_id = AKIAFILE
aws_secret_access_key = filesecret
`, ""), &fakeExchanger{})

	creds, err := resolver.Resolve(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, 1, sdk.calls)
	assert.Equal(t, "AKIAFILE", creds.AccessKeyID)
	assert.Equal(t, "filesecret", creds.SecretAccessKey)
	assert.False(t, creds.Temporary())
	assert.Nil(t, creds.Expiration)
}

func TestResolveIncompleteStoreEntry(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(nil, newReader(t, `[partial]
aws_access_key_id = AKIAONLY
`, ""), &fakeExchanger{})

	_, err := resolver.Resolve(context.Background(), "partial")
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestResolveSSOExchange(t *testing.T) {
	t.Parallel()

	expiration := time.Now().Add(time.Hour)
	exchanger := &fakeExchanger{creds: sso.RoleCredentials{
		AccessKeyID:     "AKIAROLE",
		SecretAccessKey: "rolesecret",
		SessionToken:    "roletoken",
		Expiration:      expiration,
	}}

	resolver := NewResolver(nil, newReader(t, "", `[profile sso-dev]
sso_start_url = https://example.awsapps.com/start
sso_region = us-west-2
sso_account_id = 123456789012
sso_role_name = Developer
`), exchanger)

	creds, err := resolver.Resolve(context.Background(), "sso-dev")
	require.NoError(t, err)

	assert.Equal(t, "https://example.awsapps.com/start", exchanger.req.StartURL)
	assert.Equal(t, "us-west-2", exchanger.req.Region)
	assert.Equal(t, "123456789012", exchanger.req.AccountID)
	assert.Equal(t, "Developer", exchanger.req.RoleName)

	assert.Equal(t, "AKIAROLE", creds.AccessKeyID)
	assert.True(t, creds.Temporary())
	require.NotNil(t, creds.Expiration)
	assert.True(t, creds.Expiration.Equal(expiration))
}

func TestResolveSSOTokenUnavailable(t *testing.T) {
	t.Parallel()

	exchanger := &fakeExchanger{err: sso.ErrNoToken}
	resolver := NewResolver(nil, newReader(t, "", `[profile sso-dev]
sso_start_url = https://example.awsapps.com/start
sso_account_id = 123456789012
sso_role_name = Developer
`), exchanger)

	_, err := resolver.Resolve(context.Background(), "sso-dev")
	assert.ErrorIs(t, err, sso.ErrNoToken)
}

func TestResolveUnknownProfile(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(nil, newReader(t, "", ""), &fakeExchanger{})

	_, err := resolver.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCredentialsStoreWinsOverSSO(t *testing.T) {
	t.Parallel()

	exchanger := &fakeExchanger{}
	resolver := NewResolver(nil, newReader(t, `[both]
aws_access_key_id = AKIAFILE
aws_secret_access_key = filesecret
`, `[profile both]
sso_start_url = https://example.awsapps.com/start
sso_account_id = 123456789012
sso_role_name = Developer
`), exchanger)

	creds, err := resolver.Resolve(context.Background(), "both")
	require.NoError(t, err)
	assert.Equal(t, "AKIAFILE", creds.AccessKeyID)
	assert.Zero(t, exchanger.calls)
}
