package profile

import (
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"gopkg.in/ini.v1"
)

// Enumerator lists the profile names known to some authority. Which names
// exist comes from the enumerator; their attributes always come from the
// files. A nil enumerator makes the aggregator fall back to a manual union of
// the two store parses.
type Enumerator interface {
	ProfileNames() ([]string, error)
}

// EnumeratorFunc adapts a function to the Enumerator interface.
type EnumeratorFunc func() ([]string, error)

func (f EnumeratorFunc) ProfileNames() ([]string, error) { return f() }

// SharedFilesEnumerator enumerates profiles the way the AWS SDK would see
// them: from the SDK's default shared file locations, honoring the standard
// environment overrides.
type SharedFilesEnumerator struct {
	credentialsPath string
	configPath      string
}

// NewSharedFilesEnumerator resolves the SDK's file locations once at
// construction.
func NewSharedFilesEnumerator() *SharedFilesEnumerator {
	credentialsPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credentialsPath == "" {
		credentialsPath = config.DefaultSharedCredentialsFilename()
	}
	configPath := os.Getenv("AWS_CONFIG_FILE")
	if configPath == "" {
		configPath = config.DefaultSharedConfigFilename()
	}
	return &SharedFilesEnumerator{credentialsPath: credentialsPath, configPath: configPath}
}

// ProfileNames returns the ordered, de-duplicated union of section names in
// the credentials and config files.
func (e *SharedFilesEnumerator) ProfileNames() ([]string, error) {
	var names []string
	seen := map[string]bool{}

	appendNames := func(path string, strip bool) {
		file, err := ini.LoadSources(ini.LoadOptions{SkipUnrecognizableLines: true}, path)
		if err != nil {
			return
		}
		for _, sec := range file.Sections() {
			name := sec.Name()
			if name == ini.DefaultSection {
				continue
			}
			if strip {
				name = strings.TrimPrefix(name, "profile ")
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	appendNames(e.credentialsPath, false)
	appendNames(e.configPath, true)
	return names, nil
}
