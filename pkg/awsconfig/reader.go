package awsconfig

import (
	"os"

	"gopkg.in/ini.v1"
)

// ProfileReader extracts a single profile's raw key/value pairs from either
// store. Resolution reads the file directly so it always observes the latest
// contents, even between mtime probes.
type ProfileReader struct {
	credentialsPath string
	configPath      string
}

// NewProfileReader builds a reader over the two store paths.
func NewProfileReader(credentialsPath, configPath string) *ProfileReader {
	return &ProfileReader{credentialsPath: credentialsPath, configPath: configPath}
}

// Credentials returns the credential keys for name from the credentials
// store, or false when the section or the file is absent.
func (r *ProfileReader) Credentials(name string) (map[string]string, bool) {
	section, ok := readSection(r.credentialsPath, func(sectionName string) bool {
		return sectionName == name
	})
	if !ok {
		return nil, false
	}

	creds := map[string]string{}
	for key, value := range section {
		if credentialKeys[key] {
			creds[key] = value
		}
	}
	if len(creds) == 0 {
		return nil, false
	}
	return creds, true
}

// Config returns every key of name's section in the config store, with the
// "profile " header prefix already stripped.
func (r *ProfileReader) Config(name string) (map[string]string, bool) {
	return readSection(r.configPath, func(sectionName string) bool {
		return configSectionName(sectionName) == name
	})
}

func readSection(path string, match func(string) bool) (map[string]string, bool) {
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}

	file, err := ini.LoadSources(ini.LoadOptions{SkipUnrecognizableLines: true}, path)
	if err != nil {
		return nil, false
	}

	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection || !match(sec.Name()) {
			continue
		}
		values := map[string]string{}
		for _, key := range sec.Keys() {
			values[key.Name()] = key.Value()
		}
		if len(values) == 0 {
			return nil, false
		}
		return values, true
	}
	return nil, false
}
