// Package awsconfig reads the AWS shared credentials and config stores into
// profile records. Parsed output is cached per file and invalidated by the
// file's modification time, so repeated listings touch the filesystem only for
// an mtime probe.
package awsconfig

import (
	"os"
	"regexp"
	"strings"
	"time"

	log "github.com/charmbracelet/log"
	"gopkg.in/ini.v1"
)

// Keys that count as credential material in the credentials store.
var credentialKeys = map[string]bool{
	"aws_access_key_id":     true,
	"aws_secret_access_key": true,
	"aws_session_token":     true,
}

// Record is one parsed profile section.
type Record struct {
	Name           string
	HasCredentials bool
	Expiration     *time.Time
	Expired        bool

	IsSSO        bool
	SSOStartURL  string
	SSOSession   string
	SSORegion    string
	SSOAccountID string
	SSORoleName  string
	Region       string

	// Extra holds keys the parser does not recognize, verbatim.
	Extra map[string]string
}

// expirationPattern matches the "# Expires 2006-01-02 15:04:05" annotation
// some tooling writes above a credentials section.
var expirationPattern = regexp.MustCompile(`Expires\s+(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`)

const expirationLayout = "2006-01-02 15:04:05"

// CredentialsParser reads the shared credentials store. Every bracketed
// section is a profile name.
type CredentialsParser struct {
	path  string
	cache *FileCache
	now   func() time.Time
}

// NewCredentialsParser builds a parser over path, sharing cache with any other
// reader of the same file.
func NewCredentialsParser(path string, cache *FileCache) *CredentialsParser {
	return &CredentialsParser{path: path, cache: cache, now: time.Now}
}

// Parse returns all profiles in the credentials store. A missing file yields
// an empty list; malformed lines are skipped, never fatal.
func (p *CredentialsParser) Parse() []Record {
	if records, ok := p.cache.Get(p.path); ok {
		return records
	}

	sections, err := loadSections(p.path)
	if err != nil {
		return nil
	}

	var records []Record
	for _, sec := range sections {
		rec := Record{Name: sec.Name(), Extra: map[string]string{}}
		if exp, expired, ok := parseExpiration(sec, p.now()); ok {
			rec.Expiration = &exp
			rec.Expired = expired
		}
		for _, key := range sec.Keys() {
			if credentialKeys[key.Name()] {
				rec.HasCredentials = true
			} else {
				rec.Extra[key.Name()] = key.Value()
			}
		}
		records = append(records, rec)
	}

	log.Debug("parsed credentials store", "path", p.path, "profiles", len(records))
	p.cache.Set(p.path, records)
	return records
}

// ConfigParser reads the shared config store. Section names drop the
// "profile " prefix, and only sections carrying SSO markers survive: the
// credentials store is canonical for everything else.
type ConfigParser struct {
	path  string
	cache *FileCache
}

// NewConfigParser builds a parser over path.
func NewConfigParser(path string, cache *FileCache) *ConfigParser {
	return &ConfigParser{path: path, cache: cache}
}

// Parse returns the SSO profiles defined in the config store. A missing file
// yields an empty list.
func (p *ConfigParser) Parse() []Record {
	if records, ok := p.cache.Get(p.path); ok {
		return records
	}

	sections, err := loadSections(p.path)
	if err != nil {
		return nil
	}

	var records []Record
	for _, sec := range sections {
		rec := Record{Name: configSectionName(sec.Name()), Extra: map[string]string{}}
		for _, key := range sec.Keys() {
			value := key.Value()
			switch key.Name() {
			case "sso_start_url":
				rec.IsSSO = true
				rec.SSOStartURL = value
			case "sso_session":
				rec.IsSSO = true
				rec.SSOSession = value
			case "sso_region":
				rec.SSORegion = value
			case "sso_account_id":
				rec.SSOAccountID = value
			case "sso_role_name":
				rec.SSORoleName = value
			case "region":
				rec.Region = value
			default:
				rec.Extra[key.Name()] = value
			}
		}
		if rec.IsSSO {
			records = append(records, rec)
		}
	}

	log.Debug("parsed config store", "path", p.path, "sso_profiles", len(records))
	p.cache.Set(p.path, records)
	return records
}

func configSectionName(name string) string {
	return strings.TrimPrefix(name, "profile ")
}

// loadSections parses path as INI, skipping lines ini cannot make sense of.
// A missing or unreadable file is reported as an error so callers can treat
// it as an empty store.
func loadSections(path string) ([]*ini.Section, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	file, err := ini.LoadSources(ini.LoadOptions{SkipUnrecognizableLines: true}, path)
	if err != nil {
		log.Warn("unparseable store treated as empty", "path", path, "err", err)
		return nil, err
	}

	var sections []*ini.Section
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// parseExpiration scans the comments attached to a section and its keys for
// the Expires annotation. Timestamps are interpreted as UTC.
func parseExpiration(sec *ini.Section, now time.Time) (time.Time, bool, bool) {
	comments := []string{sec.Comment}
	for _, key := range sec.Keys() {
		comments = append(comments, key.Comment)
	}

	for _, comment := range comments {
		match := expirationPattern.FindStringSubmatch(comment)
		if match == nil {
			continue
		}
		exp, err := time.ParseInLocation(expirationLayout, match[1], time.UTC)
		if err != nil {
			continue
		}
		return exp, exp.Before(now.UTC()), true
	}
	return time.Time{}, false, false
}
