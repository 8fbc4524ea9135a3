// Package profile models named AWS profiles and aggregates them from the
// on-disk stores at two enrichment depths.
package profile

import (
	"time"

	"github.com/awsbridge/aws-profile-bridge/pkg/awsconfig"
)

// Depth selects how much work a listing performs. Fast never touches the
// bearer token cache; Full consults it per SSO profile.
type Depth string

const (
	DepthFast Depth = "fast"
	DepthFull Depth = "full"
)

// SSOConfig carries the fields that only exist on SSO profiles. Keeping them
// behind a pointer means they cannot leak onto a non-SSO profile.
type SSOConfig struct {
	StartURL  string `json:"start_url,omitempty"`
	Session   string `json:"session,omitempty"`
	Region    string `json:"region,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	RoleName  string `json:"role_name,omitempty"`
}

// Profile is the aggregated view of one named profile. It is re-derived on
// every listing; the files stay authoritative.
type Profile struct {
	Name           string     `json:"name"`
	IsSSO          bool       `json:"is_sso"`
	HasCredentials bool       `json:"has_credentials"`
	Expiration     *time.Time `json:"expiration,omitempty"`
	Expired        bool       `json:"expired"`
	Region         string     `json:"region,omitempty"`
	SSO            *SSOConfig `json:"sso,omitempty"`

	// Presentation metadata, attached at response time only.
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// fromRecord lifts a parsed store record into a Profile.
func fromRecord(rec awsconfig.Record) Profile {
	p := Profile{
		Name:           rec.Name,
		IsSSO:          rec.IsSSO,
		HasCredentials: rec.HasCredentials,
		Expiration:     rec.Expiration,
		Expired:        rec.Expired,
		Region:         rec.Region,
	}
	if rec.IsSSO {
		p.SSO = &SSOConfig{
			StartURL:  rec.SSOStartURL,
			Session:   rec.SSOSession,
			Region:    rec.SSORegion,
			AccountID: rec.SSOAccountID,
			RoleName:  rec.SSORoleName,
		}
	}
	return p
}
