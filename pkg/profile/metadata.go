package profile

import "strings"

// MetadataRule assigns a color and icon to profiles whose name contains one
// of its keywords. Rules are evaluated in order, first match wins.
type MetadataRule struct {
	Keywords []string
	Color    string
	Icon     string
}

func (r MetadataRule) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range r.Keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MetadataProvider derives presentation metadata from profile names.
type MetadataProvider struct {
	rules        []MetadataRule
	defaultColor string
	defaultIcon  string
}

// NewMetadataProvider builds a provider with an ordered rule list.
func NewMetadataProvider(rules []MetadataRule) *MetadataProvider {
	return &MetadataProvider{rules: rules, defaultColor: "blue", defaultIcon: "circle"}
}

// DefaultMetadataProvider returns the stock keyword rules.
func DefaultMetadataProvider() *MetadataProvider {
	return NewMetadataProvider([]MetadataRule{
		{Keywords: []string{"prod", "production"}, Color: "red", Icon: "briefcase"},
		{Keywords: []string{"stg", "staging", "stage"}, Color: "yellow", Icon: "circle"},
		{Keywords: []string{"dev", "development"}, Color: "green", Icon: "fingerprint"},
		{Keywords: []string{"test", "qa"}, Color: "turquoise", Icon: "circle"},
		{Keywords: []string{"ite", "integration"}, Color: "blue", Icon: "circle"},
		{Keywords: []string{"vdi"}, Color: "blue", Icon: "vacation"},
		{Keywords: []string{"janus"}, Color: "purple", Icon: "circle"},
	})
}

// Apply sets Color and Icon on p from the first matching rule.
func (m *MetadataProvider) Apply(p *Profile) {
	for _, rule := range m.rules {
		if rule.matches(p.Name) {
			p.Color = rule.Color
			p.Icon = rule.Icon
			return
		}
	}
	p.Color = m.defaultColor
	p.Icon = m.defaultIcon
}
