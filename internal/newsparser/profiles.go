package newsparser

import "regexp"

// DatePattern is one recognized date-anchor shape for a source profile.
// Relative patterns carry no Layout and are resolved against crawl_time_utc
// instead of parsed directly.
type DatePattern struct {
	Regex    string
	Layout   string
	Relative bool
}

// SourceProfile is a named bundle of regexes and labels driving
// deterministic news parsing for one site family, per the glossary.
type SourceProfile struct {
	Name             string
	DisplayName      string
	Timezone         string
	UTCOffset        string
	DatePatterns     []DatePattern
	SectionLabels    []string
	NoiseMarkers     []string
	SponsoredMarkers []string
	ExclusiveMarkers []string
	OpinionLabels    []string
}

const GenericProfileName = "generic"

var relativeDatePattern = DatePattern{
	Regex:    `^(\d+)\s+(minute|minutes|hour|hours|day|days)\s+ago$`,
	Relative: true,
}

// genericProfile is the profile used when source_profile_name is absent or
// unrecognized: a minimal, conservative rule set that still segments on an
// absolute date line such as "13 Feb 2026 - 10:15PM" or a relative
// "N units ago" line.
var genericProfile = SourceProfile{
	Name:        GenericProfileName,
	DisplayName: "Generic",
	Timezone:    "UTC",
	UTCOffset:   "+00:00",
	DatePatterns: []DatePattern{
		{Regex: `^\d{1,2} [A-Z][a-z]{2} \d{4} - \d{1,2}:\d{2}(AM|PM)$`, Layout: "2 Jan 2006 - 3:04PM"},
		relativeDatePattern,
	},
	SectionLabels:    nil,
	NoiseMarkers:     nil,
	SponsoredMarkers: []string{"Sponsored", "Sponsored Content", "Paid Content"},
	ExclusiveMarkers: []string{"Exclusive"},
	OpinionLabels:    []string{"Opinion", "Comment", "Editorial"},
}

var scmpProfile = SourceProfile{
	Name:        "scmp",
	DisplayName: "South China Morning Post",
	Timezone:    "Asia/Hong_Kong",
	UTCOffset:   "+08:00",
	DatePatterns: []DatePattern{
		{Regex: `^\d{1,2} [A-Z][a-z]{2} \d{4} - \d{1,2}:\d{2}(AM|PM)$`, Layout: "2 Jan 2006 - 3:04PM"},
		relativeDatePattern,
	},
	SectionLabels: []string{
		"Hong Kong", "China", "Asia", "World", "Business", "Tech", "Lifestyle", "Sport", "Opinion",
	},
	NoiseMarkers: []string{
		"Also on SCMP", "Sign up now", "Read the full story", "Advertisement",
	},
	SponsoredMarkers: []string{"Sponsored", "Brand Post", "Presented by"},
	ExclusiveMarkers: []string{"Exclusive"},
	OpinionLabels:    []string{"Opinion", "Letters", "SCMP Columnist"},
}

var profileRegistry = map[string]SourceProfile{
	genericProfile.Name: genericProfile,
	scmpProfile.Name:    scmpProfile,
}

// resolveProfile returns the named profile, or genericProfile if name is
// empty or unknown. The bool reports whether a named (non-generic)
// profile was actually found, used for the parse-quality fallback penalty.
func resolveProfile(name string) (SourceProfile, bool) {
	if name == "" {
		return genericProfile, false
	}
	p, ok := profileRegistry[name]
	if !ok {
		return genericProfile, false
	}
	return p, true
}

// compileDateRegex joins every pattern in the profile into one alternation,
// returning a SourceProfileError-flavored error on an invalid pattern.
func compileDateRegex(patterns []DatePattern) (*regexp.Regexp, error) {
	combined := ""
	for i, p := range patterns {
		if i > 0 {
			combined += "|"
		}
		combined += "(?:" + p.Regex + ")"
	}
	return regexp.Compile(combined)
}
