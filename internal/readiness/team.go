package readiness

import (
	"regexp"
	"strings"
	"time"
)

// MockTimestampTolerance is how close updated_at may be to created_at before
// a team is considered untouched.
const MockTimestampTolerance = 5 * time.Second

// Team is the subset of the backend team record the setup check looks at.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rule is one named heuristic of the setup classifier.
type Rule struct {
	Name  string
	Check func(*Team) bool
}

var (
	placeholderNames = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(team|equipe)\s+\S+$`),
		regexp.MustCompile(`(?i)^(default|minha|nova|my|new)\s+(team|equipe)$`),
		regexp.MustCompile(`(?i)^(mock|test|teste)\b`),
	}
	generatedSubdomains = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(team|equipe)(-[a-z0-9]+)?$`),
		regexp.MustCompile(`(?i)^(mock|test|teste)([-_][a-z0-9-]*)?$`),
		regexp.MustCompile(`(?i)^[0-9a-f]{12,}$`),
		regexp.MustCompile(`(?i)^[a-z]+-\d{6,}$`),
	}
)

// MockTimestamp fires when the record was never edited after creation.
// This is a weak signal: clock skew or a very fast legitimate edit trips it
// too. A backend setup_completed flag would replace it.
var MockTimestamp = Rule{
	Name: "MockTimestamp",
	Check: func(t *Team) bool {
		if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
			return true
		}
		d := t.UpdatedAt.Sub(t.CreatedAt)
		if d < 0 {
			d = -d
		}
		return d <= MockTimestampTolerance
	},
}

// GenericName fires for blank or placeholder team names.
var GenericName = Rule{
	Name: "GenericName",
	Check: func(t *Team) bool {
		return matchesAny(strings.TrimSpace(t.Name), placeholderNames, true)
	},
}

// MissingSubdomain fires when no subdomain was chosen.
var MissingSubdomain = Rule{
	Name: "MissingSubdomain",
	Check: func(t *Team) bool {
		return strings.TrimSpace(t.Subdomain) == ""
	},
}

// GenericSubdomain fires for subdomains that look auto-generated.
var GenericSubdomain = Rule{
	Name: "GenericSubdomain",
	Check: func(t *Team) bool {
		sub := strings.TrimSpace(t.Subdomain)
		if sub == "" {
			return false
		}
		return matchesAny(sub, generatedSubdomains, false)
	},
}

// SetupRules are evaluated in order and combined with OR.
var SetupRules = []Rule{MockTimestamp, GenericName, MissingSubdomain, GenericSubdomain}

// DoesTeamNeedSetup is a best-effort classifier for teams that were created
// automatically and never configured by a person. A nil team needs setup.
func DoesTeamNeedSetup(t *Team) bool {
	if t == nil {
		return true
	}
	for _, r := range SetupRules {
		if r.Check(t) {
			return true
		}
	}
	return false
}

// SetupReasons returns the names of every rule that fires for t.
func SetupReasons(t *Team) []string {
	if t == nil {
		return []string{"MissingTeam"}
	}
	var out []string
	for _, r := range SetupRules {
		if r.Check(t) {
			out = append(out, r.Name)
		}
	}
	return out
}

func matchesAny(s string, patterns []*regexp.Regexp, emptyMatches bool) bool {
	if s == "" {
		return emptyMatches
	}
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
