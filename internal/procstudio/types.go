package procstudio

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"procstudio-console/internal/readiness"
)

// Team is a law-office team as returned by the API.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Readiness returns the view of t used by the setup classifier.
func (t Team) Readiness() *readiness.Team {
	return &readiness.Team{
		ID:        t.ID,
		Name:      t.Name,
		Subdomain: t.Subdomain,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TeamUpdate carries the editable team fields. Nil fields are left unchanged.
type TeamUpdate struct {
	Name      *string `json:"name,omitempty"`
	Subdomain *string `json:"subdomain,omitempty"`
}

// Member is a user belonging to a team.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// extractItems tries the JSON:API "data" array, then key, then "results", then an array root.
func extractItems(body gjson.Result, key string) []gjson.Result {
	for _, path := range []string{"data", key, "results"} {
		if v := body.Get(path); v.IsArray() {
			return v.Array()
		}
	}
	if body.IsArray() {
		return body.Array()
	}
	return nil
}

// extractObject tries "data", then key, falling back to the root object.
func extractObject(body gjson.Result, key string) gjson.Result {
	for _, path := range []string{"data", key} {
		if v := body.Get(path); v.IsObject() {
			return v
		}
	}
	return body
}

// attributes flattens JSON:API resources; plain objects are returned as-is.
func attributes(it gjson.Result) gjson.Result {
	if a := it.Get("attributes"); a.IsObject() {
		return a
	}
	return it
}

func teamFrom(it gjson.Result) Team {
	a := attributes(it)
	return Team{
		ID:        firstNonEmpty(it.Get("id").String(), a.Get("id").String()),
		Name:      a.Get("name").String(),
		Subdomain: a.Get("subdomain").String(),
		Status:    a.Get("status").String(),
		CreatedAt: parseTime(a.Get("created_at").String()),
		UpdatedAt: parseTime(a.Get("updated_at").String()),
	}
}

func memberFrom(it gjson.Result) Member {
	a := attributes(it)
	name := a.Get("name").String()
	if last := a.Get("last_name").String(); last != "" {
		name = strings.TrimSpace(name + " " + last)
	}
	return Member{
		ID:    firstNonEmpty(it.Get("id").String(), a.Get("id").String()),
		Name:  name,
		Email: firstNonEmpty(a.Get("email").String(), a.Get("access_email").String()),
		Role:  firstNonEmpty(a.Get("role").String(), a.Get("membership_role").String()),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
