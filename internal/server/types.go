package server

import (
	"procstudio-console/internal/cache"
	"procstudio-console/internal/procstudio"
	"procstudio-console/internal/readiness"
)

type teamView struct {
	procstudio.Team
	NeedsSetup bool `json:"needs_setup"`
}

func newTeamView(t procstudio.Team) teamView {
	return teamView{Team: t, NeedsSetup: readiness.DoesTeamNeedSetup(t.Readiness())}
}

func teamViews(teams []procstudio.Team) []teamView {
	out := make([]teamView, 0, len(teams))
	for _, t := range teams {
		out = append(out, newTeamView(t))
	}
	return out
}

type setupView struct {
	TeamID     string   `json:"team_id"`
	NeedsSetup bool     `json:"needs_setup"`
	Reasons    []string `json:"reasons"`
}

type cacheStatsView struct {
	cache.Stats
	MemoryHuman  string `json:"memory_human"`
	DefaultTTL   string `json:"default_ttl"`
	TeamsTTL     string `json:"teams_ttl"`
	DashboardTTL string `json:"dashboard_ttl"`
}

func teamSearchText(t procstudio.Team) string { return t.Name + " " + t.Subdomain }

func memberSearchText(m procstudio.Member) string { return m.Name + " " + m.Email }
