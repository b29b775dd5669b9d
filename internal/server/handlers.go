package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"procstudio-console/internal/cache"
	"procstudio-console/internal/procstudio"
	"procstudio-console/internal/readiness"
	"procstudio-console/internal/search"
)

func (s *Server) teams(ctx context.Context, sess *readiness.Session) ([]procstudio.Team, error) {
	return cache.Fetch(ctx, s.cache, teamsListKey(sess), s.cfg.TeamsTTL, func(ctx context.Context) ([]procstudio.Team, error) {
		return s.api.ListTeams(ctx, sess.AccessToken)
	})
}

func (s *Server) team(ctx context.Context, sess *readiness.Session, id string) (procstudio.Team, error) {
	return cache.Fetch(ctx, s.cache, teamKey(sess, id), s.cfg.TeamsTTL, func(ctx context.Context) (procstudio.Team, error) {
		return s.api.GetTeam(ctx, sess.AccessToken, id)
	})
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": teamViews(teams)})
}

func (s *Server) handleSearchTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "fuzzy":
		writeJSON(w, http.StatusOK, map[string]any{"data": search.Find(q, teams, teamSearchText)})
	case "regex":
		matched, err := search.Filter(q, teams, teamSearchText)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid query")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": teamViews(matched)})
	default:
		writeError(w, http.StatusBadRequest, "unknown search mode "+mode)
	}
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := s.team(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": newTeamView(t)})
}

func (s *Server) handleTeamSetup(w http.ResponseWriter, r *http.Request) {
	t, err := s.team(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	rt := t.Readiness()
	reasons := readiness.SetupReasons(rt)
	if reasons == nil {
		reasons = []string{}
	}
	writeJSON(w, http.StatusOK, setupView{
		TeamID:     t.ID,
		NeedsSetup: readiness.DoesTeamNeedSetup(rt),
		Reasons:    reasons,
	})
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var u procstudio.TeamUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sess := sessionFrom(r.Context())
	id := chi.URLParam(r, "id")
	t, err := s.api.UpdateTeam(r.Context(), sess.AccessToken, id, u)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	// Every user that can see the team holds its own copy.
	n := s.cache.DeletePrefix(teamsListPrefix) + s.cache.DeletePrefix(teamPrefix(id))
	log.WithFields(log.Fields{"team": id, "entries": n}).Debug("team cache invalidated")
	writeJSON(w, http.StatusOK, map[string]any{"data": newTeamView(t)})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := chi.URLParam(r, "id")
	members, err := cache.Fetch(r.Context(), s.cache, membersKey(sess, id), s.cfg.TeamsTTL, func(ctx context.Context) ([]procstudio.Member, error) {
		return s.api.ListMembers(ctx, sess.AccessToken, id)
	})
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, map[string]any{"data": search.Find(q, members, memberSearchText)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": members})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	stats, err := s.cache.CachedCall(r.Context(), dashboardStatsKey(sess), s.cfg.DashboardTTL, func(ctx context.Context) (any, error) {
		return s.api.DashboardStats(ctx, sess.AccessToken)
	})
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": stats})
}

// handleLogout clears the cache once the upstream confirms the token belongs
// to the session's user.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	me, err := s.api.Me(r.Context(), sess.AccessToken)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	if me.ID != sess.ID {
		writeError(w, http.StatusForbidden, "session does not match token")
		return
	}
	s.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	st := s.cache.Stats()
	writeJSON(w, http.StatusOK, cacheStatsView{
		Stats:        st,
		MemoryHuman:  humanize.Bytes(uint64(st.ApproximateMemoryUsage)),
		DefaultTTL:   s.cache.DefaultTTL().String(),
		TeamsTTL:     s.cfg.TeamsTTL.String(),
		DashboardTTL: s.cfg.DashboardTTL.String(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheSweep(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.cache.ClearExpired()})
}
