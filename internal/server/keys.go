package server

import (
	"crypto/sha256"
	"encoding/hex"

	"procstudio-console/internal/readiness"
)

// Cache keys follow "<endpoint>:<params>". The caller's identity in the params
// is a digest of the bearer token the upstream verified on the miss, never a
// client-supplied header.

const (
	teamsListPrefix = "teams:list:"
	teamGetPrefix   = "teams:get:"
)

// identity hashes the access token with SHA-256 and returns the hex string.
func identity(s *readiness.Session) string {
	sum := sha256.Sum256([]byte(s.AccessToken))
	return hex.EncodeToString(sum[:])
}

func teamsListKey(s *readiness.Session) string { return teamsListPrefix + identity(s) }

func teamPrefix(id string) string { return teamGetPrefix + id + ":" }

func teamKey(s *readiness.Session, id string) string { return teamPrefix(id) + identity(s) }

func membersKey(s *readiness.Session, teamID string) string {
	return "teams:members:" + teamID + ":" + identity(s)
}

func dashboardStatsKey(s *readiness.Session) string { return "dashboard:stats:" + identity(s) }
