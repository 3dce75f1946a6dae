// Package handler implements the operational HTTP handlers served
// outside the pipeline, plus the stand-in origin the pipeline hands
// pass-throughs to.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fundlane/edgegate/internal/apierror"
	"github.com/fundlane/edgegate/internal/version"
)

// Health handles liveness checks. It always returns 200 if the server
// is running. Response includes "version" so you can see which
// edgegate build is serving.
//
//	GET /healthz
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	}
}

// VersionInfo handles version info. Returns JSON with version and optional commit.
//
//	GET /version
func VersionInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info := map[string]string{"version": version.Version}
		if version.Commit != "" {
			info["commit"] = version.Commit
		}
		_ = json.NewEncoder(w).Encode(info)
	}
}

// Origin is the stand-in for the platform's business handlers. The
// real deployment mounts the application mux here; the edge only cares
// that pass-throughs land on something, so unknown paths are a JSON
// 404.
func Origin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, &apierror.Error{Status: http.StatusNotFound, Message: "Not found"})
	})
}
