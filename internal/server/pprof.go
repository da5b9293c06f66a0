package server

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
)

// PprofPrefix is where PprofHandler expects to be mounted.
const PprofPrefix = "/debug/pprof"

// PprofConfig guards the profiling endpoints. Basic auth is required when
// both Username and Password are set.
type PprofConfig struct {
	Username string
	Password string
}

// PprofHandler serves the runtime profiles under PprofPrefix. Mount it on
// the operational listener, never on the public API:
//
//	r.Mount(server.PprofPrefix, server.PprofHandler(cfg))
func PprofHandler(cfg PprofConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PprofPrefix+"/", pprof.Index)
	mux.HandleFunc(PprofPrefix+"/cmdline", pprof.Cmdline)
	mux.HandleFunc(PprofPrefix+"/profile", pprof.Profile)
	mux.HandleFunc(PprofPrefix+"/symbol", pprof.Symbol)
	mux.HandleFunc(PprofPrefix+"/trace", pprof.Trace)

	if cfg.Username == "" || cfg.Password == "" {
		return mux
	}
	return basicAuth(cfg.Username, cfg.Password, mux)
}

func basicAuth(username, password string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1

		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
