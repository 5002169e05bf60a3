package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ValidOrigin reports whether o can go on the CORS allow-list: "*" or a bare
// http(s) scheme://host[:port].
func ValidOrigin(o string) bool {
	if o == "*" {
		return true
	}
	if strings.Contains(o, "*") {
		return false
	}
	if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
		return false
	}
	u, err := url.Parse(o)
	if err != nil {
		return false
	}
	return u.Host != "" && u.Path == "" && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}

// CORS allows any origin when origins is empty or contains "*"; otherwise only
// the listed origins, echoed back with Vary: Origin. A request from an origin
// that is not listed is still served, just without Access-Control-Allow-Origin,
// so the browser withholds the response. Entries ValidOrigin rejects are skipped.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Content-Type"},
		ExposeHeaders:             []string{HeaderRequestID, HeaderTraceID},
		OptionsResponseStatusCode: http.StatusNoContent,
	}

	listed := make(map[string]struct{}, len(origins))
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
		if !ValidOrigin(o) {
			continue
		}
		o = strings.ToLower(o)
		if _, dup := listed[o]; dup {
			continue
		}
		listed[o] = struct{}{}
		allowed = append(allowed, o)
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}

	cfg.AllowOrigins = allowed
	apply := cors.New(cfg)
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			apply(c)
			return
		}
		if _, ok := listed[origin]; !ok {
			c.Writer.Header().Add("Vary", "Origin")
			c.Next()
			return
		}
		apply(c)
	}
}
