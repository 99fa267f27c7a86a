package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"identity-server/gateway/internal/config"
	"identity-server/shared/models"
)

// Router forwards requests to upstream services by path prefix. Longest
// prefix wins, so "/auth/admin" can route differently from "/auth".
type Router struct {
	routes []route
	logger *zap.Logger
}

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

// NewRouter builds the reverse proxies from the routing table.
func NewRouter(configs []config.RouteConfig, logger *zap.Logger) (*Router, error) {
	log := logger.Named("ProxyRouter")
	routes := make([]route, 0, len(configs))

	for _, rc := range configs {
		if rc.Prefix == "" || rc.Upstream == "" {
			return nil, fmt.Errorf("route with empty prefix or upstream: %+v", rc)
		}
		target, err := url.Parse(rc.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream url %q: %w", rc.Upstream, err)
		}

		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("Upstream request failed",
				zap.Error(err),
				zap.String("upstream", target.String()),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprintf(w, `{"success":false,"error":{"code":%q,"message":"Upstream service unavailable"}}`, models.ErrCodeUpstream)
		}

		routes = append(routes, route{prefix: rc.Prefix, proxy: proxy})
		log.Info("Route registered", zap.String("prefix", rc.Prefix), zap.String("upstream", rc.Upstream))
	}

	// Longest prefix first.
	sort.Slice(routes, func(i, j int) bool {
		return len(routes[i].prefix) > len(routes[j].prefix)
	})

	return &Router{routes: routes, logger: log}, nil
}

// Handler serves every request by delegating to the matching proxy.
func (r *Router) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, rt := range r.routes {
			if strings.HasPrefix(path, rt.prefix) {
				rt.proxy.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		models.RespondError(c, http.StatusNotFound, models.ErrCodeBadRequest, "No route for path")
	}
}
