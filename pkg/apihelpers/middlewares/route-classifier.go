package middlewares

import (
	"fmt"
	"regexp"
	"strings"
)

type RouteClass int

const (
	RouteProtected RouteClass = iota
	RoutePublic
	RoutePublicGet
)

// PublicGetPrefix marks everything below Prefix as public for GET requests.
// MaxDepth limits how many path segments below the prefix still match, 0
// means unbounded.
type PublicGetPrefix struct {
	Prefix   string `json:"prefix" yaml:"prefix"`
	MaxDepth int    `json:"maxDepth" yaml:"max_depth"`
}

// RouteClassifier decides whether a request needs a bearer token. Public
// routes are matched in a fixed rule order, first hit wins: exact match,
// trailing wildcard, parameterized route, tolerant suffix, and finally the
// GET-only prefix table.
type RouteClassifier struct {
	exact       map[string]struct{}
	wildcards   []string
	params      []*regexp.Regexp
	tolerant    []string
	getPrefixes []PublicGetPrefix
}

func NewRouteClassifier(publicRoutes []string, publicGetPrefixes []PublicGetPrefix) (*RouteClassifier, error) {
	classifier := &RouteClassifier{
		exact:       map[string]struct{}{},
		getPrefixes: publicGetPrefixes,
	}

	for _, route := range publicRoutes {
		classifier.exact[route] = struct{}{}

		switch {
		case strings.HasSuffix(route, "*"):
			classifier.wildcards = append(classifier.wildcards, strings.TrimSuffix(route, "*"))
		case strings.Contains(route, ":"):
			pattern, err := compileParamRoute(route)
			if err != nil {
				return nil, fmt.Errorf("cannot compile public route %q: %w", route, err)
			}
			classifier.params = append(classifier.params, pattern)
		default:
			classifier.tolerant = append(classifier.tolerant, route)
		}
	}

	return classifier, nil
}

// compileParamRoute turns a route like /api/items/:id into an anchored regex
// where each :segment matches one path segment.
func compileParamRoute(route string) (*regexp.Regexp, error) {
	segments := strings.Split(route, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "[^/]+"
		} else {
			segments[i] = regexp.QuoteMeta(segment)
		}
	}
	return regexp.Compile("^" + strings.Join(segments, "/") + "$")
}

func (rc *RouteClassifier) Classify(method string, path string) RouteClass {
	if _, ok := rc.exact[path]; ok {
		return RoutePublic
	}

	for _, prefix := range rc.wildcards {
		if strings.HasPrefix(path, prefix) {
			return RoutePublic
		}
	}

	for _, pattern := range rc.params {
		if pattern.MatchString(path) {
			return RoutePublic
		}
	}

	for _, route := range rc.tolerant {
		if path == route ||
			strings.HasPrefix(path, route+"/") ||
			strings.HasPrefix(path, route+"?") {
			return RoutePublic
		}
	}

	if method == "GET" {
		for _, entry := range rc.getPrefixes {
			if strings.HasPrefix(path, entry.Prefix) && withinDepth(path, entry.Prefix, entry.MaxDepth) {
				return RoutePublicGet
			}
		}
	}

	return RouteProtected
}

func withinDepth(path string, prefix string, maxDepth int) bool {
	if maxDepth < 1 {
		return true
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return true
	}
	return len(strings.Split(rest, "/")) <= maxDepth
}
