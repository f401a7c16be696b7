package profiler

import (
	"net/url"
	"strings"

	"github.com/nicolastakashi/query-profiler-panel/internal/format"
)

// RequestMeta is everything about one exchange the row needs besides the
// summary.
type RequestMeta struct {
	APIPath             string
	RequestTimeMillis   format.Number
	ServerTimeMillis    format.Number
	ProfilingTimeMicros format.Number
	DetailedReportURL   string
	ProfilerType        string
}

// LinkLabel is the visible text of the detailed-report link.
func (m RequestMeta) LinkLabel() string {
	switch {
	case strings.HasPrefix(m.DetailedReportURL, DetailedViewNotSetupURL):
		return LinkLabelNotSetup
	case m.ProfilerType == ProfilerTypeQuery:
		return LinkLabelQuery
	default:
		return LinkLabelQuerySignature
	}
}

// APIPath returns the path component of rawURL, dropping origin, query and
// fragment. Unparseable input is returned up to its first '?' or '#'.
func APIPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		path, _, _ := strings.Cut(rawURL, "?")
		path, _, _ = strings.Cut(path, "#")
		return path
	}
	if u.Path == "" {
		if u.Opaque != "" {
			return u.Opaque
		}
		return "/"
	}
	return u.EscapedPath()
}

// DetailedURL appends the api path as the name parameter. An absent report URL
// stays absent.
func DetailedURL(reportURL, apiPath string) string {
	if reportURL == "" {
		return ""
	}
	return reportURL + "?name=" + apiPath
}
