// SPDX-License-Identifier: MIT

// Package urlutil builds, parses, and validates the connection URLs used to
// reach the remote inspection service.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// Environment selects the host variant of the inspection service.
type Environment string

const (
	EnvProd  Environment = "prod"
	EnvQA    Environment = "qa"
	EnvStage Environment = "stage"
	EnvDev   Environment = "dev"
)

// ParseEnvironment maps a string to an Environment, defaulting to prod.
func ParseEnvironment(s string) Environment {
	switch Environment(s) {
	case EnvQA, EnvStage, EnvDev:
		return Environment(s)
	default:
		return EnvProd
	}
}

// HostSuffix returns the host-name infix for the environment ("" for prod).
func (e Environment) HostSuffix() string {
	switch e {
	case EnvQA, EnvStage, EnvDev:
		return "-" + string(e)
	default:
		return ""
	}
}

const (
	scheme      = "wss"
	hostFormat  = "connect%s.griffon.adobe.com"
	servicePath = "/client/v1"
	deepLinkKey = "adb_validation_sessionid"
	urlFormat   = scheme + "://" + "connect%s.griffon.adobe.com" + servicePath +
		"?sessionId=%s&token=%s&orgId=%s&clientId=%s"
)

var (
	uuidPattern  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	tokenPattern = regexp.MustCompile(`^\d{1,4}$`)
	orgPattern   = regexp.MustCompile(`^[0-9a-fA-F]{24}@AdobeOrg$`)
	hostPattern  = regexp.MustCompile(`^connect(-qa|-stage|-dev)?\.griffon\.adobe\.com$`)
)

// ErrInvalidConnectionURL classifies stored or supplied URLs that do not
// carry a complete, well-formed set of connection parameters.
var ErrInvalidConnectionURL = errors.New("invalid connection URL")

// Connection holds the validated query components of a connection URL.
type Connection struct {
	SessionID   string
	Token       string
	OrgID       string
	ClientID    string
	Environment Environment
}

// BuildURL renders the websocket connection URL for c. The token parameter
// is omitted entirely when no token is set.
func BuildURL(c Connection) string {
	if c.Token == "" {
		return fmt.Sprintf(scheme+"://"+hostFormat+servicePath+
			"?sessionId=%s&orgId=%s&clientId=%s",
			c.Environment.HostSuffix(), c.SessionID,
			url.QueryEscape(c.OrgID), c.ClientID)
	}
	return fmt.Sprintf(urlFormat,
		c.Environment.HostSuffix(), c.SessionID, c.Token,
		url.QueryEscape(c.OrgID), c.ClientID)
}

// Parse extracts the connection components from a stored URL. It fails when
// the URL does not parse or sessionId, token, or orgId is missing.
func Parse(raw string) (Connection, error) {
	if raw == "" {
		return Connection{}, fmt.Errorf("%w: empty", ErrInvalidConnectionURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrInvalidConnectionURL, err)
	}
	q := u.Query()
	c := Connection{
		SessionID:   q.Get("sessionId"),
		Token:       q.Get("token"),
		OrgID:       q.Get("orgId"),
		ClientID:    q.Get("clientId"),
		Environment: environmentFromHost(u.Host),
	}
	switch {
	case c.SessionID == "":
		return Connection{}, fmt.Errorf("%w: missing sessionId", ErrInvalidConnectionURL)
	case c.Token == "":
		return Connection{}, fmt.Errorf("%w: missing token", ErrInvalidConnectionURL)
	case c.OrgID == "":
		return Connection{}, fmt.Errorf("%w: missing orgId", ErrInvalidConnectionURL)
	}
	return c, nil
}

func environmentFromHost(host string) Environment {
	m := hostPattern.FindStringSubmatch(host)
	if len(m) == 2 && m[1] != "" {
		return Environment(m[1][1:]) // strip the leading dash
	}
	return EnvProd
}

// IsSafe reports whether raw is an exactly well-formed connection URL:
// allow-listed scheme, host, and path, strict UUID sessionId and clientId,
// a purely numeric token of at most four digits, and a 24-hex-char
// @AdobeOrg organization id. Any deviation is rejected.
func IsSafe(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != scheme || u.Path != servicePath || !hostPattern.MatchString(u.Host) {
		return false
	}
	q := u.Query()
	return uuidPattern.MatchString(q.Get("sessionId")) &&
		tokenPattern.MatchString(q.Get("token")) &&
		orgPattern.MatchString(q.Get("orgId")) &&
		uuidPattern.MatchString(q.Get("clientId"))
}

// SessionIDFromDeepLink extracts the session id from a deep-link trigger
// URL. ok is false when the parameter is absent or not a UUID.
func SessionIDFromDeepLink(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	id := u.Query().Get(deepLinkKey)
	if !uuidPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
