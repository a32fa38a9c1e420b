// SPDX-License-Identifier: MIT

package urlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionID = "4748f08c-1a22-41a5-9297-4c21ef77bba9"
	testClientID  = "bf8b9a27-3a23-4f0d-9b21-35b25e07f4d2"
	testOrgID     = "972C898555E9F7BC7F000101@AdobeOrg"
)

func canonicalURL(env Environment) string {
	return BuildURL(Connection{
		SessionID:   testSessionID,
		Token:       "1234",
		OrgID:       testOrgID,
		ClientID:    testClientID,
		Environment: env,
	})
}

func TestBuildURLShape(t *testing.T) {
	u := canonicalURL(EnvProd)
	assert.True(t, strings.HasPrefix(u, "wss://connect.griffon.adobe.com/client/v1?"))
	assert.Contains(t, u, "sessionId="+testSessionID)
	assert.Contains(t, u, "token=1234")
	assert.Contains(t, u, "clientId="+testClientID)
	assert.Contains(t, u, "orgId=972C898555E9F7BC7F000101%40AdobeOrg")
}

func TestBuildURLEnvironmentSuffix(t *testing.T) {
	assert.Contains(t, canonicalURL(EnvQA), "connect-qa.griffon.adobe.com")
	assert.Contains(t, canonicalURL(EnvStage), "connect-stage.griffon.adobe.com")
	assert.Contains(t, canonicalURL(EnvDev), "connect-dev.griffon.adobe.com")
}

func TestBuildURLOmitsEmptyToken(t *testing.T) {
	u := BuildURL(Connection{SessionID: testSessionID, OrgID: testOrgID, ClientID: testClientID})
	assert.NotContains(t, u, "token=")
}

func TestParseRoundTrip(t *testing.T) {
	conn, err := Parse(canonicalURL(EnvQA))
	require.NoError(t, err)
	assert.Equal(t, testSessionID, conn.SessionID)
	assert.Equal(t, "1234", conn.Token)
	assert.Equal(t, testOrgID, conn.OrgID)
	assert.Equal(t, testClientID, conn.ClientID)
	assert.Equal(t, EnvQA, conn.Environment)
}

func TestParseRejectsIncompleteURLs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"missing sessionId", "wss://connect.griffon.adobe.com/client/v1?token=1234&orgId=" + testOrgID},
		{"missing token", "wss://connect.griffon.adobe.com/client/v1?sessionId=" + testSessionID + "&orgId=" + testOrgID},
		{"missing orgId", "wss://connect.griffon.adobe.com/client/v1?sessionId=" + testSessionID + "&token=1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			require.ErrorIs(t, err, ErrInvalidConnectionURL)
		})
	}
}

func TestIsSafeAcceptsCanonicalShapes(t *testing.T) {
	assert.True(t, IsSafe(canonicalURL(EnvProd)))
	assert.True(t, IsSafe(canonicalURL(EnvQA)))
	assert.True(t, IsSafe(canonicalURL(EnvStage)))
	assert.True(t, IsSafe(canonicalURL(EnvDev)))
}

// mutate swaps old for new in the canonical URL and fails loudly when the
// replacement did not take, so a case can never silently test the original.
func mutate(t *testing.T, base, old, new string) string {
	t.Helper()
	mutated := strings.Replace(base, old, new, 1)
	require.NotEqual(t, base, mutated, "replacement %q not found in %q", old, base)
	return mutated
}

func TestIsSafeRejectsDeviations(t *testing.T) {
	base := canonicalURL(EnvProd)
	cases := []struct {
		name string
		url  string
	}{
		{"oversized sessionId", mutate(t, base, testSessionID, testSessionID+"f")},
		{"oversized clientId", mutate(t, base, testClientID, testClientID+"0")},
		// The org id is query-escaped in the built URL, so the suffix
		// appears as %40AdobeOrg.
		{"wrong org suffix", mutate(t, base, "%40AdobeOrg", "%40SomeOrg")},
		{"token too long", mutate(t, base, "token=1234", "token=12345")},
		{"token not numeric", mutate(t, base, "token=1234", "token=12a4")},
		{"wrong scheme", mutate(t, base, "wss://", "ws://")},
		{"wrong path", mutate(t, base, "/client/v1", "/client/v2")},
		{"wrong host suffix", mutate(t, base, "connect.griffon.adobe.com", "connect.griffon.adobe.com.evil.example")},
		{"wrong host", mutate(t, base, "griffon.adobe.com", "griffon.example.com")},
		{"org not hex", mutate(t, base, "972C898555E9F7BC7F000101", "972C898555E9F7BC7F00010Z")},
		{"unparseable", "wss://connect.griffon.adobe.com/client/v1?%zz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, IsSafe(tc.url), tc.url)
		})
	}
}

func TestSessionIDFromDeepLink(t *testing.T) {
	id, ok := SessionIDFromDeepLink("myapp://launch?adb_validation_sessionid=" + testSessionID)
	require.True(t, ok)
	assert.Equal(t, testSessionID, id)

	for _, raw := range []string{
		"myapp://launch",
		"myapp://launch?adb_validation_sessionid=",
		"myapp://launch?adb_validation_sessionid=not-a-uuid",
		"://bad",
	} {
		_, ok := SessionIDFromDeepLink(raw)
		assert.False(t, ok, raw)
	}
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, EnvProd, ParseEnvironment("prod"))
	assert.Equal(t, EnvProd, ParseEnvironment(""))
	assert.Equal(t, EnvProd, ParseEnvironment("weird"))
	assert.Equal(t, EnvQA, ParseEnvironment("qa"))
	assert.Equal(t, EnvStage, ParseEnvironment("stage"))
	assert.Equal(t, EnvDev, ParseEnvironment("dev"))
}
