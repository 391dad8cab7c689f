package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequestTarget_AbsoluteForm(t *testing.T) {
	u, err := ParseRequestTarget("http://example.com:8080/a/b?x=1#frag", false)
	assert.NoError(t, err)
	assert.Equal(t, FormAbsolute, u.Form)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "example.com", u.Hostname)
	assert.Equal(t, 8080, u.Port)
	assert.Equal(t, "/a/b", u.Path)
	assert.Equal(t, "x=1", u.Query)
	assert.Equal(t, "frag", u.Fragment)
}

func TestParseRequestTarget_AbsoluteFormDefaultPort(t *testing.T) {
	u, err := ParseRequestTarget("http://localhost", false)
	assert.NoError(t, err)
	assert.Equal(t, "localhost", u.Hostname)
	assert.Equal(t, 0, u.Port) // no explicit port; session.dialTarget applies 80
	assert.Equal(t, "", u.Path)
}

func TestParseRequestTarget_OriginForm(t *testing.T) {
	u, err := ParseRequestTarget("/a/b?x=1", false)
	assert.NoError(t, err)
	assert.Equal(t, FormOrigin, u.Form)
	assert.Equal(t, "/a/b", u.Path)
	assert.Equal(t, "x=1", u.Query)
}

func TestParseRequestTarget_AuthorityFormOnlyForConnect(t *testing.T) {
	u, err := ParseRequestTarget("pypi.org:443", true)
	assert.NoError(t, err)
	assert.Equal(t, FormAuthority, u.Form)
	assert.Equal(t, "pypi.org", u.Hostname)
	assert.Equal(t, 443, u.Port)
}

func TestParseRequestTarget_MalformedAbsoluteForm(t *testing.T) {
	_, err := ParseRequestTarget("not-a-url", false)
	assert.ErrorIs(t, err, ErrMalformedRequestTarget)
}
