package uriset

import (
	"testing"

	"github.com/sipflow/callcore/sip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// u parses a bare "sip:<host>" so the expected value carries the same
// (non-nil, empty) param lists ParseURI always leaves on a Uri, rather than
// the zero value a literal would produce.
func u(host string) sip.Uri {
	var uri sip.Uri
	if err := sip.ParseURI("sip:"+host, &uri); err != nil {
		panic(err)
	}
	return uri
}

func TestNormalizeNil(t *testing.T) {
	assert.Equal(t, sip.UriSet{{}}, Normalize(nil))
}

func TestNormalizeSingleUri(t *testing.T) {
	uri := sip.Uri{Host: "a.com", UriParams: sip.NewParams(), Headers: sip.NewParams(), ExtOpts: sip.NewParams()}
	uri.ExtOpts.Add("outbound-proxy", "sip:p.com")

	got := Normalize(uri)
	require.Equal(t, sip.UriSet{{sip.Uri{Host: "a.com", UriParams: sip.NewParams(), Headers: sip.NewParams()}}}, got)
	assert.Nil(t, got[0][0].ExtOpts, "R-URI must never carry extension slots")
}

func TestNormalizeSingleUriPointer(t *testing.T) {
	uri := &sip.Uri{Host: "a.com", UriParams: sip.NewParams(), Headers: sip.NewParams()}
	assert.Equal(t, sip.UriSet{{sip.Uri{Host: "a.com", UriParams: sip.NewParams(), Headers: sip.NewParams()}}}, Normalize(uri))
}

func TestNormalizeNilUriPointer(t *testing.T) {
	var uri *sip.Uri
	assert.Equal(t, sip.UriSet{{}}, Normalize(uri))
}

func TestNormalizeString(t *testing.T) {
	assert.Equal(t, sip.UriSet{{u("a.com")}}, Normalize("sip:a.com"))
}

func TestNormalizeStringMultipleUris(t *testing.T) {
	got := Normalize("sip:a.com, sip:b.com")
	assert.Equal(t, sip.UriSet{{u("a.com"), u("b.com")}}, got)
}

func TestNormalizeUnparsableStringIsEmptySet(t *testing.T) {
	assert.Equal(t, sip.UriSet{{}}, Normalize("not-a-uri"))
}

func TestNormalizeBytes(t *testing.T) {
	assert.Equal(t, sip.UriSet{{u("a.com")}}, Normalize([]byte("sip:a.com")))
}

func TestNormalizeFlatListOfStringsAndUris(t *testing.T) {
	got := Normalize([]any{"sip:a.com", u("b.com")})
	assert.Equal(t, sip.UriSet{{u("a.com"), u("b.com")}}, got)
}

// TestNormalizeMultiModeExample is example (a) from the normalizer table:
// ["sip:a", ["sip:b", UriC], "sip:d", ["sip:e"]] -> [[A], [B, C], [D], [E]]
func TestNormalizeMultiModeExample(t *testing.T) {
	uriC := u("c.com")
	got := Normalize([]any{
		"sip:a.com",
		[]any{"sip:b.com", uriC},
		"sip:d.com",
		[]any{"sip:e.com"},
	})

	assert.Equal(t, sip.UriSet{
		{u("a.com")},
		{u("b.com"), u("c.com")},
		{u("d.com")},
		{u("e.com")},
	}, got)
}

func TestNormalizeMultiModeAccumulatesLooseUrisBetweenBoundaries(t *testing.T) {
	got := Normalize([]any{
		u("a.com"), u("b.com"),
		[]any{"sip:c.com"},
		u("d.com"),
	})

	assert.Equal(t, sip.UriSet{
		{u("a.com"), u("b.com")},
		{u("c.com")},
		{u("d.com")},
	}, got)
}

func TestNormalizeUriSetPassthrough(t *testing.T) {
	in := sip.UriSet{{u("a.com")}, {u("b.com")}}
	assert.Equal(t, in, Normalize(in))
}

func TestNormalizeUnsupportedTypeIsEmptySet(t *testing.T) {
	assert.Equal(t, sip.UriSet{{}}, Normalize(42))
}
