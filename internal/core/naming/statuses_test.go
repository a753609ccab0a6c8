package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

func TestParseStatuses_JSON(t *testing.T) {
	raw := `{"namespaceId":"dev","serviceName2Checksum":{"orders":"abc","payments":"def","empty":"","":"x","null":null}}`

	v, skipped, err := ParseStatuses("", raw)
	require.NoError(t, err)
	assert.Equal(t, "dev", v.NamespaceID)
	assert.Equal(t, map[string]string{"orders": "abc", "payments": "def"}, v.Entries)
	assert.Equal(t, 3, skipped)
}

func TestParseStatuses_JSONDefaultsNamespace(t *testing.T) {
	v, _, err := ParseStatuses("prod", `{"serviceName2Checksum":{"orders":"abc"}}`)
	require.NoError(t, err)
	assert.Equal(t, "prod", v.NamespaceID)

	v, _, err = ParseStatuses("", `{"serviceName2Checksum":{}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNamespace, v.NamespaceID)
	assert.Empty(t, v.Entries)
}

func TestParseStatuses_Legacy(t *testing.T) {
	v, skipped, err := ParseStatuses("dev", "orders@@abc@@@payments@@def@@@broken@@@@@nosum@@")
	require.NoError(t, err)
	assert.Equal(t, "dev", v.NamespaceID)
	assert.Equal(t, map[string]string{"orders": "abc", "payments": "def"}, v.Entries)
	assert.Equal(t, 2, skipped)
}

func TestParseStatuses_LegacySkippedEntries(t *testing.T) {
	cases := []struct {
		raw     string
		entries map[string]string
		skipped int
	}{
		{"orders@@abc@@@noname", map[string]string{"orders": "abc"}, 1},
		{"orders@@abc@@@@@abc", map[string]string{"orders": "abc"}, 1},
		{"orders@@abc@@@payments@@", map[string]string{"orders": "abc"}, 1},
		{"orders@@abc@@@@@nosum@@@noname", map[string]string{"orders": "abc"}, 2},
	}
	for _, tc := range cases {
		v, skipped, err := ParseStatuses("", tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.entries, v.Entries, tc.raw)
		assert.Equal(t, tc.skipped, skipped, tc.raw)
	}
}

func TestParseStatuses_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"{not json",
		`{"namespaceId":"dev"}`,
		"just-a-name",
	} {
		_, _, err := ParseStatuses("", raw)
		assert.ErrorIs(t, err, domain.ErrMalformedStatuses, raw)
	}
}
