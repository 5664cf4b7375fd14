package feedme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUT_FM_01_01_CanonicalMD5_KeyOrderIndependent verifies the round-trip
// law: two structurally identical trees with differently-ordered map keys
// hash identically under canonical encoding.
func TestUT_FM_01_01_CanonicalMD5_KeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": 1}
	b := map[string]interface{}{"a": 1, "b": 2}

	sumA, err := canonicalMD5(a)
	require.NoError(t, err)
	sumB, err := canonicalMD5(b)
	require.NoError(t, err)

	assert.Equal(t, sumA, sumB)
}

// TestUT_FM_01_02_CanonicalMD5_DetectsStructuralDifference verifies that two
// non-equal trees hash differently.
func TestUT_FM_01_02_CanonicalMD5_DetectsStructuralDifference(t *testing.T) {
	a := map[string]interface{}{"x": 1}
	b := map[string]interface{}{"x": 2}

	sumA, err := canonicalMD5(a)
	require.NoError(t, err)
	sumB, err := canonicalMD5(b)
	require.NoError(t, err)

	assert.NotEqual(t, sumA, sumB)
}

// TestUT_FM_01_03_CanonicalJSON_NoInsignificantWhitespace verifies the
// encoding carries no spaces around separators.
func TestUT_FM_01_03_CanonicalJSON_NoInsignificantWhitespace(t *testing.T) {
	out, err := canonicalJSON(map[string]interface{}{"a": 1, "b": []interface{}{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":[1,2]}`, string(out))
}
