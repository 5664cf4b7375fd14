package feedme

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// canonicalJSON encodes v (a JSON-value tree produced by json.Unmarshal into
// interface{} — map[string]interface{}, []interface{}, string, float64, bool,
// nil) with object keys in lexicographic order and no insignificant
// whitespace, matching the server's canonical form (spec §4.2). There is no
// third-party canonical-JSON library anywhere in the retrieval pack, so this
// is built directly on encoding/json.
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// canonicalMD5 returns the lowercase hex MD5 digest of the canonical JSON
// encoding of v, the integrity check spec §4.2 and §8 (round-trip law
// "Canonical-JSON + MD5 of a tree A equals that of tree B iff A ≡ B
// structurally") require.
func canonicalMD5(v interface{}) (string, error) {
	enc, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(enc)
	return hex.EncodeToString(sum[:]), nil
}
