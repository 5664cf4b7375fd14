package feedme

import (
	"fmt"

	"github.com/auriora/feedme-client/pkg/errors"
)

// DeltaOperation names a supported delta mutation (spec §4.3). The set
// mirrors the protocol: structural set/delete plus container-typed
// mutations for arrays and objects nested within the feed data tree.
type DeltaOperation string

const (
	DeltaSet           DeltaOperation = "Set"
	DeltaDelete        DeltaOperation = "Delete"
	DeltaInsert        DeltaOperation = "Insert"
	DeltaPush          DeltaOperation = "Push"
	DeltaPop           DeltaOperation = "Pop"
	DeltaShift         DeltaOperation = "Shift"
	DeltaUnshift       DeltaOperation = "Unshift"
	DeltaUpdate        DeltaOperation = "Update"
	DeltaMerge         DeltaOperation = "Merge"
	DeltaDeleteElement DeltaOperation = "DeleteElement"
)

// Delta is a single typed, path-addressed mutation on a JSON tree.
type Delta struct {
	Operation DeltaOperation `json:"Operation"`
	Path      []string       `json:"Path"`
	Value     interface{}    `json:"Value,omitempty"`
	Index     int            `json:"Index,omitempty"`
}

// applyDeltas applies deltas in order to a deep copy of tree, returning the
// resulting tree. Application is all-or-nothing: on first failure the
// original tree is returned unmodified alongside an INVALID_DELTA error
// (spec §4.3).
func applyDeltas(tree interface{}, deltas []Delta) (interface{}, error) {
	working := deepCopyJSON(tree)
	for _, d := range deltas {
		var err error
		working, err = applyOneDelta(working, d)
		if err != nil {
			return tree, errors.NewTypedWrap(errors.KindInvalidDelta, fmt.Sprintf("delta %s at %v failed", d.Operation, d.Path), err)
		}
	}
	return working, nil
}

func deepCopyJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = deepCopyJSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyJSON(item)
		}
		return out
	default:
		return v
	}
}

// applyOneDelta resolves d.Path to a container in tree and applies the
// operation. The root tree itself is addressed by an empty path.
func applyOneDelta(tree interface{}, d Delta) (interface{}, error) {
	if len(d.Path) == 0 {
		return applyRootDelta(tree, d)
	}

	parentPath, key := d.Path[:len(d.Path)-1], d.Path[len(d.Path)-1]
	container, err := resolvePath(tree, parentPath)
	if err != nil {
		return nil, err
	}

	switch c := container.(type) {
	case map[string]interface{}:
		return applyObjectDelta(tree, c, key, d)
	default:
		return nil, fmt.Errorf("path %v does not address an object container (%T)", d.Path, c)
	}
}

func applyRootDelta(tree interface{}, d Delta) (interface{}, error) {
	switch d.Operation {
	case DeltaSet:
		return d.Value, nil
	case DeltaMerge:
		root, ok := tree.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("merge at root requires an object tree")
		}
		patch, ok := d.Value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("merge value must be an object")
		}
		for k, v := range patch {
			root[k] = v
		}
		return root, nil
	default:
		return nil, fmt.Errorf("operation %s not valid at root path", d.Operation)
	}
}

func applyObjectDelta(tree interface{}, obj map[string]interface{}, key string, d Delta) (interface{}, error) {
	switch d.Operation {
	case DeltaSet:
		obj[key] = d.Value
	case DeltaDelete:
		if _, ok := obj[key]; !ok {
			return nil, fmt.Errorf("key %q does not exist", key)
		}
		delete(obj, key)
	case DeltaUpdate, DeltaMerge:
		existing, ok := obj[key].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q is not an object", key)
		}
		patch, ok := d.Value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("merge value must be an object")
		}
		for k, v := range patch {
			existing[k] = v
		}
	case DeltaPush:
		arr, ok := obj[key].([]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q is not an array", key)
		}
		obj[key] = append(arr, d.Value)
	case DeltaPop:
		arr, ok := obj[key].([]interface{})
		if !ok || len(arr) == 0 {
			return nil, fmt.Errorf("key %q is not a non-empty array", key)
		}
		obj[key] = arr[:len(arr)-1]
	case DeltaShift:
		arr, ok := obj[key].([]interface{})
		if !ok || len(arr) == 0 {
			return nil, fmt.Errorf("key %q is not a non-empty array", key)
		}
		obj[key] = arr[1:]
	case DeltaUnshift:
		arr, ok := obj[key].([]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q is not an array", key)
		}
		obj[key] = append([]interface{}{d.Value}, arr...)
	case DeltaInsert:
		arr, ok := obj[key].([]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q is not an array", key)
		}
		if d.Index < 0 || d.Index > len(arr) {
			return nil, fmt.Errorf("index %d out of bounds for array %q of length %d", d.Index, key, len(arr))
		}
		out := make([]interface{}, 0, len(arr)+1)
		out = append(out, arr[:d.Index]...)
		out = append(out, d.Value)
		out = append(out, arr[d.Index:]...)
		obj[key] = out
	case DeltaDeleteElement:
		arr, ok := obj[key].([]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q is not an array", key)
		}
		if d.Index < 0 || d.Index >= len(arr) {
			return nil, fmt.Errorf("index %d out of bounds for array %q of length %d", d.Index, key, len(arr))
		}
		out := make([]interface{}, 0, len(arr)-1)
		out = append(out, arr[:d.Index]...)
		out = append(out, arr[d.Index+1:]...)
		obj[key] = out
	default:
		return nil, fmt.Errorf("operation %s not valid on object field %q", d.Operation, key)
	}
	return tree, nil
}

// resolvePath walks path (a sequence of object keys) from root, returning
// the container found at the end. An empty path returns root itself.
func resolvePath(root interface{}, path []string) (interface{}, error) {
	current := root
	for _, key := range path {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path segment %q does not address an object", key)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("path segment %q does not exist", key)
		}
		current = next
	}
	return current, nil
}
