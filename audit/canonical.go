package audit

import "encoding/json"

// toObject normalizes an arbitrary event into a generic JSON object. A
// round-trip through map[string]any makes nested structures uniform, and
// encoding/json writes map keys in sorted order at every nesting level,
// so two semantically identical events marshal to identical bytes
// regardless of original field order.
func toObject(event any) (map[string]any, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Canonical returns the deterministic key-sorted JSON encoding of an
// event object. This is the exact byte sequence the chain hash covers
// (prefixed with the previous hash), exposed so external verifiers can
// recompute entry hashes.
func Canonical(event any) ([]byte, error) {
	obj, err := toObject(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}
