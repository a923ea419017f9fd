package scenario

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// applyMapping copies values out of src according to mapping (src-key ->
// dst-key), supporting an optional dotted "parent.field" lookup on the
// source side (§4.3 "Sub-scenario execution"). Keys absent from src are
// skipped rather than copied as nil.
func applyMapping(src map[string]interface{}, mapping map[string]string, dst map[string]interface{}) {
	if len(mapping) == 0 {
		return
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return
	}
	doc := string(raw)
	for srcKey, dstKey := range mapping {
		result := gjson.Get(doc, srcKey)
		if !result.Exists() {
			continue
		}
		dst[dstKey] = result.Value()
	}
}
