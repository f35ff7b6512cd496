package config

import (
	"encoding/json"
	"fmt"

	"github.com/krzycz/pmemkv/pkg/status"
)

// FromJSON populates cfg from a JSON object, mirroring the original
// library's pmemkv_config_from_json. spec.md §6 names JSON parsing as an
// external collaborator out of the core's scope; this is that seam's
// minimal Go shape, using encoding/json rather than a third-party parser
// because the spec itself calls the stdlib-appropriate here (see
// SPEC_FULL.md §2 and DESIGN.md). Numbers decode as float64 per
// encoding/json's default and are stored as KindDouble, matching the
// original's handling of non-integral JSON numbers; whole numbers are
// stored as KindInt64 when they round-trip exactly.
func FromJSON(cfg *Config, data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return status.New(status.ConfigParsingError, err.Error())
	}
	for k, v := range raw {
		if err := putJSONValue(cfg, k, v); err != nil {
			return err
		}
	}
	return nil
}

func putJSONValue(cfg *Config, key string, v interface{}) error {
	switch t := v.(type) {
	case string:
		cfg.PutString(key, t)
	case float64:
		if i64 := int64(t); float64(i64) == t {
			cfg.PutInt64(key, i64)
		} else {
			cfg.PutDouble(key, t)
		}
	case bool:
		if t {
			cfg.PutInt64(key, 1)
		} else {
			cfg.PutInt64(key, 0)
		}
	case nil:
		return status.New(status.ConfigParsingError, fmt.Sprintf("option %q: null is not a supported config value", key))
	default:
		return status.New(status.ConfigParsingError, fmt.Sprintf("option %q: unsupported JSON value type %T", key, v))
	}
	return nil
}
