// Component configuration loading (spec §6).
//
// The teacher's LoadConfig opened a YAML file/buffer, decoded a fixed
// `vmi_config` section into a typed VmiConfig struct and handed the
// `generators` section to a caller-supplied struct. Here the shape of a
// component's configuration isn't known until its factory type is
// resolved (it could be anything a registered factory's ConfigFn expects),
// so the analogous step loads JSON text via a Loader, expands `${NAME}`
// environment tokens, and parses it into a generic map rather than a fixed
// struct - the map is what DecodeComponentConfig (configdecode.go) later
// fills typed config structs from.

package iotcore

import (
	"fmt"

	"github.com/a8m/envsubst"
	"github.com/tidwall/gjson"
)

// LoadJSONConfig loads text for `name` via loader, expands `${NAME}`
// environment tokens per spec §6 (unset variables substitute to empty),
// and parses the result into a generic map. Returns (nil, nil) if the
// loader has nothing for this name.
func LoadJSONConfig(loader Loader, name string, source any) (map[string]any, error) {
	text, err := loader.Load(name, source)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	if text == "" {
		return nil, nil
	}
	expanded, err := envsubst.String(text)
	if err != nil {
		return nil, fmt.Errorf("load %q: env substitution: %w", name, err)
	}
	value := gjson.Parse(expanded).Value()
	cfgMap, _ := value.(map[string]any)
	return cfgMap, nil
}
