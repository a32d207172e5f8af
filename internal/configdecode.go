// Generic map[string]any -> typed config struct decoding for component
// factories (spec §6, "config_fn(container, config_map)").
//
// The teacher's LoadConfig walked a parsed yaml.Node by hand, dispatching
// mapping-node children into pre-primed default structs. Here the source is
// already a generic map (handed down from the container's parsed JSON via
// gjson), so the analogous step is a map->struct decode that still leaves
// whatever defaults the caller pre-populated untouched for absent keys;
// mapstructure is the ecosystem library for exactly that, already present
// in the retrieval pack's dependency graph.

package iotcore

import "github.com/mitchellh/mapstructure"

// DecodeComponentConfig fills dst (a pointer to a config struct, typically
// pre-populated by a DefaultXConfig() constructor) from cfgMap. Absent keys
// leave dst's existing field values untouched; unrecognized keys are
// ignored rather than treated as an error, matching the teacher's
// tolerant LoadConfig behavior for unknown sections.
func DecodeComponentConfig(cfgMap map[string]any, dst any) error {
	if cfgMap == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(cfgMap)
}
