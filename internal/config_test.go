package iotcore

import (
	"os"
	"testing"
)

func TestLoadJSONConfig(t *testing.T) {
	os.Setenv("IOTCORE_TEST_CONFIG_VALUE", "42")
	defer os.Unsetenv("IOTCORE_TEST_CONFIG_VALUE")

	loader := MapLoader{
		"comp": `{"A": "${IOTCORE_TEST_CONFIG_VALUE}", "B": 2}`,
	}

	cfgMap, err := LoadJSONConfig(loader, "comp", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfgMap["A"] != "42" {
		t.Errorf(`cfgMap["A"]: want "42", got %v`, cfgMap["A"])
	}
	if cfgMap["B"] != float64(2) {
		t.Errorf(`cfgMap["B"]: want 2, got %v`, cfgMap["B"])
	}
}

func TestLoadJSONConfigMissing(t *testing.T) {
	loader := MapLoader{}
	cfgMap, err := LoadJSONConfig(loader, "missing", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfgMap != nil {
		t.Errorf("want nil map, got %v", cfgMap)
	}
}

func TestDecodeComponentConfig(t *testing.T) {
	type widgetConfig struct {
		Name  string `json:"Name"`
		Count int    `json:"Count"`
	}

	dst := &widgetConfig{Name: "default", Count: 7}
	cfgMap := map[string]any{"Count": float64(3)}

	if err := DecodeComponentConfig(cfgMap, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "default" {
		t.Errorf("Name: want unchanged default, got %q", dst.Name)
	}
	if dst.Count != 3 {
		t.Errorf("Count: want 3, got %d", dst.Count)
	}
}

func TestDecodeComponentConfigNilMap(t *testing.T) {
	type widgetConfig struct {
		Count int `json:"Count"`
	}
	dst := &widgetConfig{Count: 7}
	if err := DecodeComponentConfig(nil, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Count != 7 {
		t.Errorf("Count: want unchanged 7, got %d", dst.Count)
	}
}
