package loader

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/flowforge/flowcore/internal/flowerr"
)

// RawDefinition is the deserializer's common output: an untyped tree, from
// which the loader dispatches to the flow or function branch by shape.
type RawDefinition map[string]interface{}

// Deserializer parses bytes in one textual encoding into a RawDefinition.
type Deserializer interface {
	Deserialize(data []byte) (RawDefinition, error)
}

// DeserializerRegistry selects a Deserializer by the file extension of a
// resolved locator.
type DeserializerRegistry struct {
	byExt map[string]Deserializer
}

// NewDeserializerRegistry registers the three required textual encodings:
// TOML, YAML (.yaml/.yml) and JSON.
func NewDeserializerRegistry() *DeserializerRegistry {
	r := &DeserializerRegistry{byExt: make(map[string]Deserializer)}
	r.byExt[".toml"] = TOMLDeserializer{}
	r.byExt[".yaml"] = YAMLDeserializer{}
	r.byExt[".yml"] = YAMLDeserializer{}
	r.byExt[".json"] = JSONDeserializer{}
	return r
}

// For returns the deserializer registered for locator's extension.
func (r *DeserializerRegistry) For(locator string) (Deserializer, error) {
	ext := strings.ToLower(path.Ext(locator))
	d, ok := r.byExt[ext]
	if !ok {
		return nil, flowerr.New(flowerr.Parse, fmt.Errorf("no deserializer registered for extension %q", ext)).WithLocator(locator)
	}
	return d, nil
}

// TOMLDeserializer parses TOML flow/function definitions.
type TOMLDeserializer struct{}

func (TOMLDeserializer) Deserialize(data []byte) (RawDefinition, error) {
	var out RawDefinition
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, flowerr.New(flowerr.Parse, err)
	}
	return out, nil
}

// YAMLDeserializer parses YAML flow/function definitions.
type YAMLDeserializer struct{}

func (YAMLDeserializer) Deserialize(data []byte) (RawDefinition, error) {
	var out RawDefinition
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, flowerr.New(flowerr.Parse, err)
	}
	return out, nil
}

// JSONDeserializer parses JSON flow/function definitions.
type JSONDeserializer struct{}

func (JSONDeserializer) Deserialize(data []byte) (RawDefinition, error) {
	var out RawDefinition
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, flowerr.New(flowerr.Parse, err)
	}
	return out, nil
}
