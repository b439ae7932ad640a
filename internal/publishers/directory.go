// Package publishers resolves publisher account keys to human names.
package publishers

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
)

// Directory maps publisher keys to display names for one network.
type Directory struct {
	names map[string]string
}

// Load reads a publishers file of the form {network: {key: name}}. A missing
// or malformed file is logged and yields an empty directory; alerts then
// carry raw keys instead of names.
func Load(path, network string, logger zerolog.Logger) *Directory {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("problem loading publishers file; only keys will be printed")
		return &Directory{names: map[string]string{}}
	}

	var byNetwork map[string]map[string]string
	if err := json.Unmarshal(data, &byNetwork); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("problem parsing publishers file; only keys will be printed")
		return &Directory{names: map[string]string{}}
	}

	names := byNetwork[network]
	if names == nil {
		names = map[string]string{}
	}
	return &Directory{names: names}
}

// FromMap builds a directory from an in-memory mapping.
func FromMap(names map[string]string) *Directory {
	if names == nil {
		names = map[string]string{}
	}
	return &Directory{names: names}
}

// LookupName returns the display name for a publisher key, or the key itself
// when unknown.
func (d *Directory) LookupName(key string) string {
	if d == nil {
		return key
	}
	if name, ok := d.names[key]; ok && name != "" {
		return name
	}
	return key
}
