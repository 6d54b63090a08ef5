package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Load reads the JSON file at path into the given config object.
func Load(path string, config interface{}) error {
	if path == "" {
		return errors.New("please setup the config file path")
	}

	configFile, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "fail to open config file")
	}

	defer configFile.Close()
	return json.NewDecoder(configFile).Decode(config)
}
