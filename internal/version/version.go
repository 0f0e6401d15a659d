package version

import (
	"encoding/json"
	"os"

	"github.com/JustinTDCT/Marquee/internal/logging"
)

type Info struct {
	Version string `json:"version"`
}

func Load() Info {
	return LoadFile("version.json")
}

func LoadFile(path string) Info {
	log := logging.For("version")
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("could not read version file")
		return Info{Version: "0.0.0"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		log.WithError(err).Warn("could not parse version file")
		return Info{Version: "0.0.0"}
	}
	return info
}
