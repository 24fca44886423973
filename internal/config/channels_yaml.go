package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
)

// channelFile is the --channels file layout:
//
//	channels:
//	  - channel: p pi0 [g g]
//	    files: 10
//	    events: 100000
//
// A bare list of entries is accepted as well.
type channelFile struct {
	Channels []models.ChannelRequest `yaml:"channels"`
}

// LoadChannelsYAML reads channel requests from a YAML file.
func LoadChannelsYAML(path string) ([]models.ChannelRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel file: %w", err)
	}
	return ParseChannelsYAML(data)
}

// ParseChannelsYAML parses a YAML channel list.
func ParseChannelsYAML(data []byte) ([]models.ChannelRequest, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, sim.NewConfigurationError("channels", "invalid YAML: %v", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var channels []models.ChannelRequest
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&channels); err != nil {
			return nil, sim.NewConfigurationError("channels", "%v", err)
		}
	case yaml.MappingNode:
		var file channelFile
		if err := node.Content[0].Decode(&file); err != nil {
			return nil, sim.NewConfigurationError("channels", "%v", err)
		}
		channels = file.Channels
	default:
		return nil, sim.NewConfigurationError("channels", "expected a list of channels")
	}

	for i, c := range channels {
		if c.Raw == "" {
			return nil, sim.NewConfigurationError("channels", "entry %d has no channel", i+1)
		}
	}
	return channels, nil
}
