package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type peerSeedEntry struct {
	URL string `yaml:"url"`
}

// LoadPeerSeed decodes an optional YAML peer-seed file (a list of
// `- url: ...` entries) and returns just the URLs, for operators who
// manage a long peer list outside the primary TOML config. A missing
// file is not an error; it simply contributes no peers.
func LoadPeerSeed(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read peer seed file %s: %w", path, err)
	}

	var entries []peerSeedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse peer seed file %s: %w", path, err)
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.URL != "" {
			urls = append(urls, e.URL)
		}
	}
	return urls, nil
}

// MergePeers combines the primary config peer list with an optional
// seed file's URLs, de-duplicating while preserving first-seen order.
func MergePeers(configured, seeded []string) []string {
	seen := make(map[string]bool, len(configured)+len(seeded))
	out := make([]string, 0, len(configured)+len(seeded))
	for _, p := range append(append([]string{}, configured...), seeded...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
