package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// parseMeta parses "k=v1|v2,k2=v" into multi-valued metadata.
func parseMeta(s string) (map[string][]string, error) {
	meta := make(map[string][]string)
	if strings.TrimSpace(s) == "" {
		return meta, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid meta pair %q, want key=value", pair)
		}
		meta[k] = append(meta[k], strings.Split(v, "|")...)
	}
	return meta, nil
}

// parseEnv parses "k=v,k2=v2" into template variables.
func parseEnv(s string) (map[string]string, error) {
	env := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return env, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid env pair %q, want key=value", pair)
		}
		env[k] = v
	}
	return env, nil
}

// formatMeta renders metadata with sorted keys for stable output.
func formatMeta(meta map[string][]string) string {
	parts := make([]string, 0, len(meta))
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		parts = append(parts, k+"="+strings.Join(meta[k], "|"))
	}
	return strings.Join(parts, ", ")
}
