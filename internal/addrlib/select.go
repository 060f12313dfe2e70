// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package addrlib

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed variants.yaml
var variantsYAML []byte

// Rule maps a path substring to the addressing variant it requires.
type Rule struct {
	Match   string  `yaml:"match"`
	Variant Variant `yaml:"variant"`
}

// Rules is an ordered list of rules, the first matching rule wins.
type Rules []Rule

var defaultRules Rules

func init() {
	rules, err := ParseRules(variantsYAML)
	if err != nil {
		panic(fmt.Errorf("failed to parse embedded variants.yaml: %w", err))
	}
	defaultRules = rules
}

// ParseRules decodes a YAML rule table with a top level "rules" list.
func ParseRules(data []byte) (Rules, error) {
	var doc struct {
		Rules Rules `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	for i, rule := range doc.Rules {
		if rule.Match == "" {
			return nil, fmt.Errorf("rule %d has an empty match", i)
		}
		doc.Rules[i].Match = normalize(rule.Match)
	}
	return doc.Rules, nil
}

// DefaultRules returns a copy of the embedded rule table.
func DefaultRules() Rules {
	return append(Rules(nil), defaultRules...)
}

// Select returns the variant for the path using the embedded rule table.
func Select(path string) Variant {
	return defaultRules.Select(path)
}

// Select returns the variant of the first rule matching the path, or Standard.
// Matching ignores case and treats '\' as '/'. Relative paths are matched as if
// they started with '/'.
func (r Rules) Select(path string) Variant {
	p := normalize(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	for _, rule := range r {
		if strings.Contains(p, rule.Match) {
			return rule.Variant
		}
	}
	return Standard
}

func normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

// UnmarshalYAML decodes a variant from its name.
func (v *Variant) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "standard":
		*v = Standard
	case "legacy":
		*v = Legacy
	default:
		return fmt.Errorf("unknown addressing variant %q", node.Value)
	}
	return nil
}
