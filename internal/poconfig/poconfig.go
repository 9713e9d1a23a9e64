// Package poconfig parses the PROJECT_PO_CONFIG selection string and the
// custom-copy sections into typed values.
//
// All raw config strings are parsed eagerly at the orchestrator boundary;
// plugins only ever see the typed forms defined here.
package poconfig

import (
	"regexp"
	"strings"
)

// Plan is the parsed form of a PROJECT_PO_CONFIG string, for example
// "po1 po2 -po3 -po4[a.txt b.txt]".
type Plan struct {
	// Apply is the ordered list of PO names to apply. Input order and
	// duplicates are preserved.
	Apply []string

	// Exclude is the set of PO names disabled with a leading dash.
	Exclude map[string]struct{}

	// ExcludeFiles maps a PO name to the set of plugin-relative file paths
	// that must be skipped for that PO.
	ExcludeFiles map[string]map[string]struct{}
}

var tokenPattern = regexp.MustCompile(`-?\w+(?:\[[^\]]+\])?`)

// Parse tokenizes a PROJECT_PO_CONFIG string. An empty string yields an
// empty plan, which callers treat as "nothing to do", not an error.
func Parse(config string) Plan {
	plan := Plan{
		Exclude:      make(map[string]struct{}),
		ExcludeFiles: make(map[string]map[string]struct{}),
	}

	for _, token := range tokenPattern.FindAllString(config, -1) {
		excluded := strings.HasPrefix(token, "-")
		token = strings.TrimPrefix(token, "-")

		name := token
		if open := strings.IndexByte(token, '['); open >= 0 {
			name = token[:open]
			files := strings.TrimSuffix(token[open+1:], "]")

			set := plan.ExcludeFiles[name]
			if set == nil {
				set = make(map[string]struct{})
				plan.ExcludeFiles[name] = set
			}
			for _, f := range strings.Fields(files) {
				set[f] = struct{}{}
			}
		}

		if excluded {
			plan.Exclude[name] = struct{}{}
		} else {
			plan.Apply = append(plan.Apply, name)
		}
	}

	return plan
}

// Effective returns Apply with every excluded name filtered out, preserving
// order and duplicates.
func (p Plan) Effective() []string {
	effective := make([]string, 0, len(p.Apply))
	for _, name := range p.Apply {
		if _, ok := p.Exclude[name]; ok {
			continue
		}
		effective = append(effective, name)
	}
	return effective
}

// CopyRule is a single source-pattern/target pair from PROJECT_PO_FILE_COPY.
type CopyRule struct {
	// Source is a glob pattern (*, ?, [...], **) relative to the section's
	// custom directory.
	Source string

	// Target is the copy destination: a file path, or a directory when it
	// ends with a path separator or multiple sources match.
	Target string
}

// CustomSection is the typed form of a "po-<name>" config section.
type CustomSection struct {
	// Dir is the subdirectory under the PO root holding the source files.
	// Empty means the default "custom" directory.
	Dir string

	// Rules are the parsed PROJECT_PO_FILE_COPY entries.
	Rules []CopyRule
}

// ParseCopyRules splits a backslash-continued PROJECT_PO_FILE_COPY value
// into copy rules. Lines without a colon are ignored.
func ParseCopyRules(config string) []CopyRule {
	var rules []CopyRule
	for _, line := range strings.Split(config, "\\") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		source, target, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		rules = append(rules, CopyRule{
			Source: strings.TrimSpace(source),
			Target: strings.TrimSpace(target),
		})
	}
	return rules
}

// ParseCustomSections extracts the typed custom-copy sections from raw
// "po-<name>" config maps, keyed by PO name.
func ParseCustomSections(sections map[string]map[string]string) map[string]CustomSection {
	out := make(map[string]CustomSection)
	for sectionName, cfg := range sections {
		poName, ok := strings.CutPrefix(sectionName, "po-")
		if !ok || poName == "" {
			continue
		}
		out[poName] = CustomSection{
			Dir:   strings.TrimRight(cfg["PROJECT_PO_DIR"], "/"),
			Rules: ParseCopyRules(cfg["PROJECT_PO_FILE_COPY"]),
		}
	}
	return out
}
