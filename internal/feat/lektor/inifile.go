package lektor

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
)

var localizedKey = regexp.MustCompile(`^([^\[\]]+)\[([A-Za-z_-]+)\]$`)

func loadINI(path string) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      "=",
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return f, nil
}

// sections returns the named sections of f in file order.
func sections(f *ini.File) []*ini.Section {
	var out []*ini.Section
	for _, s := range f.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sectionValue(s *ini.Section, key string) string {
	if s == nil || !s.HasKey(key) {
		return ""
	}
	return strings.TrimSpace(s.Key(key).String())
}

func sectionBool(s *ini.Section, key string, def bool) bool {
	if s == nil || !s.HasKey(key) {
		return def
	}
	return s.Key(key).MustBool(def)
}

// localized collects the translations of key, e.g. name[tr] = ...
func localized(s *ini.Section, key string) map[string]string {
	out := map[string]string{}
	if s == nil {
		return out
	}
	for _, k := range s.Keys() {
		m := localizedKey.FindStringSubmatch(k.Name())
		if m == nil || m[1] != key {
			continue
		}
		out[strings.ToLower(m[2])] = strings.TrimSpace(k.String())
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
