package homepage

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// templateVariable matches Homepage placeholders like {{HOMEPAGE_VAR_NAS_URL}}.
var templateVariable = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// BookmarkLoader handles loading and parsing of Homepage bookmarks.yaml
type BookmarkLoader struct {
	filePath string
}

// NewBookmarkLoader creates a new Homepage bookmark loader
func NewBookmarkLoader(filePath string) *BookmarkLoader {
	return &BookmarkLoader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *BookmarkLoader) Path() string {
	return l.filePath
}

// Load reads and parses the bookmarks.yaml file. Placeholders are resolved
// from the environment the way Homepage does; unset ones become "".
func (l *BookmarkLoader) Load() (BookmarksConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	data = expandTemplateVariables(data, os.LookupEnv)

	var config BookmarksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}

	return config, nil
}

// expandTemplateVariables replaces each placeholder with the quoted value
// of the variable it names, or "" when lookup does not know it.
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> "admin"
func expandTemplateVariables(data []byte, lookup func(string) (string, bool)) []byte {
	return templateVariable.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(templateVariable.FindSubmatch(m)[1])
		v, _ := lookup(name)
		return []byte(strconv.Quote(v))
	})
}
