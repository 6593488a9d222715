package ignore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ObsidianConfig is the Obsidian settings file that lists excluded files.
const ObsidianConfig = ".obsidian/app.json"

// Load returns the ignore rules of the vault at root: the lines of
// .deflinkignore followed by the vault's Obsidian exclusions. Missing files
// contribute nothing.
func Load(root string) ([]string, error) {
	rules, err := readRuleFile(filepath.Join(root, File))
	if err != nil {
		return nil, err
	}
	excluded, err := ObsidianRules(root)
	if err != nil {
		return nil, err
	}
	return append(rules, excluded...), nil
}

func readRuleFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", File)
	}
	defer f.Close()

	var rules []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	return rules, errors.Wrapf(scanner.Err(), "failed to parse %s", File)
}

// ObsidianRules converts the "Excluded files" setting of an Obsidian vault
// into regex rules. Obsidian treats "/expr/" entries as regular expressions
// and everything else as a path prefix.
func ObsidianRules(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ObsidianConfig)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", ObsidianConfig)
	}

	var settings struct {
		UserIgnoreFilters []string `json:"userIgnoreFilters"`
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", ObsidianConfig)
	}

	rules := make([]string, 0, len(settings.UserIgnoreFilters))
	for _, filter := range settings.UserIgnoreFilters {
		filter = strings.TrimSpace(filter)
		switch {
		case filter == "":
		case len(filter) > 2 && strings.HasPrefix(filter, "/") && strings.HasSuffix(filter, "/"):
			rules = append(rules, RegexPrefix+filter[1:len(filter)-1])
		default:
			rules = append(rules, RegexPrefix+"^"+regexp.QuoteMeta(strings.TrimPrefix(filter, "/")))
		}
	}
	return rules, nil
}
