package confedit

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"spt-installer/logger"

	"go.uber.org/zap"
)

// UpdateCfg rewrites "key = value" lines inside [section] of an INI-style file. Every other line,
// comments included, is written back untouched. Keys that were never matched are returned so the
// caller can warn; they do not make the update fail.
func UpdateCfg(path, section string, updates map[string]string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	section = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(section), "["), "]")

	lines := strings.Split(string(raw), "\n")
	inSection := false
	found := false
	matched := map[string]bool{}

	for i, line := range lines {
		body, eol := strings.CutSuffix(line, "\r")
		trimmed := strings.TrimSpace(body)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inSection = trimmed[1:len(trimmed)-1] == section
			found = found || inSection
			continue
		}
		if !inSection || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}

		key, _, ok := strings.Cut(body, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value, want := updates[key]
		if !want {
			continue
		}

		indent := body[:len(body)-len(strings.TrimLeft(body, " \t"))]
		newLine := indent + key + " = " + value
		if eol {
			newLine += "\r"
		}
		lines[i] = newLine
		matched[key] = true
	}

	if !found {
		return nil, fmt.Errorf("%w: [%s] in %s", ErrSectionNotFound, section, path)
	}

	var missing []string
	for k := range updates {
		if !matched[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	if err := writeFilePreservingMode(path, []byte(strings.Join(lines, "\n"))); err != nil {
		return missing, err
	}

	if len(missing) > 0 {
		logger.Log.Warnw("Some cfg keys were not found", zap.String("file", path), zap.String("section", section), zap.Strings("keys", missing))
	} else {
		logger.Log.Infow("Cfg updated", zap.String("file", path), zap.String("section", section))
	}
	return missing, nil
}
