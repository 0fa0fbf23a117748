// Package confedit applies targeted field updates to the game's JSON and .cfg files.
package confedit

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"spt-installer/logger"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

var (
	ErrFileNotFound    = errors.New("config file not found")
	ErrInvalidJSON     = errors.New("config file is not valid JSON")
	ErrSectionNotFound = errors.New("section not found")
)

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// UpdateJSON sets each dotted key in updates and rewrites the file with two-space indentation.
// Missing intermediate objects are created. Files with // line comments are accepted, but the
// comments are dropped on write, and a // inside a string value is treated as a comment.
func UpdateJSON(path string, updates map[string]any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := parseObject(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", err, path)
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		doc, err = setPath(doc, key, updates[key])
		if err != nil {
			return fmt.Errorf("failed to set %s in %s: %w", key, path, err)
		}
	}

	out := pretty.PrettyOptions(doc, prettyOptions)
	if err := writeFilePreservingMode(path, out); err != nil {
		return err
	}
	logger.Log.Infow("JSON config updated", zap.String("file", path), zap.Strings("keys", keys))
	return nil
}

// parseObject validates raw as a JSON object, retrying once with // comments stripped.
func parseObject(raw []byte) ([]byte, error) {
	raw = trimBOM(raw)
	if !gjson.ValidBytes(raw) {
		raw = stripLineComments(raw)
		if !gjson.ValidBytes(raw) {
			return nil, ErrInvalidJSON
		}
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, fmt.Errorf("%w: root is not an object", ErrInvalidJSON)
	}
	return raw, nil
}

// setPath writes value at a dotted key, replacing any non-object that sits where an
// intermediate object is needed.
func setPath(doc []byte, key string, value any) ([]byte, error) {
	segments := strings.Split(key, ".")
	for i := 1; i < len(segments); i++ {
		prefix := sjsonPath(segments[:i])
		node := gjson.GetBytes(doc, prefix)
		if node.Exists() && !node.IsObject() {
			var err error
			doc, err = sjson.SetRawBytes(doc, prefix, []byte("{}"))
			if err != nil {
				return nil, err
			}
		}
	}
	return sjson.SetBytes(doc, sjsonPath(segments), value)
}

// sjsonPath escapes wildcard characters so each segment is matched literally.
func sjsonPath(segments []string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`)
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = r.Replace(s)
	}
	return strings.Join(escaped, ".")
}

// stripLineComments truncates each line at its first "//".
func stripLineComments(raw []byte) []byte {
	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func trimBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}

func writeFilePreservingMode(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
