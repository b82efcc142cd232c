package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadLabels reads the class names. JSON files may hold either a list or an
// object keyed by "0".."n-1"; .txt files hold one label per line.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLabelsNotFound, path)
		}
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var labels []string
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		labels, err = parseTextLabels(data)
	} else {
		labels, err = parseJSONLabels(data)
	}
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", path)
	}
	return labels, nil
}

func parseJSONLabels(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var byIndex map[string]string
		if err := json.Unmarshal(trimmed, &byIndex); err != nil {
			return nil, fmt.Errorf("failed to parse labels: %w", err)
		}
		labels := make([]string, len(byIndex))
		for i := range labels {
			label, ok := byIndex[strconv.Itoa(i)]
			if !ok {
				return nil, fmt.Errorf("labels: missing index %d", i)
			}
			labels[i] = label
		}
		return labels, nil
	}

	var labels []string
	if err := json.Unmarshal(trimmed, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	return labels, nil
}

func parseTextLabels(data []byte) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}
