package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/models"
)

/**
 * Inspect the files the workers leave in the workspace
 * @param {string} root - workspace path
 * @param {config.ArtifactsConfig} cfg - artifact names relative to root
 * @returns {models.ArtifactsReport} Report, never an error
 * @description
 * - Missing files are reported as absent
 * - Files that are present but half-written or not JSON are counted as -1 and listed in Problems
 */
func Inspect(root string, cfg config.ArtifactsConfig) models.ArtifactsReport {
	var report models.ArtifactsReport

	markers, err := filepath.Glob(filepath.Join(root, cfg.MarkerGlob))
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("marker pattern %q: %v", cfg.MarkerGlob, err))
	}
	if latest, mtime, n := newest(markers); n > 0 {
		rel, relErr := filepath.Rel(root, latest)
		if relErr != nil {
			rel = latest
		}
		report.LatestMarker = rel
		report.MarkerTime = &mtime
		report.MarkerCount = n
	}

	report.ResultsPresent, report.ResultsEntries = count(filepath.Join(root, cfg.Results), &report)
	report.DeadEndpointsPresent, report.DeadEndpoints = count(filepath.Join(root, cfg.DeadEndpoints), &report)
	return report
}

type marker struct {
	path  string
	mtime time.Time
}

// newest picks the most recently modified marker, breaking ties by name.
func newest(paths []string) (string, time.Time, int) {
	var found []marker
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, marker{path: p, mtime: info.ModTime()})
	}
	if len(found) == 0 {
		return "", time.Time{}, 0
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].mtime.Equal(found[j].mtime) {
			return found[i].mtime.After(found[j].mtime)
		}
		return found[i].path > found[j].path
	})
	return found[0].path, found[0].mtime, len(found)
}

// count returns presence and the number of top-level entries of a JSON array or object.
func count(path string, report *models.ArtifactsReport) (bool, int) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, 0
	}
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return true, -1
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return true, -1
	}
	switch t := v.(type) {
	case []interface{}:
		return true, len(t)
	case map[string]interface{}:
		return true, len(t)
	}
	report.Problems = append(report.Problems, fmt.Sprintf("%s: not a JSON array or object", filepath.Base(path)))
	return true, -1
}
