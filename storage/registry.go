package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileRegistry persists visited building identities as a newline-delimited
// text file, one identifier per line.
type FileRegistry struct {
	path string
}

// NewFileRegistry creates a registry backed by the given path.
func NewFileRegistry(path string) (*FileRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("registry: create output dir: %w", err)
	}
	return &FileRegistry{path: path}, nil
}

// Load reads the visited set. A missing file yields an empty set.
func (r *FileRegistry) Load() (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: open %q: %w", r.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("registry: read %q: %w", r.path, err)
	}
	return ids, nil
}

// Write rewrites the registry with the full visited set, sorted for
// deterministic output.
func (r *FileRegistry) Write(ids map[string]struct{}) error {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	var sb strings.Builder
	for _, id := range sorted {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(r.path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("registry: write %q: %w", r.path, err)
	}
	return nil
}

// LocationCounter persists how many sessions have searched each location,
// used for balanced least-scraped-first rotation.
type LocationCounter struct {
	path string
}

// NewLocationCounter creates a counter backed by the given path.
func NewLocationCounter(path string) (*LocationCounter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("locations: create output dir: %w", err)
	}
	return &LocationCounter{path: path}, nil
}

// Load reads the per-location counts. A missing file yields an empty map.
func (c *LocationCounter) Load() (map[string]int, error) {
	counts := make(map[string]int)

	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return counts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locations: open %q: %w", c.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		idx := strings.LastIndex(line, ":")
		if idx <= 0 {
			continue
		}
		n, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			continue
		}
		counts[line[:idx]] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("locations: read %q: %w", c.path, err)
	}
	return counts, nil
}

// Write rewrites the counter file, sorted by location.
func (c *LocationCounter) Write(counts map[string]int) error {
	sorted := make([]string, 0, len(counts))
	for loc := range counts {
		sorted = append(sorted, loc)
	}
	sort.Strings(sorted)

	var sb strings.Builder
	for _, loc := range sorted {
		sb.WriteString(fmt.Sprintf("%s:%d\n", loc, counts[loc]))
	}

	if err := os.WriteFile(c.path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("locations: write %q: %w", c.path, err)
	}
	return nil
}
