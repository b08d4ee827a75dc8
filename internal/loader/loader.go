package loader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gwdetchar/hveto/internal/domain/trigger"
)

var (
	// ErrBadTriggerLine is returned for a line with an unexpected column count.
	ErrBadTriggerLine = errors.New("malformed trigger line")
	// ErrBadChannelLine is returned for a channel-map line without a path.
	ErrBadChannelLine = errors.New("malformed channel map line")
	// ErrDuplicateChannel is returned when a channel map lists a name twice.
	ErrDuplicateChannel = errors.New("duplicate channel in map")
)

// ReadTriggers parses a trigger file into an event sequence.
// The sequence is returned in file order; sortedness is enforced later by
// the trigger store's validation.
func ReadTriggers(path string) ([]trigger.Trigger, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open triggers: %w", err)
	}
	defer f.Close()

	var events []trigger.Trigger

	scanner := bufio.NewScanner(f)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 && len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, ErrBadTriggerLine)
		}

		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse time: %w", path, lineno, err)
		}

		// The statistic is always the last column; a middle frequency
		// column is tolerated and skipped.
		stat, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse statistic: %w", path, lineno, err)
		}

		events = append(events, trigger.Trigger{Time: t, Statistic: stat})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read triggers: %w", err)
	}

	return events, nil
}

// ChannelFile pairs an auxiliary channel name with its trigger file path.
type ChannelFile struct {
	// Channel is the auxiliary channel name.
	Channel string
	// Path is the location of the channel's trigger file.
	Path string
}

// ReadChannelMap parses a channel map file, preserving file order.
func ReadChannelMap(path string) ([]ChannelFile, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open channel map: %w", err)
	}
	defer f.Close()

	var (
		entries []ChannelFile
		seen    = make(map[string]struct{})
	)

	scanner := bufio.NewScanner(f)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, ErrBadChannelLine)
		}

		if _, ok := seen[fields[0]]; ok {
			return nil, fmt.Errorf("%s:%d: %w: %s", path, lineno, ErrDuplicateChannel, fields[0])
		}

		seen[fields[0]] = struct{}{}

		entries = append(entries, ChannelFile{Channel: fields[0], Path: fields[1]})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read channel map: %w", err)
	}

	return entries, nil
}

// LoadStore reads the primary trigger file and every mapped auxiliary file,
// assembling the validated trigger store for a run. Relative auxiliary paths
// are resolved against the channel map's directory.
func LoadStore(primaryChannel, primaryPath, channelMapPath string) (*trigger.Store, error) {
	primary, err := ReadTriggers(primaryPath)
	if err != nil {
		return nil, fmt.Errorf("primary channel %s: %w", primaryChannel, err)
	}

	entries, err := ReadChannelMap(channelMapPath)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(channelMapPath)
	aux := make(map[string][]trigger.Trigger, len(entries))

	for _, entry := range entries {
		p := entry.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}

		events, err := ReadTriggers(p)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", entry.Channel, err)
		}

		aux[entry.Channel] = events
	}

	store, err := trigger.NewStore(primaryChannel, primary, aux)
	if err != nil {
		return nil, fmt.Errorf("assemble store: %w", err)
	}

	return store, nil
}
