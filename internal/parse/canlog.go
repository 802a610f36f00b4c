package parse

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"CANSpectra/internal/model"
)

// linePattern matches one candump record: "(<seconds>) <bus> <id>#<payload>".
var linePattern = regexp.MustCompile(`^\((\d+\.?\d*)\)\s+(\w+)\s+([0-9A-Fa-f]+)#([0-9A-Fa-f]*)\s*$`)

// DefaultBus is used when re-serializing frames that carry no bus name.
const DefaultBus = "can0"

// ParseLine parses a single candump log line. The second return value is false
// for lines that do not match the record shape; callers skip those.
func ParseLine(line string) (model.Frame, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.Frame{}, false
	}

	ts, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return model.Frame{}, false
	}
	payload, err := hex.DecodeString(m[4])
	if err != nil {
		return model.Frame{}, false
	}

	return model.Frame{Timestamp: ts, ID: strings.ToUpper(m[3]), Payload: payload}, true
}

// FormatLine renders a frame back into the candump record shape. Parsing the
// result yields the identical frame.
func FormatLine(f model.Frame, bus string) string {
	if bus == "" {
		bus = DefaultBus
	}
	return fmt.Sprintf("(%.6f) %s %s#%s", f.Timestamp, bus, f.ID, strings.ToUpper(hex.EncodeToString(f.Payload)))
}

// ReadAll reads every well-formed frame from a candump log in arrival order.
// Malformed lines are counted and skipped, never fatal.
func ReadAll(path string) ([]model.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var frames []model.Frame
	skipped := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		frame, ok := ParseLine(scanner.Text())
		if !ok {
			skipped++
			continue
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file '%s': %w", path, err)
	}

	if skipped > 0 {
		log.Printf("Warning: skipped %d malformed lines in %s", skipped, path)
	}
	return frames, nil
}

// ReadLog reads a candump log and groups frames per identifier, preserving
// arrival order. An empty identifier list accepts every identifier.
func ReadLog(path string, identifiers []string) (map[string][]model.Frame, error) {
	frames, err := ReadAll(path)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		want[strings.ToUpper(id)] = true
	}

	grouped := make(map[string][]model.Frame)
	for _, frame := range frames {
		if len(want) > 0 && !want[frame.ID] {
			continue
		}
		grouped[frame.ID] = append(grouped[frame.ID], frame)
	}
	return grouped, nil
}
