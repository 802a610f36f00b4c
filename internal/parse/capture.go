package parse

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"CANSpectra/internal/model"
)

// ErrNoHeader is returned for capture files whose header row cannot be found.
// Such files are skipped; processing continues with the remaining files.
var ErrNoHeader = errors.New("capture header not found")

// defaultMaxCaptureFiles caps how many CSV files a directory scan will load.
const defaultMaxCaptureFiles = 50

// ReadCapture reads one oscilloscope CSV capture. The metadata preamble has
// unknown length, so the loader scans for the header row containing "Time",
// "Channel A" and "Channel B" and parses exactly three numeric columns from
// there on. Rows with a non-numeric value in any column are dropped.
func ReadCapture(path string) ([]model.VoltageSample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer file.Close()

	var samples []model.VoltageSample
	headerSeen := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !headerSeen {
			if strings.Contains(line, "Time") && strings.Contains(line, "Channel A") && strings.Contains(line, "Channel B") {
				headerSeen = true
			}
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		t, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		a, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		b, err3 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		samples = append(samples, model.VoltageSample{Time: t, ChannelA: a, ChannelB: b})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture file '%s': %w", path, err)
	}

	if !headerSeen {
		return nil, fmt.Errorf("%w in %s", ErrNoHeader, path)
	}
	return samples, nil
}

// ReadCaptureDir loads every CSV capture in a directory, up to maxFiles,
// combines the samples and sorts them by time. Headerless files are skipped
// with a warning.
func ReadCaptureDir(dir string, maxFiles int) ([]model.VoltageSample, error) {
	if maxFiles <= 0 {
		maxFiles = defaultMaxCaptureFiles
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list capture files: %w", err)
	}
	sort.Strings(paths)

	var combined []model.VoltageSample
	loaded := 0
	for _, path := range paths {
		if loaded >= maxFiles {
			break
		}
		samples, err := ReadCapture(path)
		if err != nil {
			if errors.Is(err, ErrNoHeader) {
				log.Printf("Warning: no valid header found in %s, skipping.", path)
				continue
			}
			return nil, err
		}
		combined = append(combined, samples...)
		loaded++
	}

	sort.Slice(combined, func(i, j int) bool { return combined[i].Time < combined[j].Time })
	return combined, nil
}
