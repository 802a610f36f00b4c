package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"CANSpectra/internal/model"
	"CANSpectra/internal/parse"
)

func main() {
	outputFile := flag.String("o", "baseline.log", "Output candump log path")
	identifier := flag.String("id", "0A0", "CAN identifier to generate frames for")
	frameCount := flag.Int("n", 1000, "Number of legitimate frames to generate")
	interval := flag.Float64("interval", 0.01, "Nominal inter-frame interval in seconds")
	jitter := flag.Float64("jitter", 0.0005, "Uniform timing jitter in seconds")
	fabricate := flag.Int("fabricate", 0, "Number of fabricated frames to append at half the interval")
	suspendAt := flag.Float64("suspend-at", 0, "Seconds into the log to start a transmission gap (0 disables)")
	suspendFor := flag.Float64("suspend-for", 0, "Length of the transmission gap in seconds")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	rand.Seed(time.Now().UnixNano())

	log.Printf("Generating %d frames for %s into %s...", *frameCount, *identifier, *outputFile)

	start := float64(time.Now().Unix())
	ts := start
	written := 0
	payload := []byte{0x01, 0x02, 0x03, 0x04}

	writeFrame := func(t float64) {
		frame := model.Frame{Timestamp: t, ID: *identifier, Payload: payload}
		fmt.Fprintln(f, parse.FormatLine(frame, parse.DefaultBus))
		written++
	}

	for i := 0; i < *frameCount; i++ {
		ts += *interval + (rand.Float64()*2-1)*(*jitter)

		// Skip frames falling inside the configured transmission gap.
		if *suspendAt > 0 && *suspendFor > 0 {
			elapsed := ts - start
			if elapsed >= *suspendAt && elapsed < *suspendAt+*suspendFor {
				continue
			}
		}
		writeFrame(ts)
	}

	for i := 0; i < *fabricate; i++ {
		ts += *interval / 2
		writeFrame(ts)
	}

	log.Printf("Successfully generated %d frames into %s.", written, *outputFile)
}
