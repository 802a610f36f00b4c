package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/parse"
	"CANSpectra/internal/probe"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to replay a log onto the bus, 'sub' to record bus traffic.")
	logPath := flag.String("log", "", "Candump log to replay (pub) or to write (sub).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *mode {
	case "pub":
		runReplay(cfg.Probe, *logPath)
	case "sub":
		runRecorder(cfg.Probe, *logPath)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runReplay reads a candump log and publishes its frames onto the simulated
// bus, preserving the recorded inter-arrival timing.
func runReplay(cfg config.ProbeConfig, logPath string) {
	if logPath == "" {
		log.Println("Error: -log flag is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}

	frames, err := parse.ReadAll(logPath)
	if err != nil {
		log.Fatalf("Failed to read log %s: %v", logPath, err)
	}
	log.Printf("Replaying %d frames from %s...", len(frames), logPath)

	pub, err := probe.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	published := 0
	for i, frame := range frames {
		if i > 0 {
			if gap := frame.Timestamp - frames[i-1].Timestamp; gap > 0 {
				time.Sleep(time.Duration(gap * float64(time.Second)))
			}
		}
		if err := pub.Publish(frame); err != nil {
			log.Printf("Failed to publish frame: %v", err)
			continue
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d frames published...", published)
		}
	}
	log.Printf("Replay complete: %d frames published.", published)
}

// runRecorder subscribes to the simulated bus and appends every frame to a
// candump log until interrupted.
func runRecorder(cfg config.ProbeConfig, logPath string) {
	if logPath == "" {
		log.Println("Error: -log flag is required for sub mode.")
		flag.Usage()
		os.Exit(1)
	}

	out, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open output log %s: %v", logPath, err)
	}
	defer out.Close()

	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	received := 0
	handler := func(frame model.Frame) {
		if _, err := fmt.Fprintln(out, parse.FormatLine(frame, cfg.Bus)); err != nil {
			log.Printf("Failed to write frame: %v", err)
			return
		}
		received++
		if received%1000 == 0 {
			log.Printf("%d frames recorded...", received)
		}
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}
	log.Printf("Recording bus traffic to %s...", logPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Printf("Shutdown signal received, %d frames recorded.", received)
}
