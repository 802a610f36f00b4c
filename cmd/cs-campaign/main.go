package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CANSpectra/internal/campaign"
	"CANSpectra/internal/config"
	"CANSpectra/internal/probe"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	campaignCfg, err := campaign.ParseConfig(cfg.Campaign)
	if err != nil {
		log.Fatalf("Invalid campaign config: %v", err)
	}

	// 2. Connect to the simulated bus
	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	// 3. Run the staged campaign
	runner := campaign.NewRunner(campaignCfg, pub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(); err != nil {
			log.Printf("Campaign failed: %v", err)
		}
	}()

	// 4. Wait for completion or a shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Shutdown signal received, stopping campaign...")
		runner.Stop()
		<-done
	case <-done:
	}
	log.Println("Campaign finished.")
}
