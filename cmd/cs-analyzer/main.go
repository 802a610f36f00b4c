package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/notification"
	"CANSpectra/internal/pipeline"

	_ "CANSpectra/internal/export" // register report writers
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	baseline := flag.String("baseline", "", "Override the baseline log path from the config.")
	attackLog := flag.String("attack", "", "Override the recorded attack log path from the config.")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *baseline != "" {
		cfg.Analysis.BaselinePath = *baseline
	}
	if *attackLog != "" {
		cfg.Analysis.AttackPath = *attackLog
	}

	// 2. Initialize the analysis pipeline
	var notifier model.Notifier
	if cfg.Alerter.Enabled {
		notifier = notification.NewEmailNotifier(cfg.SMTP)
	}
	runner, err := pipeline.NewRunner(cfg, notifier)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// 3. Run the analysis
	log.Println("Starting analysis run...")
	reports, err := runner.Run()
	if err != nil {
		log.Fatalf("Analysis run failed: %v", err)
	}
	if len(reports) == 0 {
		log.Println("No reports produced.")
		os.Exit(0)
	}

	// 4. Print the summary table
	fmt.Printf("%-12s %-12s %14s %14s %14s %14s %8s\n",
		"IDENTIFIER", "ATTACK", "BASE_OFFSET", "ATK_OFFSET", "IDENT_ERR", "CUSUM_DEV", "FLAGGED")
	for _, rep := range reports {
		row := rep.Summary()
		fmt.Printf("%-12s %-12s %14.4f %14.4f %14.4f %14.4f %8d\n",
			row.Identifier, row.Attack, row.BaselineOffset, row.AttackedOffset,
			row.IdentError, row.CusumDeviation, row.FlaggedCount)
	}
	log.Printf("Analysis complete: %d reports.", len(reports))
}
