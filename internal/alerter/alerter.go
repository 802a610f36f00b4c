package alerter

import (
	"fmt"
	"log"
	"strings"

	"github.com/gomarkdown/markdown"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/report"
)

// Alerter evaluates the reports of a run against predefined rules and
// triggers a consolidated notification if any rule is violated.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// New creates a new Alerter instance.
func New(rules []config.AlerterRule, notifier model.Notifier) *Alerter {
	return &Alerter{rules: rules, notifier: notifier}
}

// Evaluate checks every report against the configured rules and sends one
// consolidated notification for all violations. It returns the triggered
// alert messages, which is also what the tests inspect.
func (a *Alerter) Evaluate(reports []report.Report) []string {
	var alerts []string
	for _, rep := range reports {
		for _, rule := range a.rules {
			if rule.Identifier != rep.Identifier {
				continue
			}
			if rule.Attack != "" && rule.Attack != rep.Attack {
				continue
			}
			flagged := len(rep.Curves.Detection.Flagged)
			if flagged <= rule.MaxFlagged {
				continue
			}
			alerts = append(alerts, fmt.Sprintf(
				"### Identifier %s: %s attack detected\n\n"+
					"- flagged samples: **%d** (limit %d)\n"+
					"- peak |CUSUM|: %.4f (threshold %.4f)\n"+
					"- final identification error: %.4f",
				rep.Identifier, rep.Attack,
				flagged, rule.MaxFlagged,
				rep.PeakStatistic(), rep.Curves.Detection.Threshold,
				rep.Summary().IdentError,
			))
		}
	}

	if len(alerts) == 0 {
		return nil // No alerts triggered, do nothing
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(alerts))

	if a.notifier == nil {
		return alerts
	}

	// Convert the markdown alert summary to HTML for the email body.
	md := []byte("# CANSpectra Alert Summary\n\n" + strings.Join(alerts, "\n\n---\n\n"))
	body := string(markdown.ToHTML(md, nil, nil))

	subject := fmt.Sprintf("CANSpectra Alert Summary (%d Triggered)", len(alerts))
	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
	} else {
		log.Printf("INFO: Consolidated alert notification sent successfully.")
	}

	return alerts
}
