package main

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JordanPalafox/motorpanel/pkg/bridge"
	"github.com/JordanPalafox/motorpanel/pkg/config"
	"github.com/JordanPalafox/motorpanel/pkg/panel"
)

type PanelCommand struct {
	Endpoint  string        `long:"endpoint" description:"Bridge websocket URL (overrides config file and MOTOR_BRIDGE_URL)"`
	Namespace string        `long:"namespace" description:"Service namespace on the bridge"`
	Interval  time.Duration `long:"interval" default:"1s" description:"Discovery and position poll interval"`
}

func (c *PanelCommand) Execute(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.Namespace != "" {
		cfg.Namespace = c.Namespace
	}

	connect := func(ctx context.Context) (panel.Session, error) {
		client := bridge.New(bridge.Config{
			URL:       cfg.Endpoint,
			Namespace: cfg.Namespace,
		})
		if err := client.Dial(ctx); err != nil {
			return panel.Session{}, err
		}
		return panel.Session{
			Service: client.Motors(),
			Events:  client.Events(),
			Logs:    client.Logs(),
			Close:   client.Close,
		}, nil
	}

	m := panel.New(connect, panel.Options{
		Endpoint:     cfg.Endpoint,
		MotorIDs:     cfg.MotorIDs,
		PollInterval: c.Interval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}
