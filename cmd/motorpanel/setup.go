package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JordanPalafox/motorpanel/pkg/bridge"
	"github.com/JordanPalafox/motorpanel/pkg/config"
	"github.com/JordanPalafox/motorpanel/pkg/units"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Endpoint string `long:"endpoint" description:"Bridge websocket URL to probe"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Motorpanel Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}

	fmt.Printf("Probing bridge at %s\n", cfg.Endpoint)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := bridge.New(bridge.Config{URL: cfg.Endpoint, Namespace: cfg.Namespace})
	if err := client.Dial(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot reach bridge: %v\n", err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Check that the bridge gateway is running, or point setup at it")
		fmt.Fprintln(os.Stderr, "with --endpoint or the MOTOR_BRIDGE_URL environment variable.")
		os.Exit(1)
	}
	defer client.Close()

	motors := client.Motors()
	ids, err := motors.Available(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing motors: %v\n", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		fmt.Println("The bridge reports no motors.")
		fmt.Println("Make sure the motors are powered on, then run setup again.")
		os.Exit(1)
	}

	// Positions are only for display here; missing them is not fatal
	positions, posErr := motors.Positions(ctx, ids)

	printMotorTable(ids, positions, posErr)
	fmt.Println()

	selected := chooseMotors(ids, cfg.MotorIDs)

	cfg.MotorIDs = selected
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", config.DefaultFile)
	fmt.Println()
	fmt.Println("Open the panel with: " + headerStyle.Render("motorpanel panel"))

	return nil
}

func printMotorTable(ids []int, positions []float64, posErr error) {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		position := "?"
		if posErr == nil && i < len(positions) {
			position = fmt.Sprintf("%.1f°", units.RadToDeg(positions[i]))
		}
		rows = append(rows, []string{fmt.Sprintf("%d", id), position})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor ID", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
}

func chooseMotors(ids []int, current []int) []int {
	preselected := make(map[int]bool, len(current))
	for _, id := range current {
		preselected[id] = true
	}

	options := make([]huh.Option[int], 0, len(ids))
	for _, id := range ids {
		opt := huh.NewOption(fmt.Sprintf("Motor %d", id), id)
		if preselected[id] {
			opt = opt.Selected(true)
		}
		options = append(options, opt)
	}

	var selected []int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Which motors should the panel show?").
				Description("Leave everything unselected to show all motors").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	return selected
}
