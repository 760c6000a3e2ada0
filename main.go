package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"future-arp/arp"
	"future-arp/config"
	"future-arp/debug"
	"future-arp/host"
	"future-arp/midi"
	"future-arp/theme"
	"future-arp/tui"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Printf("Debug log unavailable: %v\n", err)
		}
		defer debug.Disable()
	}

	// Load theme (optional palette.gpl next to the config)
	var palettePath string
	if dir, err := config.ConfigDir(); err == nil {
		palettePath = filepath.Join(dir, "palette.gpl")
	}
	th := theme.New(theme.LoadOrDefault(palettePath))

	// Restore the last parameter values
	plugin := arp.NewPlugin()
	plugin.SetParameter(arp.ParamRate, cfg.Params.Rate)
	plugin.SetParameter(arp.ParamNoteLength, cfg.Params.NoteLength)

	// Port manager (handles hot-plug)
	var inName, outName string
	if cfg.Input.AutoConnect {
		inName = cfg.Input.Name
	}
	if cfg.Output.AutoConnect {
		outName = cfg.Output.Name
	}
	ports := midi.NewPortManager(inName, outName)

	runner := host.NewRunner(plugin, ports.Input(), ports.Send, host.OptionsFromConfig(cfg))

	portsCtx, stopPorts := context.WithCancel(context.Background())
	defer stopPorts()
	go ports.Run(portsCtx)

	runCtx, stopRunner := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		runner.Run(runCtx)
		close(runDone)
	}()

	debug.Log("main", "started: in=%q out=%q", inName, outName)

	m := tui.NewModel(runner, ports, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()

	// Stop the runner first so its releases reach the still-open output
	stopRunner()
	<-runDone
	stopPorts()

	cfg.Params.Rate = plugin.GetParameter(arp.ParamRate)
	cfg.Params.NoteLength = plugin.GetParameter(arp.ParamNoteLength)
	if serr := cfg.Save(); serr != nil {
		fmt.Printf("Error saving config: %v\n", serr)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
