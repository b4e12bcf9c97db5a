// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley is a terminal Matrix chat client. It logs in to the
// configured homeserver, restores the persisted session state (device
// ID, sync position, per-room pagination tokens), and runs a bubbletea
// TUI over the per-room timeline buffers maintained by the client
// package.
//
// Configuration comes from a YAML file named by PARLEY_CONFIG or the
// --config flag. The login password is read interactively from the
// terminal unless --password-file points at a file containing it.
//
// Background logging goes to parley.log inside the state directory:
// writing to stderr would corrupt the alt-screen display.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/client"
	"github.com/parley-chat/parley/connection"
	"github.com/parley-chat/parley/lib/config"
	"github.com/parley-chat/parley/lib/secret"
	"github.com/parley-chat/parley/lib/tui"
	"github.com/parley-chat/parley/render"
	"github.com/parley-chat/parley/timeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var passwordFile string

	flagSet := pflag.NewFlagSet("parley", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to parley.yaml (default: $PARLEY_CONFIG)")
	flagSet.StringVar(&passwordFile, "password-file", "", "read the login password from this file instead of prompting")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	filterJSON, err := cfg.LoadSyncFilter()
	if err != nil {
		return err
	}

	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(filepath.Join(cfg.Paths.State, "parley.log"))
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := connection.OpenStore(filepath.Join(cfg.Paths.State, "session.cbor"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := connection.Connect(ctx, connection.Config{
		HomeserverURL: cfg.Homeserver.URL,
		Username:      cfg.Homeserver.UserID,
		Password:      password,
		DeviceName:    cfg.Homeserver.DeviceName,
		Store:         store,
		FilterJSON:    filterJSON,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Homeserver.URL, err)
	}
	defer conn.Close()

	// Render colors through the profile the terminal actually
	// supports. Detection must happen before the first style is built.
	lipgloss.SetColorProfile(termenv.ColorProfile())

	redactionStyle, err := timeline.ParseRedactionStyle(cfg.Timeline.RedactionStyle)
	if err != nil {
		return err
	}

	application := newApp(cfg, logger)
	chatClient, err := client.New(client.Config{
		Session:        conn.Session(),
		Events:         conn.Events(),
		Renderer:       render.NewRenderer(tui.DefaultTheme, cfg.Homeserver.URL),
		NewBuffer:      application.newBuffer,
		LocalEcho:      cfg.Timeline.LocalEcho,
		RedactionStyle: redactionStyle,
		BackfillLimit:  cfg.Timeline.InitialBackfill,
		OnStatus:       application.postStatus,
		OnUpdate:       application.postRoomUpdate,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	application.client = chatClient

	go chatClient.Run(ctx)

	program := tea.NewProgram(newModel(application), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = program.Run()
	return err
}

// loadConfig resolves the configuration source: the --config flag wins,
// otherwise PARLEY_CONFIG names the file.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// readPassword reads the login password into a locked buffer. With no
// --password-file it prompts on the terminal with echo disabled.
func readPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
			data = data[:len(data)-1]
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("password file %s is empty", passwordFile)
		}
		return secret.NewFromBytes(data)
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, fmt.Errorf("no terminal available for the password prompt (use --password-file)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, fmt.Errorf("empty password")
	}
	buffer, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return buffer, nil
}

// openLogger creates a JSON file logger for background components. The
// file is created or truncated on each start.
func openLogger(path string) (*slog.Logger, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `parley — a terminal Matrix chat client.

Configuration is read from the YAML file named by the PARLEY_CONFIG
environment variable, or by --config. The file must name the
homeserver URL and user ID; see the config package for the full set
of options.

Usage:
  parley [flags]

Keys:
  Ctrl+N / Ctrl+P   next / previous room
  PageUp            scroll up; at the top, fetch older history
  PageDown          scroll down
  Enter             send the composed message
  Ctrl+C            quit

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
