package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/basekick-labs/flightdata/internal/config"
)

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", stderr)
	var common commonFlags
	common.register(fs)
	rocketPath := fs.String("config", "", "Rocket configuration (JSON); may also be given as the argument")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	switch {
	case *rocketPath == "" && fs.NArg() == 1:
		*rocketPath = fs.Arg(0)
	case *rocketPath != "" && fs.NArg() == 0:
	default:
		return fmt.Errorf("%w: check takes exactly one rocket configuration", errUsage)
	}

	cfg, _, err := common.setup(stderr)
	if err != nil {
		return err
	}
	backend, err := newBackend(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	rocket, err := config.LoadRocketConfig(ctx, backend, *rocketPath)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Fprintf(stdout, "Rocket:     %s\n", rocket.DisplayTitle())
	if rocket.DisplayTitle() != rocket.Name {
		fmt.Fprintf(stdout, "Name:       %s\n", rocket.Name)
	}
	if rocket.Description != "" {
		fmt.Fprintf(stdout, "About:      %s\n", rocket.Description)
	}
	fmt.Fprintf(stdout, "Byte order: %s\n", rocket.Endianness)
	fmt.Fprintf(stdout, "Sensors:    %d\n", len(rocket.Sensors))
	for i := range rocket.Sensors {
		s := &rocket.Sensors[i]
		values := make([]string, len(s.Values))
		for j, v := range s.Values {
			values[j] = v.Name + " " + v.DataType.String()
		}
		fmt.Fprintf(stdout, "  %s (id %d, %d bytes): %s\n", s.Name, s.ID, s.PayloadSize()+1, strings.Join(values, ", "))
	}
	fmt.Fprintf(stdout, "Columns:    %d\n", len(rocket.Columns()))
	fmt.Fprintln(stdout, "Configuration is valid")
	return nil
}
