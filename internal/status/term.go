// Package status implements steamdsud's interactive control-API client
// commands: a slot status view and a slot-remove command, both usable
// from a terminal or a script.
package status

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nyxbridge/steamdsu/control"

	"golang.org/x/term"
)

// ClientConfig is shared by every control-API client subcommand.
type ClientConfig struct {
	Addr string `default:"127.0.0.1:3243" help:"Control API address" env:"STEAMDSU_CONTROL_ADDR"`
	Key  string `help:"Control API key (prompted interactively if unset and stdin is a terminal)" env:"STEAMDSU_CONTROL_KEY"`
}

// resolveKey returns cfg.Key if set, otherwise prompts on a terminal via
// x/term's echo-free password entry. Non-interactive callers (piped
// stdin, CI) must pass --key or STEAMDSU_CONTROL_KEY explicitly.
func (c *ClientConfig) resolveKey() (string, error) {
	if c.Key != "" {
		return c.Key, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("status: control api key required (pass --key or set STEAMDSU_CONTROL_KEY)")
	}
	fmt.Fprint(os.Stderr, "control api key: ")
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("status: read key: %w", err)
	}
	return string(key), nil
}

func (c *ClientConfig) send(command string) (string, error) {
	key, err := c.resolveKey()
	if err != nil {
		return "", err
	}
	conn, err := control.Dial(c.Addr, key)
	if err != nil {
		return "", fmt.Errorf("status: connect: %w", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("status: send command: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("status: read response: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// StatusCmd prints the daemon's occupied controller slots. Attached to a
// terminal, it redraws a one-screen view on a timer instead of printing
// once; piped or redirected, it prints a single snapshot and exits.
type StatusCmd struct {
	ClientConfig `embed:""`
	Interval     time.Duration `default:"1s" help:"Refresh interval when attached to a terminal"`
}

type slotsListResponse struct {
	Slots []struct {
		Index           int    `json:"Index"`
		Occupied        bool   `json:"Occupied"`
		PadID           uint8  `json:"PadID"`
		MACAddress      string `json:"MACAddress"`
		ConnectionType  string `json:"ConnectionType"`
		LastReportAgeMs int64  `json:"LastReportAgeMs"`
		Report          *struct {
			Buttons []string `json:"Buttons"`
		} `json:"Report"`
	} `json:"Slots"`
	ClientCount int `json:"ClientCount"`
}

func (s *StatusCmd) fetch() (slotsListResponse, error) {
	var resp slotsListResponse
	line, err := s.send("slots.list")
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return resp, fmt.Errorf("status: parse response: %w", err)
	}
	return resp, nil
}

func (s *StatusCmd) render(resp slotsListResponse, interactive bool) {
	fmt.Printf("clients subscribed: %d\n", resp.ClientCount)
	for _, slot := range resp.Slots {
		if !slot.Occupied {
			if interactive {
				fmt.Printf("slot %d: empty\n", slot.Index)
			}
			continue
		}
		age := time.Duration(slot.LastReportAgeMs) * time.Millisecond
		held := "none"
		if slot.Report != nil && len(slot.Report.Buttons) > 0 {
			held = strings.Join(slot.Report.Buttons, "+")
		}
		fmt.Printf("slot %d: pad %d, %s, mac %s, last report %s ago, held: %s\n",
			slot.Index, slot.PadID, slot.ConnectionType, slot.MACAddress, age, held)
	}
}

func (s *StatusCmd) Run() error {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		resp, err := s.fetch()
		if err != nil {
			return err
		}
		s.render(resp, false)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		resp, err := s.fetch()
		if err != nil {
			return err
		}
		fmt.Print("\x1b[H\x1b[2J")
		s.render(resp, true)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RemoveCmd detaches the controller in one slot.
type RemoveCmd struct {
	ClientConfig `embed:""`
	Slot         int `arg:"" help:"Slot index to remove (0-3)"`
}

func (r *RemoveCmd) Run() error {
	if _, err := r.send("slots.remove " + strconv.Itoa(r.Slot)); err != nil {
		return err
	}
	fmt.Printf("removed slot %d\n", r.Slot)
	return nil
}
