package player

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// commandTimeout bounds every osascript invocation. Apple events can hang
// when the target application is busy launching or showing a dialog.
const commandTimeout = 5 * time.Second

// OSAScript drives the macOS Music application through osascript.
type OSAScript struct {
	app string
}

// NewOSAScript returns a Control for the named macOS application
// ("Music" when app is empty).
func NewOSAScript(app string) *OSAScript {
	if app == "" {
		app = "Music"
	}
	return &OSAScript{app: app}
}

func (p *OSAScript) run(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// State queries position, duration, volume and player state in one round
// trip. The script returns "pos|dur|vol|state" to keep parsing trivial.
func (p *OSAScript) State(ctx context.Context) (State, error) {
	running, err := p.run(ctx, fmt.Sprintf(
		`tell application "System Events" to (name of processes) contains %q`, p.app))
	if err != nil {
		return State{}, err
	}
	if running != "true" {
		return State{IsRunning: false}, nil
	}

	script := fmt.Sprintf(`tell application %q
	set pos to player position
	set dur to 0
	try
		set dur to duration of current track
	end try
	set vol to sound volume
	set st to player state as string
	return (pos as string) & "|" & (dur as string) & "|" & (vol as string) & "|" & st
end tell`, p.app)

	out, err := p.run(ctx, script)
	if err != nil {
		return State{}, err
	}
	return parseState(out)
}

// parseState decodes the "pos|dur|vol|state" reply. AppleScript renders
// decimals with the system separator, so commas are normalised first.
func parseState(out string) (State, error) {
	parts := strings.Split(out, "|")
	if len(parts) != 4 {
		return State{}, fmt.Errorf("unexpected player reply %q", out)
	}

	num := func(s string) float64 {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}

	return State{
		Position:  num(parts[0]),
		Duration:  num(parts[1]),
		Volume:    int(num(parts[2])),
		IsPlaying: strings.TrimSpace(parts[3]) == "playing",
		IsRunning: true,
	}, nil
}

func (p *OSAScript) PlayPause(ctx context.Context) error {
	_, err := p.run(ctx, fmt.Sprintf(`tell application %q to playpause`, p.app))
	return err
}

func (p *OSAScript) Next(ctx context.Context) error {
	_, err := p.run(ctx, fmt.Sprintf(`tell application %q to next track`, p.app))
	return err
}

func (p *OSAScript) Previous(ctx context.Context) error {
	_, err := p.run(ctx, fmt.Sprintf(`tell application %q to previous track`, p.app))
	return err
}

func (p *OSAScript) Stop(ctx context.Context) error {
	_, err := p.run(ctx, fmt.Sprintf(`tell application %q to stop`, p.app))
	return err
}

func (p *OSAScript) Seek(ctx context.Context, position float64) error {
	_, err := p.run(ctx, fmt.Sprintf(
		`tell application %q to set player position to %s`,
		p.app, strconv.FormatFloat(position, 'f', 3, 64)))
	return err
}

func (p *OSAScript) SetVolume(ctx context.Context, level int) error {
	_, err := p.run(ctx, fmt.Sprintf(
		`tell application %q to set sound volume to %d`, p.app, ClampVolume(level)))
	return err
}
