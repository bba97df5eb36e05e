package adapters

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// KWinWindowProbe asks the compositor scripting API (via D-Bus) to print the
// active window's identity, and reads the result back from the system
// journal, using dbus.ConnectSessionBus + object calls with a temp script
// load/unload cycle per spec.md section 4.A.
type KWinWindowProbe struct {
	// JournalCmd is the journalctl invocation used to tail output; broken
	// out for testability.
	JournalCmd func(ctx context.Context, sincePrefix string) ([]byte, error)
}

var _ WindowInfoProvider = (*KWinWindowProbe)(nil)

func NewKWinWindowProbe() *KWinWindowProbe {
	return &KWinWindowProbe{JournalCmd: journalctlTail}
}

type kwinWindowJSON struct {
	AppClass      string `json:"resourceClass"`
	AppName       string `json:"-"`
	WindowTitle   string `json:"caption"`
	DesktopFileID string `json:"desktopFileName"`
	PID           int    `json:"pid"`
}

// ActiveWindow loads a tiny KWin script that prints a uniquely-prefixed JSON
// line describing the active window, reads the recent system journal once
// for that line (the whole probe is bounded by WindowProbeTimeout), then
// unloads the script so nothing is leaked into the running session.
func (k *KWinWindowProbe) ActiveWindow(ctx context.Context) (*WindowProbe, error) {
	ctx, cancel := context.WithTimeout(ctx, WindowProbeTimeout)
	defer cancel()

	prefix := "SCREENDIARY_WIN_" + uuid.NewString()[:8]

	scriptPath, err := writeKWinScript(prefix)
	if err != nil {
		return nil, fmt.Errorf("adapters: writing kwin script: %w", err)
	}
	defer os.Remove(scriptPath)

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("adapters: connecting to session bus: %w", err)
	}
	defer conn.Close()

	scripting := conn.Object("org.kde.KWin", "/Scripting")

	var scriptID int32
	if err := scripting.CallWithContext(ctx, "org.kde.kwin.Scripting.loadScript", 0, scriptPath).Store(&scriptID); err != nil {
		return nil, fmt.Errorf("adapters: loadScript: %w", err)
	}
	defer func() {
		scriptObj := conn.Object("org.kde.KWin", dbus.ObjectPath(fmt.Sprintf("/Scripting/Script%d", scriptID)))
		_ = scriptObj.Call("org.kde.kwin.Script.stop", 0).Err
	}()

	scriptObj := conn.Object("org.kde.KWin", dbus.ObjectPath(fmt.Sprintf("/Scripting/Script%d", scriptID)))
	if err := scriptObj.CallWithContext(ctx, "org.kde.kwin.Script.run", 0).Err; err != nil {
		return nil, fmt.Errorf("adapters: running script: %w", err)
	}

	out, err := k.JournalCmd(ctx, prefix)
	if err != nil {
		return nil, nil // timeout or journal unavailable: no error, just nil result
	}

	line := findPrefixedLine(out, prefix)
	if line == "" {
		return nil, nil
	}

	var parsed kwinWindowJSON
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		log.Debug().Err(err).Msg("window probe: malformed journal JSON")
		return nil, nil
	}

	return &WindowProbe{
		AppClass:      parsed.AppClass,
		AppName:       parsed.WindowTitle,
		WindowTitle:   parsed.WindowTitle,
		DesktopFileID: parsed.DesktopFileID,
		PID:           parsed.PID,
	}, nil
}

func writeKWinScript(prefix string) (string, error) {
	script := fmt.Sprintf(`
var c = workspace.activeWindow;
if (c) {
  print(%q + JSON.stringify({
    resourceClass: c.resourceClass,
    caption: c.caption,
    desktopFileName: c.desktopFileName,
    pid: c.pid
  }));
}
`, prefix+" ")

	f, err := os.CreateTemp("", "screendiary-kwin-*.js")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(script); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func journalctlTail(ctx context.Context, sincePrefix string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "journalctl", "--user", "-n", "200", "--no-pager", "-o", "cat")
	return cmd.Output()
}

func findPrefixedLine(out []byte, prefix string) string {
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	var last string
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, prefix); idx >= 0 {
			last = strings.TrimSpace(line[idx+len(prefix):])
		}
	}
	return last
}
