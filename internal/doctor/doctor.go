// Package doctor runs runtime readiness diagnostics for config, audio, and the transcription backend.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/simrit1/JSpeechRecognizer/internal/audio"
	"github.com/simrit1/JSpeechRecognizer/internal/config"
	"github.com/simrit1/JSpeechRecognizer/internal/ipc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})
	for _, warning := range cfg.Warnings {
		checks = append(checks, Check{
			Name:    "config.warning",
			Pass:    true,
			Message: warning.Message,
		})
	}

	checks = append(checks, checkRuntimeSocket())
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkEngine(cfg.Config.Engine))

	return Report{Checks: checks}
}

// checkRuntimeSocket verifies the control socket directory and reports a live listener.
func checkRuntimeSocket() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "ipc.socket", Pass: false, Message: err.Error()}
	}
	if _, statErr := os.Stat(path); statErr == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		alive, probeErr := ipc.Probe(ctx, path, time.Second)
		if probeErr == nil && alive {
			return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("listener already running at %s", path)}
		}
		return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("stale socket at %s; will be reclaimed on listen", path)}
	}
	return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("socket path %s is free", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkEngine probes the configured transcription backend for reachability.
func checkEngine(engine config.EngineConfig) Check {
	switch engine.Backend {
	case "vosk":
		return checkVoskEndpoint(engine.VoskURL)
	case "whisper":
		return checkWhisperEndpoint(engine.WhisperURL)
	case "none":
		return Check{Name: "engine", Pass: true, Message: "transcription disabled"}
	default:
		return Check{Name: "engine", Pass: false, Message: fmt.Sprintf("unknown backend %q", engine.Backend)}
	}
}

// checkVoskEndpoint opens a raw TCP connection to the websocket host.
func checkVoskEndpoint(rawURL string) Check {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Check{Name: "engine.vosk", Pass: false, Message: fmt.Sprintf("invalid vosk_url: %v", err)}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "2700")
	}
	conn, err := net.DialTimeout("tcp", host, 2*time.Second)
	if err != nil {
		return Check{Name: "engine.vosk", Pass: false, Message: fmt.Sprintf("cannot reach %s: %v", host, err)}
	}
	_ = conn.Close()
	return Check{Name: "engine.vosk", Pass: true, Message: fmt.Sprintf("reachable at %s", host)}
}

// checkWhisperEndpoint counts any HTTP response as reachable; the endpoint
// may reject GETs but a connection refusal is the signal we care about.
func checkWhisperEndpoint(rawURL string) Check {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(rawURL)
	if err != nil {
		return Check{Name: "engine.whisper", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	return Check{Name: "engine.whisper", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, rawURL)}
}
