package doctor

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simrit1/JSpeechRecognizer/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckVoskEndpointReachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	check := checkVoskEndpoint("ws://" + listener.Addr().String())
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable")
}

func TestCheckVoskEndpointUnreachable(t *testing.T) {
	check := checkVoskEndpoint("ws://127.0.0.1:1")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "cannot reach")
}

func TestCheckWhisperEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(server.Close)

	check := checkWhisperEndpoint(server.URL)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 405")

	check = checkWhisperEndpoint("http://127.0.0.1:1/transcribe")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckEngineDispatch(t *testing.T) {
	check := checkEngine(config.EngineConfig{Backend: "none"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "disabled")

	check = checkEngine(config.EngineConfig{Backend: "deepgram"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unknown backend")
}

func TestCheckRuntimeSocketMissingEnv(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	check := checkRuntimeSocket()
	require.False(t, check.Pass)
}

func TestCheckRuntimeSocketFreePath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	check := checkRuntimeSocket()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "is free")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestRunReportsConfigWarnings(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Engine.Backend = "none"

	report := Run(config.Loaded{
		Path:     "/tmp/config.conf",
		Config:   cfg,
		Warnings: []config.Warning{{Message: "using defaults"}},
	})
	require.NotEmpty(t, report.Checks)

	var sawWarning, sawEngine bool
	for _, check := range report.Checks {
		if check.Name == "config.warning" {
			sawWarning = true
		}
		if check.Name == "engine" && check.Pass {
			sawEngine = true
		}
	}
	require.True(t, sawWarning)
	require.True(t, sawEngine)
}
