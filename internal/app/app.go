package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/simrit1/JSpeechRecognizer/internal/asr"
	"github.com/simrit1/JSpeechRecognizer/internal/audio"
	"github.com/simrit1/JSpeechRecognizer/internal/cli"
	"github.com/simrit1/JSpeechRecognizer/internal/config"
	"github.com/simrit1/JSpeechRecognizer/internal/doctor"
	"github.com/simrit1/JSpeechRecognizer/internal/ipc"
	"github.com/simrit1/JSpeechRecognizer/internal/logging"
	"github.com/simrit1/JSpeechRecognizer/internal/recognizer"
	"github.com/simrit1/JSpeechRecognizer/internal/vad"
	"github.com/simrit1/JSpeechRecognizer/internal/version"
	"github.com/simrit1/JSpeechRecognizer/internal/wakeword"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("jspeech"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("jspeech"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Debug.Verbose)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.commandStop(ctx)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: "status"}, 220*time.Millisecond)
	if err != nil {
		// No listener is a normal state, not a failure.
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return 0
}

func (r Runner) commandStop(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: "stop"}, 220*time.Millisecond)
	if err != nil {
		fmt.Fprintln(r.Stderr, "error: no running jspeech listener")
		return 1
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyListening) {
			fmt.Fprintln(r.Stderr, "error: a jspeech listener is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if selection.Warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
		logger.Warn("device selection", "warning", selection.Warning)
	}
	logger.Info("device selected", "id", selection.Device.ID, "fallback", selection.Fallback)

	capture, err := audio.StartCapture(ctx, selection.Device)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer capture.Close()

	rec, err := r.buildRecognizer(cfg, logger, capture)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	handler := ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case "status":
			return ipc.Response{OK: true, State: string(rec.State())}
		case "stop":
			// Reply before the drain: Stop waits out any in-flight
			// transcription, longer than a client is willing to block.
			go func() {
				if stopErr := rec.Stop(); stopErr != nil && !errors.Is(stopErr, recognizer.ErrNotRunning) {
					logger.Warn("stop request failed", "error", stopErr.Error())
				}
			}()
			return ipc.Response{OK: true, Message: "stopping"}
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
		}
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, handler)
	}()

	logger.Info("listening",
		"keyword", cfg.Wakeword.Keywords[0],
		"backend", cfg.Engine.Backend,
		"socket", socketPath,
	)
	if err := rec.Start(ctx, true); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	_ = capture.Stop()
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("listener stopped", "bytes_captured", capture.BytesCaptured())
	return 0
}

// buildRecognizer assembles the segmentation engine from config.
func (r Runner) buildRecognizer(cfg config.Config, logger *slog.Logger, source recognizer.Source) (*recognizer.Recognizer, error) {
	keywords := cfg.Wakeword.Keywords
	sensitivities := cfg.Wakeword.Sensitivities
	if len(keywords) > 1 {
		fmt.Fprintf(r.Stderr, "warning: energy spotter supports a single keyword; using %q\n", keywords[0])
		keywords = keywords[:1]
		sensitivities = sensitivities[:1]
	}
	spotter, err := wakeword.NewEnergySpotter(keywords, sensitivities, 0)
	if err != nil {
		return nil, fmt.Errorf("build wakeword spotter: %w", err)
	}

	classifier, err := vad.NewEnergy(vad.EnergyConfig{
		SpeechThreshold:  cfg.VAD.SpeechThreshold,
		SilenceThreshold: cfg.VAD.SilenceThreshold,
		SmoothingFrames:  cfg.VAD.SmoothingFrames,
	})
	if err != nil {
		return nil, fmt.Errorf("build voice activity detector: %w", err)
	}

	engine, err := buildEngine(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}

	sink := &eventWriter{
		out:     r.Stdout,
		logger:  logger,
		dumpDir: resolveDumpDir(cfg.Debug.AudioDump),
	}

	return recognizer.New(logger, source, spotter, classifier, engine, sink, recognizer.SegmenterConfig{
		SpeechLength:   cfg.Segmenter.SpeechDuration(),
		SilenceAfter:   cfg.Segmenter.SilenceAfter,
		PreRollFrames:  cfg.Segmenter.PreRollFrames,
		IncludePreRoll: cfg.Segmenter.IncludePreRoll,
	})
}

func buildEngine(cfg config.EngineConfig, logger *slog.Logger) (asr.Engine, error) {
	switch cfg.Backend {
	case "vosk":
		engine, err := asr.NewVosk(asr.VoskConfig{
			URL:        cfg.VoskURL,
			SampleRate: audio.SampleRate,
			OnPartial: func(text string) {
				logger.Debug("partial transcript", "text", text)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("build vosk engine: %w", err)
		}
		return engine, nil
	case "whisper":
		engine, err := asr.NewWhisper(asr.WhisperConfig{
			URL:        cfg.WhisperURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Language:   cfg.Language,
			SampleRate: audio.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("build whisper engine: %w", err)
		}
		return engine, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}

// resolveDumpDir picks the segment dump directory, or empty when disabled.
func resolveDumpDir(enabled bool) string {
	if !enabled {
		return ""
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "jspeech", "segments")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "jspeech", "segments")
}
