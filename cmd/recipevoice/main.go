// RecipeVoice, a voice-driven recipe finder for the terminal.
//
// Usage:
//
//	recipevoice [-config recipevoice.yaml] [-engine whisper|cloud|typed] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/recipevoice/internal/backend"
	"github.com/hammamikhairi/recipevoice/internal/config"
	"github.com/hammamikhairi/recipevoice/internal/conversation"
	"github.com/hammamikhairi/recipevoice/internal/display"
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/engine"
	"github.com/hammamikhairi/recipevoice/internal/logger"
	"github.com/hammamikhairi/recipevoice/internal/speech"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to, \"stderr\" logs to console (overrides config)")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if Azure keys are set")
	engineName := flag.String("engine", "", "speech engine: whisper, cloud, typed or unsupported (overrides config)")
	backendURL := flag.String("backend", "", "backend base URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *engineName != "" {
		cfg.Capture.Engine = *engineName
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}
	if *noSpeech {
		cfg.Speech.Enabled = false
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Logs go to a file by default so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if path := cfg.Log.File; path != "" && path != "stderr" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Third-party libs (the whisper transcriber, the audio backend) log
	// through the standard logger; keep them off the terminal too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	// Cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ui := display.NewUI()
	textNotifier := conversation.NewCLINotifier(log, ui.Printf)
	parser := conversation.NewKeywordParser(log)

	// Speech output: the Mouth when Azure is configured, silence otherwise.
	var out domain.SpeechOutput = speech.NewNoOp(log)
	var notifier domain.Notifier = textNotifier
	var mouth *speech.Mouth

	if cfg.Speech.Enabled && cfg.Speech.AzureKey != "" && cfg.Speech.AzureRegion != "" {
		opts := []speech.AzureOption{}
		if cfg.Speech.Voice != "" {
			opts = append(opts, speech.WithVoice(cfg.Speech.Voice))
		}
		tts := speech.NewAzureClient(cfg.Speech.AzureKey, cfg.Speech.AzureRegion, log, opts...)

		player, err := speech.NewPlayer(log)
		if err != nil {
			log.Error("audio player init failed, speech disabled: %v", err)
		} else {
			mouth = speech.NewMouth(tts, player, log,
				speech.WithCacheDir(cfg.Speech.CacheDir),
				speech.WithDiskWrite(cfg.Speech.DiskCache),
			)
			mouth.Start(ctx)
			mouth.Prefetch(ctx, speech.Prefetchable()...)
			mouth.Prefetch(ctx, engine.Prefetchable()...)
			out = mouth
			notifier = speech.NewSpeakingNotifier(textNotifier, mouth, log)
			log.Info("TTS enabled (voice=%s, region=%s)", tts.Voice(), cfg.Speech.AzureRegion)
		}
	} else if cfg.Speech.Enabled {
		log.Info("TTS disabled: set AZURE_SPEECH_KEY and AZURE_SPEECH_REGION to enable")
	}

	// Speech capture.
	rec, typed := buildRecognizer(cfg.Capture, mouth, log)
	captureOpts := []speech.CaptureOption{speech.WithSessionTimeout(cfg.Capture.SessionTimeout)}
	if mouth != nil {
		// Don't let the microphone hear the assistant.
		captureOpts = append(captureOpts, speech.WithOnSessionStart(mouth.Interrupt))
	}
	capture := speech.NewCapture(rec, log, captureOpts...)

	// The same ID tags backend requests and the conversation.
	sessionID := uuid.NewString()
	client := backend.NewClient(cfg.Backend.URL, log,
		backend.WithHTTPTimeout(cfg.Backend.Timeout),
		backend.WithSessionID(sessionID),
	)

	ctrl := engine.New(capture, out, client, client, log,
		engine.WithSessionID(sessionID),
		engine.WithObserver(ui.SetState),
	)
	log.Info("session %s: engine=%s backend=%s", sessionID, rec.Name(), cfg.Backend.URL)

	app := &cliApp{
		ctrl:     ctrl,
		parser:   parser,
		notifier: notifier,
		typed:    typed,
		log:      log,
		ui:       ui,
	}

	hint := "Press Enter to talk, Enter again to stop. Type 'help' for commands."
	if err := rec.Available(); err != nil {
		hint = "Voice input unavailable: type what you'd like to eat."
	}
	fmt.Println(display.RenderBanner(display.TermWidth(), hint))

	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal and blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	capture.Stop()
}

// buildRecognizer picks the capture engine. Anything unknown or unusable
// becomes the unsupported recognizer, which the controller reports once.
func buildRecognizer(cfg config.CaptureConfig, mouth *speech.Mouth, log *logger.Logger) (speech.Recognizer, *speech.TypedRecognizer) {
	switch cfg.Engine {
	case config.EngineWhisper:
		opts := []speech.WhisperOption{
			speech.WithChunkLength(cfg.ChunkLength),
			speech.WithTempDir(cfg.TempDir),
		}
		if mouth != nil {
			opts = append(opts, speech.WithQuietWhile(mouth.Busy))
		}
		return speech.NewWhisperRecognizer(cfg.WhisperBin, cfg.WhisperModel, log, opts...), nil

	case config.EngineCloud:
		if cfg.TranscribeKey == "" {
			return speech.Unsupported{Reason: "no transcription API key configured"}, nil
		}
		tr := speech.NewTranscriber(cfg.TranscribeKey, log,
			speech.WithTranscribeURL(cfg.TranscribeURL),
			speech.WithTranscribeModel(cfg.TranscribeModel),
			speech.WithLanguage(cfg.Language),
		)
		return speech.NewCloudRecognizer(speech.NewMicrophone(cfg.SampleRate, log), tr, log), nil

	case config.EngineTyped:
		t := speech.NewTypedRecognizer()
		return t, t

	default:
		return speech.Unsupported{Reason: fmt.Sprintf("speech engine %q is not supported", cfg.Engine)}, nil
	}
}

type cliApp struct {
	ctrl     *engine.Controller
	parser   domain.IntentParser
	notifier domain.Notifier
	typed    *speech.TypedRecognizer // nil unless the typed engine is active
	log      *logger.Logger
	ui       *display.UI
}

// say prints a line and speaks it.
func (a *cliApp) say(ctx context.Context, text string) {
	if err := a.notifier.Notify(ctx, text); err != nil {
		a.log.Error("notify: %v", err)
	}
}

func (a *cliApp) run(ctx context.Context) {
	a.say(ctx, speech.LineWelcome())
	a.ui.SetState(a.ctrl.Snapshot())

	uiCh := a.ui.InputChan()
	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}

		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if quit := a.handleIntent(ctx, intent); quit {
			return
		}
	}
}

// handleIntent dispatches one prompt action. It reports whether the app
// should exit.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentToggle:
		a.toggle(ctx)
	case domain.IntentListen:
		if !a.ctrl.Snapshot().Listening {
			a.toggle(ctx)
		}
	case domain.IntentStop:
		a.ctrl.Stop()
	case domain.IntentReset:
		a.ctrl.Reset()
		a.say(ctx, speech.LineReset())
	case domain.IntentRepeat:
		a.ctrl.Repeat()
	case domain.IntentHelp:
		a.say(ctx, speech.LineHelp())
	case domain.IntentQuit:
		a.ctrl.Stop()
		a.say(ctx, speech.LineBye())
		// Brief pause so TTS can start the goodbye line.
		time.Sleep(300 * time.Millisecond)
		return true
	case domain.IntentUnknown:
		a.typedInput(ctx, intent.Payload)
	}
	return false
}

func (a *cliApp) toggle(ctx context.Context) {
	err := a.ctrl.Toggle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnsupported):
		a.ui.PrintHint(engine.LineCaptureUnsupported())
	case errors.Is(err, domain.ErrTurnInProgress):
		a.ui.PrintHint("Still working on the last request...")
	default:
		a.log.Error("toggle: %v", err)
	}
}

// typedInput feeds free text to an open typed session, or runs it as a
// turn of its own.
func (a *cliApp) typedInput(ctx context.Context, text string) {
	if a.typed != nil && a.typed.Feed(text) {
		return
	}
	go func() {
		err := a.ctrl.Submit(ctx, text)
		if errors.Is(err, domain.ErrTurnInProgress) {
			a.ui.PrintHint("Still working on the last request...")
			return
		}
		if err != nil {
			a.log.Debug("typed turn ended with error: %v", err)
		}
	}()
}
