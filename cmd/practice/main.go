// Command practice is a terminal dictation trainer: it decodes a WAV file,
// has the configured transcription backend split it into sentences, then
// plays each sentence through the speaker and grades what you type.
//
// Commands at the prompt: /r replays the current sentence, /s skips to the
// next one, /q quits. Anything else is graded as an answer.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sherrrrryzeng/dictation-trainer/internal/app"
	"github.com/sherrrrryzeng/dictation-trainer/internal/audio"
	"github.com/sherrrrryzeng/dictation-trainer/internal/config"
	"github.com/sherrrrryzeng/dictation-trainer/internal/grading"
	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"github.com/sherrrrryzeng/dictation-trainer/internal/playback"
	"github.com/sherrrrryzeng/dictation-trainer/internal/service/practice_svc"
)

func main() {
	var (
		cfgPath = flag.String("config", "config.yaml", "path to config.yaml")
		wavPath = flag.String("file", "", "path to a PCM WAV file to practice")
	)
	flag.Parse()

	if *wavPath == "" {
		log.Fatal("missing -file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Keep structured logs off the prompt; warnings and errors still land
	// on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	if err := run(ctx, cfg, logger, *wavPath); err != nil {
		log.Fatalf("practice: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, wavPath string) error {
	f, err := os.Open(wavPath)
	if err != nil {
		return err
	}
	clip, err := audio.DecodeWAV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", wavPath, err)
	}

	audioBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return err
	}

	source, err := app.BuildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	svc := practice_svc.NewPracticeService(
		source,
		logger,
		monitor.NewSemaphoreLoadMonitor(1, 1.0),
		practice_svc.WithMaxAudioBytes(cfg.Upload.MaxBytes),
	)

	fmt.Printf("Transcribing %s...\n", filepath.Base(wavPath))
	view, err := svc.CreateSession(ctx, audioBytes, "audio/wav", filepath.Base(wavPath))
	if err != nil {
		return err
	}
	fmt.Printf("Got %d sentences. Type what you hear; /r repeat, /s skip, /q quit.\n\n", len(view.Segments))

	speaker, err := audio.NewSpeakerHandle(clip, logger)
	if err != nil {
		return err
	}
	defer speaker.Close()

	controller := playback.NewController(speaker, logger, app.PlaybackOptions(cfg)...)
	defer controller.Teardown()

	return practiceLoop(ctx, svc, controller, view)
}

func practiceLoop(
	ctx context.Context,
	svc practice_svc.PracticeService,
	controller *playback.Controller,
	view *practice_svc.SessionView,
) error {
	scanner := bufio.NewScanner(os.Stdin)
	total := len(view.Segments)

	play := func(index int) {
		seg := view.Segments[index]
		window := playback.Window{Start: seg.Start, End: seg.End}
		err := controller.Play(window,
			func() { fmt.Printf("♪ sentence %d/%d\n", index+1, total) },
			nil,
		)
		if err != nil {
			// Playback trouble is not fatal to the practice session.
			fmt.Printf("(playback failed: %v)\n", err)
		}
	}

	index := view.Index
	play(index)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/q":
			return nil
		case "/r":
			play(index)
			continue
		case "/s":
			if index == total-1 {
				fmt.Println("Already at the last sentence.")
				continue
			}
			current, err := svc.Seek(view.ID, index+1)
			if err != nil {
				return err
			}
			index = current.Index
			play(index)
			continue
		}

		sub, err := svc.Submit(view.ID, line)
		if err != nil {
			return err
		}

		if !sub.Result.Match {
			fmt.Printf("  %s\n  Not quite, try again (or /r to listen again).\n", annotate(sub.Result.Words))
			continue
		}

		fmt.Println("  Correct!")
		if sub.State == practice_svc.StateCompleted {
			fmt.Println("\nAll sentences done. Well done!")
			return nil
		}
		index = sub.Index
		play(index)
	}
}

// annotate renders the reference sentence with mistaken words bracketed.
func annotate(words []grading.WordAnnotation) string {
	parts := make([]string, len(words))
	for i, w := range words {
		if w.Correct {
			parts[i] = w.Word
		} else {
			parts[i] = "[" + w.Word + "]"
		}
	}
	return strings.Join(parts, " ")
}
