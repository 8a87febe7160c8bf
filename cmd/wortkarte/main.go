package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akarpov/wortkarte/internal/config"
	"github.com/akarpov/wortkarte/internal/health"
	"github.com/akarpov/wortkarte/internal/lesson"
	"github.com/akarpov/wortkarte/pkg/logger"
	"github.com/akarpov/wortkarte/pkg/updater"
	"github.com/akarpov/wortkarte/pkg/version"
)

var (
	configPath string
	verbose    bool
	debug      bool

	cardLang string
	cardDeck string
	cardTag  string

	lessonDeck     string
	lessonTag      string
	lessonLimit    int
	lessonLanguage string

	checkUpdates bool
)

var rootCmd = &cobra.Command{
	Use:   "wortkarte",
	Short: "Turn German/Russian words into Anki flashcards",
	Long: `wortkarte translates a word, generates an example sentence,
optionally illustrates it, and inserts the result into Anki via
AnkiConnect.`,
}

var cardCmd = &cobra.Command{
	Use:   "card WORD [WORD...]",
	Short: "Create flashcards from one or more words",
	Long: `Creates one flashcard per word. With a single word a failure is
fatal; with several, failed words are reported in the output and the
rest of the list is still processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		if app.pipeline == nil {
			return fmt.Errorf("chat provider is not configured: set OPENROUTER_API_KEY and OPENROUTER_TEXT_MODEL")
		}

		ctx := context.Background()
		deck := cardDeck
		if deck == "" {
			deck = app.cfg.Anki.Deck
		}
		if deck == "" {
			return fmt.Errorf("deck name required: use --deck or set anki.deck in config")
		}
		tag := cardTag
		if tag == "" {
			tag = app.cfg.Anki.Tag
		}
		lang := cardLang
		if lang == "auto" {
			lang = ""
		}

		if err := app.anki.CheckConnection(ctx); err != nil {
			return err
		}
		if err := app.anki.CreateDeck(ctx, deck); err != nil {
			return err
		}

		if len(args) == 1 {
			card, err := app.pipeline.MakeCard(ctx, args[0], lang, deck, tag)
			if err != nil {
				return err
			}
			return printJSON(card)
		}
		return printJSON(app.pipeline.MakeCards(ctx, args, lang, deck, tag))
	},
}

var lessonCmd = &cobra.Command{
	Use:   "lesson URL",
	Short: "Create vocabulary flashcards from a YouTube transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := context.Background()
		deck := lessonDeck
		if deck == "" {
			deck = app.cfg.Anki.Deck
		}
		if deck == "" {
			return fmt.Errorf("deck name required: use --deck or set anki.deck in config")
		}

		if err := app.anki.CheckConnection(ctx); err != nil {
			return err
		}
		if err := app.anki.CreateDeck(ctx, deck); err != nil {
			return err
		}

		builder := &lesson.Builder{
			Transcript:   app.transcripts.Fetch,
			CheckGrammar: app.grammar.Check,
			AddNote:      app.anki.AddNote,
			Logger:       app.log,
			Events:       app.events,
		}
		if app.text != nil {
			builder.Translate = app.text.Translate
		}
		result, err := builder.Build(ctx, lesson.Config{
			URL:      args[0],
			Deck:     deck,
			Tag:      lessonTag,
			Limit:    lessonLimit,
			Language: lessonLanguage,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check external integrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		report := health.Check(context.Background(), app.cfg.Chat.APIKey, app.cfg.Chat.Model, app.anki)
		return printJSON(report)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(version.GetDetailedVersionInfo())
		if !checkUpdates {
			return nil
		}

		log := newLogger()
		info, err := updater.NewChecker(log).CheckForUpdates()
		if err != nil {
			return fmt.Errorf("update check failed: %w", err)
		}
		if info != nil && info.IsAvailable {
			fmt.Printf("Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.DownloadURL)
		} else {
			fmt.Println("Already up to date")
		}
		return nil
	},
}

func newLogger() *logger.Logger {
	log := logger.New(logger.WithPrefix("[wortkarte] "))
	log.SetVerbose(verbose)
	if debug {
		log.SetLevel(logger.LevelTrace)
		log.SetVerbose(true)
	}
	return log
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wortkarte.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode with trace logging")

	cardCmd.Flags().StringVar(&cardLang, "lang", "auto", "language of the input word (de, ru, or auto)")
	cardCmd.Flags().StringVar(&cardDeck, "deck", "", "deck name (overrides config)")
	cardCmd.Flags().StringVar(&cardTag, "tag", "", "tag for the card (overrides config)")

	lessonCmd.Flags().StringVar(&lessonDeck, "deck", "", "deck name (overrides config)")
	lessonCmd.Flags().StringVar(&lessonTag, "tag", "auto-lesson", "tag for lesson cards")
	lessonCmd.Flags().IntVar(&lessonLimit, "limit", 15, "maximum vocabulary items")
	lessonCmd.Flags().StringVar(&lessonLanguage, "language", "de", "transcript language")

	versionCmd.Flags().BoolVar(&checkUpdates, "check-updates", false, "check GitHub for a newer release")

	rootCmd.AddCommand(cardCmd, lessonCmd, healthCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
