package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"temudesign/internal/app"
	"temudesign/internal/config"
	"temudesign/internal/studio"
	"temudesign/internal/tui"
)

var (
	modeFlag        string
	logFileFlag     string
	outDirFlag      string
	noAltScreenFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Terminal control panel for TemuDesign",
	Long: `studio runs one design session in the terminal against the Gemini API.

Load product photos from disk, tune the settings, generate a batch and save
the variations you like.

Examples:
  studio                          # AutoDesign, artifacts saved to ./
  studio --mode creative -o out   # Creative Manual, saves into ./out
  studio --log-file studio.log    # keep a JSON log of every request`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", string(studio.ModeAutoDesign), "starting mode (auto, reference, creative, magazine, affiliator)")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "append JSON logs to this file (default: discard)")
	rootCmd.Flags().StringVarP(&outDirFlag, "out", "o", ".", "directory saved artifacts are written to")
	rootCmd.Flags().BoolVar(&noAltScreenFlag, "no-alt-screen", false, "disable the alternate screen buffer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	mode, ok := studio.ParseMode(modeFlag)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout belongs to the terminal UI.
	var logOut io.Writer = io.Discard
	if logFileFlag != "" {
		f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := app.NewLogger(cfg, logOut)
	st := app.NewStudio(cfg, logger)

	opts := []tea.ProgramOption{}
	if !noAltScreenFlag {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tui.Config{
		Orchestrator:   st.Orchestrator,
		Gate:           st.Gate,
		Mode:           mode,
		OutDir:         outDirFlag,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	}), opts...)

	logger.Info("studio started", "mode", mode, "out", outDirFlag)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
