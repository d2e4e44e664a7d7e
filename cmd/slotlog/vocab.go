package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/slotlog/internal/clock"
	"github.com/christopherklint97/slotlog/internal/telegram"
	"github.com/christopherklint97/slotlog/internal/vocab"
)

const vocabDaemon = "vocab"

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Daily vocabulary bot",
}

var vocabRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the vocabulary bot",
	Args:  cobra.NoArgs,
	RunE:  runVocab,
}

var vocabStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vocabulary cursor and schedule",
	Args:  cobra.NoArgs,
	RunE:  runVocabStatus,
}

func init() {
	vocabCmd.AddCommand(vocabRunCmd)
	vocabCmd.AddCommand(vocabStatusCmd)
}

func runVocab(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	token := cfg.Vocab.Token
	if token == "" {
		return fmt.Errorf("vocab token not configured: set vocab.token or SLOTLOG_VOCAB_TOKEN")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client := telegram.NewClient(token, cfg.Telegram.BaseURL, logger.With("component", "telegram"))
	sender := telegram.Sender{Client: client, ChatID: cfg.Telegram.ChatID, ParseMode: telegram.ParseModeHTML}
	source := vocab.NewSource(cfg.Vocab.Workbook, cfg.Vocab.SlangSheet)
	bot := vocab.New(vocab.Options{
		State:  vocab.NewStateFile(cfg.Vocab.StatePath),
		Source: source,
		Sender: sender,
		Clock:  clock.Real{Location: loc},
		Logger: logger.With("component", "vocab"),
	})

	ctx, stop := signalContext()
	defer stop()

	poller := telegram.NewPoller(client, cfg.Telegram.ChatID, cfg.Telegram.PollTimeout, logger.With("component", "poller"))
	handle := func(ctx context.Context, msg *telegram.Message) {
		reply, ok := bot.Handle(ctx, msg.Text)
		if !ok {
			return
		}
		for _, part := range vocab.Split(reply) {
			if err := sender.Send(ctx, part); err != nil {
				logger.Error("failed to send vocab reply", "error", err)
				return
			}
		}
	}

	return withPID(vocabDaemon, logger, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return bot.Run(gctx) })
		g.Go(func() error { return source.Watch(gctx, logger.With("component", "watcher")) })
		g.Go(func() error { return poller.Run(gctx, handle) })
		return g.Wait()
	})
}

func runVocabStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sf := vocab.NewStateFile(cfg.Vocab.StatePath)
	st, err := sf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	total := "?"
	if entries, err := vocab.NewSource(cfg.Vocab.Workbook, cfg.Vocab.SlangSheet).Entries(); err == nil {
		total = fmt.Sprint(len(entries))
	}

	fmt.Printf("Index:  %d / %s\n", st.Index, total)
	fmt.Printf("Batch:  %d\n", st.BatchSize)
	fmt.Printf("Time:   %02d:%02d\n", st.Hour, st.Minute)
	fmt.Printf("Paused: %t\n", st.Paused)
	fmt.Printf("State:  %s\n", sf.Path())
	return nil
}
