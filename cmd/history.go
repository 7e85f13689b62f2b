package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/config"
	"github.com/prepterm/prepterm/internal/doc"
	"github.com/prepterm/prepterm/internal/history"
	"github.com/prepterm/prepterm/internal/stream"
	"github.com/prepterm/prepterm/internal/ui"
)

var (
	historyLimit  int
	historyReplay bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse answered questions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent answers, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over questions and answers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render a stored answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a stored answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum answers to list")
	historySearchCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum answers to list")
	historyShowCmd.Flags().BoolVar(&historyReplay, "replay", false, "Replay with the word-by-word reveal")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	answers, err := store.List(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	printAnswers(answers)
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	answers, err := store.Search(context.Background(), strings.Join(args, " "), historyLimit)
	if err != nil {
		return err
	}
	printAnswers(answers)
	return nil
}

func printAnswers(answers []history.Answer) {
	styles := ui.NewStyles(os.Stdout)
	if len(answers) == 0 {
		fmt.Println(styles.Muted.Render("no answers"))
		return
	}
	for _, a := range answers {
		line := fmt.Sprintf("%4d  %s  %s",
			a.ID,
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
			ui.Truncate(a.Question, 60))
		if a.Diagrams > 0 {
			line += styles.Muted.Render(fmt.Sprintf("  (%d diagrams)", a.Diagrams))
		}
		fmt.Println(line)
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	a, err := store.Get(context.Background(), id)
	if err != nil {
		return err
	}

	styles := ui.NewStyles(os.Stdout)
	renderer := ui.NewRenderer(styles, getTerminalWidth())
	fmt.Println(styles.Title.Render(a.Question))
	fmt.Println()

	if historyReplay && isTTY() {
		lw := ui.NewLiveWriter(os.Stdout)
		driver := stream.NewDriver(cfg.Stream.Interval(), func(f stream.Frame) {
			lw.Update(renderer.RenderFrame(f))
		})
		driver.Start(stream.New(a.Answer))
		driver.Wait()
		lw.Done()
		return nil
	}

	fmt.Print(renderer.RenderBlocks(block.Segment(a.Answer)))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	if err := store.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("deleted answer %d\n", id)
	return nil
}

// answerByRef resolves either a history id or an answerfile path.
func answerByRef(store *history.Store, ref string) (*doc.Document, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		a, err := store.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		return &doc.Document{
			Question:  a.Question,
			Answer:    a.Answer,
			Blocks:    block.Segment(a.Answer),
			CreatedAt: a.CreatedAt,
		}, nil
	}
	return doc.ReadAnswerfile(ref)
}
