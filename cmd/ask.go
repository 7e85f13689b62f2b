package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/config"
	"github.com/prepterm/prepterm/internal/diagram"
	"github.com/prepterm/prepterm/internal/doc"
	"github.com/prepterm/prepterm/internal/history"
	"github.com/prepterm/prepterm/internal/input"
	"github.com/prepterm/prepterm/internal/sanitize"
	"github.com/prepterm/prepterm/internal/stream"
	"github.com/prepterm/prepterm/internal/ui"
)

var (
	askFile     string
	askPlain    bool
	askInterval int
	askBackends []string
	askNoSave   bool
	askCopy     bool
	askShare    bool
	askSaveDir  string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Stream an answer into the terminal",
	Long: `Reveal an answer word by word with highlighted code, aligned
tables, and background-rendered mermaid diagrams.

The answer text comes from --file, "clipboard", or a stdin pipe:

  prepterm ask "How does raft elect a leader?" -f raft.md
  cat answer.md | prepterm ask "Explain consistent hashing"
  prepterm ask "What is a bloom filter?" -f clipboard`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "Answer source: path, \"clipboard\", or \"-\" for stdin")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Line-based output without the interactive view")
	askCmd.Flags().IntVar(&askInterval, "interval", 0, "Reveal cadence in milliseconds")
	askCmd.Flags().StringSliceVar(&askBackends, "backend", nil, "Diagram backend order (kroki, mmdc, ink)")
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "Do not record the answer in history")
	askCmd.Flags().BoolVar(&askCopy, "copy", false, "Copy the assembled markdown to the clipboard")
	askCmd.Flags().BoolVar(&askShare, "share", false, "Copy share markdown with mermaid.ink diagram links")
	askCmd.Flags().StringVar(&askSaveDir, "save", "", "Write the answer file and diagram SVGs to a directory")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(askInterval, askBackends)

	question := strings.Join(args, " ")
	answer, err := readAnswer()
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("no answer text: supply -f or pipe it on stdin")
	}
	answer = sanitize.Clean(answer)

	notices := &ui.Notices{}
	var send teaSender
	coord := newCoordinator(cfg, notices, func(n diagram.Node) {
		send.Send(diagramUpdateMsg{node: n})
	})
	defer coord.Close()

	asm := doc.NewAssembler(coord, notices.Add)
	d := asm.Finalize(question, answer)

	styles := ui.NewStyles(os.Stdout)
	renderer := ui.NewRenderer(styles, getTerminalWidth())
	renderer.DiagramStatus = diagramStatus(coord, d)

	switch pickAskMode(cfg, isTTY(), askPlain) {
	case modeTUI:
		m := newAskModel(cfg, renderer, styles, answer, coord, d)
		m.onEvaluate = func() { asm.CopyCode(d) }
		p := tea.NewProgram(m)
		send.Set(p.Send)
		_, err := p.Run()
		send.Set(nil)
		if err != nil {
			return err
		}
	case modeLive:
		runAskLive(cfg, renderer, coord, d, answer)
	case modeStatic:
		coord.Wait()
		fmt.Print(renderer.RenderBlocks(d.Blocks))
	}

	return finishAsk(cfg, coord, asm, d, notices, styles)
}

// askMode selects how the answer reaches the terminal.
type askMode int

const (
	modeTUI    askMode = iota // interactive word-by-word reveal
	modeLive                  // line-repaint reveal, no TUI
	modeStatic                // settled blocks at once
)

// pickAskMode honors stream.disabled: when set, the reveal is skipped
// entirely and the settled answer prints in one pass.
func pickAskMode(cfg *config.Config, tty, plain bool) askMode {
	if !tty || cfg.Stream.Disabled {
		return modeStatic
	}
	if plain {
		return modeLive
	}
	return modeTUI
}

// readAnswer resolves the answer text for this question.
func readAnswer() (string, error) {
	if askFile != "" {
		return input.ReadSource(askFile)
	}
	return input.ReadStdin()
}

// runAskLive streams with in-place line repainting, for terminals where
// the interactive view is unwanted. The final repaint happens after all
// diagrams settle so the captions show real outcomes.
func runAskLive(cfg *config.Config, renderer *ui.Renderer, coord *diagram.Coordinator, d *doc.Document, answer string) {
	lw := ui.NewLiveWriter(os.Stdout)
	driver := stream.NewDriver(cfg.Stream.Interval(), func(f stream.Frame) {
		lw.Update(renderer.RenderFrame(f))
	})
	driver.Start(stream.New(answer))
	driver.Wait()

	coord.Wait()
	lw.Update(renderer.RenderBlocks(d.Blocks))
	lw.Done()
}

// finishAsk runs the post-stream pipeline: wait out diagram renders,
// persist, copy, and surface accumulated notices.
func finishAsk(cfg *config.Config, coord *diagram.Coordinator, asm *doc.Assembler, d *doc.Document, notices *ui.Notices, styles *ui.Styles) error {
	coord.Wait()

	for i, id := range d.DiagramIDs {
		n, ok := coord.Node(id)
		if !ok {
			continue
		}
		switch n.State {
		case diagram.StateRendered:
			fmt.Fprintln(os.Stderr, styles.FormatResult(true,
				fmt.Sprintf("diagram %d rendered via %s", i+1, n.Backend)))
		case diagram.StateFailed:
			fmt.Fprintln(os.Stderr, styles.FormatResult(false,
				fmt.Sprintf("diagram %d failed: %v", i+1, n.Err)))
		}
	}

	if askSaveDir != "" {
		path, err := asm.Save(d, askSaveDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", path)
	}
	if askCopy {
		asm.Copy(d)
	}
	if askShare {
		asm.Share(d)
	}

	if !askNoSave && !cfg.History.Disabled {
		if err := saveHistory(cfg, d); err != nil {
			notices.Add(fmt.Sprintf("history not saved: %v", err))
		}
	}

	notices.Flush(os.Stderr, styles)
	return nil
}

func saveHistory(cfg *config.Config, d *doc.Document) error {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = store.Save(ctx, d.Question, d.Answer, len(d.DiagramIDs))
	return err
}

// Streaming view messages.
type askTickMsg struct{}
type diagramUpdateMsg struct{ node diagram.Node }

// teaSender hands coordinator callbacks a program Send that may not
// exist yet, or may already be gone.
type teaSender struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (s *teaSender) Set(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

func (s *teaSender) Send(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Pan distance per keypress, in vector units.
const panStep = 4.0

// pxPerCell approximates how many SVG pixels one terminal column
// represents when computing the auto-fit base scale.
const pxPerCell = 8

// askModel drives the word-by-word reveal inside bubbletea. Each tick
// advances the revealer one step; diagram state changes repaint the
// current frame so status captions stay live. Once the reveal settles
// and the answer has diagrams, the model stays up in review mode:
// retry, zoom, pan, and overlay keys act on the focused diagram, and
// the evaluate key copies the first code block.
type askModel struct {
	rev        *stream.Revealer
	renderer   *ui.Renderer
	styles     *ui.Styles
	spinner    spinner.Model
	interval   time.Duration
	coord      *diagram.Coordinator
	doc        *doc.Document
	onEvaluate func()

	frame     stream.Frame
	fitted    map[string]bool
	focus     int
	overlay   bool
	overlayID string
	reviewing bool
	done      bool
}

func newAskModel(cfg *config.Config, renderer *ui.Renderer, styles *ui.Styles, answer string, coord *diagram.Coordinator, d *doc.Document) askModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	return askModel{
		rev:      stream.New(answer),
		renderer: renderer,
		styles:   styles,
		spinner:  s,
		interval: cfg.Stream.Interval(),
		coord:    coord,
		doc:      d,
		fitted:   make(map[string]bool),
	}
}

func (m askModel) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spinner.Tick)
}

func (m askModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return askTickMsg{}
	})
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case askTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = m.rev.Step()
		if m.frame.Done {
			m.done = true
			if len(m.doc.DiagramIDs) > 0 {
				m.reviewing = true
				return m, nil
			}
			return m, tea.Quit
		}
		return m, m.tick()

	case diagramUpdateMsg:
		m.autoFit(msg.node)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.reviewing {
			return m.updateReview(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// autoFit computes the one-time base scale for a freshly rendered
// diagram: its intrinsic width mapped into the terminal width, never
// upscaling beyond 100%. User zoom is untouched.
func (m askModel) autoFit(n diagram.Node) {
	if n.State != diagram.StateRendered || m.fitted[n.ID] {
		return
	}
	m.fitted[n.ID] = true
	w, ok := diagram.IntrinsicWidth(n.SVG)
	if !ok {
		return
	}
	target := float64(m.renderer.Width() * pxPerCell)
	m.coord.SetBaseScale(n.ID, math.Min(1, target/w))
}

func (m askModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While an overlay is open, every action targets it.
	id := m.doc.DiagramIDs[m.focus]
	if m.overlay {
		id = m.overlayID
	}
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		if m.overlay {
			m.overlay = false
			m.coord.CloseOverlay(id)
			return m, nil
		}
		return m, tea.Quit
	case "tab", "n":
		if !m.overlay {
			m.focus = (m.focus + 1) % len(m.doc.DiagramIDs)
		}
	case "r":
		m.coord.Retry(id)
	case "+", "=":
		m.coord.Zoom(id, 1)
	case "-":
		m.coord.Zoom(id, -1)
	case "0":
		m.coord.ResetZoom(id)
	case "left", "h":
		m.coord.Pan(id, -panStep, 0)
	case "right", "l":
		m.coord.Pan(id, panStep, 0)
	case "up", "k":
		m.coord.Pan(id, 0, -panStep)
	case "down", "j":
		m.coord.Pan(id, 0, panStep)
	case "enter", "o":
		if m.overlay {
			m.overlay = false
			m.coord.CloseOverlay(id)
		} else {
			m.overlay = true
			m.overlayID = id
			m.coord.Expand(id)
		}
	case "c":
		if m.onEvaluate != nil {
			m.onEvaluate()
		}
	}
	return m, nil
}

func (m askModel) View() string {
	out := m.renderer.RenderFrame(m.frame)
	switch {
	case m.reviewing:
		out += "\n" + m.styles.Footer.Render(m.reviewFooter())
	case !m.done:
		out += "\n" + m.spinner.View() + " revealing"
	}
	return out
}

func (m askModel) reviewFooter() string {
	id := m.doc.DiagramIDs[m.focus]
	n, _ := m.coord.Node(id)
	state := n.State.String()
	if m.overlay {
		state = "overlay"
	}
	return fmt.Sprintf(
		"diagram %d/%d [%s %d%%]  tab next · +/- zoom · 0 reset · arrows pan · enter overlay · r retry · c copy code · q quit",
		m.focus+1, len(m.doc.DiagramIDs), state, int(n.View.Scale()*100))
}
