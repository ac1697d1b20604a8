// Package tui is the terminal news reader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/newsd/internal/reader"
)

const requestTimeout = 15 * time.Second

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeHelp
)

// App is the bubbletea model of the reader.
type App struct {
	reader *reader.Reader
	player *reader.Player
	user   string

	mode        mode
	width       int
	height      int
	searchInput textinput.Model
	spinner     spinner.Model

	loading bool
	status  string
	err     error
	speech  *reader.Session
}

// Options holds the parameters for launching the reader.
type Options struct {
	Reader   *reader.Reader
	Player   *reader.Player
	UserName string
}

// NewApp creates the model. Articles are loaded on Init.
func NewApp(opts Options) *App {
	ti := textinput.New()
	ti.Placeholder = "Search news..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &App{
		reader:      opts.Reader,
		player:      opts.Player,
		user:        opts.UserName,
		searchInput: ti,
		spinner:     sp,
		loading:     true,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refreshCmd(), a.spinner.Tick)
}

func (a *App) refreshCmd() tea.Cmd {
	r := a.reader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loadedMsg{err: r.Refresh(ctx)}
	}
}

func (a *App) searchCmd(q string) tea.Cmd {
	r := a.reader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		n, err := r.Search(ctx, q)
		return searchDoneMsg{query: q, count: n, err: err}
	}
}

func (a *App) saveCmd() tea.Cmd {
	r := a.reader
	return func() tea.Msg {
		cur, _ := r.Current()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return savedMsg{title: cur.Title, err: r.Save(ctx)}
	}
}

func (a *App) markReadCmd() tea.Cmd {
	r := a.reader
	return func() tea.Msg {
		cur, _ := r.Current()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return readMsg{title: cur.Title, err: r.MarkRead(ctx)}
	}
}

func waitSpeech(s *reader.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return speechDoneMsg{session: s}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		a.err = nil
		return a.handleKey(msg)

	case loadedMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.status = fmt.Sprintf("%d articles", len(a.reader.Articles()))
		return a, nil

	case searchDoneMsg:
		a.loading = false
		switch {
		case msg.err != nil:
			a.err = msg.err
		case msg.count == 0:
			a.status = fmt.Sprintf("no results for %q", msg.query)
		default:
			a.status = fmt.Sprintf("%d results for %q", msg.count, msg.query)
		}
		return a, nil

	case savedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.status = "saved: " + msg.title
		}
		return a, nil

	case readMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.status = "marked read: " + msg.title
		}
		return a, nil

	case speechDoneMsg:
		if a.speech == msg.session {
			a.speech = nil
		}
		if err := msg.session.Err(); err != nil && !errors.Is(err, context.Canceled) {
			a.err = err
		}
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a.quit()
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	_, hasArticle := a.reader.Current()
	switch msg.String() {
	case "q":
		return a.quit()
	case "j", "down", "l", "right":
		a.reader.Next()
		return a, a.followSpeech()
	case "k", "up", "h", "left":
		a.reader.Previous()
		return a, a.followSpeech()
	case "s":
		if hasArticle {
			return a, a.saveCmd()
		}
	case "enter", "m":
		if hasArticle {
			return a, a.markReadCmd()
		}
	case " ", "a":
		return a, a.toggleSpeech()
	case "r":
		if !a.loading {
			a.loading = true
			return a, tea.Batch(a.refreshCmd(), a.spinner.Tick)
		}
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "?":
		a.mode = modeHelp
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		q := a.searchInput.Value()
		if q == "" {
			return a, nil
		}
		a.loading = true
		return a, tea.Batch(a.searchCmd(q), a.spinner.Tick)
	}
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

// toggleSpeech stops the active read-aloud session or starts one for the
// current article.
func (a *App) toggleSpeech() tea.Cmd {
	if a.player == nil {
		return nil
	}
	if a.speech != nil {
		a.player.Stop()
		a.speech = nil
		return nil
	}
	return a.speak()
}

// followSpeech moves an active read-aloud session to the new current article.
func (a *App) followSpeech() tea.Cmd {
	if a.speech == nil {
		return nil
	}
	return a.speak()
}

func (a *App) speak() tea.Cmd {
	cur, ok := a.reader.Current()
	if !ok {
		return nil
	}
	a.speech = a.player.Acquire(context.Background(), cur)
	return waitSpeech(a.speech)
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	if a.player != nil {
		a.player.Stop()
	}
	return a, tea.Quit
}

// Run starts the reader in the alternate screen and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
