package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/crawler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Attach a live terminal dashboard to a crawl started with 'run'",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		m := newWatchModel(cfg.Server.Port)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("White"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inactiveText = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type watchModel struct {
	port     string
	progress progress.Model
	workers  []crawler.WorkerStats
	depth    queueDepth
	lastErr  error
	tick     int
}

type queueDepth struct {
	SlicesDone, SlicesTotal, ReposDone, ReposTotal int
}

func newWatchModel(port string) *watchModel {
	return &watchModel{
		port:     port,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

type statusPolledMsg struct {
	workers []crawler.WorkerStats
	depth   queueDepth
	err     error
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(pollStatusCmd(m.port), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return statusTickMsg{} })
}

type statusTickMsg struct{}

func pollStatusCmd(port string) tea.Cmd {
	return func() tea.Msg {
		url := fmt.Sprintf("http://localhost:%s/status", port)
		client := http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return statusPolledMsg{err: err}
		}
		defer resp.Body.Close()

		var payload struct {
			Workers     []crawler.WorkerStats `json:"workers"`
			SlicesDone  int                    `json:"slices_done"`
			SlicesTotal int                    `json:"slices_total"`
			ReposDone   int                    `json:"repos_done"`
			ReposTotal  int                    `json:"repos_total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return statusPolledMsg{err: err}
		}
		return statusPolledMsg{
			workers: payload.Workers,
			depth: queueDepth{
				SlicesDone:  payload.SlicesDone,
				SlicesTotal: payload.SlicesTotal,
				ReposDone:   payload.ReposDone,
				ReposTotal:  payload.ReposTotal,
			},
		}
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}

	case statusTickMsg:
		m.tick++
		return m, tea.Batch(pollStatusCmd(m.port), tickCmd())

	case statusPolledMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			sort.Slice(msg.workers, func(i, j int) bool { return msg.workers[i].Name < msg.workers[j].Name })
			m.workers = msg.workers
			m.depth = msg.depth
		}
		return m, nil
	}
	return m, nil
}

func (m *watchModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("countpkg — live crawl status") + "\n\n")

	if m.lastErr != nil {
		fmt.Fprintf(&b, "%s\n\n", errStyle.Render("cannot reach crawler API: "+m.lastErr.Error()))
	}

	if len(m.workers) == 0 {
		b.WriteString(inactiveText.Render("no workers reporting yet — is 'crawler run' running?") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n",
		inactiveText.Render(fmt.Sprintf("pool: slices %d/%d, repos %d/%d",
			m.depth.SlicesDone, m.depth.SlicesTotal, m.depth.ReposDone, m.depth.ReposTotal)))
	b.WriteString("\n")

	for _, w := range m.workers {
		sliceFrac := ratio(w.SlicesDone, w.SlicesTotal)
		repoFrac := ratio(w.ReposDone, w.ReposTotal)

		fmt.Fprintf(&b, "%s\n", nameStyle.Render(w.Name))
		fmt.Fprintf(&b, "  slices %d/%d %s\n", w.SlicesDone, w.SlicesTotal, m.progress.ViewAs(sliceFrac))
		fmt.Fprintf(&b, "  repos  %d/%d %s\n\n", w.ReposDone, w.ReposTotal, m.progress.ViewAs(repoFrac))
	}

	b.WriteString(inactiveText.Render("ctrl+c to exit"))
	return b.String()
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(done) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
