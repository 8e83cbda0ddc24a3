package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

var (
	topOpts = workload{
		Workers:  4,
		Ops:      20_000,
		MaxSize:  64 << 10,
		Handoff:  0.25,
		KeepLive: 1024,
	}
	topIdle     bool
	topInterval time.Duration
)

func init() {
	cmd := newTopCmd()
	addWorkloadFlags(cmd, &topOpts)
	cmd.Flags().BoolVar(&topIdle, "idle", false, "Only watch, do not run a workload")
	cmd.Flags().DurationVar(&topInterval, "interval", 250*time.Millisecond, "Refresh interval")
	rootCmd.AddCommand(cmd)
}

func newTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Live allocator dashboard",
		Long: `The top command shows live allocator figures while a workload runs in
rounds: every round starts fresh threads, so finished threads keep merging
their statistics into the process totals shown here. Mapped memory is drawn
against the reserve limit, or against physical memory when there is none.

Keys: q, esc or ctrl+c to quit.

Example:
  ntmallocctl top
  ntmallocctl top -g 16 --max-size 1048576`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop()
		},
	}
}

type styles struct {
	title, label, value, muted, bad lipgloss.Style
	box                             lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		s := lipgloss.NewStyle()
		return styles{title: s, label: s, value: s, muted: s, bad: s, box: s}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("#00D7FF")).Width(22),
		value: lipgloss.NewStyle().Bold(true),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		bad:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4B4B")).Bold(true),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#383838")).
			Padding(0, 1),
	}
}

type tickMsg time.Time

type workloadDoneMsg struct {
	err error
}

type topModel struct {
	styles    styles
	bar       progress.Model
	limit     int64
	limitName string

	rounds *atomic.Int64
	cancel context.CancelFunc
	done   <-chan error

	reserved     int64
	peakReserved int64
	abandoned    int64
	stats        ntmalloc.Stats
	started      time.Time
	err          error
	finished     bool
}

func newTopModel(cancel context.CancelFunc, done <-chan error, rounds *atomic.Int64) topModel {
	limit := ntmalloc.DefaultOptions().ReserveLimit
	limitName := "reserve limit"
	if limit <= 0 {
		total, _, _ := getsysmem()
		limit = int64(total)
		limitName = "physical memory"
	}
	bar := progress.New(progress.WithDefaultGradient())
	if noColor {
		bar = progress.New(progress.WithoutPercentage(), progress.WithFillCharacters('#', '.'))
	}
	return topModel{
		styles:    newStyles(noColor),
		bar:       bar,
		limit:     limit,
		limitName: limitName,
		rounds:    rounds,
		cancel:    cancel,
		done:      done,
		started:   time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(topInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitWorkload(done <-chan error) tea.Cmd {
	return func() tea.Msg { return workloadDoneMsg{err: <-done} }
}

func (m topModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitWorkload(m.done))
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-8, 80))
	case tickMsg:
		m.sample()
		return m, tick()
	case workloadDoneMsg:
		m.finished = true
		m.err = msg.err
		m.sample()
	}
	return m, nil
}

func (m *topModel) sample() {
	m.reserved = ntmalloc.ReservedBytes()
	m.peakReserved = max(m.peakReserved, m.reserved)
	m.abandoned = ntmalloc.AbandonedSegments()
	m.stats = ntmalloc.ProcessStats()
}

func (m topModel) row(label, value string) string {
	return m.styles.label.Render(label) + m.styles.value.Render(value)
}

func (m topModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("ntmalloc top"))
	b.WriteString(m.styles.muted.Render(fmt.Sprintf("  up %s", time.Since(m.started).Round(time.Second))))
	b.WriteString("\n\n")

	st := m.stats
	rows := []string{
		m.row("mapped", humanize.IBytes(uint64(m.reserved))),
		m.row("mapped peak", humanize.IBytes(uint64(m.peakReserved))),
		m.row("live threads", humanize.Comma(st.Threads.Current)),
		m.row("finished threads", humanize.Comma(st.Threads.Freed)),
		m.row("awaiting reclaim", humanize.Comma(m.abandoned)+" segments"),
		m.row("segments (merged)", fmt.Sprintf("%s mapped, peak %s",
			humanize.Comma(st.Segments.Allocated), humanize.Comma(st.Segments.Peak))),
		m.row("pages (merged)", fmt.Sprintf("%s claimed, %s extensions",
			humanize.Comma(st.Pages.Allocated), humanize.Comma(st.PagesExtended.Allocated))),
		m.row("slow-path bytes", humanize.IBytes(uint64(max(st.Malloc.Allocated, 0)))),
		m.row("huge bytes", humanize.IBytes(uint64(max(st.Huge.Allocated, 0)))),
	}
	if m.rounds != nil {
		rows = append(rows, m.row("workload rounds", humanize.Comma(m.rounds.Load())))
	}
	b.WriteString(m.styles.box.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")

	if m.limit > 0 {
		pct := min(1, float64(m.reserved)/float64(m.limit))
		b.WriteString(m.bar.ViewAs(pct))
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("  of %s %s", humanize.IBytes(uint64(m.limit)), m.limitName)))
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(m.styles.bad.Render("workload failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.finished && m.rounds != nil:
		b.WriteString(m.styles.muted.Render("workload stopped"))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.muted.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

// runRounds repeats the workload with fresh threads until ctx ends.
func runRounds(ctx context.Context, w workload, rounds *atomic.Int64) error {
	for ctx.Err() == nil {
		w.Seed = uint64(rounds.Load()) + 1
		if _, err := w.run(ctx); err != nil {
			return err
		}
		rounds.Add(1)
	}
	return nil
}

func runTop() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var rounds *atomic.Int64
	if topIdle {
		close(done)
	} else {
		rounds = new(atomic.Int64)
		go func() { done <- runRounds(ctx, topOpts, rounds) }()
	}

	m := newTopModel(cancel, done, rounds)
	m.sample()
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(topModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
