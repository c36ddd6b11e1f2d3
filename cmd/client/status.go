// Package main – watch subcommand: live cluster status table rendered with
// bubbletea + lipgloss.
package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	kvgrpc "github.com/linearkv/linearkv/internal/transport/grpc/kv"
)

const watchRefreshInterval = 500 * time.Millisecond

type statusConn struct {
	addr   string
	client *kvgrpc.Client
}

type statusRow struct {
	addr       string
	nodeID     string
	isLeader   bool
	term       int64
	applied    int64
	pending    int64
	keys       int64
	stateBytes int64
	err        string
}

func (r statusRow) role() string {
	if r.isLeader {
		return "leader"
	}
	return "follower"
}

type watchTickMsg time.Time

type statusRowsMsg struct {
	rows []statusRow
	ts   time.Time
}

var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Background(lipgloss.Color("8"))
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleTS       = lipgloss.NewStyle().Faint(true)
	styleAddr     = lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("6"))
	styleLeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleFollower = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleTerm     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	styleMetric   = lipgloss.NewStyle().Faint(true)
	styleErrDot   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	styleOKDot    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleNoLeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	styleFooter   = lipgloss.NewStyle().Faint(true)
)

type watchModel struct {
	rows    []statusRow
	ts      time.Time
	conns   []statusConn
	timeout time.Duration
	width   int
	height  int
}

func newWatchModel(conns []statusConn, timeout time.Duration) watchModel {
	return watchModel{
		conns:   conns,
		timeout: timeout,
		width:   100,
		height:  30,
	}
}

func (m watchModel) Init() tea.Cmd {
	// One poll in flight at a time: the poll result schedules the next tick,
	// the tick fires the next poll.
	return m.pollCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case watchTickMsg:
		return m, m.pollCmd()

	case statusRowsMsg:
		m.rows = msg.rows
		m.ts = msg.ts
		return m, tea.Tick(watchRefreshInterval, func(t time.Time) tea.Msg { return watchTickMsg(t) })

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(styleTitle.Render("Cluster status"))
	b.WriteString("  ")
	b.WriteString(styleTS.Render(m.ts.Format(time.RFC3339)))
	b.WriteString("\n\n")

	addrWidth := len("ADDR")
	nodeWidth := len("NODE")
	for _, r := range m.rows {
		if len(r.addr) > addrWidth {
			addrWidth = len(r.addr)
		}
		if len(r.nodeID) > nodeWidth {
			nodeWidth = len(r.nodeID)
		}
	}

	header := fmt.Sprintf("%-2s %-*s %-*s %-8s %5s %8s %8s %8s %9s",
		"ST", addrWidth, "ADDR", nodeWidth, "NODE", "ROLE", "TERM", "APPLIED", "PENDING", "KEYS", "LOG")
	b.WriteString(styleHeader.Render(header))
	b.WriteString("\n")

	hasLeader := false
	for _, r := range m.rows {
		b.WriteString(renderStatusRow(r, addrWidth, nodeWidth))
		b.WriteString("\n")
		if r.err == "" && r.isLeader {
			hasLeader = true
		}
	}

	if len(m.rows) > 0 && !hasLeader {
		b.WriteString("\n")
		b.WriteString(styleNoLeader.Render("NO LEADER"))
		b.WriteString(styleTS.Render("  election in progress or cluster degraded"))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(styleFooter.Render("q to exit"))

	// Pad to terminal height so shrinking frames overwrite stale lines.
	out := b.String()
	if m.height > 0 {
		lines := strings.Split(out, "\n")
		for len(lines) < m.height {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}
	return out
}

func renderStatusRow(r statusRow, addrWidth, nodeWidth int) string {
	if r.err != "" {
		return styleErrDot.Render("●") + "  " +
			styleAddr.Render(fmt.Sprintf("%-*s", addrWidth, r.addr)) +
			" " + styleTS.Render(oneLine(r.err))
	}

	roleStyle := styleFollower
	if r.isLeader {
		roleStyle = styleLeader
	}

	return styleOKDot.Render("●") + "  " +
		styleAddr.Render(fmt.Sprintf("%-*s", addrWidth, r.addr)) +
		" " + fmt.Sprintf("%-*s", nodeWidth, r.nodeID) +
		" " + roleStyle.Render(fmt.Sprintf("%-8s", r.role())) +
		" " + styleTerm.Render(fmt.Sprintf("%5d", r.term)) +
		" " + styleMetric.Render(fmt.Sprintf("%8d", r.applied)) +
		" " + styleMetric.Render(fmt.Sprintf("%8d", r.pending)) +
		" " + styleMetric.Render(fmt.Sprintf("%8d", r.keys)) +
		" " + styleMetric.Render(fmt.Sprintf("%9s", formatBytes(r.stateBytes)))
}

func (m watchModel) pollCmd() tea.Cmd {
	conns := m.conns
	timeout := m.timeout
	return func() tea.Msg {
		rows, ts := pollStatusRows(context.Background(), conns, timeout)
		return statusRowsMsg{rows: rows, ts: ts}
	}
}

func cmdWatch(addrs []string, timeout time.Duration) error {
	if len(addrs) == 0 {
		return fmt.Errorf("no addresses provided")
	}
	conns, err := openStatusConns(addrs)
	if err != nil {
		return err
	}
	defer closeStatusConns(conns)

	p := tea.NewProgram(newWatchModel(conns, timeout), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func openStatusConns(addrs []string) ([]statusConn, error) {
	conns := make([]statusConn, 0, len(addrs))
	for _, addr := range addrs {
		client, err := kvgrpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeStatusConns(conns)
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		conns = append(conns, statusConn{addr: addr, client: client})
	}
	return conns, nil
}

func closeStatusConns(conns []statusConn) {
	for _, c := range conns {
		_ = c.client.Close()
	}
}

func pollStatusRows(ctx context.Context, conns []statusConn, timeout time.Duration) ([]statusRow, time.Time) {
	rows := make([]statusRow, len(conns))
	var wg sync.WaitGroup
	wg.Add(len(conns))

	for i, c := range conns {
		go func(i int, c statusConn) {
			defer wg.Done()

			row := statusRow{addr: c.addr}

			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			resp, err := c.client.Status(reqCtx)
			cancel()
			if err != nil {
				row.err = err.Error()
				rows[i] = row
				return
			}

			row.nodeID = resp.NodeId
			row.isLeader = resp.IsLeader
			row.term = resp.Term
			row.applied = resp.LastApplied
			row.pending = resp.PendingRequests
			row.keys = resp.Keys
			row.stateBytes = resp.StateBytes
			rows[i] = row
		}(i, c)
	}

	wg.Wait()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].nodeID == rows[j].nodeID {
			return rows[i].addr < rows[j].addr
		}
		if rows[i].nodeID == "" {
			return false
		}
		if rows[j].nodeID == "" {
			return true
		}
		return rows[i].nodeID < rows[j].nodeID
	})

	return rows, time.Now()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
