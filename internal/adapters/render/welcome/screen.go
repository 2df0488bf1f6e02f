package welcome

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jkalmus/defifolio/internal/domain"
)

const getStartedNotice = "Portfolio tracking is coming soon."

type Connector interface {
	RequestConnection(ctx context.Context) (domain.Session, error)
	Disconnect(ctx context.Context) error
	State() domain.Connection
	Subscribe() (<-chan domain.Connection, func())
}

type RecordStore interface {
	AddRecord(ctx context.Context, now time.Time) (domain.Record, error)
	DeleteRecords(ctx context.Context, indices []int) ([]domain.Record, error)
	ListRecords(ctx context.Context) ([]domain.Record, error)
}

type Deps struct {
	Ctx       context.Context
	Connector Connector
	Records   RecordStore
	Now       func() time.Time
}

type connectionMsg struct {
	conn domain.Connection
}

type connectResultMsg struct {
	session domain.Session
	err     error
}

type disconnectResultMsg struct {
	err error
}

type recordsMsg struct {
	records []domain.Record
	notice  string
	err     error
}

// Screen is the interactive welcome screen.
type Screen struct {
	deps        Deps
	styles      styles
	updates     <-chan domain.Connection
	unsubscribe func()

	view  View
	width int
}

func NewScreen(deps Deps) Screen {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	updates, unsubscribe := deps.Connector.Subscribe()

	return Screen{
		deps:        deps,
		styles:      newStyles(),
		updates:     updates,
		unsubscribe: unsubscribe,
		view:        View{Connection: deps.Connector.State(), Selected: -1},
	}
}

// Close stops listening for connection changes.
func (m Screen) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Screen) Init() tea.Cmd {
	return tea.Batch(m.loadRecords(""), m.waitForConnection())
}

func (m Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case connectionMsg:
		m.view.Connection = msg.conn
		return m, m.waitForConnection()
	case connectResultMsg:
		m.view.Connection = m.deps.Connector.State()
		switch {
		case msg.err != nil:
			m.view.Notice = msg.err.Error()
		case msg.session.PairingURI != "":
			m.view.Notice = "Pair your wallet: " + msg.session.PairingURI
		default:
			m.view.Notice = ""
		}
		return m, nil
	case disconnectResultMsg:
		m.view.Connection = m.deps.Connector.State()
		if msg.err != nil {
			m.view.Notice = msg.err.Error()
		} else {
			m.view.Notice = "Wallet disconnected."
		}
		return m, nil
	case recordsMsg:
		if msg.err != nil {
			m.view.Notice = msg.err.Error()
			return m, nil
		}
		m.view.Records = msg.records
		m.view.Selected = clampSelection(m.view.Selected, len(msg.records))
		if msg.notice != "" {
			m.view.Notice = msg.notice
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m Screen) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "c":
		return m, m.connect()
	case "x":
		return m, m.disconnect()
	case "a":
		return m, m.addRecord()
	case "d":
		if m.view.Selected < 0 || m.view.Selected >= len(m.view.Records) {
			m.view.Notice = "Select a record to delete."
			return m, nil
		}
		return m, m.deleteRecord(m.view.Selected)
	case "up", "k":
		if m.view.Selected > 0 {
			m.view.Selected--
		}
		return m, nil
	case "down", "j":
		if m.view.Selected < len(m.view.Records)-1 {
			m.view.Selected++
		}
		return m, nil
	case "g":
		m.view.Notice = getStartedNotice
		return m, nil
	default:
		return m, nil
	}
}

func (m Screen) View() string {
	return renderView(m.view, RenderOptions{Width: m.width, Interactive: true}, m.styles)
}

func (m Screen) waitForConnection() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		conn, ok := <-updates
		if !ok {
			return nil
		}
		return connectionMsg{conn: conn}
	}
}

func (m Screen) connect() tea.Cmd {
	ctx, connector := m.deps.Ctx, m.deps.Connector
	return func() tea.Msg {
		session, err := connector.RequestConnection(ctx)
		return connectResultMsg{session: session, err: err}
	}
}

func (m Screen) disconnect() tea.Cmd {
	ctx, connector := m.deps.Ctx, m.deps.Connector
	return func() tea.Msg {
		return disconnectResultMsg{err: connector.Disconnect(ctx)}
	}
}

func (m Screen) loadRecords(notice string) tea.Cmd {
	ctx, store := m.deps.Ctx, m.deps.Records
	return func() tea.Msg {
		records, err := store.ListRecords(ctx)
		return recordsMsg{records: records, notice: notice, err: err}
	}
}

func (m Screen) addRecord() tea.Cmd {
	ctx, store, now := m.deps.Ctx, m.deps.Records, m.deps.Now
	return func() tea.Msg {
		record, err := store.AddRecord(ctx, now())
		if err != nil {
			return recordsMsg{err: err}
		}
		records, err := store.ListRecords(ctx)
		return recordsMsg{records: records, notice: fmt.Sprintf("Added record %s.", shortID(record.ID)), err: err}
	}
}

func (m Screen) deleteRecord(index int) tea.Cmd {
	ctx, store := m.deps.Ctx, m.deps.Records
	return func() tea.Msg {
		deleted, err := store.DeleteRecords(ctx, []int{index})
		if err != nil {
			return recordsMsg{err: err}
		}
		records, err := store.ListRecords(ctx)
		notice := ""
		if len(deleted) == 1 {
			notice = fmt.Sprintf("Deleted record %s.", shortID(deleted[0].ID))
		}
		return recordsMsg{records: records, notice: notice, err: err}
	}
}

func clampSelection(selected, size int) int {
	switch {
	case size == 0:
		return -1
	case selected < 0:
		return 0
	case selected >= size:
		return size - 1
	default:
		return selected
	}
}
