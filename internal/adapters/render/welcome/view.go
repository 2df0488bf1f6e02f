package welcome

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jkalmus/defifolio/internal/domain"
)

const (
	logoGlyph      = "◢◤ DeFifolio ◥◣"
	titleText      = "Welcome to DeFifolio"
	subtitleText   = "Track your DeFi portfolio with\nreal-time analytics"
	getStartedText = "Get Started"
	timestampShape = "2006-01-02 15:04:05"
	helpText       = "c connect · x disconnect · a add · d delete · ↑/↓ select · g get started · q quit"
	minButtonWidth = 24
)

// View is everything the welcome screen shows.
type View struct {
	Connection domain.Connection
	Records    []domain.Record
	// Selected is the highlighted record, or -1.
	Selected int
	Notice   string
}

type RenderOptions struct {
	Width       int
	Interactive bool
}

func renderView(v View, opts RenderOptions, s styles) string {
	buttonWidth := minButtonWidth
	if opts.Width > 0 && opts.Width/2 > buttonWidth {
		buttonWidth = opts.Width / 2
	}

	header := lipgloss.JoinVertical(lipgloss.Center,
		s.logo.Render(logoGlyph),
		"",
		s.title.Render(titleText),
		s.subtitle.Render(subtitleText),
	)

	lines := []string{
		header,
		s.section.Render(renderConnectButton(v.Connection, buttonWidth, s)),
	}
	if detail := connectionDetail(v.Connection, s); detail != "" {
		lines = append(lines, detail)
	}

	lines = append(lines,
		s.section.Render(renderFeatures(domain.WelcomeFeatures(), s)),
		s.section.Render(s.button.Width(buttonWidth).Render(getStartedText)),
		s.section.Render(renderRecords(v.Records, v.Selected, opts.Interactive, s)),
	)

	if v.Notice != "" {
		lines = append(lines, s.section.Render(s.notice.Render(v.Notice)))
	}
	if opts.Interactive {
		lines = append(lines, s.section.Render(s.help.Render(helpText)))
	}

	frame := s.frame
	if opts.Width > 4 {
		frame = frame.Width(opts.Width - 2)
	}

	return frame.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func renderConnectButton(conn domain.Connection, width int, s styles) string {
	style := s.button
	switch conn.State {
	case domain.ConnectionConnected:
		style = s.buttonActive
	case domain.ConnectionFailed:
		style = s.buttonFailed
	}

	return style.Width(width).Render(conn.State.Label())
}

func connectionDetail(conn domain.Connection, s styles) string {
	switch conn.State {
	case domain.ConnectionConnecting:
		return s.session.Render("Waiting for wallet approval…")
	case domain.ConnectionFailed:
		if conn.Err != nil {
			return s.failure.Render(conn.Err.Error())
		}
		return s.failure.Render("Wallet connection failed")
	case domain.ConnectionConnected:
		if conn.Session == nil {
			return ""
		}
		detail := "Wallet: " + conn.Session.String()
		if len(conn.Session.Accounts) > 0 {
			detail += " · " + strings.Join(conn.Session.Accounts, ", ")
		}
		return s.session.Render(detail)
	default:
		return ""
	}
}

func renderFeatures(features []domain.Feature, s styles) string {
	rows := make([]string, 0, len(features))
	for _, feature := range features {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			s.featureIcon.Render(feature.Icon),
			s.featureText.Render(feature.Text),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderRecords(records []domain.Record, selected int, interactive bool, s styles) string {
	title := s.title.Render(fmt.Sprintf("Records (%d)", len(records)))
	if len(records) == 0 {
		hint := "No records yet."
		if interactive {
			hint += " Press a to add one."
		}
		return lipgloss.JoinVertical(lipgloss.Left, title, s.empty.Render(hint))
	}

	rows := []string{title}
	for i, record := range records {
		line := fmt.Sprintf("%2d  %s  %s", i, record.Timestamp.Format(timestampShape), shortID(record.ID))
		if interactive && i == selected {
			rows = append(rows, s.selected.Render("> "+line))
			continue
		}
		rows = append(rows, s.record.Render("  "+line))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func shortID(id domain.RecordID) string {
	raw := string(id)
	if len(raw) > 8 {
		return raw[:8]
	}
	return raw
}
