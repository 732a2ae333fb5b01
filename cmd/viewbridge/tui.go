package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	viewbridge "github.com/wippyai/view-bridge"
	"github.com/wippyai/view-bridge/view"
)

type model struct {
	ctx     context.Context
	err     error
	bridge  *viewbridge.Bridge
	r       *renderer
	editing *view.TextField
	title   string
	status  string
	input   textinput.Model
	focus   int
}

// invalidatedMsg reports queued refreshes.
type invalidatedMsg struct{}

func newModel(ctx context.Context, b *viewbridge.Bridge, source string) *model {
	if source == "" {
		source = "demo"
	}
	return &model{
		ctx:    ctx,
		bridge: b,
		r:      newRenderer(ctx, b.Session()),
		title:  source,
	}
}

func (m *model) Init() tea.Cmd {
	return m.wait
}

// wait blocks until the producer invalidates part of the tree. Flushing
// happens in Update, which owns the session.
func (m *model) wait() tea.Msg {
	<-m.bridge.Invalidated()
	return invalidatedMsg{}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.r.width = msg.Width

	case invalidatedMsg:
		n, err := m.bridge.Flush(m.ctx)
		m.r.reset()
		m.err = err
		m.status = fmt.Sprintf("refreshed %d view(s)", n)
		return m, m.wait

	case tea.KeyMsg:
		if m.editing != nil {
			return m, m.updateEditing(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k", "shift+tab":
			if m.focus > 0 {
				m.focus--
			}

		case "down", "j", "tab":
			if m.focus < len(m.r.items)-1 {
				m.focus++
			}

		case "enter", " ":
			m.activate()

		case "esc":
			m.err = nil
			m.status = ""
		}
	}
	return m, nil
}

func (m *model) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit

	case "enter":
		field := m.editing
		m.editing = nil
		if err := m.bridge.Session().WriteBinding(m.ctx, field.Value, m.input.Value()); err != nil {
			m.err = err
			return nil
		}
		m.r.reset()
		m.status = field.Label + " updated"
		return nil

	case "esc":
		m.editing = nil
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) activate() {
	if m.focus < 0 || m.focus >= len(m.r.items) {
		return
	}
	item := m.r.items[m.focus]
	if item.field != nil {
		ti := textinput.New()
		ti.Prompt = item.field.Label + ": "
		ti.Placeholder = item.field.Prompt
		ti.SetValue(m.r.value(item.field.Value))
		ti.Width = 40
		ti.Focus()
		m.input = ti
		m.editing = item.field
		return
	}
	if item.toggle != nil {
		if err := m.bridge.Session().WriteBoolBinding(m.ctx, item.toggle, !m.r.flag(item.toggle)); err != nil {
			m.err = err
			return
		}
		m.r.reset()
		m.err = nil
		m.status = ""
		return
	}
	if err := m.bridge.Session().Invoke(m.ctx, item.action); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = ""
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("View Bridge"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	b.WriteString(m.r.render(m.bridge.Root(), m.focus))
	b.WriteString("\n\n")

	if m.editing != nil {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	err := m.err
	if err == nil {
		err = m.r.err
	}
	switch {
	case err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.editing != nil {
		b.WriteString(helpStyle.Render("enter save • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter activate • q quit"))
	}
	return b.String()
}
