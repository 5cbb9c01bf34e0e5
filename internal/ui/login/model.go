// Package login is the sign-in and registration form shown before the
// task list when no stored session is valid.
package login

import (
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/theme"
)

// minPasswordLength mirrors the server's registration rule.
const minPasswordLength = 6

// SubmitMsg carries the entered credentials. Name is set only when
// registering.
type SubmitMsg struct {
	Register bool
	Email    string
	Password string
	Name     string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

type formBindings struct {
	mode     string
	email    string
	password string
	name     string
}

const (
	modeLogin    = "login"
	modeRegister = "register"
)

// Model is the login form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	server string
	errMsg string
	width  int
	height int
}

// New creates a login form for the server at serverURL.
func New(serverURL string, width, height int) Model {
	return Model{
		fb:     &formBindings{mode: modeLogin},
		server: serverURL,
		width:  width,
		height: height,
	}
}

// Start (re)builds the form, keeping the last email. errMsg, if set,
// is shown above the form, e.g. after a rejected password.
func (m *Model) Start(errMsg string) tea.Cmd {
	m.errMsg = errMsg
	m.fb.password = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", modeLogin),
					huh.NewOption("Create account", modeRegister),
				).
				Value(&m.fb.mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(m.validatePassword),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return m.fb.mode != modeRegister }),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		out := SubmitMsg{
			Register: m.fb.mode == modeRegister,
			Email:    strings.TrimSpace(m.fb.email),
			Password: m.fb.password,
		}
		if out.Register {
			out.Name = strings.TrimSpace(m.fb.name)
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("timetrack")
	server := theme.DimmedStyle.Render(m.server)

	parts := []string{title, server, ""}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg), "")
	}
	if m.form != nil {
		parts = append(parts, m.form.View())
	} else {
		parts = append(parts, theme.DimmedStyle.Render("Signing in..."))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func (m *Model) validatePassword(s string) error {
	if s == "" {
		return fmt.Errorf("password is required")
	}
	if m.fb.mode == modeRegister && len(s) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
