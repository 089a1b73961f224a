package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/eapache/queue"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/integrators"
	"github.com/san-kum/plkernel/internal/session"
	"github.com/san-kum/plkernel/internal/sim"
)

const (
	canvasWidth   = 40
	canvasHeight  = 16
	trailCapacity = 120
	frameInterval = time.Second / 30
)

type TickMsg time.Time

// Model animates one world. Each frame advances it by Batch steps of Dt.
type Model struct {
	sess    *session.Session
	cfg     sim.Config
	gravity float64

	world   dynamo.World
	ceiling float64
	trail   *queue.Queue
	canvas  *Canvas

	keys  keyMap
	help  help.Model
	theme Theme

	running bool
	landed  bool
	err     error
}

// NewModel opens a session on backend. The caller must Close the model.
func NewModel(backend session.Backend, cfg sim.Config, gravity float64, theme Theme) (Model, error) {
	sess, err := session.Open(backend, cfg.Y0, cfg.VY0)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		sess:    sess,
		cfg:     cfg,
		gravity: gravity,
		ceiling: apex(cfg.Y0, cfg.VY0, gravity),
		trail:   queue.New(),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		keys:    defaultKeyMap(),
		help:    help.New(),
		theme:   theme,
		running: true,
	}
	if err := m.load(); err != nil {
		sess.Close()
		return Model{}, err
	}
	return m, nil
}

func (m Model) Close() error { return m.sess.Close() }

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if !m.landed && m.err == nil {
				m.running = !m.running
			}
		case key.Matches(msg, m.keys.Reset):
			m.reset()
		case key.Matches(msg, m.keys.Theme):
			m.theme = NextTheme(m.theme.Name)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance steps the world by one frame and stops on landing or error.
func (m *Model) advance() {
	if err := m.sess.Step(m.cfg.Dt, m.cfg.Batch); err != nil {
		m.fail(err)
		return
	}
	if err := m.load(); err != nil {
		m.fail(err)
		return
	}
	if m.world.Y <= 0 {
		m.landed = true
		m.running = false
	}
}

func (m *Model) load() error {
	w, err := m.sess.State()
	if err != nil {
		return err
	}
	m.world = w
	m.trail.Add(w.Y)
	for m.trail.Length() > trailCapacity {
		m.trail.Remove()
	}
	return nil
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
}

func (m *Model) reset() {
	m.err = nil
	m.landed = false
	m.trail = queue.New()
	if err := m.sess.Reset(m.cfg.Y0, m.cfg.VY0); err != nil {
		m.fail(err)
		return
	}
	if err := m.load(); err != nil {
		m.fail(err)
		return
	}
	m.running = true
}

// heights returns the trail oldest first.
func (m Model) heights() []float64 {
	out := make([]float64, m.trail.Length())
	for i := range out {
		out[i] = m.trail.Get(i).(float64)
	}
	return out
}

func (m Model) energy() float64 {
	return integrators.SymplecticEuler{G: m.gravity}.Energy(m.world)
}

// row maps a height to a dot row, ground on the last row.
func (m Model) row(y float64) int {
	_, ch := m.canvas.PixelSize()
	floor := ch - 3
	r := floor - int(math.Round(y/m.ceiling*float64(floor)))
	return max(0, min(floor, r))
}

// draw plots the trail leftwards of the mass, one dot column per frame.
func (m Model) draw() {
	m.canvas.Clear()
	cw, ch := m.canvas.PixelSize()
	m.canvas.DrawLine(0, ch-1, cw-1, ch-1)

	x := cw / 2
	hs := m.heights()
	for i, y := range hs {
		tx := x - (len(hs) - 1 - i)
		m.canvas.Set(tx, m.row(y)+1)
	}
	m.canvas.Ball(x, m.row(m.world.Y))
}

func (m Model) status(st styles) string {
	switch {
	case m.err != nil:
		return st.failed.Render("ERROR") + "\n" + st.value.Render(m.err.Error())
	case m.landed:
		return st.landed.Render("LANDED")
	case !m.running:
		return st.paused.Render("PAUSED")
	default:
		return st.running.Render("RUNNING")
	}
}

func (m Model) View() string {
	st := newStyles(m.theme)
	m.draw()

	var s strings.Builder
	s.WriteString(st.header.Render("FREE FALL") + "\n")
	s.WriteString(m.status(st) + "\n\n")

	if hs := m.heights(); len(hs) > 1 {
		chart := asciigraph.Plot(hs,
			asciigraph.Height(5),
			asciigraph.Width(30),
			asciigraph.LowerBound(0),
			asciigraph.Caption("height (m)"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3fs", m.world.T))
	row("Height", fmt.Sprintf("%.3fm", m.world.Y))
	row("Velocity", fmt.Sprintf("%.3fm/s", m.world.VY))
	row("Energy", fmt.Sprintf("%.3fJ/kg", m.energy()))
	s.WriteString(st.label.Render("Altitude") + ProgressBar(m.world.Y/m.ceiling, 20, m.theme) + "\n")

	s.WriteString(st.help.Render(m.help.View(m.keys)))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.stats.Render(s.String()))
}

// apex is the highest point a world launched from (y0, vy0) reaches.
func apex(y0, vy0, g float64) float64 {
	top := y0
	if vy0 > 0 && g > 0 {
		top += vy0 * vy0 / (2 * g)
	}
	if top <= 0 {
		return 1
	}
	return top
}

// Run takes over the terminal until the user quits.
func Run(backend session.Backend, cfg sim.Config, gravity float64, theme Theme) error {
	m, err := NewModel(backend, cfg, gravity, theme)
	if err != nil {
		return err
	}

	final, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	if err := m.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
