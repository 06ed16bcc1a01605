package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/board"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/kitchen"
	"github.com/five82/pase/internal/prefs"
	"github.com/five82/pase/internal/store"
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *store.Store
	Kitchen   Kitchen
	Reports   Reports
	Prefs     prefs.Prefs
	PrefsPath string
	// Toasts should be the Notifier the kitchen service reports to.
	Toasts *Toasts
	// Day returns the business day shown in the header.
	Day func() string
	Now func() time.Time
	// Bell receives the terminal bell on new orders.
	Bell io.Writer
	Log  logrus.FieldLogger
	// LogPath is the station log shown by the log viewer.
	LogPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *store.Store
	changes   <-chan struct{}
	kitchen   Kitchen
	reports   Reports
	toasts    *Toasts
	prefs     prefs.Prefs
	prefsPath string
	dayFn     func() string
	nowFn     func() time.Time
	bell      io.Writer
	log       logrus.FieldLogger
	logPath   string

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal

	// Data state
	snapshot store.Snapshot
	view     board.View
	notices  []kitchen.Notice
	known    map[string]bool
	seeded   bool
	busy     map[string]bool
	// checked holds the dish keys picked for a bulk finalize, per order.
	checked map[string]map[string]bool

	// Board state
	page      int
	selected  string
	dish      int
	search    textinput.Model
	searching bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	dayFn := opts.Day
	if dayFn == nil {
		dayFn = func() string { return nowFn().Format(time.DateOnly) }
	}
	toasts := opts.Toasts
	if toasts == nil {
		toasts = NewToasts()
	}
	bell := opts.Bell
	if bell == nil {
		bell = io.Discard
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	p := opts.Prefs.Normalize()
	var changes <-chan struct{}
	if opts.Store != nil {
		changes = opts.Store.Subscribe()
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "dish name"
	search.CharLimit = 60

	return Model{
		ctx:       ctx,
		store:     opts.Store,
		changes:   changes,
		kitchen:   opts.Kitchen,
		reports:   opts.Reports,
		toasts:    toasts,
		prefs:     p,
		prefsPath: prefsPath,
		dayFn:     dayFn,
		nowFn:     nowFn,
		bell:      bell,
		log:       log.WithField("component", "ui"),
		logPath:   opts.LogPath,
		keys:      DefaultKeyMap(),
		theme:     ThemeFor(p.Theme, p.DarkMode),
		known:     make(map[string]bool),
		busy:      make(map[string]bool),
		checked:   make(map[string]map[string]bool),
		search:    search,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		clockCmd(ClockInterval),
		pollCmd(m.prefs.PollInterval()),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store), watchStoreCmd(m.ctx, m.store, m.changes))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.rebuild()
		return m, nil

	case clockMsg:
		m.notices = m.toasts.Visible()
		m.rebuild()
		return m, clockCmd(ClockInterval)

	case pollMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, pollCmd(m.prefs.PollInterval()))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		return m, m.applySnapshot(store.Snapshot(msg))

	case changedMsg:
		cmd := m.applySnapshot(store.Snapshot(msg))
		return m, tea.Batch(cmd, watchStoreCmd(m.ctx, m.store, m.changes))

	case actionMsg:
		return m.handleAction(msg)

	case revertedMsg:
		if msg.count > 0 {
			m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelInfo, Message: fmt.Sprintf("%d order(s) sent back to the kitchen", msg.count)})
		}
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("revert failed")
			m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelError, Message: "revert: " + msg.err.Error()})
		}
		m.notices = m.toasts.Visible()
		return m, m.refreshCmd()

	case prefsMsg:
		m.applyPrefs(prefs.Prefs(msg))
		return m, savePrefsCmd(m.prefsPath, m.prefs)

	case prefsSavedMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("save preferences failed")
			m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelWarning, Message: "preferences not saved: " + msg.err.Error()})
			m.notices = m.toasts.Visible()
		}
		return m, nil
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGrid(m.width, m.gridHeight()))
	b.WriteString("\n")
	for _, line := range m.renderToasts() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.searching {
		b.WriteString(m.theme.Styles().Footer.Width(m.width).Render(m.search.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderCommandBar())
	return b.String()
}

func (m Model) gridHeight() int {
	h := m.height - 2 - len(m.notices)
	if m.searching {
		h--
	}
	return max(5, h)
}

// applySnapshot stores s, announces new orders, and rebuilds the view.
func (m *Model) applySnapshot(s store.Snapshot) tea.Cmd {
	if s.Version < m.snapshot.Version {
		return nil
	}
	m.snapshot = s

	var fresh []comanda.Order
	current := make(map[string]bool, len(s.Orders))
	for _, o := range s.Orders {
		current[o.ID] = true
		if !m.known[o.ID] && comanda.Aggregate(o) == comanda.OrderWaiting {
			fresh = append(fresh, o)
		}
	}
	m.known = current
	m.pruneChecked()

	var cmd tea.Cmd
	if m.seeded && len(fresh) > 0 {
		for _, o := range fresh {
			m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelInfo, OrderID: o.ID, Message: fmt.Sprintf("New order #%d %s", o.Number, o.Table)})
		}
		if m.prefs.SoundEnabled {
			cmd = bellCmd(m.bell)
		}
		m.notices = m.toasts.Visible()
	}
	// The first successful sync seeds the known set without ringing.
	if !s.LastSync.IsZero() {
		m.seeded = true
	}
	m.rebuild()
	return cmd
}

// rebuild derives the visible board and keeps the selection on it.
func (m *Model) rebuild() {
	m.view = board.Build(m.snapshot.Orders, board.Params{
		Now:         m.now(),
		Search:      m.search.Value(),
		YellowAfter: m.prefs.YellowAfter(),
		RedAfter:    m.prefs.RedAfter(),
		Columns:     m.prefs.Columns,
		Rows:        m.prefs.Rows,
		Page:        m.page,
	})
	m.page = m.view.Page

	if _, ok := m.selectedCard(); !ok {
		m.selected, m.dish = "", 0
		if len(m.view.Cards) > 0 {
			m.selectCard(0)
		}
		return
	}
	c, _ := m.selectedCard()
	if m.dish >= len(c.Order.Dishes) {
		m.dish = max(0, len(c.Order.Dishes)-1)
	}
}

func (m Model) selectedCard() (board.Card, bool) {
	for _, c := range m.view.Cards {
		if c.Order.ID == m.selected {
			return c, true
		}
	}
	return board.Card{}, false
}

func (m Model) cardIndex() int {
	for i, c := range m.view.Cards {
		if c.Order.ID == m.selected {
			return i
		}
	}
	return -1
}

// selectCard focuses card i and its first dish still in the kitchen.
func (m *Model) selectCard(i int) {
	if i < 0 || i >= len(m.view.Cards) {
		return
	}
	o := m.view.Cards[i].Order
	m.selected = o.ID
	m.dish = 0
	for j, d := range o.Dishes {
		if !d.Removed && (d.State == comanda.DishWaiting || d.State == comanda.DishPreparing) {
			m.dish = j
			return
		}
	}
}

func (m *Model) moveDish(delta int) {
	c, ok := m.selectedCard()
	if !ok {
		return
	}
	n := len(c.Order.Dishes)
	for j := m.dish + delta; j >= 0 && j < n; j += delta {
		if !c.Order.Dishes[j].Removed {
			m.dish = j
			return
		}
	}
}

func (m *Model) moveCard(delta int) {
	i := m.cardIndex() + delta
	switch {
	case i >= len(m.view.Cards) && m.page < m.view.PageCount-1:
		m.setPage(m.page + 1)
	case i < 0 && m.page > 0:
		m.setPage(m.page - 1)
		m.selectCard(len(m.view.Cards) - 1)
	default:
		m.selectCard(i)
	}
}

func (m *Model) setPage(page int) {
	m.page = board.ClampPage(page, m.view.PageCount)
	m.selected = ""
	m.rebuild()
}

func (m *Model) applyPrefs(p prefs.Prefs) {
	p = p.Normalize()
	m.prefs = p
	m.theme = ThemeFor(p.Theme, p.DarkMode)
	m.rebuild()
}

func (m Model) now() time.Time {
	return m.nowFn()
}

func (m Model) day() string {
	return m.dayFn()
}

func (m Model) refreshCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		p := m.prefs
		p.Theme = NextTheme(m.theme.Name, p.DarkMode)
		m.applyPrefs(p)
		return m, savePrefsCmd(m.prefsPath, m.prefs)
	case key.Matches(msg, m.keys.ToggleDark):
		p := m.prefs
		p.DarkMode = !p.DarkMode
		m.applyPrefs(p)
		return m, savePrefsCmd(m.prefsPath, m.prefs)
	case key.Matches(msg, m.keys.Escape):
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.page = 0
			m.rebuild()
		}

	case key.Matches(msg, m.keys.NextCard):
		m.moveCard(1)
	case key.Matches(msg, m.keys.PrevCard):
		m.moveCard(-1)
	case key.Matches(msg, m.keys.DishDown):
		m.moveDish(1)
	case key.Matches(msg, m.keys.DishUp):
		m.moveDish(-1)
	case key.Matches(msg, m.keys.NextPage):
		m.setPage(m.page + 1)
	case key.Matches(msg, m.keys.PrevPage):
		m.setPage(m.page - 1)

	case key.Matches(msg, m.keys.MarkReady):
		return m.startMarkReady()
	case key.Matches(msg, m.keys.Check):
		m.toggleChecked()
	case key.Matches(msg, m.keys.FinalizeChecked):
		return m.startFinalizeChecked()
	case key.Matches(msg, m.keys.Finalize):
		c, ok := m.selectedCard()
		if !ok || m.kitchen == nil {
			return m, nil
		}
		m.busy[c.Order.ID] = true
		return m, finalizeCmd(m.ctx, m.kitchen, c.Order.ID)
	case key.Matches(msg, m.keys.StockOut):
		return m.openStockOut()
	case key.Matches(msg, m.keys.Note):
		return m.openNote()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Revert):
		if m.kitchen == nil {
			return m, nil
		}
		modal, cmd := newRevertModal(m.ctx, m.kitchen, m.now())
		m.modal = modal
		return m, cmd
	case key.Matches(msg, m.keys.Config):
		m.modal = newSettingsModal(m.prefs)
	case key.Matches(msg, m.keys.Report):
		if m.reports == nil {
			return m, nil
		}
		modal, cmd := newReportModal(m.ctx, m.reports)
		m.modal = modal
		return m, cmd
	case key.Matches(msg, m.keys.Logs):
		if m.logPath == "" {
			return m, nil
		}
		modal, cmd := newLogsModal(m.logPath)
		m.modal = modal
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.search.SetValue("")
		m.search.Blur()
		m.searching = false
	case key.Matches(msg, m.keys.Confirm):
		m.search.Blur()
		m.searching = false
	default:
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() == before {
			return m, cmd
		}
		m.page = 0
		m.selected = ""
		m.rebuild()
		return m, cmd
	}
	m.page = 0
	m.rebuild()
	return m, nil
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd, closed := m.modal.Update(msg, m.keys)
	if closed {
		m.modal = nil
	} else {
		m.modal = next
	}
	return m, cmd
}

func (m Model) selectedDish() (comanda.Order, comanda.Dish, bool) {
	c, ok := m.selectedCard()
	if !ok || m.dish < 0 || m.dish >= len(c.Order.Dishes) {
		return comanda.Order{}, comanda.Dish{}, false
	}
	return c.Order, c.Order.Dishes[m.dish], true
}

func (m Model) startMarkReady() (tea.Model, tea.Cmd) {
	o, d, ok := m.selectedDish()
	if !ok || m.kitchen == nil {
		return m, nil
	}
	m.busy[o.ID] = true
	return m, markReadyCmd(m.ctx, m.kitchen, o.ID, d.Key)
}

// toggleChecked checks or unchecks the selected dish for a bulk finalize.
func (m *Model) toggleChecked() {
	o, d, ok := m.selectedDish()
	if !ok || d.Removed {
		return
	}
	set := m.checked[o.ID]
	if set == nil {
		set = make(map[string]bool)
		m.checked[o.ID] = set
	}
	if set[d.Key] {
		delete(set, d.Key)
	} else {
		set[d.Key] = true
	}
	if len(set) == 0 {
		delete(m.checked, o.ID)
	}
}

func (m Model) startFinalizeChecked() (tea.Model, tea.Cmd) {
	c, ok := m.selectedCard()
	if !ok || m.kitchen == nil {
		return m, nil
	}
	set := m.checked[c.Order.ID]
	var keys []string
	for _, d := range c.Order.Dishes {
		if set[d.Key] {
			keys = append(keys, d.Key)
		}
	}
	if len(keys) == 0 {
		m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelInfo, OrderID: c.Order.ID, Message: "no dishes checked"})
		m.notices = m.toasts.Visible()
		return m, nil
	}
	delete(m.checked, c.Order.ID)
	m.busy[c.Order.ID] = true
	return m, finalizeDishesCmd(m.ctx, m.kitchen, c.Order.ID, keys)
}

// pruneChecked drops checks on orders or dishes that left the board.
func (m *Model) pruneChecked() {
	orders := make(map[string]comanda.Order, len(m.snapshot.Orders))
	for _, o := range m.snapshot.Orders {
		orders[o.ID] = o
	}
	for id, set := range m.checked {
		o, ok := orders[id]
		if !ok {
			delete(m.checked, id)
			continue
		}
		live := make(map[string]bool, len(o.Dishes))
		for _, d := range o.Dishes {
			if !d.Removed {
				live[d.Key] = true
			}
		}
		for k := range set {
			if !live[k] {
				delete(set, k)
			}
		}
		if len(set) == 0 {
			delete(m.checked, id)
		}
	}
}

func (m Model) openStockOut() (tea.Model, tea.Cmd) {
	o, d, ok := m.selectedDish()
	if !ok || m.kitchen == nil {
		return m, nil
	}
	ctx, k := m.ctx, m.kitchen
	title := fmt.Sprintf("Out of stock: %s (#%d)", d.Name(), o.Number)
	m.modal = newInputModal(title, "The dish is removed from the order.", "", "reason (optional)",
		func(reason string) tea.Cmd {
			return stockOutCmd(ctx, k, o.ID, d.Key, strings.TrimSpace(reason))
		})
	return m, textinput.Blink
}

func (m Model) openNote() (tea.Model, tea.Cmd) {
	c, ok := m.selectedCard()
	if !ok || m.kitchen == nil {
		return m, nil
	}
	ctx, k, id := m.ctx, m.kitchen, c.Order.ID
	title := fmt.Sprintf("Note for #%d", c.Order.Number)
	m.modal = newInputModal(title, "", c.Order.Note, "no note",
		func(note string) tea.Cmd {
			return noteCmd(ctx, k, id, strings.TrimSpace(note))
		})
	return m, textinput.Blink
}

func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	delete(m.busy, msg.orderID)
	if msg.err != nil {
		m.log.WithError(msg.err).WithFields(logrus.Fields{"op": msg.op, "order": msg.orderID}).Debug("action failed")
		if localError(msg.err) {
			m.toasts.Notify(kitchen.Notice{Level: kitchen.LevelWarning, OrderID: msg.orderID, Message: msg.op + ": " + msg.err.Error()})
		}
	}
	m.notices = m.toasts.Visible()
	return m, m.refreshCmd()
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	popts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		popts = append(popts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, popts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
