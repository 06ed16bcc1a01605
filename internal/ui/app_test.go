package ui

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/kitchen"
	"github.com/five82/pase/internal/prefs"
	"github.com/five82/pase/internal/report"
	"github.com/five82/pase/internal/store"
)

var testNow = time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)

type fakeKitchen struct {
	mu         sync.Mutex
	calls      []string
	err        error
	candidates []comanda.Order
}

func (f *fakeKitchen) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeKitchen) MarkReady(_ context.Context, orderID, dishKey string) error {
	return f.record("ready " + orderID + " " + dishKey)
}

func (f *fakeKitchen) FinalizeOrder(_ context.Context, orderID string) (kitchen.BatchResult, error) {
	return kitchen.BatchResult{}, f.record("finalize " + orderID)
}

func (f *fakeKitchen) FinalizeDishes(_ context.Context, orderID string, keys []string) (kitchen.BatchResult, error) {
	return kitchen.BatchResult{}, f.record("finalize-dishes " + orderID + " " + strings.Join(keys, ","))
}

func (f *fakeKitchen) StockOut(_ context.Context, orderID, dishKey, reason string) error {
	return f.record("stockout " + orderID + " " + dishKey + " " + reason)
}

func (f *fakeKitchen) UpdateNote(_ context.Context, orderID, note string) error {
	return f.record("note " + orderID + " " + note)
}

func (f *fakeKitchen) RevertCandidates(context.Context) ([]comanda.Order, error) {
	return f.candidates, f.record("candidates")
}

func (f *fakeKitchen) Revert(_ context.Context, o comanda.Order) error {
	return f.record("revert " + o.ID)
}

func testOrder(id string, number int, age time.Duration, names ...string) comanda.Order {
	o := comanda.Order{
		ID:        id,
		Number:    number,
		Table:     "M" + id,
		Status:    comanda.OrderWaiting,
		CreatedAt: testNow.Add(-age),
		UpdatedAt: testNow.Add(-age),
	}
	for i, n := range names {
		o.Dishes = append(o.Dishes, comanda.Dish{
			MenuItem: comanda.MenuItem{ID: id + "-" + string(rune('a'+i)), Name: n},
			State:    comanda.DishWaiting,
		})
	}
	o.AssignKeys()
	o.Align()
	return o
}

func newTestModel(t *testing.T, k Kitchen, p prefs.Prefs) Model {
	t.Helper()
	m := New(Options{
		Kitchen:   k,
		Prefs:     p,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Now:       func() time.Time { return testNow },
		Day:       func() string { return "2026-03-14" },
	})
	m.toasts.now = func() time.Time { return testNow }
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func sync1(orders ...comanda.Order) snapshotMsg {
	return snapshotMsg(store.Snapshot{Orders: orders, Version: 1, LastSync: testNow, Connection: store.Connected})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestNewOrdersRingAfterFirstSync(t *testing.T) {
	var bell bytes.Buffer
	p := prefs.Default()
	p.SoundEnabled = true
	m := newTestModel(t, &fakeKitchen{}, p)
	m.bell = &bell

	m, cmd := press(t, m, sync1(testOrder("a", 1, time.Minute, "Lomo")))
	if cmd != nil {
		t.Fatalf("first sync should not ring")
	}

	snap := sync1(testOrder("a", 1, time.Minute, "Lomo"), testOrder("b", 2, 0, "Causa"))
	snap.Version = 2
	m, cmd = press(t, m, snap)
	if cmd == nil {
		t.Fatalf("expected bell command for new order")
	}
	cmd()
	if bell.String() != "\a" {
		t.Fatalf("bell = %q, want \\a", bell.String())
	}
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Message, "#2") {
		t.Fatalf("notices = %+v, want one new order notice", m.notices)
	}
}

func TestSoundDisabledStaysQuiet(t *testing.T) {
	p := prefs.Default()
	p.SoundEnabled = false
	m := newTestModel(t, &fakeKitchen{}, p)
	m, _ = press(t, m, sync1())

	snap := sync1(testOrder("a", 1, 0, "Lomo"))
	snap.Version = 2
	_, cmd := press(t, m, snap)
	if cmd != nil {
		t.Fatalf("expected no bell with sound disabled")
	}
}

func TestStaleSnapshotIgnored(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())
	newer := sync1(testOrder("a", 1, 0, "Lomo"))
	newer.Version = 5
	m, _ = press(t, m, newer)
	m, _ = press(t, m, sync1())
	if m.view.Total != 1 {
		t.Fatalf("older snapshot replaced newer one: total %d", m.view.Total)
	}
}

func TestPagination(t *testing.T) {
	p := prefs.Default()
	p.Columns, p.Rows = 2, 1
	m := newTestModel(t, &fakeKitchen{}, p)
	m, _ = press(t, m, sync1(
		testOrder("a", 1, 3*time.Minute, "Lomo"),
		testOrder("b", 2, 2*time.Minute, "Causa"),
		testOrder("c", 3, time.Minute, "Ceviche"),
	))

	if m.view.PageCount != 2 || len(m.view.Cards) != 2 {
		t.Fatalf("pages=%d cards=%d, want 2 and 2", m.view.PageCount, len(m.view.Cards))
	}
	if m.selected != "a" {
		t.Fatalf("selected %q, want oldest order a", m.selected)
	}

	m, _ = press(t, m, runes("]"))
	if m.page != 1 || m.selected != "c" {
		t.Fatalf("page=%d selected=%q, want page 1 on c", m.page, m.selected)
	}

	m, _ = press(t, m, runes("]"))
	if m.page != 1 {
		t.Fatalf("page advanced past the last page: %d", m.page)
	}

	// Moving left from the first card of a page goes to the previous page.
	m, _ = press(t, m, runes("h"))
	if m.page != 0 || m.selected != "b" {
		t.Fatalf("page=%d selected=%q, want page 0 on b", m.page, m.selected)
	}
}

func TestSearchFiltersCards(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())
	m, _ = press(t, m, sync1(
		testOrder("a", 1, 2*time.Minute, "Lomo saltado"),
		testOrder("b", 2, time.Minute, "Ceviche", "Chicha"),
	))

	m, _ = press(t, m, runes("/"))
	if !m.searching {
		t.Fatalf("expected search mode")
	}
	for _, r := range "cev" {
		m, _ = press(t, m, runes(string(r)))
	}
	if m.view.Total != 1 || m.selected != "b" {
		t.Fatalf("total=%d selected=%q, want only b", m.view.Total, m.selected)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching || m.search.Value() != "cev" {
		t.Fatalf("enter should keep the filter and leave search mode")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.view.Total != 2 {
		t.Fatalf("esc should clear the filter, total=%d", m.view.Total)
	}
}

func TestMarkReadyDispatch(t *testing.T) {
	k := &fakeKitchen{}
	m := newTestModel(t, k, prefs.Default())
	o := testOrder("a", 1, time.Minute, "Lomo", "Causa")
	m, _ = press(t, m, sync1(o))

	m, _ = press(t, m, runes("j"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected an action command")
	}
	if !m.busy["a"] {
		t.Fatalf("order should be busy while the action runs")
	}

	msg := cmd()
	want := "ready a " + o.Dishes[1].Key
	if len(k.calls) != 1 || k.calls[0] != want {
		t.Fatalf("calls = %v, want [%s]", k.calls, want)
	}

	m, _ = press(t, m, msg)
	if m.busy["a"] {
		t.Fatalf("busy flag should clear after the action")
	}
}

func TestFinalizeCheckedDishes(t *testing.T) {
	k := &fakeKitchen{}
	m := newTestModel(t, k, prefs.Default())
	o := testOrder("a", 1, time.Minute, "Lomo", "Causa", "Chicha")
	m, _ = press(t, m, sync1(o))

	// Nothing checked yet: the board says so and calls nothing.
	m, cmd := press(t, m, runes("F"))
	if cmd != nil || len(k.calls) != 0 {
		t.Fatalf("finalize with no checks should not dispatch, calls = %v", k.calls)
	}
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Message, "no dishes checked") {
		t.Fatalf("notices = %+v", m.notices)
	}

	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	m, _ = press(t, m, space)
	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, space)
	m, _ = press(t, m, space) // uncheck Causa again
	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, space)
	if !m.checked["a"][o.Dishes[0].Key] || m.checked["a"][o.Dishes[1].Key] || !m.checked["a"][o.Dishes[2].Key] {
		t.Fatalf("checked = %v", m.checked)
	}
	if !strings.Contains(m.View(), "☑") {
		t.Fatalf("checked dishes should be marked on the card")
	}

	m, cmd = press(t, m, runes("F"))
	if cmd == nil || !m.busy["a"] {
		t.Fatalf("expected a finalize command with the order busy")
	}
	if len(m.checked) != 0 {
		t.Fatalf("checks should clear once dispatched, got %v", m.checked)
	}
	msg := cmd()
	want := "finalize-dishes a " + o.Dishes[0].Key + "," + o.Dishes[2].Key
	if len(k.calls) != 1 || k.calls[0] != want {
		t.Fatalf("calls = %v, want [%s]", k.calls, want)
	}
	m, _ = press(t, m, msg)
	if m.busy["a"] {
		t.Fatalf("busy flag should clear after the action")
	}
}

func TestCheckedDishesPrunedWhenOrderLeaves(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())
	m, _ = press(t, m, sync1(testOrder("a", 1, time.Minute, "Lomo")))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	if len(m.checked["a"]) != 1 {
		t.Fatalf("checked = %v", m.checked)
	}

	next := sync1(testOrder("b", 2, time.Minute, "Causa"))
	next.Version = 2
	m, _ = press(t, m, next)
	if len(m.checked) != 0 {
		t.Fatalf("checks on a departed order should be dropped, got %v", m.checked)
	}
}

func TestLocalErrorsBecomeToasts(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())

	m, _ = press(t, m, actionMsg{op: "mark ready", orderID: "a", err: kitchen.ErrBusy})
	if len(m.notices) != 1 || m.notices[0].Level != kitchen.LevelWarning {
		t.Fatalf("notices = %+v, want one warning", m.notices)
	}

	// Backend errors are announced by the service, not the board.
	m, _ = press(t, m, actionMsg{op: "mark ready", orderID: "a", err: context.DeadlineExceeded})
	if len(m.notices) != 1 {
		t.Fatalf("backend error should not add a toast, got %+v", m.notices)
	}
}

func TestStockOutModalSubmitsReason(t *testing.T) {
	k := &fakeKitchen{}
	m := newTestModel(t, k, prefs.Default())
	o := testOrder("a", 1, time.Minute, "Lomo")
	m, _ = press(t, m, sync1(o))

	m, _ = press(t, m, runes("x"))
	if m.modal == nil {
		t.Fatalf("expected stock-out modal")
	}
	for _, r := range "agotado" {
		m, _ = press(t, m, runes(string(r)))
	}
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.modal != nil || cmd == nil {
		t.Fatalf("enter should close the modal and submit")
	}
	cmd()
	want := "stockout a " + o.Dishes[0].Key + " agotado"
	if len(k.calls) != 1 || k.calls[0] != want {
		t.Fatalf("calls = %v, want [%s]", k.calls, want)
	}
}

func TestSettingsSavePrefs(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())

	p := m.prefs
	p.Columns = 3
	p.DarkMode = false
	m, cmd := press(t, m, prefsMsg(p))
	if m.prefs.Columns != 3 || m.theme.Dark {
		t.Fatalf("prefs not applied: columns=%d dark=%v", m.prefs.Columns, m.theme.Dark)
	}
	saved, ok := cmd().(prefsSavedMsg)
	if !ok || saved.err != nil {
		t.Fatalf("save failed: %+v", saved)
	}
	loaded, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if loaded.Columns != 3 || loaded.DarkMode {
		t.Fatalf("loaded prefs = %+v", loaded)
	}
}

func TestViewRendersCards(t *testing.T) {
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())
	m, _ = press(t, m, sync1(testOrder("a", 7, 20*time.Minute, "Lomo saltado")))

	out := m.View()
	for _, want := range []string{"#7", "Lomo saltado", "20:00", "LIVE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestLogsModalShowsStationLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pase.log")
	lines := `time="2026-03-14 12:00:00" level=info msg="pase starting" component=app
time="2026-03-14 12:00:05" level=warning msg="push connect failed" component=feed failures=1
`
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	m := newTestModel(t, &fakeKitchen{}, prefs.Default())
	m.logPath = path

	m, cmd := press(t, m, runes("L"))
	if m.modal == nil || cmd == nil {
		t.Fatalf("expected log viewer with a load command")
	}
	m, _ = press(t, m, cmd())
	out := m.View()
	for _, want := range []string{"Station log", "push connect failed", "[feed]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log viewer missing %q", want)
		}
	}

	// Space narrows to warnings and reloads.
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m, _ = press(t, m, cmd())
	out = m.View()
	if strings.Contains(out, "pase starting") || !strings.Contains(out, "(warnings)") {
		t.Fatalf("warnings filter not applied")
	}
}

func TestRevertModalRevertsPicked(t *testing.T) {
	k := &fakeKitchen{candidates: []comanda.Order{
		testOrder("x", 8, time.Hour, "Lomo"),
		testOrder("y", 9, 2*time.Hour, "Causa"),
		testOrder("z", 10, 3*time.Hour, "Ceviche"),
	}}
	m := newTestModel(t, k, prefs.Default())

	m, cmd := press(t, m, runes("r"))
	if m.modal == nil || cmd == nil {
		t.Fatalf("expected revert modal loading candidates")
	}
	m, _ = press(t, m, cmd())

	// Pick x and z, skipping y.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, runes("j"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.modal != nil || cmd == nil {
		t.Fatalf("enter should close the modal and revert")
	}

	done, ok := cmd().(revertedMsg)
	if !ok || done.count != 2 || done.err != nil {
		t.Fatalf("reverted = %+v", done)
	}
	want := []string{"candidates", "revert x", "revert z"}
	if strings.Join(k.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", k.calls, want)
	}

	m, _ = press(t, m, done)
	if len(m.notices) != 1 || !strings.Contains(m.notices[0].Message, "2 order") {
		t.Fatalf("notices = %+v", m.notices)
	}
}

type fakeReports struct {
	filters  []report.Filter
	exported []string
}

func (f *fakeReports) Generate(_ context.Context, flt report.Filter) (report.Report, error) {
	f.filters = append(f.filters, flt)
	return report.Report{Day: "2026-03-14", Filter: flt, Orders: 3}, nil
}

func (f *fakeReports) Export(r report.Report) (string, error) {
	path := "/tmp/reporte-" + r.Day + ".xlsx"
	f.exported = append(f.exported, path)
	return path, nil
}

func TestReportModalFiltersAndExports(t *testing.T) {
	r := &fakeReports{}
	m := New(Options{
		Kitchen:   &fakeKitchen{},
		Reports:   r,
		Prefs:     prefs.Default(),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Now:       func() time.Time { return testNow },
	})
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = press(t, m, runes("R"))
	if m.modal == nil {
		t.Fatalf("expected report modal")
	}
	m, _ = press(t, m, reportCmd(context.Background(), r, report.Filter{})())
	if len(r.filters) != 1 || r.filters[0] != (report.Filter{}) {
		t.Fatalf("initial load filters = %+v", r.filters)
	}

	for _, ch := range "ana" {
		m, _ = press(t, m, runes(string(ch)))
	}
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, cmd())
	if got := r.filters[len(r.filters)-1]; got.Waiter != "ana" {
		t.Fatalf("filter = %+v, want waiter ana", got)
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	if cmd == nil {
		t.Fatalf("expected export command")
	}
	m, _ = press(t, m, cmd())
	if len(r.exported) != 1 || !strings.Contains(m.View(), "saved /tmp/reporte-2026-03-14.xlsx") {
		t.Fatalf("export not reported: %v", r.exported)
	}
}
