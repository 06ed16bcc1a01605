package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/kitchen"
	"github.com/five82/pase/internal/prefs"
	"github.com/five82/pase/internal/report"
	"github.com/five82/pase/internal/store"
)

// Kitchen is the set of kitchen actions the board triggers.
type Kitchen interface {
	MarkReady(ctx context.Context, orderID, dishKey string) error
	FinalizeOrder(ctx context.Context, orderID string) (kitchen.BatchResult, error)
	FinalizeDishes(ctx context.Context, orderID string, keys []string) (kitchen.BatchResult, error)
	StockOut(ctx context.Context, orderID, dishKey, reason string) error
	UpdateNote(ctx context.Context, orderID, note string) error
	RevertCandidates(ctx context.Context) ([]comanda.Order, error)
	Revert(ctx context.Context, o comanda.Order) error
}

// Reports builds and exports the daily report.
type Reports interface {
	Generate(ctx context.Context, f report.Filter) (report.Report, error)
	Export(r report.Report) (string, error)
}

var (
	_ Kitchen = (*kitchen.Service)(nil)
	_ Reports = report.Source{}
)

// Messages

type clockMsg time.Time

type pollMsg time.Time

type snapshotMsg store.Snapshot

// changedMsg is a snapshot taken right after a store mutation.
type changedMsg store.Snapshot

type prefsSavedMsg struct{ err error }

// actionMsg reports a finished kitchen action.
type actionMsg struct {
	op      string
	orderID string
	batch   *kitchen.BatchResult
	err     error
}

type candidatesMsg struct {
	orders []comanda.Order
	err    error
}

type revertedMsg struct {
	count int
	err   error
}

type reportMsg struct {
	report report.Report
	err    error
}

type exportMsg struct {
	path string
	err  error
}

// Commands

func clockCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func fetchSnapshotCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(st.Snapshot())
	}
}

// watchStoreCmd waits for the next store mutation. The board re-arms it
// after every changedMsg, so at most one watcher is pending.
func watchStoreCmd(ctx context.Context, st *store.Store, changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg(st.Snapshot())
		case <-ctx.Done():
			return nil
		}
	}
}

func savePrefsCmd(path string, p prefs.Prefs) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

func bellCmd(w io.Writer) tea.Cmd {
	return func() tea.Msg {
		_, _ = io.WriteString(w, "\a")
		return nil
	}
}

func withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()
	return fn(ctx)
}

func markReadyCmd(ctx context.Context, k Kitchen, orderID, dishKey string) tea.Cmd {
	return func() tea.Msg {
		err := withTimeout(ctx, func(ctx context.Context) error {
			return k.MarkReady(ctx, orderID, dishKey)
		})
		return actionMsg{op: "mark ready", orderID: orderID, err: err}
	}
}

func finalizeCmd(ctx context.Context, k Kitchen, orderID string) tea.Cmd {
	return func() tea.Msg {
		var res kitchen.BatchResult
		err := withTimeout(ctx, func(ctx context.Context) error {
			var err error
			res, err = k.FinalizeOrder(ctx, orderID)
			return err
		})
		return actionMsg{op: "finalize", orderID: orderID, batch: &res, err: err}
	}
}

func finalizeDishesCmd(ctx context.Context, k Kitchen, orderID string, keys []string) tea.Cmd {
	return func() tea.Msg {
		var res kitchen.BatchResult
		err := withTimeout(ctx, func(ctx context.Context) error {
			var err error
			res, err = k.FinalizeDishes(ctx, orderID, keys)
			return err
		})
		return actionMsg{op: "finalize checked", orderID: orderID, batch: &res, err: err}
	}
}

func stockOutCmd(ctx context.Context, k Kitchen, orderID, dishKey, reason string) tea.Cmd {
	return func() tea.Msg {
		err := withTimeout(ctx, func(ctx context.Context) error {
			return k.StockOut(ctx, orderID, dishKey, reason)
		})
		return actionMsg{op: "stock out", orderID: orderID, err: err}
	}
}

func noteCmd(ctx context.Context, k Kitchen, orderID, note string) tea.Cmd {
	return func() tea.Msg {
		err := withTimeout(ctx, func(ctx context.Context) error {
			return k.UpdateNote(ctx, orderID, note)
		})
		return actionMsg{op: "note", orderID: orderID, err: err}
	}
}

func candidatesCmd(ctx context.Context, k Kitchen) tea.Cmd {
	return func() tea.Msg {
		var orders []comanda.Order
		err := withTimeout(ctx, func(ctx context.Context) error {
			var err error
			orders, err = k.RevertCandidates(ctx)
			return err
		})
		return candidatesMsg{orders: orders, err: err}
	}
}

func revertCmd(ctx context.Context, k Kitchen, orders []comanda.Order) tea.Cmd {
	return func() tea.Msg {
		var errs []error
		count := 0
		for _, o := range orders {
			err := withTimeout(ctx, func(ctx context.Context) error {
				return k.Revert(ctx, o)
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("#%d: %w", o.Number, err))
				continue
			}
			count++
		}
		return revertedMsg{count: count, err: errors.Join(errs...)}
	}
}

func reportCmd(ctx context.Context, r Reports, f report.Filter) tea.Cmd {
	return func() tea.Msg {
		var rep report.Report
		err := withTimeout(ctx, func(ctx context.Context) error {
			var err error
			rep, err = r.Generate(ctx, f)
			return err
		})
		return reportMsg{report: rep, err: err}
	}
}

func exportCmd(r Reports, rep report.Report) tea.Cmd {
	return func() tea.Msg {
		path, err := r.Export(rep)
		return exportMsg{path: path, err: err}
	}
}

// localError reports whether err was raised before reaching the backend.
// Backend failures are already announced by the kitchen service.
func localError(err error) bool {
	for _, target := range []error{
		kitchen.ErrBusy,
		kitchen.ErrUnknownOrder,
		kitchen.ErrUnknownDish,
		comanda.ErrIllegalTransition,
		comanda.ErrDishRemoved,
		comanda.ErrNoAuthority,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
