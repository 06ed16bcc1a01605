package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/five82/pase/internal/comanda"
)

var noon = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func dish(id, name string, price int64, state comanda.DishState) comanda.Dish {
	return comanda.Dish{
		MenuItem: comanda.MenuItem{ID: id, Name: name, Price: decimal.NewFromInt(price)},
		State:    state,
	}
}

func fixtureOrders() []comanda.Order {
	inactive := false
	delivered := comanda.Order{
		ID: "c1", Number: 1, Waiter: "Ana", Table: "4",
		CreatedAt: noon, UpdatedAt: noon.Add(20 * time.Minute),
		Status: comanda.OrderDelivered,
		Dishes: []comanda.Dish{
			dish("m1", "Lomo", 30, comanda.DishDelivered),
			dish("m2", "Chicha", 5, comanda.DishDelivered),
		},
		Quantities: []int{1, 2},
	}
	waiting := comanda.Order{
		ID: "c2", Number: 2, Waiter: "Luis", Table: "7",
		CreatedAt: noon, UpdatedAt: noon,
		Status: comanda.OrderWaiting,
		Dishes: []comanda.Dish{
			dish("m1", "Lomo", 30, comanda.DishWaiting),
			dish("m3", "Ceviche", 25, comanda.DishWaiting),
		},
		Quantities: []int{2, 1},
	}
	waiting.Dishes[1].Removed = true
	ready := comanda.Order{
		ID: "c3", Number: 3, Waiter: "ana", Table: "2",
		CreatedAt: noon, UpdatedAt: noon.Add(10 * time.Minute),
		Status: comanda.OrderWaiting,
		Dishes: []comanda.Dish{dish("m2", "Chicha", 5, comanda.DishReady)},
	}
	deleted := comanda.Order{
		ID: "c4", Number: 4, Waiter: "Ana", Active: &inactive,
		Dishes: []comanda.Dish{dish("m1", "Lomo", 30, comanda.DishWaiting)},
	}
	return []comanda.Order{delivered, waiting, ready, deleted}
}

func TestBuild(t *testing.T) {
	r := Build("2026-03-14", fixtureOrders(), Filter{}, noon)

	assert.Equal(t, 3, r.Orders)
	assert.Equal(t, 1, r.Waiting)
	assert.Equal(t, 1, r.Ready)
	assert.Equal(t, 1, r.Delivered)
	assert.Equal(t, 1, r.Removed)
	assert.True(t, r.Sales.Equal(decimal.NewFromInt(105)), r.Sales.String())
	assert.Equal(t, 20, r.AvgPrepMinutes())

	require.Len(t, r.ByWaiter, 3)
	assert.Equal(t, "Luis", r.ByWaiter[0].Waiter)
	assert.True(t, r.ByWaiter[0].Sales.Equal(decimal.NewFromInt(60)))

	require.Len(t, r.TopDishes, 2)
	assert.Equal(t, DishCount{Name: "Chicha", Quantity: 3, Sales: r.TopDishes[0].Sales}, r.TopDishes[0])
	assert.Equal(t, "Lomo", r.TopDishes[1].Name)
	assert.Equal(t, 3, r.TopDishes[1].Quantity)
}

func TestBuild_Filter(t *testing.T) {
	r := Build("2026-03-14", fixtureOrders(), Filter{Waiter: " ANA "}, noon)
	assert.Equal(t, 2, r.Orders)
	require.Len(t, r.ByWaiter, 2, "waiter names are grouped as written")

	r = Build("2026-03-14", fixtureOrders(), Filter{Table: "7"}, noon)
	assert.Equal(t, 1, r.Orders)
	assert.Zero(t, r.AvgPrep)
}

func TestBuild_TopDishesCapped(t *testing.T) {
	o := comanda.Order{ID: "c1", CreatedAt: noon}
	for i := 0; i < 15; i++ {
		o.Dishes = append(o.Dishes, dish(string(rune('a'+i)), string(rune('A'+i)), 1, comanda.DishWaiting))
	}
	r := Build("d", []comanda.Order{o}, Filter{}, noon)
	assert.Len(t, r.TopDishes, 10)
	assert.Equal(t, "A", r.TopDishes[0].Name)
}

func TestExportXLSX(t *testing.T) {
	r := Build("2026-03-14", fixtureOrders(), Filter{}, noon)
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, waiterSheet, dishSheet}, f.GetSheetList())
	v, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", v)

	rows, err := f.GetRows(dishSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Plato", "Cantidad", "Ventas"}, rows[0])
	assert.Equal(t, "Chicha", rows[1][0])
}

func TestExportFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := ExportFile(dir, Report{Day: "2026-03-14", Sales: decimal.Zero, Generated: noon})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reporte-2026-03-14.xlsx"), path)
	assert.FileExists(t, path)
}

type dayStub struct {
	day    string
	orders []comanda.Order
}

func (d *dayStub) FetchDay(_ context.Context, day string) ([]comanda.Order, error) {
	d.day = day
	return d.orders, nil
}

func TestSource_Generate(t *testing.T) {
	stub := &dayStub{orders: fixtureOrders()}
	src := Source{
		API: stub,
		Day: func() string { return "2026-03-14" },
		Now: func() time.Time { return noon },
		Dir: t.TempDir(),
	}
	r, err := src.Generate(context.Background(), Filter{Waiter: "Luis"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", stub.day)
	assert.Equal(t, 1, r.Orders)
	assert.Equal(t, noon, r.Generated)

	path, err := src.Export(r)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
