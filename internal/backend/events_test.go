package backend

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pase/internal/comanda"
)

func TestDecodeEvent(t *testing.T) {
	created, err := DecodeEvent(EventOrderCreated, []byte(`{"comanda":{"_id":"c9","platos":[{"plato":{"_id":"p1","nombre":"Causa"},"estado":"ingresante"}]}}`))
	require.NoError(t, err)
	require.NotNil(t, created.Order, spew.Sdump(created))
	assert.Equal(t, "c9", created.OrderID)
	assert.Equal(t, comanda.DishWaiting, created.Order.Dishes[0].State)
	assert.Equal(t, []int{1}, created.Order.Quantities)

	updated, err := DecodeEvent(EventOrderUpdated, []byte(`{"comandaId":"c9"}`))
	require.NoError(t, err)
	assert.Nil(t, updated.Order, "update without comanda carries no order")

	dish, err := DecodeEvent(EventDishUpdated, []byte(`{"comandaId":"c9","platoId":"p1","nuevoEstado":"recoger"}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", dish.DishRef)
	assert.Equal(t, comanda.DishReady, dish.DishState)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	cases := []struct {
		kind EventKind
		data string
	}{
		{EventOrderCreated, `{}`},
		{EventOrderUpdated, `{"comanda":null}`},
		{EventDishUpdated, `{"comandaId":"c1","platoId":"p1","nuevoEstado":"nostock"}`},
		{EventOrderDeleted, `not json`},
		{EventKind("otro"), `{"comandaId":"c1"}`},
	}
	for _, tc := range cases {
		_, err := DecodeEvent(tc.kind, []byte(tc.data))
		assert.ErrorIs(t, err, ErrMalformedEvent, "%s %s", tc.kind, tc.data)
	}
}

func TestEncodeEventRoundTripsDishChange(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := EncodeEvent(Event{Kind: EventDishUpdated, OrderID: "c1", DishRef: "p1", DishState: comanda.DishReady, At: at})
	require.NoError(t, err)
	ev, err := DecodeEvent(EventDishUpdated, data)
	require.NoError(t, err)
	assert.Equal(t, comanda.DishReady, ev.DishState)
	assert.True(t, at.Equal(ev.At))
}

func TestNormalizeOrder_RemovalAndTimes(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := OrderPayload{
		ID:     "c1",
		Status: "recoger",
		Dishes: []DishPayload{{
			MenuItem: MenuItemPayload{ID: "p1", Name: "Arroz"},
			State:    "recoger",
			Removed:  true,
			Times:    map[string]time.Time{"recoger": at, "bogus": at},
		}},
		RemovalHistory: []RemovalPayload{{PlatoID: "p1", Name: "Arroz", Quantity: 1, Reason: "sin stock", At: at}},
	}
	o := NormalizeOrder(p)
	assert.Equal(t, comanda.OrderReady, o.Status)
	assert.True(t, o.Dishes[0].Removed)
	assert.Len(t, o.Dishes[0].StateChangedAt, 1)
	require.Len(t, o.RemovalHistory, 1)
	assert.Equal(t, "sin stock", o.RemovalHistory[0].Reason)

	back := EncodeOrder(o)
	assert.Equal(t, "recoger", back.Status)
	assert.Equal(t, "recoger", back.Dishes[0].State)
	assert.Contains(t, back.Dishes[0].Times, "recoger")
}
