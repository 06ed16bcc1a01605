package comanda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    DishState
		to      DishState
		wantErr error
	}{
		{"waiting to ready", DishWaiting, DishReady, nil},
		{"waiting to preparing", DishWaiting, DishPreparing, nil},
		{"preparing to ready", DishPreparing, DishReady, nil},
		{"ready again", DishReady, DishReady, ErrAlreadyInState},
		{"delivered counts as ready", DishDelivered, DishReady, ErrAlreadyInState},
		{"ready back to waiting", DishReady, DishWaiting, ErrIllegalTransition},
		{"delivered is observe only", DishReady, DishDelivered, ErrNoAuthority},
		{"unknown target", DishWaiting, DishState("cooked"), ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsBenign(t *testing.T) {
	assert.True(t, IsBenign(CanTransition(DishReady, DishReady)))
	assert.False(t, IsBenign(CanTransition(DishReady, DishWaiting)))
	assert.False(t, IsBenign(nil))
}

func TestCanRemove(t *testing.T) {
	assert.NoError(t, CanRemove(Dish{State: DishWaiting}))
	assert.NoError(t, CanRemove(Dish{State: DishPreparing}))
	assert.ErrorIs(t, CanRemove(Dish{State: DishReady}), ErrIllegalTransition)
	assert.ErrorIs(t, CanRemove(Dish{State: DishWaiting, Removed: true}), ErrDishRemoved)
}

func TestReadyForPickup(t *testing.T) {
	order := Order{Dishes: []Dish{
		{State: DishReady},
		{State: DishWaiting, Removed: true},
		{State: DishDelivered},
	}}
	assert.True(t, ReadyForPickup(order))
	assert.Equal(t, OrderReady, Aggregate(order))

	order.Dishes[0].State = DishPreparing
	assert.False(t, ReadyForPickup(order))
	assert.Equal(t, OrderWaiting, Aggregate(order))

	onlyRemoved := Order{Dishes: []Dish{{State: DishReady, Removed: true}}}
	assert.False(t, ReadyForPickup(onlyRemoved), "removed dishes never satisfy the condition")
}

func TestAggregate_RecordedStatusFurtherAlongWins(t *testing.T) {
	order := Order{Status: OrderDelivered, Dishes: []Dish{{State: DishReady}}}
	assert.Equal(t, OrderDelivered, Aggregate(order))

	all := Order{Dishes: []Dish{{State: DishDelivered}, {State: DishDelivered}}}
	assert.Equal(t, OrderDelivered, Aggregate(all))
}

func TestParseDishState(t *testing.T) {
	for raw, want := range map[string]DishState{
		"en_espera":   DishWaiting,
		" INGRESANTE": DishWaiting,
		"preparacion": DishPreparing,
		"recoger":     DishReady,
		"entregado":   DishDelivered,
	} {
		got, ok := ParseDishState(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseDishState("nostock")
	assert.False(t, ok)
	assert.Equal(t, "recoger", DishReady.Wire())
	assert.Equal(t, "Ready For Pickup", DishReady.Label())
}
