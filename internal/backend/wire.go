package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// flexString accepts JSON strings and numbers. Table numbers arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// OrderPayload is the backend representation of a comanda.
type OrderPayload struct {
	ID             string           `json:"_id"`
	Number         int              `json:"comandaNumber"`
	Table          *TablePayload    `json:"mesas,omitempty"`
	Waiter         *WaiterPayload   `json:"mozos,omitempty"`
	Dishes         []DishPayload    `json:"platos"`
	Quantities     []int            `json:"cantidades"`
	Note           string           `json:"observaciones,omitempty"`
	Status         string           `json:"status,omitempty"`
	Active         *bool            `json:"IsActive,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	RemovalHistory []RemovalPayload `json:"historialEliminaciones,omitempty"`
}

// TablePayload is the populated table reference.
type TablePayload struct {
	ID     string     `json:"_id,omitempty"`
	Number flexString `json:"nummesa"`
}

// WaiterPayload is the populated waiter reference.
type WaiterPayload struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

// MenuItemPayload is the populated menu item ("plato").
type MenuItemPayload struct {
	ID       string          `json:"_id"`
	Name     string          `json:"nombre"`
	Price    decimal.Decimal `json:"precio"`
	Category string          `json:"categoria,omitempty"`
}

// DishPayload is one dish entry. Older backends flatten the menu item fields
// into the entry instead of nesting them under "plato", and some send "plato"
// as a bare id.
type DishPayload struct {
	MenuItem      MenuItemPayload      `json:"plato"`
	State         string               `json:"estado"`
	Removed       bool                 `json:"eliminado,omitempty"`
	RemovedReason string               `json:"motivoEliminacion,omitempty"`
	Times         map[string]time.Time `json:"tiempos,omitempty"`
}

func (d *DishPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Plato         json.RawMessage      `json:"plato"`
		PlatoID       string               `json:"platoId"`
		ID            string               `json:"_id"`
		Name          string               `json:"nombre"`
		Price         decimal.Decimal      `json:"precio"`
		Category      string               `json:"categoria"`
		State         string               `json:"estado"`
		Removed       bool                 `json:"eliminado"`
		RemovedReason string               `json:"motivoEliminacion"`
		Times         map[string]time.Time `json:"tiempos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DishPayload{
		State:         raw.State,
		Removed:       raw.Removed,
		RemovedReason: raw.RemovedReason,
		Times:         raw.Times,
	}
	plato := bytes.TrimSpace(raw.Plato)
	switch {
	case len(plato) > 0 && plato[0] == '{':
		if err := json.Unmarshal(plato, &d.MenuItem); err != nil {
			return err
		}
	case len(plato) > 0 && plato[0] == '"':
		if err := json.Unmarshal(plato, &d.MenuItem.ID); err != nil {
			return err
		}
	}
	if d.MenuItem.ID == "" {
		d.MenuItem.ID = firstNonEmpty(raw.PlatoID, raw.ID)
	}
	if strings.TrimSpace(d.MenuItem.Name) == "" {
		d.MenuItem.Name = raw.Name
	}
	if d.MenuItem.Price.IsZero() {
		d.MenuItem.Price = raw.Price
	}
	if d.MenuItem.Category == "" {
		d.MenuItem.Category = raw.Category
	}
	return nil
}

// RemovalPayload is one entry of the removal history.
type RemovalPayload struct {
	DishKey  string    `json:"claveLinea,omitempty"`
	PlatoID  string    `json:"platoId"`
	Name     string    `json:"nombre"`
	Quantity int       `json:"cantidad"`
	Reason   string    `json:"motivo"`
	Actor    string    `json:"usuario,omitempty"`
	At       time.Time `json:"fecha"`
}

// dishStateBody is sent to PUT /{id}/plato/{platoId}/estado.
type dishStateBody struct {
	State string `json:"nuevoEstado"`
}

// orderStatusBody is sent to PUT /{id}/status.
type orderStatusBody struct {
	Status string `json:"nuevoStatus"`
}

// errorBody is the error envelope the backend returns on 4xx/5xx.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func tableLabel(t *TablePayload) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(string(t.Number))
}
