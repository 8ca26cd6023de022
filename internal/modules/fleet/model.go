// README: Hubs and vehicle inventory.
package fleet

import "fleetrent/internal/types"

type Hub struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	City string   `json:"city"`
}

type Vehicle struct {
	ID            types.ID `json:"id"`
	VehicleTypeID types.ID `json:"vehicle_type_id"`
	Registration  string   `json:"registration"`
	HubID         types.ID `json:"hub_id"`
	Available     bool     `json:"available"`
	// Version is bumped on every availability change and used for compare-and-swap.
	Version int `json:"-"`
}
