package model

import "time"

type EquipmentStats struct {
	EquipmentID int64     `json:"equipmentId" db:"equipment_id"`
	Requested   int       `json:"requested" db:"requested"`
	Approved    int       `json:"approved" db:"approved"`
	Rejected    int       `json:"rejected" db:"rejected"`
	Issued      int       `json:"issued" db:"issued"`
	Returned    int       `json:"returned" db:"returned"`
	UnitsOut    int       `json:"unitsOut" db:"units_out"`
	LastEventAt time.Time `json:"lastEventAt" db:"last_event_at"`
}

type StatsInfo struct {
	Data []EquipmentStats `json:"data"`
}
