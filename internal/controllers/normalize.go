package controllers

import (
	"encoding/json"
	"sort"

	"github.com/yegors/flightdesk/internal/reference"
)

var positionPriority = map[string]int{
	PositionCenter: 0,
	PositionTower:  1,
	PositionGround: 2,
}

// NormalizeControllers maps upstream positions onto airports and frequencies.
// Centre controllers also cover every active minor airport in their FIR; those
// get an extra CTR entry each. activeAirports is the set of airports referenced
// by filed plans.
func NormalizeControllers(raw []RawController, activeAirports []string) []Controller {
	active := make(map[string]bool, len(activeAirports))
	for _, a := range activeAirports {
		active[a] = true
	}

	out := make([]Controller, 0, len(raw))
	centers := make(map[string]RawController) // FIR -> first online centre

	for _, rc := range raw {
		airport := reference.ResolveAirport(rc.Airport)
		position := rc.Position
		if position == "" {
			position = "ZZZ"
		}

		var positionName string
		if position == PositionCenter {
			fir := reference.FIRForAirport(airport)
			positionName = fir + "_" + PositionCenter
			if _, ok := centers[fir]; !ok && fir != reference.UnknownAirport {
				centers[fir] = rc
			}
		} else {
			positionName = airport + "_" + position
		}
		active[airport] = true

		out = append(out, Controller{
			Holder:       rc.Holder,
			Airport:      airport,
			Position:     position,
			Queue:        queueOrEmpty(rc.Queue),
			Frequency:    reference.Frequency(positionName),
			PositionName: positionName,
		})
	}

	airports := make([]string, 0, len(active))
	for a := range active {
		airports = append(airports, a)
	}
	sort.Strings(airports)

	for _, airport := range airports {
		if reference.MajorAirports[airport] {
			continue
		}
		fir := reference.FIRForAirport(airport)
		ctr, ok := centers[fir]
		if !ok {
			continue
		}
		positionName := fir + "_" + PositionCenter
		out = append(out, Controller{
			Holder:       ctr.Holder,
			Airport:      airport,
			Position:     PositionCenter,
			Queue:        queueOrEmpty(ctr.Queue),
			Frequency:    reference.Frequency(positionName),
			PositionName: positionName,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priority(out[i].Position), priority(out[j].Position)
		if pi != pj {
			return pi < pj
		}
		return out[i].Airport < out[j].Airport
	})
	return out
}

func priority(position string) int {
	if p, ok := positionPriority[position]; ok {
		return p
	}
	return 99
}

func queueOrEmpty(q json.RawMessage) json.RawMessage {
	if len(q) == 0 || string(q) == "null" {
		return json.RawMessage("[]")
	}
	return q
}

// IndexATIS keys ATIS entries by their airport. Entries without a string
// airport are dropped; a later entry for the same airport wins.
func IndexATIS(items []map[string]json.RawMessage) ATISMap {
	out := make(ATISMap, len(items))
	for _, item := range items {
		rawAirport, ok := item["airport"]
		if !ok {
			continue
		}
		var airport string
		if err := json.Unmarshal(rawAirport, &airport); err != nil || airport == "" {
			continue
		}
		entry, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out[airport] = entry
	}
	return out
}
