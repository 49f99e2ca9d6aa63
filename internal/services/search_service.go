package services

import (
	"context"
	"strings"

	"flight_sim/internal/models"
)

const maxSearchResults = 10

// SearchTrips runs a one-way or round-trip search with the optional fare and airline filters.
// Each direction is cut to the first 10 flights; TotalResults counts them before the cut.
func (fc *FlightCatalog) SearchTrips(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	outbound, err := fc.Search(ctx, req.Origin, req.Destination, req.DepartureDate, req.Passengers, req.SeatClass)
	if err != nil {
		return nil, err
	}
	outbound = filterFlights(outbound, req)

	var inbound []models.Flight
	if req.ReturnDate != "" {
		inbound, err = fc.Search(ctx, req.Destination, req.Origin, req.ReturnDate, req.Passengers, req.SeatClass)
		if err != nil {
			return nil, err
		}
		inbound = filterFlights(inbound, req)
	}

	resp := &models.SearchResponse{
		SearchID:        "SRCH-" + shortHex(8),
		TotalResults:    len(outbound) + len(inbound),
		OutboundFlights: truncate(outbound),
		ReturnFlights:   truncate(inbound),
		SearchCriteria:  req,
	}
	resp.SearchCriteria.Origin = strings.ToUpper(req.Origin)
	resp.SearchCriteria.Destination = strings.ToUpper(req.Destination)
	return resp, nil
}

func filterFlights(flights []models.Flight, req models.SearchRequest) []models.Flight {
	out := flights[:0]
	for _, f := range flights {
		if req.MaxPrice > 0 && f.Price.For(req.SeatClass) > req.MaxPrice {
			continue
		}
		if len(req.PreferredAirlines) > 0 && !matchesAirline(f, req.PreferredAirlines) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// matchesAirline accepts an airline name fragment or a flight number prefix such as "UA"
func matchesAirline(f models.Flight, preferred []string) bool {
	name := strings.ToLower(f.Airline)
	for _, p := range preferred {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(name, strings.ToLower(p)) || strings.HasPrefix(f.FlightNumber, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

func truncate(flights []models.Flight) []models.Flight {
	if flights == nil {
		return []models.Flight{}
	}
	if len(flights) > maxSearchResults {
		return flights[:maxSearchResults]
	}
	return flights
}
