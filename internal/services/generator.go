package services

import (
	"fmt"
	"math/rand"
	"time"

	"flight_sim/internal/models"
	"flight_sim/internal/reference"
)

const (
	minFlightsPerRoute = 3
	maxFlightsPerRoute = 5
	reverseLayover     = 2 * time.Hour
)

// FlightGenerator synthesizes a rolling window of scheduled flights
type FlightGenerator struct {
	ref *reference.Data
	rng *rand.Rand
}

// NewFlightGenerator creates a generator. The random source makes runs reproducible in tests.
func NewFlightGenerator(ref *reference.Data, rng *rand.Rand) *FlightGenerator {
	return &FlightGenerator{ref: ref, rng: rng}
}

// Generate creates flights for every route on each of the days starting at start.
// Each outbound flight has a reverse flight departing two hours after it lands.
func (g *FlightGenerator) Generate(start time.Time, days int) []models.Flight {
	var flights []models.Flight

	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		dateKey := date.Format("20060102")
		used := make(map[string]bool)

		for _, route := range g.ref.Routes {
			count := minFlightsPerRoute + g.rng.Intn(maxFlightsPerRoute-minFlightsPerRoute+1)
			duration := g.ref.RouteDuration(route.Origin, route.Destination)

			for i := 0; i < count; i++ {
				airline := g.ref.Airlines[g.rng.Intn(len(g.ref.Airlines))]
				flightNumber := g.flightNumber(airline.Code, dateKey, i, used)

				hour := 6 + g.rng.Intn(17)
				minute := 15 * g.rng.Intn(4)
				departure := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
				arrival := departure.Add(duration)
				aircraft := g.ref.Aircraft[g.rng.Intn(len(g.ref.Aircraft))]

				outbound := g.newFlight(airline, flightNumber, dateKey, i, route.Origin, route.Destination, departure, arrival, aircraft)
				flights = append(flights, outbound)

				reverseDeparture := arrival.Add(reverseLayover)
				reverse := g.newFlight(airline, flightNumber+"R", dateKey, i, route.Destination, route.Origin,
					reverseDeparture, reverseDeparture.Add(duration), aircraft)
				flights = append(flights, reverse)
			}
		}
	}

	return flights
}

// flightNumber draws "<code><100..999>" until the outbound and reverse ids are free for the day
func (g *FlightGenerator) flightNumber(code, dateKey string, index int, used map[string]bool) string {
	for {
		number := fmt.Sprintf("%s%d", code, 100+g.rng.Intn(900))
		id := flightID(number, dateKey, index)
		if !used[id] {
			used[id] = true
			used[flightID(number+"R", dateKey, index)] = true
			return number
		}
	}
}

func flightID(flightNumber, dateKey string, index int) string {
	return fmt.Sprintf("%s-%s-%d", flightNumber, dateKey, index)
}

func (g *FlightGenerator) newFlight(airline models.Airline, flightNumber, dateKey string, index int,
	origin, destination string, departure, arrival time.Time, aircraft string) models.Flight {
	return models.Flight{
		FlightID:       flightID(flightNumber, dateKey, index),
		Airline:        airline.Name,
		FlightNumber:   flightNumber,
		Origin:         origin,
		Destination:    destination,
		Departure:      departure,
		Arrival:        arrival,
		Duration:       models.FormatDuration(arrival.Sub(departure)),
		Aircraft:       aircraft,
		Price:          g.prices(),
		AvailableSeats: g.seats(),
		Status:         models.FlightStatusScheduled,
		Gate:           fmt.Sprintf("%c%d", 'A'+rune(g.rng.Intn(4)), 1+g.rng.Intn(50)),
		Terminal:       fmt.Sprintf("%d", 1+g.rng.Intn(4)),
	}
}

func (g *FlightGenerator) prices() models.Price {
	base := float64(150 + g.rng.Intn(651))
	return models.Price{
		Economy:        base,
		PremiumEconomy: base * 1.5,
		Business:       base * 3,
		First:          base * 5,
		Currency:       "USD",
	}
}

func (g *FlightGenerator) seats() models.AvailableSeats {
	return models.AvailableSeats{
		Economy:        g.rng.Intn(151),
		PremiumEconomy: g.rng.Intn(31),
		Business:       g.rng.Intn(21),
		First:          g.rng.Intn(9),
	}
}
