package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"flight_sim/internal/logger"
	"flight_sim/internal/models"
	"flight_sim/internal/reference"
	"flight_sim/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	workers     int
	duration    time.Duration
	seed        int64
	failureRate float64
	days        int
}

type TestResult struct {
	TestName string
	Success  bool
	Error    string
	Duration time.Duration
}

type ValidationResult struct {
	TotalTests  int
	PassedTests int
	FailedTests int
	Results     []TestResult
}

func (v *ValidationResult) add(r TestResult) {
	v.TotalTests++
	if r.Success {
		v.PassedTests++
	} else {
		v.FailedTests++
	}
	v.Results = append(v.Results, r)
}

// StressTest drives the booking services in-process from concurrent workers
type StressTest struct {
	opts     options
	ref      *reference.Data
	log      *zap.SugaredLogger
	seedMu   sync.Mutex
	seedNext int64
}

func (st *StressTest) rng() *rand.Rand {
	st.seedMu.Lock()
	defer st.seedMu.Unlock()
	st.seedNext++
	return rand.New(rand.NewSource(st.seedNext))
}

type world struct {
	catalog  *services.FlightCatalog
	payments *services.PaymentService
	ledger   *services.BookingLedger
}

func (st *StressTest) newWorld(failureRate float64) *world {
	flights := services.NewFlightGenerator(st.ref, st.rng()).Generate(time.Now().UTC().Truncate(24*time.Hour), st.opts.days)
	catalog := services.NewFlightCatalog(st.ref, flights, services.CatalogOptions{Rand: st.rng()})
	payments := services.NewPaymentService(failureRate, st.rng(), nil, nil)
	ledger := services.NewBookingLedger(catalog, services.LedgerOptions{Payments: payments, Reconcile: true})
	return &world{catalog: catalog, payments: payments, ledger: ledger}
}

// bookable returns the flights with economy seats left
func (w *world) bookable() []models.Flight {
	var out []models.Flight
	for _, f := range w.catalog.All() {
		if f.AvailableSeats.Economy > 0 {
			out = append(out, f)
		}
	}
	return out
}

func travellers(worker, n int) []models.PassengerInfo {
	out := make([]models.PassengerInfo, n)
	for i := range out {
		out[i] = models.PassengerInfo{
			FirstName: fmt.Sprintf("Worker%d", worker),
			LastName:  fmt.Sprintf("Pax%d", i+1),
			Email:     fmt.Sprintf("worker%d.pax%d@example.com", worker, i+1),
			Phone:     "+15550100",
		}
	}
	return out
}

// runSeatContentionTest books one flight from every worker until it sells out and
// checks that sold plus remaining seats equals the starting inventory
func (st *StressTest) runSeatContentionTest(ctx context.Context) TestResult {
	st.log.Infof("Starting seat contention test with %d concurrent workers", st.opts.workers)
	start := time.Now()
	w := st.newWorld(0)

	all := w.bookable()
	if len(all) == 0 {
		return TestResult{TestName: "Seat Contention", Error: "no bookable flights generated"}
	}
	target := all[0]
	initial := target.AvailableSeats.Economy

	var sold, rejected, unexpected int64
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < st.opts.workers; i++ {
		worker := i
		rng := st.rng()
		g.Go(func() error {
			for ctx.Err() == nil {
				n := rng.Intn(3) + 1
				_, err := w.ledger.Create(ctx, target.FlightID, travellers(worker, n), models.SeatClassEconomy, "tok_stress", "")
				switch {
				case err == nil:
					atomic.AddInt64(&sold, int64(n))
				case models.IsKind(err, models.KindInsufficientInventory):
					atomic.AddInt64(&rejected, 1)
					f, getErr := w.catalog.Get(target.FlightID)
					if getErr != nil {
						return getErr
					}
					if f.AvailableSeats.Economy == 0 {
						return nil
					}
				default:
					atomic.AddInt64(&unexpected, 1)
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	result := TestResult{TestName: "Seat Contention", Duration: time.Since(start)}
	f, getErr := w.catalog.Get(target.FlightID)
	switch {
	case err != nil:
		result.Error = fmt.Sprintf("worker failed: %v", err)
	case getErr != nil:
		result.Error = getErr.Error()
	case f.AvailableSeats.Economy < 0:
		result.Error = fmt.Sprintf("economy seats went negative: %d", f.AvailableSeats.Economy)
	case int(sold)+f.AvailableSeats.Economy != initial:
		result.Error = fmt.Sprintf("sold %d + remaining %d != initial %d", sold, f.AvailableSeats.Economy, initial)
	default:
		result.Success = true
	}

	st.log.Infof("Seat contention test completed:")
	st.log.Infof("  Seats sold: %d of %d", sold, initial)
	st.log.Infof("  Rejected for inventory: %d", rejected)
	st.log.Infof("  Unexpected errors: %d", unexpected)
	return result
}

// runSearchTest hammers search with the routes and dates of generated flights
func (st *StressTest) runSearchTest(ctx context.Context) TestResult {
	st.log.Infof("Starting flight search test with %d concurrent workers for %v", st.opts.workers, st.opts.duration)
	start := time.Now()
	w := st.newWorld(0)
	flights := w.bookable()
	if len(flights) == 0 {
		return TestResult{TestName: "Flight Search", Error: "no bookable flights generated"}
	}

	ctx, cancel := context.WithTimeout(ctx, st.opts.duration)
	defer cancel()

	var total, empty int64
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < st.opts.workers; i++ {
		rng := st.rng()
		g.Go(func() error {
			for ctx.Err() == nil {
				f := flights[rng.Intn(len(flights))]
				resp, err := w.catalog.SearchTrips(ctx, models.SearchRequest{
					Origin:        f.Origin,
					Destination:   f.Destination,
					DepartureDate: f.DepartureDate(),
					Passengers:    1,
					SeatClass:     models.SeatClassEconomy,
				})
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				atomic.AddInt64(&total, 1)
				if resp.TotalResults == 0 {
					atomic.AddInt64(&empty, 1)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	result := TestResult{TestName: "Flight Search", Duration: time.Since(start)}
	switch {
	case err != nil:
		result.Error = fmt.Sprintf("search failed: %v", err)
	case empty > 0:
		result.Error = fmt.Sprintf("%d searches for an existing flight returned nothing", empty)
	default:
		result.Success = true
	}

	st.log.Infof("Flight search test completed:")
	st.log.Infof("  Total searches: %d", total)
	st.log.Infof("  Throughput: %.0f/s", float64(total)/time.Since(start).Seconds())
	return result
}

// runPaymentFailureTest books with a failing payment service and checks declined
// bookings never take seats
func (st *StressTest) runPaymentFailureTest(ctx context.Context) TestResult {
	st.log.Infof("Starting payment failure test with failure rate %.2f", st.opts.failureRate)
	start := time.Now()
	w := st.newWorld(st.opts.failureRate)
	all := w.bookable()
	if len(all) == 0 {
		return TestResult{TestName: "Payment Failure", Error: "no bookable flights generated"}
	}
	target := all[0]
	initial := target.AvailableSeats.Economy

	var confirmed, declined int64
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < st.opts.workers; i++ {
		worker := i
		g.Go(func() error {
			for j := 0; j < 5; j++ {
				_, err := w.ledger.Create(ctx, target.FlightID, travellers(worker, 1), models.SeatClassEconomy, "tok_stress", "")
				switch {
				case err == nil:
					atomic.AddInt64(&confirmed, 1)
				case models.IsKind(err, models.KindPaymentFailed):
					atomic.AddInt64(&declined, 1)
				case models.IsKind(err, models.KindInsufficientInventory):
					return nil
				default:
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	result := TestResult{TestName: "Payment Failure", Duration: time.Since(start)}
	f, _ := w.catalog.Get(target.FlightID)
	switch {
	case err != nil:
		result.Error = fmt.Sprintf("worker failed: %v", err)
	case initial-f.AvailableSeats.Economy != int(confirmed):
		result.Error = fmt.Sprintf("seats taken %d != confirmed bookings %d", initial-f.AvailableSeats.Economy, confirmed)
	default:
		result.Success = true
	}

	st.log.Infof("Payment failure test completed:")
	st.log.Infof("  Confirmed: %d", confirmed)
	st.log.Infof("  Declined: %d", declined)
	return result
}

// runCancellationTest books and cancels concurrently and checks every seat comes back
func (st *StressTest) runCancellationTest(ctx context.Context) TestResult {
	st.log.Infof("Starting cancellation test with %d concurrent workers", st.opts.workers)
	start := time.Now()
	w := st.newWorld(0)
	all := w.bookable()
	if len(all) == 0 {
		return TestResult{TestName: "Cancellation", Error: "no bookable flights generated"}
	}
	target := all[0]
	initial := target.AvailableSeats.Economy

	var cancelled int64
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < st.opts.workers; i++ {
		worker := i
		g.Go(func() error {
			for j := 0; j < 3; j++ {
				b, err := w.ledger.Create(ctx, target.FlightID, travellers(worker, 1), models.SeatClassEconomy, "tok_stress", "")
				if models.IsKind(err, models.KindInsufficientInventory) {
					continue
				}
				if err != nil {
					return err
				}
				if _, err := w.ledger.Cancel(b.BookingID, "stress test"); err != nil {
					return err
				}
				atomic.AddInt64(&cancelled, 1)
			}
			return nil
		})
	}
	err := g.Wait()

	result := TestResult{TestName: "Cancellation", Duration: time.Since(start)}
	f, _ := w.catalog.Get(target.FlightID)
	switch {
	case err != nil:
		result.Error = fmt.Sprintf("worker failed: %v", err)
	case f.AvailableSeats.Economy != initial:
		result.Error = fmt.Sprintf("economy seats %d after cancelling everything, expected %d", f.AvailableSeats.Economy, initial)
	default:
		result.Success = true
	}

	st.log.Infof("Cancellation test completed:")
	st.log.Infof("  Cancelled: %d", cancelled)
	return result
}

func run(ctx context.Context, opts options) error {
	log, err := logger.New("info", "development")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()

	ref, err := reference.Load()
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	st := &StressTest{opts: opts, ref: ref, log: sugar, seedNext: opts.seed}

	sugar.Infof("Starting flight simulator stress tests (seed %d)", opts.seed)

	var summary ValidationResult
	sugar.Info("=== Seat Contention Test ===")
	summary.add(st.runSeatContentionTest(ctx))
	sugar.Info("=== Flight Search Test ===")
	summary.add(st.runSearchTest(ctx))
	sugar.Info("=== Payment Failure Test ===")
	summary.add(st.runPaymentFailureTest(ctx))
	sugar.Info("=== Cancellation Test ===")
	summary.add(st.runCancellationTest(ctx))

	sugar.Info("=== Detailed Test Results ===")
	for _, r := range summary.Results {
		if r.Success {
			sugar.Infof("PASS %s (%v)", r.TestName, r.Duration)
		} else {
			sugar.Errorf("FAIL %s: %s (%v)", r.TestName, r.Error, r.Duration)
		}
	}

	sugar.Info("=== Test Summary ===")
	sugar.Infof("Total Tests: %d", summary.TotalTests)
	sugar.Infof("Passed: %d", summary.PassedTests)
	sugar.Infof("Failed: %d", summary.FailedTests)

	if summary.FailedTests > 0 {
		return fmt.Errorf("%d tests failed", summary.FailedTests)
	}
	sugar.Info("All tests passed!")
	return nil
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:          "stress-test",
		Short:        "Run concurrent booking scenarios against an in-process flight catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 20, "Concurrent workers per scenario")
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "Duration of the search scenario")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed, 0 for a time based seed")
	cmd.Flags().Float64Var(&opts.failureRate, "failure-rate", 0.3, "Payment decline rate for the payment scenario")
	cmd.Flags().IntVar(&opts.days, "days", 3, "Days of flights to generate")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
