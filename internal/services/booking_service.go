package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	modificationFee     = 100.0
	checkInWindow       = 24 * time.Hour
	boardingLeadTime    = 30 * time.Minute
	defaultPassengerAge = 30
)

// PaymentGateway charges and refunds bookings
type PaymentGateway interface {
	Authorize(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error)
	Refund(paymentID string, amount float64, reason string) (*models.PaymentResponse, error)
}

// LedgerOptions configures a BookingLedger
type LedgerOptions struct {
	Payments PaymentGateway
	Now      func() time.Time
	// Reconcile returns seats on cancel and moves them on modify
	Reconcile bool
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// BookingLedger is the in-memory booking store. It shares seat inventory with the
// FlightCatalog; cross-store changes take the ledger lock, then the catalog lock.
type BookingLedger struct {
	mu       sync.RWMutex
	bookings map[string]*models.Booking
	pnrIndex map[string]string

	catalog   *FlightCatalog
	payments  PaymentGateway
	reconcile bool
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewBookingLedger creates an empty ledger on top of a catalog
func NewBookingLedger(catalog *FlightCatalog, opts LedgerOptions) *BookingLedger {
	if opts.Now == nil {
		opts.Now = catalog.now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Payments == nil {
		opts.Payments = NewPaymentService(0, nil, opts.Logger, opts.Metrics)
	}
	return &BookingLedger{
		bookings:  make(map[string]*models.Booking),
		pnrIndex:  make(map[string]string),
		catalog:   catalog,
		payments:  opts.Payments,
		reconcile: opts.Reconcile,
		now:       opts.Now,
		logger:    opts.Logger.Named("ledger"),
		metrics:   opts.Metrics,
	}
}

// bookingDraft carries everything needed to create a booking
type bookingDraft struct {
	flightID        string
	passengers      []models.PassengerInfo
	class           models.SeatClass
	paymentToken    string
	discount        float64
	groupName       string
	specialRequests string
	// arrange runs on the new booking inside the atomic step
	arrange func(b *models.Booking)
}

// Create books seats on a flight. Payment is authorized first; the seat decrement
// and the insertion of the booking then happen as one step.
func (l *BookingLedger) Create(ctx context.Context, flightID string, passengers []models.PassengerInfo,
	class models.SeatClass, paymentToken, specialRequests string) (*models.Booking, error) {
	return l.create(ctx, "create booking", bookingDraft{
		flightID:        flightID,
		passengers:      passengers,
		class:           class,
		paymentToken:    paymentToken,
		specialRequests: specialRequests,
	})
}

func (l *BookingLedger) create(ctx context.Context, op string, d bookingDraft) (*models.Booking, error) {
	if len(d.passengers) == 0 {
		return nil, models.NewError(models.KindValidation, op, "at least one passenger is required")
	}
	if strings.TrimSpace(d.paymentToken) == "" {
		return nil, models.NewError(models.KindValidation, op, "payment token is required")
	}
	if !d.class.IsValid() {
		return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid seat class %q", d.class))
	}

	flight, err := l.catalog.Get(d.flightID)
	if err != nil {
		return nil, err
	}
	count := len(d.passengers)
	if !flight.CanBook(d.class, count) {
		return nil, insufficientSeats(op, d.class, count, flight.AvailableSeats.For(d.class))
	}

	fare := flight.Price.For(d.class) * (1 - d.discount)
	total := fare * float64(count)

	payment, err := l.payments.Authorize(ctx, &models.PaymentRequest{
		Reference:    d.flightID,
		Amount:       total,
		Currency:     flight.Price.Currency,
		PaymentToken: d.paymentToken,
	})
	if err != nil {
		return nil, fmt.Errorf("payment for flight %s: %w", d.flightID, err)
	}

	now := l.now()
	booking := &models.Booking{
		FlightID:        d.flightID,
		SeatClass:       d.class,
		Status:          models.BookingStatusConfirmed,
		CreatedAt:       now,
		TotalPrice:      total,
		Currency:        flight.Price.Currency,
		PaymentStatus:   payment.Status,
		PaymentID:       payment.PaymentID,
		PaymentToken:    d.paymentToken,
		SpecialRequests: d.specialRequests,
		GroupName:       d.groupName,
	}

	l.mu.Lock()
	l.catalog.mu.Lock()
	if err := l.catalog.adjustSeatsLocked(d.flightID, d.class, -count); err != nil {
		l.catalog.mu.Unlock()
		l.mu.Unlock()
		l.logger.Warn("Seats gone after payment, refunding",
			zap.String("flight_id", d.flightID),
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err))
		if _, rerr := l.payments.Refund(payment.PaymentID, payment.Amount, "seats no longer available"); rerr != nil {
			l.logger.Error("Failed to refund payment",
				zap.String("payment_id", payment.PaymentID),
				zap.Error(rerr))
		}
		return nil, err
	}
	l.catalog.mu.Unlock()
	booking.SeatsHeld = map[models.SeatClass]int{d.class: count}

	booking.BookingID = l.uniqueBookingIDLocked()
	booking.PNR = l.uniquePNRLocked(flight.FlightNumber)
	booking.Passengers = buildPassengers(booking.BookingID, d.passengers, now)
	if d.arrange != nil {
		d.arrange(booking)
	}
	l.bookings[booking.BookingID] = booking
	l.pnrIndex[booking.PNR] = booking.BookingID
	snapshot := booking.Clone()
	l.mu.Unlock()

	l.metrics.BookingCreated(string(d.class), count)
	l.logger.Info("Booking created",
		zap.String("booking_id", snapshot.BookingID),
		zap.String("pnr", snapshot.PNR),
		zap.String("flight_id", d.flightID),
		zap.String("seat_class", string(d.class)),
		zap.Int("passengers", count),
		zap.Float64("total_price", snapshot.TotalPrice))
	return snapshot, nil
}

func insufficientSeats(op string, class models.SeatClass, requested, available int) error {
	return models.NewError(models.KindInsufficientInventory, op,
		fmt.Sprintf("not enough %s seats available. Requested: %d, Available: %d", class, requested, available))
}

func buildPassengers(bookingID string, infos []models.PassengerInfo, now time.Time) []models.Passenger {
	passengers := make([]models.Passenger, len(infos))
	for i, info := range infos {
		dob := now.AddDate(-defaultPassengerAge, 0, 0)
		if info.DateOfBirth != nil {
			dob = *info.DateOfBirth
		}
		ptype := info.PassengerType
		if ptype == "" {
			ptype = models.PassengerTypeAdult
		}
		passengers[i] = models.Passenger{
			ID:             fmt.Sprintf("P%d-%s", i+1, bookingID),
			FirstName:      info.FirstName,
			LastName:       info.LastName,
			Email:          info.Email,
			Phone:          info.Phone,
			DateOfBirth:    dob,
			PassportNumber: info.PassportNumber,
			Nationality:    info.Nationality,
			PassengerType:  ptype,
			MealPreference: info.MealPreference,
		}
	}
	return passengers
}

func shortHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

// uniqueBookingIDLocked requires l.mu held for writing
func (l *BookingLedger) uniqueBookingIDLocked() string {
	for {
		id := "BK" + shortHex(8)
		if _, taken := l.bookings[id]; !taken {
			return id
		}
	}
}

// uniquePNRLocked requires l.mu held for writing
func (l *BookingLedger) uniquePNRLocked(flightNumber string) string {
	prefix := flightNumber
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	prefix = strings.ToUpper(prefix)
	for {
		pnr := prefix + shortHex(6)
		if _, taken := l.pnrIndex[pnr]; !taken {
			return pnr
		}
	}
}

// Get returns a booking by booking id or PNR
func (l *BookingLedger) Get(idOrPNR string) (*models.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.lookupLocked(idOrPNR)
	if !ok {
		return nil, models.NotFound("get booking", "Booking", idOrPNR)
	}
	return b.Clone(), nil
}

// lookupLocked requires l.mu held
func (l *BookingLedger) lookupLocked(idOrPNR string) (*models.Booking, bool) {
	key := strings.TrimSpace(idOrPNR)
	if b, ok := l.bookings[key]; ok {
		return b, true
	}
	if id, ok := l.pnrIndex[strings.ToUpper(key)]; ok {
		b, ok := l.bookings[id]
		return b, ok
	}
	return nil, false
}

// ByEmail returns the bookings with a passenger using email, oldest first
func (l *BookingLedger) ByEmail(email string) []*models.Booking {
	email = strings.TrimSpace(email)
	l.mu.RLock()
	var out []*models.Booking
	for _, b := range l.bookings {
		for _, p := range b.Passengers {
			if strings.EqualFold(p.Email, email) {
				out = append(out, b.Clone())
				break
			}
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the number of bookings held
func (l *BookingLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.bookings)
}

// refundPercentage applies the refund schedule on whole days until departure
func refundPercentage(departure, now time.Time) float64 {
	days := int(departure.Sub(now) / (24 * time.Hour))
	switch {
	case days > 7:
		return 90
	case days >= 1:
		return 50
	default:
		return 0
	}
}

// Cancel cancels a booking and computes its refund
func (l *BookingLedger) Cancel(bookingID, reason string) (*models.CancellationResult, error) {
	const op = "cancel booking"

	l.mu.Lock()
	b, ok := l.lookupLocked(bookingID)
	if !ok {
		l.mu.Unlock()
		return nil, models.NotFound(op, "Booking", bookingID)
	}
	if !b.CanCancel() {
		l.mu.Unlock()
		return nil, models.NewError(models.KindInvalidTransition, op,
			fmt.Sprintf("Booking %s is %s and cannot be cancelled", b.BookingID, b.Status))
	}

	now := l.now()
	pct := 90.0
	released := 0

	l.catalog.mu.Lock()
	if f, found := l.catalog.getLocked(b.FlightID); found {
		pct = refundPercentage(f.Departure, now)
		if l.reconcile {
			released = l.releaseHeldLocked(b)
		}
	}
	l.catalog.mu.Unlock()

	b.Status = models.BookingStatusCancelled
	b.CancelReason = reason
	b.ModifiedAt = &now
	refund := b.TotalPrice * pct / 100
	if refund > 0 {
		b.PaymentStatus = models.PaymentStatusRefunded
	}
	result := &models.CancellationResult{
		BookingID:        b.BookingID,
		Status:           b.Status,
		RefundAmount:     refund,
		RefundPercentage: pct,
		Reason:           reason,
		SeatsReleased:    released,
	}
	class := b.SeatClass
	paymentID := b.PaymentID
	l.mu.Unlock()

	if refund > 0 && paymentID != "" {
		if _, err := l.payments.Refund(paymentID, refund, "booking cancelled"); err != nil {
			l.logger.Warn("Failed to refund cancelled booking",
				zap.String("booking_id", result.BookingID),
				zap.String("payment_id", paymentID),
				zap.Error(err))
		}
	}

	l.metrics.BookingCancelled(string(class), released)
	l.logger.Info("Booking cancelled",
		zap.String("booking_id", result.BookingID),
		zap.Float64("refund_percentage", pct),
		zap.Int("seats_released", released))
	return result, nil
}

// CheckIn issues boarding passes for the selected passengers, or all of them.
// It opens 24 hours before departure.
func (l *BookingLedger) CheckIn(bookingID string, passengerIDs []string, preferences []models.SeatSelection) (*models.Booking, []models.BoardingPass, error) {
	const op = "check in"

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.lookupLocked(bookingID)
	if !ok {
		return nil, nil, models.NotFound(op, "Booking", bookingID)
	}
	if !b.CanCheckIn() {
		return nil, nil, models.NewError(models.KindInvalidTransition, op,
			fmt.Sprintf("Booking %s is %s and cannot be checked in", b.BookingID, b.Status))
	}

	l.catalog.mu.RLock()
	f, found := l.catalog.getLocked(b.FlightID)
	var flight models.Flight
	if found {
		flight = *f
	}
	l.catalog.mu.RUnlock()
	if !found {
		return nil, nil, models.NotFound(op, "Flight", b.FlightID)
	}

	now := l.now()
	if flight.Departure.Sub(now) > checkInWindow {
		opens := flight.Departure.Add(-checkInWindow)
		return nil, nil, models.NewError(models.KindWindowNotOpen, op,
			fmt.Sprintf("Check-in opens 24 hours before departure. Please try again after %s", opens.Format("2006-01-02 15:04")))
	}

	selected := make(map[string]bool, len(passengerIDs))
	for _, id := range passengerIDs {
		if _, ok := b.Passenger(id); !ok {
			return nil, nil, models.NewError(models.KindNotFound, op, fmt.Sprintf("Passenger %s not found in booking", id))
		}
		selected[id] = true
	}

	preferred := make(map[string]string, len(preferences))
	for _, pref := range preferences {
		if _, ok := b.Passenger(pref.PassengerID); !ok {
			return nil, nil, models.NewError(models.KindNotFound, op, fmt.Sprintf("Passenger %s not found in booking", pref.PassengerID))
		}
		seat := strings.ToUpper(strings.TrimSpace(pref.SeatNumber))
		if err := validateSeat(op, b.SeatClass, seat); err != nil {
			return nil, nil, err
		}
		preferred[pref.PassengerID] = seat
	}

	group := "A"
	if b.SeatClass == models.SeatClassEconomy {
		group = "B"
	}

	var passes []models.BoardingPass
	for i := range b.Passengers {
		p := &b.Passengers[i]
		if len(selected) > 0 && !selected[p.ID] {
			continue
		}

		seat := preferred[p.ID]
		if seat == "" {
			seat = p.SeatNumber
		}
		if seat == "" {
			seat = fmt.Sprintf("%d%c", 12+i, 'A'+rune(i%6))
		}
		p.SeatNumber = seat
		checkedAt := now
		p.CheckedInAt = &checkedAt

		passes = append(passes, models.BoardingPass{
			PassengerID:   p.ID,
			PassengerName: p.FullName(),
			FlightNumber:  flight.FlightNumber,
			Origin:        flight.Origin,
			Destination:   flight.Destination,
			DepartureTime: flight.Departure,
			BoardingTime:  flight.Departure.Add(-boardingLeadTime),
			Gate:          flight.Gate,
			Seat:          seat,
			BoardingGroup: group,
			Barcode:       "BP" + b.BookingID + p.ID,
		})
	}

	b.Status = models.BookingStatusCheckedIn
	b.ModifiedAt = &now

	l.logger.Info("Checked in",
		zap.String("booking_id", b.BookingID),
		zap.Int("boarding_passes", len(passes)))
	return b.Clone(), passes, nil
}

// Modify moves a booking to another flight or date and/or a higher class.
// With reconciliation enabled the seats move along; otherwise inventory is untouched.
func (l *BookingLedger) Modify(bookingID string, req models.ModificationRequest) (*models.ModificationResult, error) {
	const op = "modify booking"

	var upgrade models.SeatClass
	if req.SeatClassUpgrade != "" {
		class, err := models.ParseSeatClass(req.SeatClassUpgrade)
		if err != nil {
			return nil, err
		}
		upgrade = class
	}
	if req.NewFlightID == "" && req.NewDate != "" {
		if _, err := time.Parse(models.DateLayout, req.NewDate); err != nil {
			return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.NewDate))
		}
	}
	if req.NewFlightID == "" && req.NewDate == "" && upgrade == "" {
		return nil, models.NewError(models.KindValidation, op, "nothing to modify: give a new flight, a new date or a seat class upgrade")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.lookupLocked(bookingID)
	if !ok {
		return nil, models.NotFound(op, "Booking", bookingID)
	}
	if !b.CanCheckIn() {
		return nil, models.NewError(models.KindInvalidTransition, op,
			fmt.Sprintf("Booking %s is %s and cannot be modified", b.BookingID, b.Status))
	}

	l.catalog.mu.Lock()
	defer l.catalog.mu.Unlock()

	original, found := l.catalog.getLocked(b.FlightID)
	if !found {
		return nil, models.NewError(models.KindNotFound, op, fmt.Sprintf("Original flight %s not found", b.FlightID))
	}

	count := len(b.Passengers)
	oldClass := b.SeatClass
	newClass := oldClass
	target := original
	delta := 0.0

	switch {
	case req.NewFlightID != "":
		nf, found := l.catalog.getLocked(req.NewFlightID)
		if !found {
			return nil, models.NewError(models.KindNotFound, op, fmt.Sprintf("New flight %s not found", req.NewFlightID))
		}
		target = nf
	case req.NewDate != "":
		nf := l.catalog.firstOnRouteLocked(original, req.NewDate, oldClass, count)
		if nf == nil {
			return nil, models.NewError(models.KindNotFound, op, fmt.Sprintf("No flights available on %s", req.NewDate))
		}
		target = nf
	}

	changedFlight := target.FlightID != original.FlightID
	if changedFlight {
		delta += (target.Price.For(oldClass) - original.Price.For(oldClass)) * float64(count)
	}

	if upgrade != "" {
		if !upgrade.IsHigherThan(oldClass) {
			return nil, models.NewError(models.KindInvalidTransition, op, fmt.Sprintf("Already booked in %s class", oldClass))
		}
		newClass = upgrade
		delta += (target.Price.For(newClass) - target.Price.For(oldClass)) * float64(count)
	}

	if changedFlight || newClass != oldClass {
		if available := target.AvailableSeats.For(newClass); available < count {
			return nil, insufficientSeats(op, newClass, count, available)
		}
		if l.reconcile {
			if err := l.moveHeldLocked(b, target.FlightID, newClass, count); err != nil {
				return nil, err
			}
			l.metrics.SeatsMoved(string(oldClass), string(newClass), count)
		} else {
			b.SeatsHeld = map[models.SeatClass]int{newClass: count}
		}
		for i := range b.Passengers {
			b.Passengers[i].SeatNumber = ""
		}
	}

	now := l.now()
	b.FlightID = target.FlightID
	b.SeatClass = newClass
	b.TotalPrice += delta
	b.ModifiedAt = &now

	result := &models.ModificationResult{
		Booking:             b.Clone(),
		ModificationFee:     modificationFee,
		PriceDifference:     delta,
		TotalAdditionalCost: modificationFee + max(0, delta),
	}
	if changedFlight {
		result.NewFlightID = target.FlightID
	}
	if upgrade != "" {
		result.SeatUpgrade = string(upgrade)
	}

	l.logger.Info("Booking modified",
		zap.String("booking_id", b.BookingID),
		zap.String("flight_id", b.FlightID),
		zap.String("seat_class", string(b.SeatClass)),
		zap.Float64("price_difference", delta))
	return result, nil
}

// releaseHeldLocked returns every seat b holds to its flight and reports how many were
// returned. Requires l.mu and l.catalog.mu held for writing.
func (l *BookingLedger) releaseHeldLocked(b *models.Booking) int {
	released := 0
	for _, class := range models.SeatClasses {
		n := b.SeatsHeld[class]
		if n == 0 {
			continue
		}
		if err := l.catalog.adjustSeatsLocked(b.FlightID, class, n); err != nil {
			l.logger.Warn("Failed to release seats",
				zap.String("booking_id", b.BookingID),
				zap.String("seat_class", string(class)),
				zap.Error(err))
			continue
		}
		delete(b.SeatsHeld, class)
		released += n
	}
	return released
}

// moveHeldLocked gives back the seats b holds on its current flight and takes count seats
// of class on flightID. On error the counters are left as they were.
// Requires l.mu and l.catalog.mu held for writing.
func (l *BookingLedger) moveHeldLocked(b *models.Booking, flightID string, class models.SeatClass, count int) error {
	returned := make(map[models.SeatClass]int, len(b.SeatsHeld))
	undo := func() {
		for c, n := range returned {
			_ = l.catalog.adjustSeatsLocked(b.FlightID, c, -n)
		}
	}
	for _, c := range models.SeatClasses {
		n := b.SeatsHeld[c]
		if n == 0 {
			continue
		}
		if err := l.catalog.adjustSeatsLocked(b.FlightID, c, n); err != nil {
			undo()
			return err
		}
		returned[c] = n
	}
	if err := l.catalog.adjustSeatsLocked(flightID, class, -count); err != nil {
		undo()
		return err
	}
	b.SeatsHeld = map[models.SeatClass]int{class: count}
	return nil
}

// firstOnRouteLocked finds the earliest flight on the route of f, f included, departing
// on date with count seats in class. Requires fc.mu held.
func (fc *FlightCatalog) firstOnRouteLocked(f *models.Flight, date string, class models.SeatClass, count int) *models.Flight {
	var best *models.Flight
	for _, candidate := range fc.flights {
		if candidate.Origin != f.Origin || candidate.Destination != f.Destination {
			continue
		}
		if candidate.DepartureDate() != date || !candidate.CanBook(class, count) {
			continue
		}
		if best == nil || candidate.Departure.Before(best.Departure) ||
			(candidate.Departure.Equal(best.Departure) && candidate.FlightID < best.FlightID) {
			best = candidate
		}
	}
	return best
}

// update runs fn on a live booking under the ledger lock. Cancelled bookings are rejected.
func (l *BookingLedger) update(op, bookingID string, fn func(b *models.Booking) error) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.lookupLocked(bookingID)
	if !ok {
		return nil, models.NotFound(op, "Booking", bookingID)
	}
	if !b.CanCheckIn() {
		return nil, models.NewError(models.KindInvalidTransition, op,
			fmt.Sprintf("Booking %s is %s", b.BookingID, b.Status))
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	now := l.now()
	b.ModifiedAt = &now
	return b.Clone(), nil
}

// updateWithFlight is update with the booking's flight, holding the catalog lock for writing
func (l *BookingLedger) updateWithFlight(op, bookingID string, fn func(b *models.Booking, f *models.Flight) error) (*models.Booking, error) {
	return l.update(op, bookingID, func(b *models.Booking) error {
		l.catalog.mu.Lock()
		defer l.catalog.mu.Unlock()

		f, ok := l.catalog.getLocked(b.FlightID)
		if !ok {
			return models.NewError(models.KindNotFound, op, fmt.Sprintf("Associated flight %s not found", b.FlightID))
		}
		return fn(b, f)
	})
}

func passengerNotFound(op, passengerID string) error {
	return models.NewError(models.KindNotFound, op, fmt.Sprintf("Passenger %s not found in booking", passengerID))
}
