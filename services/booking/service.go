package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"
	"sessionbook/services/events"
	"sessionbook/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes the lifecycle. Zero values are replaced by DefaultOptions.
type Options struct {
	PendingPaymentTTL    time.Duration
	OTPTTL               time.Duration
	ConflictWindow       time.Duration
	SlotBucket           time.Duration
	SweepBatch           int
	GeofenceRadiusMeters float64
	Currency             string
	// AllowPlaceholderOrders lets creation continue when the gateway is down.
	// Must be false in production.
	AllowPlaceholderOrders bool
}

func DefaultOptions() Options {
	return Options{
		PendingPaymentTTL:    30 * time.Minute,
		OTPTTL:               30 * time.Minute,
		ConflictWindow:       12 * time.Hour,
		SlotBucket:           15 * time.Minute,
		SweepBatch:           200,
		GeofenceRadiusMeters: 200,
		Currency:             "inr",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PendingPaymentTTL <= 0 {
		o.PendingPaymentTTL = d.PendingPaymentTTL
	}
	if o.OTPTTL <= 0 {
		o.OTPTTL = d.OTPTTL
	}
	if o.ConflictWindow <= 0 {
		o.ConflictWindow = d.ConflictWindow
	}
	if o.SlotBucket <= 0 {
		o.SlotBucket = d.SlotBucket
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = d.SweepBatch
	}
	if o.GeofenceRadiusMeters <= 0 {
		o.GeofenceRadiusMeters = d.GeofenceRadiusMeters
	}
	if o.Currency == "" {
		o.Currency = d.Currency
	}
	return o
}

// Dependencies are the collaborators of the lifecycle engine.
type Dependencies struct {
	Bookings  bookingRepo.BookingRepository
	Claims    bookingRepo.SlotClaimRepository
	Coupons   CouponRedeemer
	Gateway   payment.Gateway
	Pricer    Pricer
	Publisher events.Publisher
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	repo      bookingRepo.BookingRepository
	claims    bookingRepo.SlotClaimRepository
	coupons   CouponRedeemer
	gateway   payment.Gateway
	pricer    Pricer
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	opts      Options
}

func NewService(deps Dependencies, opts Options) (*Service, error) {
	if deps.Bookings == nil || deps.Claims == nil {
		return nil, fmt.Errorf("booking service initialization error: repositories are required")
	}
	if deps.Gateway == nil || deps.Pricer == nil {
		return nil, fmt.Errorf("booking service initialization error: gateway and pricer are required")
	}
	s := &Service{
		repo:      deps.Bookings,
		claims:    deps.Claims,
		coupons:   deps.Coupons,
		gateway:   deps.Gateway,
		pricer:    deps.Pricer,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
		opts:      opts.withDefaults(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger)
	}
	return s, nil
}

// CreateRequest is a consumer's reservation request.
type CreateRequest struct {
	ProviderID      string
	Mode            models.BookingMode
	ScheduledStart  time.Time
	DurationMinutes int
	Location        *models.GeoPoint
	CouponCode      string
}

type CreateResult struct {
	Booking         *models.Booking `json:"booking"`
	PaymentRequired bool            `json:"payment_required"`
	CouponApplied   bool            `json:"coupon_applied"`
	CouponMessage   string          `json:"coupon_message,omitempty"`
}

// CreateBooking reserves a session. Instant bookings claim the slot immediately
// and wait in pending_payment; request bookings wait for the provider.
func (s *Service) CreateBooking(ctx context.Context, actor models.Actor, req CreateRequest) (*CreateResult, error) {
	if actor.Role != models.RoleConsumer || actor.ID == "" {
		return nil, newError(KindPermissionDenied, "only consumers can create bookings")
	}
	if req.Mode == "" {
		req.Mode = models.ModeInstant
	}
	if req.Mode != models.ModeInstant && req.Mode != models.ModeRequest {
		return nil, newError(KindInvalidInput, "unknown booking mode %q", req.Mode)
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := s.validateInterval(req.ProviderID, req.ScheduledStart, duration); err != nil {
		return nil, err
	}
	if req.ProviderID == actor.ID {
		return nil, newError(KindInvalidInput, "cannot book a session with yourself")
	}
	now := s.now()
	if !req.ScheduledStart.After(now) {
		return nil, newError(KindInvalidInput, "scheduled_start must be in the future")
	}
	if req.Location != nil {
		lat, lng, ok := req.Location.LatLng()
		if !ok || !validLatLng(lat, lng) {
			return nil, newError(KindInvalidInput, "invalid location")
		}
	}

	quote, err := s.pricer.Quote(req.ProviderID, req.ScheduledStart, duration)
	if err != nil {
		return nil, internal(err, "failed to price booking")
	}

	b := &models.Booking{
		ID:             uuid.NewString(),
		ConsumerID:     actor.ID,
		ProviderID:     req.ProviderID,
		Mode:           req.Mode,
		ScheduledStart: req.ScheduledStart.UTC(),
		DurationMin:    req.DurationMinutes,
		Location:       req.Location,
		Subtotal:       quote.Subtotal,
		Fees:           quote.Fees,
		Currency:       s.opts.Currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	claimed := false
	if req.Mode == models.ModeInstant {
		avail, err := s.checkAvailability(ctx, b.ProviderID, b.ScheduledStart, duration, "")
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			return nil, slotUnavailable(b, *avail.NextAvailable)
		}
		if err := s.claimSlot(ctx, b); err != nil {
			return nil, err
		}
		claimed = true
	}

	result := &CreateResult{Booking: b}
	if req.CouponCode != "" && s.coupons != nil {
		red := s.coupons.Redeem(ctx, req.CouponCode, quote.Subtotal, now)
		if red.Applied {
			b.CouponCode = red.Code
			b.Discount = roundMoney(red.Discount)
		}
		result.CouponApplied = red.Applied
		result.CouponMessage = red.Reason
	}
	b.TotalAmount = totalAfterDiscount(quote, b.Discount)

	rollback := func() {
		if claimed {
			s.releaseSlot(ctx, b)
		}
		if b.CouponCode != "" {
			s.coupons.Release(ctx, b.CouponCode, now)
		}
	}

	switch {
	case req.Mode == models.ModeRequest:
		b.Status = models.StatusRequested
		b.PaymentStatus = models.PaymentNotRequired
	case b.TotalAmount == 0:
		b.Status = models.StatusPendingPayment
		b.PaymentStatus = models.PaymentNotRequired
	default:
		b.Status = models.StatusPendingPayment
		b.PaymentStatus = models.PaymentPending
		orderRef, err := s.createOrder(ctx, b)
		if err != nil {
			rollback()
			return nil, err
		}
		b.PaymentGatewayOrderRef = orderRef
		result.PaymentRequired = true
	}

	if err := s.repo.Create(ctx, b); err != nil {
		rollback()
		return nil, internal(err, "failed to store booking")
	}

	s.logger.Info("booking created",
		zap.String("bookingID", b.ID),
		zap.String("providerID", b.ProviderID),
		zap.String("status", string(b.Status)),
		zap.Float64("total", b.TotalAmount),
	)
	s.emit(ctx, models.EventBookingCreated, b, actor, nil)
	if result.PaymentRequired {
		s.emit(ctx, models.EventPaymentRequired, b, actor, map[string]string{
			"order_ref": b.PaymentGatewayOrderRef,
			"amount":    fmt.Sprintf("%.2f", b.TotalAmount),
		})
	}
	return result, nil
}

func (s *Service) createOrder(ctx context.Context, b *models.Booking) (string, error) {
	orderRef, err := s.gateway.CreateOrder(ctx, b.TotalAmount, b.Currency, map[string]string{
		"booking_id":  b.ID,
		"consumer_id": b.ConsumerID,
		"provider_id": b.ProviderID,
	})
	if err == nil {
		return orderRef, nil
	}
	if !s.opts.AllowPlaceholderOrders {
		s.logger.Error("payment order creation failed", zap.String("bookingID", b.ID), zap.Error(err))
		return "", &Error{Kind: KindPaymentFailed, Message: "payment gateway unavailable", Err: err}
	}
	placeholder := payment.PlaceholderOrderPrefix + uuid.NewString()
	s.logger.Warn("payment gateway unavailable, using placeholder order",
		zap.String("bookingID", b.ID),
		zap.String("orderRef", placeholder),
		zap.Error(err),
	)
	return placeholder, nil
}

// GetBooking returns a booking to one of its parties or an admin.
func (s *Service) GetBooking(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSystem && !b.IsParty(actor.ID) {
		return nil, newError(KindPermissionDenied, "not a party to booking %s", id)
	}
	return b, nil
}

type ListQuery struct {
	Statuses   []models.BookingStatus
	ConsumerID string
	ProviderID string
	Page       int
	Limit      int
}

type BookingPage struct {
	Bookings []models.Booking `json:"bookings"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListBookings pages through the actor's own bookings; admins may filter freely.
func (s *Service) ListBookings(ctx context.Context, actor models.Actor, q ListQuery) (*BookingPage, error) {
	filter := bookingRepo.ListFilter{Statuses: q.Statuses}
	switch actor.Role {
	case models.RoleConsumer:
		filter.ConsumerID = actor.ID
	case models.RoleProvider:
		filter.ProviderID = actor.ID
	case models.RoleAdmin:
		filter.ConsumerID = q.ConsumerID
		filter.ProviderID = q.ProviderID
	default:
		return nil, newError(KindPermissionDenied, "role %s cannot list bookings", actor.Role)
	}
	for _, st := range q.Statuses {
		if !validStatus(st) {
			return nil, newError(KindInvalidInput, "unknown status %q", st)
		}
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	filter.Skip = int64((q.Page - 1) * q.Limit)
	filter.Limit = int64(q.Limit)

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list bookings")
	}
	if list == nil {
		list = []models.Booking{}
	}
	return &BookingPage{Bookings: list, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

type ProviderSummary struct {
	ProviderID        string                         `json:"provider_id"`
	Counts            map[models.BookingStatus]int64 `json:"counts"`
	Total             int64                          `json:"total"`
	DistinctConsumers int                            `json:"distinct_consumers"`
}

// ProviderSummary reports the provider's bookings per status.
func (s *Service) ProviderSummary(ctx context.Context, actor models.Actor, providerID string) (*ProviderSummary, error) {
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleProvider && actor.ID == providerID) {
		return nil, newError(KindPermissionDenied, "cannot view summary of provider %s", providerID)
	}
	counts, err := s.repo.CountByStatus(ctx, providerID)
	if err != nil {
		return nil, internal(err, "failed to count bookings")
	}
	consumers, err := s.repo.DistinctConsumers(ctx, providerID)
	if err != nil {
		return nil, internal(err, "failed to count consumers")
	}

	sum := &ProviderSummary{ProviderID: providerID, Counts: counts, DistinctConsumers: len(consumers)}
	for _, n := range counts {
		sum.Total += n
	}
	return sum, nil
}

// UpdateStatus drives a single edge of the state machine. Edges with their own
// protocol (payment, start, completion) are rejected here after validation.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, to models.BookingStatus, reason string) (*models.Booking, error) {
	if !validStatus(to) {
		return nil, newError(KindInvalidInput, "unknown status %q", to)
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(b, actor); err != nil {
		return nil, err
	}
	if err := Validate(b.Status, to, actor.Role); err != nil {
		return nil, err
	}

	switch {
	case to == models.StatusCancelled:
		return s.cancel(ctx, b, actor, reason)
	case b.Status == models.StatusRequested && to == models.StatusConfirmed:
		return s.approve(ctx, b, actor)
	case to == models.StatusRejected:
		updated, err := s.transition(ctx, b, to, actor, bookingRepo.Patch{CancelReason: optString(reason)}, bookingRepo.Match{})
		if err != nil {
			return nil, err
		}
		s.emit(ctx, models.EventBookingUpdate, updated, actor, reasonData(reason))
		return updated, nil
	case to == models.StatusFailed:
		updated, err := s.transition(ctx, b, to, actor, bookingRepo.Patch{}, bookingRepo.Match{})
		if err != nil {
			return nil, err
		}
		s.emit(ctx, models.EventBookingExpired, updated, actor, nil)
		return updated, nil
	case to == models.StatusConfirmed:
		return nil, newError(KindInvalidInput, "payment confirmation goes through payment verification")
	case to == models.StatusInProgress:
		return nil, newError(KindInvalidInput, "starting a session requires an otp or location")
	default:
		return nil, newError(KindInvalidInput, "completion requires both attendance confirmations")
	}
}

// approve confirms a requested booking; it is the point where the slot is claimed.
func (s *Service) approve(ctx context.Context, b *models.Booking, actor models.Actor) (*models.Booking, error) {
	avail, err := s.checkAvailability(ctx, b.ProviderID, b.ScheduledStart, b.Duration(), b.ID)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, slotUnavailable(b, *avail.NextAvailable)
	}
	if err := s.claimSlot(ctx, b); err != nil {
		return nil, err
	}

	otp, expires, err := s.newOTP()
	if err != nil {
		s.releaseSlot(ctx, b)
		return nil, err
	}
	updated, err := s.transition(ctx, b, models.StatusConfirmed, actor,
		bookingRepo.Patch{StartOTP: &otp, OTPExpiresAt: &expires}, bookingRepo.Match{})
	if err != nil {
		s.releaseSlot(ctx, b)
		return nil, err
	}
	s.emit(ctx, models.EventBookingConfirmed, updated, actor, nil)
	return updated, nil
}

// transition validates and applies from -> to as one conditional update keyed
// on the current status. Terminal targets release the slot.
func (s *Service) transition(ctx context.Context, b *models.Booking, to models.BookingStatus, actor models.Actor, patch bookingRepo.Patch, match bookingRepo.Match) (*models.Booking, error) {
	if err := Validate(b.Status, to, actor.Role); err != nil {
		return nil, err
	}
	patch.Status = &to
	patch.UpdatedAt = s.now()
	match.Statuses = []models.BookingStatus{b.Status}

	updated, err := s.repo.UpdateIf(ctx, b.ID, match, patch)
	if err != nil {
		if !errors.Is(err, bookingRepo.ErrConditionFailed) {
			return nil, internal(err, "failed to update booking")
		}
		current := b.Status
		if fresh, gerr := s.repo.GetByID(ctx, b.ID); gerr == nil {
			current = fresh.Status
		}
		return nil, newError(KindInvalidTransition, "cannot transition from %s to %s: booking changed concurrently", current, to)
	}

	if IsTerminal(to) {
		s.releaseSlot(ctx, updated)
	}
	s.logger.Info("booking transitioned",
		zap.String("bookingID", b.ID),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
		zap.String("actor", string(actor.Role)),
	)
	return updated, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Booking, error) {
	if id == "" {
		return nil, newError(KindInvalidInput, "booking id is required")
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, newError(KindNotFound, "booking %s not found", id)
		}
		return nil, internal(err, "failed to load booking")
	}
	return b, nil
}

// emit publishes after commit. The request context may already be done, so
// publishing runs on a detached context with its own deadline.
func (s *Service) emit(ctx context.Context, typ models.EventType, b *models.Booking, actor models.Actor, data map[string]string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	evt := events.New(typ, b, actor, s.now(), data)
	if err := s.publisher.Publish(pctx, evt); err != nil {
		s.logger.Error("failed to publish booking event",
			zap.String("bookingID", b.ID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// authorizeParty checks the actor acts for their own side of the booking.
func authorizeParty(b *models.Booking, actor models.Actor) error {
	switch actor.Role {
	case models.RoleSystem:
		return nil
	case models.RoleConsumer:
		if actor.ID == b.ConsumerID {
			return nil
		}
	case models.RoleProvider:
		if actor.ID == b.ProviderID {
			return nil
		}
	case models.RoleAdmin:
		// Admins are not on the edge table; Validate rejects them per edge.
		return nil
	}
	return newError(KindPermissionDenied, "%s %s is not a party to booking %s", actor.Role, actor.ID, b.ID)
}

func validStatus(s models.BookingStatus) bool {
	for _, st := range models.AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func reasonData(reason string) map[string]string {
	if reason == "" {
		return nil
	}
	return map[string]string{"reason": reason}
}
