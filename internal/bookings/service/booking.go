package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gotour/internal/aviation"
	"gotour/internal/bookings/aggregator"
	bookingserrors "gotour/internal/bookings/errors"
	"gotour/internal/bookings/events"
	"gotour/internal/bookings/lifecycle"
	"gotour/internal/bookings/normalizer"
	"gotour/internal/bookings/reference"
	"gotour/internal/bookings/repository"
	"gotour/internal/bookings/validator"
	"gotour/pkg/config"
	apperrors "gotour/pkg/errors"
	"gotour/pkg/locale"
	"gotour/pkg/metrics"
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// maxReferenceAttempts bounds how often a create is retried after the
// generated reference or number collides with an existing booking.
const maxReferenceAttempts = 3

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, kind model.BookingKind, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error)
	GetDetails(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error)
	ListMine(ctx context.Context, actor model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error)
	ListAll(ctx context.Context, actor model.Actor, kind model.BookingKind, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, status string) (*model.Booking, error)
	UpdatePaymentStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, paymentStatus string) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, reason string) (*model.Booking, error)
	Delete(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) error
}

// Dependencies groups what the booking service needs. Publisher, Flights,
// References and Metrics fall back to no-op or default implementations.
type Dependencies struct {
	Repos             map[model.BookingKind]repository.BookingRepository
	Subjects          repository.SubjectRepository
	Flights           aviation.Provider
	Validator         *validator.BookingValidator
	Publisher         events.Publisher
	References        *reference.Generator
	Metrics           *metrics.Metrics
	AggregatorOptions []aggregator.Option
}

type bookingService struct {
	repos      map[model.BookingKind]repository.BookingRepository
	subjects   repository.SubjectRepository
	flights    aviation.Provider
	validator  *validator.BookingValidator
	publisher  events.Publisher
	refs       *reference.Generator
	metrics    *metrics.Metrics
	aggregator *aggregator.Aggregator
	now        func() time.Time
	cfg        *config.Config
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	s := &bookingService{
		repos:     deps.Repos,
		subjects:  deps.Subjects,
		flights:   deps.Flights,
		validator: deps.Validator,
		publisher: deps.Publisher,
		refs:      deps.References,
		metrics:   deps.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
		cfg:       cfg,
	}
	if s.flights == nil {
		s.flights = aviation.Disabled{}
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.refs == nil {
		s.refs = reference.New()
	}

	sources := make(map[model.BookingKind]aggregator.BookingSource, len(s.repos))
	for kind, repo := range s.repos {
		sources[kind] = s.userSource(repo)
	}
	opts := []aggregator.Option{
		aggregator.WithBackfill(s.backfill),
		aggregator.WithMetrics(s.metrics),
	}
	s.aggregator = aggregator.New(cfg.Log, sources, append(opts, deps.AggregatorOptions...)...)

	return s
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, kind model.BookingKind, req *model.BookingRequest) (*model.Booking, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	req.Kind = kind
	sanitize(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "kind", kind, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"kind":   kind,
			"errors": validationDetails(err),
		})
	}

	booking := newBooking(actor, kind, req)

	var synthesized *model.Flight
	switch kind {
	case model.KindTour:
		err = s.attachTour(ctx, booking)
	case model.KindHotel:
		err = s.attachHotel(ctx, booking)
	case model.KindFlight:
		synthesized, err = s.attachFlight(ctx, booking, req.FlightID)
	}
	if err != nil {
		return nil, err
	}

	applyDefaults(booking)
	if booking.TotalPrice <= 0 {
		s.cfg.Log.Warn("Booking has no price", "kind", kind, "user_id", actor.UserID)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"kind": kind,
			"errors": validator.ValidationErrors{{
				Field:   "total_price",
				Message: "total_price is required when the subject has no price",
			}},
		})
	}

	if err := s.insert(ctx, repo, booking, synthesized); err != nil {
		s.cfg.Log.Error("Failed to create booking", "kind", kind, "user_id", actor.UserID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, withKind(apperrors.Internal("Failed to create booking", err), kind)
	}

	s.metrics.Transition(string(kind), "create")
	s.publish(ctx, events.BookingCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"kind", kind,
		"user_id", booking.UserID,
		"booking_reference", booking.BookingReference,
		"flight_synthesized", synthesized != nil,
	)
	return booking, nil
}

// insert stores the booking, regenerating reference and number on collisions.
// A synthesized flight is written in the same transaction so a failed booking
// insert leaves no orphan flight behind.
func (s *bookingService) insert(ctx context.Context, repo repository.BookingRepository, booking *model.Booking, synthesized *model.Flight) error {
	var err error
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		if err = s.assignIdentifiers(booking); err != nil {
			return err
		}

		if synthesized == nil {
			err = repo.Create(ctx, booking)
		} else {
			err = repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
				synthesized.ID = ""
				if err := s.subjects.CreateFlight(sessCtx, synthesized); err != nil {
					return err
				}
				booking.FlightID = synthesized.ID
				return repo.Create(sessCtx, booking)
			})
		}

		if !errors.Is(err, bookingserrors.ErrDuplicateReference) {
			return err
		}
		s.cfg.Log.Warn("Booking reference collision, regenerating",
			"kind", booking.Kind,
			"attempt", attempt,
			"booking_reference", booking.BookingReference,
		)
		booking.ID = ""
	}
	return withKind(apperrors.Conflict("Could not allocate a unique booking reference"), booking.Kind)
}

func (s *bookingService) assignIdentifiers(b *model.Booking) error {
	ref, err := s.refs.Reference(b.Kind)
	if err != nil {
		return err
	}
	number, err := s.refs.Number(b.Kind)
	if err != nil {
		return err
	}
	b.BookingReference = ref
	b.BookingNumber = number
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(booking) {
		return nil, s.mapError(bookingserrors.ErrForbidden, kind, id, "")
	}
	s.populate(ctx, booking)
	return booking, nil
}

// GetDetails returns the booking and assigns a reference to legacy records
// that were stored without one.
func (s *bookingService) GetDetails(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	if booking.BookingReference == "" {
		if err := s.backfill(ctx, kind, booking); err != nil {
			s.cfg.Log.WithBooking(string(kind), id).Warn("Failed to backfill booking reference", "error", err)
		}
	}
	return booking, nil
}

// backfill persists a reference only if the record still has none. When a
// concurrent request won, the stored reference is read back instead.
func (s *bookingService) backfill(ctx context.Context, kind model.BookingKind, b *model.Booking) error {
	repo, err := s.repo(kind)
	if err != nil {
		return err
	}
	id := normalizer.ResolveID(b)

	ref, err := s.refs.Reference(kind)
	if err != nil {
		return err
	}
	set, err := repo.SetReferenceIfMissing(ctx, id, ref)
	if err != nil {
		return err
	}
	if set {
		b.BookingReference = ref
		s.cfg.Log.WithBooking(string(kind), id).Info("Backfilled booking reference", "booking_reference", ref)
		return nil
	}

	stored, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	b.BookingReference = stored.BookingReference
	return nil
}

// ListMine returns the caller's merged bookings together with the number of
// matches before Limit and Offset are applied.
func (s *bookingService) ListMine(ctx context.Context, actor model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error) {
	if actor.UserID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	f, err := aggregator.ParseFilter(query.Type)
	if err != nil {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Invalid booking type filter %q, expected one of: all tour hotel flight", query.Type))
	}
	if query.Status != "" && !lifecycle.IsValidStatus(query.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Invalid status filter %q", query.Status))
	}

	views, err := s.aggregator.ListMyBookings(ctx, actor.UserID, f, loc)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}
	if query.Status != "" {
		views = filterByStatus(views, query.Status)
	}
	total := len(views)
	views = page(views, query.Limit, query.Offset)

	s.cfg.Log.Debug("Listed user bookings",
		"user_id", actor.UserID,
		"filter", f,
		"status", query.Status,
		"total", total,
		"count", len(views),
	)
	return views, total, nil
}

func filterByStatus(views []model.BookingView, status string) []model.BookingView {
	matched := make([]model.BookingView, 0, len(views))
	for _, v := range views {
		if v.Status == status {
			matched = append(matched, v)
		}
	}
	return matched
}

func page(views []model.BookingView, limit int, offset int64) []model.BookingView {
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(views)) {
		if limit > 0 || offset > 0 {
			return []model.BookingView{}
		}
		return views
	}
	views = views[offset:]
	if limit > 0 && limit < len(views) {
		views = views[:limit]
	}
	return views
}

// userSource reads one kind of a user's bookings with subjects populated.
func (s *bookingService) userSource(repo repository.BookingRepository) aggregator.BookingSource {
	return aggregator.SourceFunc(func(ctx context.Context, userID string) ([]*model.Booking, error) {
		bookings, err := repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			s.populateAs(ctx, b, normalizer.ResolveKind(b))
		}
		return bookings, nil
	})
}

func (s *bookingService) ListAll(ctx context.Context, actor model.Actor, kind model.BookingKind, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, withKind(apperrors.Forbidden("Only administrators can list all bookings"), kind)
	}
	repo, err := s.repo(kind)
	if err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !lifecycle.IsValidStatus(filter.Status) {
		return nil, 0, s.mapError(bookingserrors.ErrInvalidStatus, kind, "", filter.Status)
	}
	if filter.PaymentStatus != "" && !lifecycle.IsValidPaymentStatus(filter.PaymentStatus) {
		return nil, 0, s.mapError(bookingserrors.ErrInvalidPaymentStatus, kind, "", filter.PaymentStatus)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, s.mapError(bookingserrors.ErrInvalidFilter, kind, "", "")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "kind", kind, "error", errCount)
			errCount = withKind(apperrors.Internal("Failed to count bookings", errCount), kind)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "kind", kind, "limit", limit, "offset", offset, "error", errFind)
			errFind = withKind(apperrors.Internal("Failed to retrieve bookings", errFind), kind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	for _, b := range bookings {
		s.populateAs(ctx, b, kind)
	}
	return bookings, count, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, status string) (*model.Booking, error) {
	current, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.TransitionStatus(current, status, actor, s.now())
	if err != nil {
		return nil, s.mapError(err, kind, id, status)
	}
	if err := s.save(ctx, kind, next); err != nil {
		return nil, err
	}

	eventType := events.BookingStatusChanged
	if next.Status == model.StatusCancelled && current.Status != model.StatusCancelled {
		eventType = events.BookingCancelled
	}
	s.metrics.Transition(string(kind), "status")
	s.publish(ctx, eventType, next)

	s.cfg.Log.WithBooking(string(kind), id).Info("Booking status updated",
		"from", current.Status,
		"to", next.Status,
		"actor", actor.UserID,
	)
	s.populate(ctx, next)
	return next, nil
}

func (s *bookingService) UpdatePaymentStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, paymentStatus string) (*model.Booking, error) {
	if !actor.IsAdmin() {
		return nil, withKind(apperrors.Forbidden("Only administrators can change payment status"), kind)
	}
	current, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.TransitionPaymentStatus(current, paymentStatus, s.now())
	if err != nil {
		return nil, s.mapError(err, kind, id, paymentStatus)
	}
	if err := s.save(ctx, kind, next); err != nil {
		return nil, err
	}

	s.metrics.Transition(string(kind), "payment")
	s.publish(ctx, events.BookingPaymentChanged, next)

	s.cfg.Log.WithBooking(string(kind), id).Info("Booking payment status updated",
		"from", current.PaymentStatus,
		"to", next.PaymentStatus,
	)
	s.populate(ctx, next)
	return next, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, kind model.BookingKind, id string, reason string) (*model.Booking, error) {
	current, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Cancel(current, actor, reason, s.now())
	if err != nil {
		return nil, s.mapError(err, kind, id, "")
	}
	if err := s.save(ctx, kind, next); err != nil {
		return nil, err
	}

	s.metrics.Transition(string(kind), "cancel")
	s.publish(ctx, events.BookingCancelled, next)

	s.cfg.Log.WithBooking(string(kind), id).Info("Booking cancelled",
		"actor", actor.UserID,
		"reason", next.CancellationReason,
	)
	s.populate(ctx, next)
	return next, nil
}

func (s *bookingService) Delete(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) error {
	if !actor.IsAdmin() {
		return withKind(apperrors.Forbidden("Only administrators can delete bookings"), kind)
	}
	current, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}

	repo := s.repos[kind]
	if err := repo.Remove(ctx, id); err != nil {
		return s.mapError(err, kind, id, "")
	}

	s.metrics.Transition(string(kind), "delete")
	s.publish(ctx, events.BookingDeleted, current)

	s.cfg.Log.WithBooking(string(kind), id).Info("Booking deleted successfully")
	return nil
}

// --- Helpers ---

func (s *bookingService) repo(kind model.BookingKind) (repository.BookingRepository, error) {
	repo, ok := s.repos[kind]
	if !ok {
		return nil, s.mapError(bookingserrors.ErrInvalidKind, kind, "", "")
	}
	return repo, nil
}

func (s *bookingService) load(ctx context.Context, kind model.BookingKind, id string) (*model.Booking, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, withKind(apperrors.InvalidInput("Booking ID cannot be empty"), kind)
	}

	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, kind, id, "")
	}
	if booking.Kind == "" {
		booking.Kind = kind
	}
	return booking, nil
}

func (s *bookingService) save(ctx context.Context, kind model.BookingKind, b *model.Booking) error {
	if err := s.repos[kind].Save(ctx, b); err != nil {
		s.cfg.Log.WithBooking(string(kind), b.ID).Error("Failed to save booking", "error", err)
		return s.mapError(err, kind, b.ID, "")
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, eventType events.EventType, b *model.Booking) {
	if err := s.publisher.Publish(ctx, eventType, b); err != nil {
		s.cfg.Log.WithBooking(string(b.Kind), b.ID).Warn("Failed to publish booking event",
			"event_type", eventType,
			"error", err,
		)
	}
}

// mapError turns repository and lifecycle sentinels into AppErrors that carry
// the booking kind.
func (s *bookingService) mapError(err error, kind model.BookingKind, id string, requested string) error {
	var appErr *apperrors.AppError
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		appErr = apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		appErr = apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrForbidden):
		appErr = apperrors.Forbidden("You do not have access to this booking")
	case errors.Is(err, bookingserrors.ErrTerminalState):
		appErr = apperrors.TerminalState("Completed bookings cannot change status")
	case errors.Is(err, bookingserrors.ErrNotCancellable):
		appErr = apperrors.Conflict("Completed or cancelled bookings cannot be cancelled")
	case errors.Is(err, bookingserrors.ErrInvalidStatus):
		appErr = apperrors.InvalidStatus(fmt.Sprintf("Invalid status %q, expected one of: pending confirmed cancelled completed", requested))
	case errors.Is(err, bookingserrors.ErrInvalidPaymentStatus):
		appErr = apperrors.InvalidStatus(fmt.Sprintf("Invalid payment status %q, expected one of: pending paid refunded failed", requested))
	case errors.Is(err, bookingserrors.ErrInvalidKind):
		appErr = apperrors.InvalidInput(fmt.Sprintf("Invalid booking type %q, expected one of: tour hotel flight", kind))
	case errors.Is(err, bookingserrors.ErrInvalidFilter):
		appErr = apperrors.InvalidInput("Invalid booking filter, from must not be after to")
	case errors.Is(err, bookingserrors.ErrUpstreamUnavailable):
		appErr = apperrors.Unavailable("Booking subject store")
		appErr.Err = err
	default:
		appErr = apperrors.Internal("Failed to process booking", err)
	}
	return withKind(appErr, kind)
}

func withKind(appErr *apperrors.AppError, kind model.BookingKind) *apperrors.AppError {
	details := make(map[string]any, len(appErr.Details)+1)
	for k, v := range appErr.Details {
		details[k] = v
	}
	details["kind"] = kind
	return appErr.WithDetails(details)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return err.Error()
}

func isObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func subjectNotFound(resource, id string, kind model.BookingKind) error {
	return withKind(apperrors.NotFoundWithID(resource, id), kind)
}

func lowerEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
