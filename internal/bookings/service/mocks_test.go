package service

import (
	"context"
	"io"
	"sync"
	"time"

	"gotour/internal/aviation"
	bookingserrors "gotour/internal/bookings/errors"
	"gotour/internal/bookings/events"
	"gotour/internal/bookings/reference"
	"gotour/internal/bookings/repository"
	"gotour/internal/bookings/validator"
	"gotour/pkg/config"
	mongotx "gotour/pkg/db/mongo"
	"gotour/pkg/logger"
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Mock repositories for testing
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	kind model.BookingKind

	mu      sync.Mutex
	created []*model.Booking
	saved   []*model.Booking
	removed []string

	createFunc       func(ctx context.Context, b *model.Booking) error
	findByIDFunc     func(ctx context.Context, id string) (*model.Booking, error)
	findByUserFunc   func(ctx context.Context, userID string) ([]*model.Booking, error)
	findFunc         func(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, error)
	countFunc        func(ctx context.Context, filter repository.Filter) (int64, error)
	saveFunc         func(ctx context.Context, b *model.Booking) error
	removeFunc       func(ctx context.Context, id string) error
	setReferenceFunc func(ctx context.Context, id, ref string) (bool, error)

	// onRollback runs when a transaction function fails.
	onRollback func()
}

func (m *mockBookingRepository) Kind() model.BookingKind {
	return m.kind
}

func (m *mockBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Kind = m.kind
	if b.ID == "" {
		b.ID = "665f1c2e8b3e4a00000000aa"
	}
	m.created = append(m.created, b)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockBookingRepository) Find(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context, filter repository.Filter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockBookingRepository) Save(ctx context.Context, b *model.Booking) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, b)
	return nil
}

func (m *mockBookingRepository) Remove(ctx context.Context, id string) error {
	if m.removeFunc != nil {
		if err := m.removeFunc(ctx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockBookingRepository) SetReferenceIfMissing(ctx context.Context, id, ref string) (bool, error) {
	if m.setReferenceFunc != nil {
		return m.setReferenceFunc(ctx, id, ref)
	}
	return true, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	err := fn(mongo.NewSessionContext(ctx, nil))
	if err != nil && m.onRollback != nil {
		m.onRollback()
	}
	return err
}

type mockSubjectRepository struct {
	mu      sync.Mutex
	tours   map[string]*model.Tour
	hotels  map[string]*model.Hotel
	flights map[string]*model.Flight

	createFlightCalls int
	createFlightFunc  func(ctx context.Context, f *model.Flight) error

	// findErr fails every lookup when set.
	findErr error
}

func newMockSubjects() *mockSubjectRepository {
	return &mockSubjectRepository{
		tours:   map[string]*model.Tour{},
		hotels:  map[string]*model.Hotel{},
		flights: map[string]*model.Flight{},
	}
}

func (m *mockSubjectRepository) FindTour(_ context.Context, id string) (*model.Tour, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if t, ok := m.tours[id]; ok {
		return t, nil
	}
	return nil, bookingserrors.ErrSubjectNotFound
}

func (m *mockSubjectRepository) FindHotel(_ context.Context, id string) (*model.Hotel, error) {
	if h, ok := m.hotels[id]; ok {
		return h, nil
	}
	return nil, bookingserrors.ErrSubjectNotFound
}

func (m *mockSubjectRepository) FindFlight(_ context.Context, id string) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flights[id]; ok {
		return f, nil
	}
	return nil, bookingserrors.ErrSubjectNotFound
}

func (m *mockSubjectRepository) FindFlightByNumber(_ context.Context, number string) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flights {
		if f.FlightNumber == number {
			return f, nil
		}
	}
	return nil, bookingserrors.ErrSubjectNotFound
}

func (m *mockSubjectRepository) CreateFlight(ctx context.Context, f *model.Flight) error {
	m.mu.Lock()
	m.createFlightCalls++
	m.mu.Unlock()
	if m.createFlightFunc != nil {
		if err := m.createFlightFunc(ctx, f); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = "665f1c2e8b3e4a00000000ff"
	m.flights[f.ID] = f
	return nil
}

func (m *mockSubjectRepository) deleteFlight(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flights, id)
}

type mockProvider struct {
	calls   int
	details *aviation.FlightDetails
	err     error
}

func (m *mockProvider) FlightDetails(context.Context, string, string) (*aviation.FlightDetails, error) {
	m.calls++
	return m.details, m.err
}

type publishedEvent struct {
	eventType events.EventType
	booking   model.Booking
}

type mockPublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, eventType events.EventType, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedEvent{eventType: eventType, booking: *b})
	return m.err
}

func (m *mockPublisher) Close() error {
	return nil
}

func (m *mockPublisher) types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.EventType
	for _, e := range m.published {
		out = append(out, e.eventType)
	}
	return out
}

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type fixture struct {
	repos     map[model.BookingKind]*mockBookingRepository
	subjects  *mockSubjectRepository
	provider  *mockProvider
	publisher *mockPublisher
	service   *bookingService
	now       time.Time
}

var (
	owner    = model.Actor{UserID: "user-1", Role: model.RoleUser}
	stranger = model.Actor{UserID: "user-2", Role: model.RoleUser}
	admin    = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
)

const (
	tourID  = "665f1c2e8b3e4a0000000001"
	hotelID = "665f1c2e8b3e4a0000000002"
	bookID  = "665f1c2e8b3e4a0000000010"
)

func newFixture() *fixture {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		Output:    io.Discard,
		AddSource: false,
		Service:   "test",
	})
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	f := &fixture{
		repos: map[model.BookingKind]*mockBookingRepository{
			model.KindTour:   {kind: model.KindTour},
			model.KindHotel:  {kind: model.KindHotel},
			model.KindFlight: {kind: model.KindFlight},
		},
		subjects:  newMockSubjects(),
		provider:  &mockProvider{err: aviation.ErrFlightNotFound},
		publisher: &mockPublisher{},
		now:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	f.subjects.tours[tourID] = &model.Tour{ID: tourID, Name: "Ha Long Bay Cruise", Images: []string{"halong.jpg"}, Duration: 3, Price: 2500000}
	f.subjects.hotels[hotelID] = &model.Hotel{
		ID:     hotelID,
		Name:   "Riverside Hotel",
		Images: []string{"riverside.jpg"},
		Rooms:  []model.Room{{ID: "deluxe", Name: "Deluxe Double", Price: 1200000}},
	}

	repos := make(map[model.BookingKind]repository.BookingRepository, len(f.repos))
	for kind, r := range f.repos {
		repos[kind] = r
	}

	seq := int64(0)
	refs := &reference.Generator{
		Now: func() time.Time { return f.now },
		Rand: func(max int64) (int64, error) {
			seq++
			return seq % max, nil
		},
	}

	svc := NewBookingService(Dependencies{
		Repos:      repos,
		Subjects:   f.subjects,
		Flights:    f.provider,
		Validator:  validator.NewBookingValidator(log),
		Publisher:  f.publisher,
		References: refs,
	}, cfg).(*bookingService)
	svc.now = func() time.Time { return f.now }
	f.service = svc
	return f
}

// stored returns a repository lookup that hands out copies of b.
func stored(b model.Booking) func(context.Context, string) (*model.Booking, error) {
	return func(_ context.Context, id string) (*model.Booking, error) {
		if id != b.ID {
			return nil, bookingserrors.ErrNotFound
		}
		c := b
		return &c, nil
	}
}
