package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "gotour/internal/bookings/errors"
	"gotour/pkg/config"
	mongotx "gotour/pkg/db/mongo"
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TourBookingsCollection   = "Tour_bookings"
	HotelBookingsCollection  = "Hotel_bookings"
	FlightBookingsCollection = "Flight_bookings"
)

var collectionNames = map[model.BookingKind]string{
	model.KindTour:   TourBookingsCollection,
	model.KindHotel:  HotelBookingsCollection,
	model.KindFlight: FlightBookingsCollection,
}

func CollectionName(kind model.BookingKind) string {
	return collectionNames[kind]
}

type Filter = model.BookingFilter

type mongoBookingRepository struct {
	cfg        *config.Config
	kind       model.BookingKind
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

// BookingRepository persists the bookings of a single kind.
type BookingRepository interface {
	Kind() model.BookingKind
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Save(ctx context.Context, booking *model.Booking) error
	Remove(ctx context.Context, id string) error
	SetReferenceIfMissing(ctx context.Context, id string, reference string) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config, kind model.BookingKind) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		kind:       kind,
		collection: db.Collection(CollectionName(kind)),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.Log),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext is returned unchanged since wrapping it drops the session.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Kind() model.BookingKind {
	return r.kind
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.Kind = r.kind
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrDuplicateReference, err)
		}
		return fmt.Errorf("failed to create %s booking: %w", r.kind, err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s booking: %w", r.kind, err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *mongoBookingRepository) Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, buildFilter(filter), opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s bookings: %w", r.kind, err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode %s bookings: %w", r.kind, err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s bookings: %w", r.kind, err)
	}
	return count, nil
}

// Save writes every mutable field of booking. Identity, owner, subject and
// CreatedAt are never rewritten.
func (r *mongoBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, saveUpdate(booking))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrDuplicateReference, err)
		}
		return fmt.Errorf("failed to save %s booking: %w", r.kind, err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Remove(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete %s booking: %w", r.kind, err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

// SetReferenceIfMissing stores reference only when the booking has none yet.
// It reports false when another writer got there first.
func (r *mongoBookingRepository) SetReferenceIfMissing(ctx context.Context, id string, reference string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{"booking_reference": reference}}
	result, err := r.collection.UpdateOne(ctx, missingReference(objectID), update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("%w: %v", bookingserrors.ErrDuplicateReference, err)
		}
		return false, fmt.Errorf("failed to set %s booking reference: %w", r.kind, err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// saveUpdate lists the fields Save may change.
func saveUpdate(booking *model.Booking) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":              booking.Status,
			"payment_status":      booking.PaymentStatus,
			"payment_method":      booking.PaymentMethod,
			"cancellation_reason": booking.CancellationReason,
			"booking_reference":   booking.BookingReference,
			"total_price":         booking.TotalPrice,
			"currency":            booking.Currency,
			"special_requests":    booking.SpecialRequests,
			"contact_info":        booking.ContactInfo,
			"updated_at":          booking.UpdatedAt,
		},
	}
}

// missingReference matches the booking only while its reference is absent,
// null or empty.
func missingReference(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id": id,
		"$or": []bson.M{
			{"booking_reference": bson.M{"$exists": false}},
			{"booking_reference": nil},
			{"booking_reference": ""},
		},
	}
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["payment_status"] = f.PaymentStatus
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		created := bson.M{}
		if !f.From.IsZero() {
			created["$gte"] = f.From
		}
		if !f.To.IsZero() {
			created["$lte"] = f.To
		}
		filter["created_at"] = created
	}
	return filter
}
