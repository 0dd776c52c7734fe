package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingserrors "gotour/internal/bookings/errors"
	"gotour/pkg/config"
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ToursCollection   = "Tours"
	HotelsCollection  = "Hotels"
	FlightsCollection = "Flights"
)

// SubjectRepository reads the tours, hotels and flights that bookings refer to.
// Missing subjects are reported as ErrSubjectNotFound.
type SubjectRepository interface {
	FindTour(ctx context.Context, id string) (*model.Tour, error)
	FindHotel(ctx context.Context, id string) (*model.Hotel, error)
	FindFlight(ctx context.Context, id string) (*model.Flight, error)
	FindFlightByNumber(ctx context.Context, number string) (*model.Flight, error)
	CreateFlight(ctx context.Context, flight *model.Flight) error
}

type mongoSubjectRepository struct {
	cfg     *config.Config
	tours   *mongo.Collection
	hotels  *mongo.Collection
	flights *mongo.Collection
}

func NewMongoSubjectRepository(cfg *config.Config) SubjectRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSubjectRepository{
		cfg:     cfg,
		tours:   db.Collection(ToursCollection),
		hotels:  db.Collection(HotelsCollection),
		flights: db.Collection(FlightsCollection),
	}
}

func (r *mongoSubjectRepository) FindTour(ctx context.Context, id string) (*model.Tour, error) {
	var tour model.Tour
	if err := r.findOne(ctx, r.tours, idFilter(id), &tour); err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *mongoSubjectRepository) FindHotel(ctx context.Context, id string) (*model.Hotel, error) {
	var hotel model.Hotel
	if err := r.findOne(ctx, r.hotels, idFilter(id), &hotel); err != nil {
		return nil, err
	}
	return &hotel, nil
}

func (r *mongoSubjectRepository) FindFlight(ctx context.Context, id string) (*model.Flight, error) {
	var flight model.Flight
	if err := r.findOne(ctx, r.flights, idFilter(id), &flight); err != nil {
		return nil, err
	}
	return &flight, nil
}

func (r *mongoSubjectRepository) FindFlightByNumber(ctx context.Context, number string) (*model.Flight, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, bookingserrors.ErrSubjectNotFound
	}

	var flight model.Flight
	if err := r.findOne(ctx, r.flights, bson.M{"flight_number": number}, &flight); err != nil {
		return nil, err
	}
	return &flight, nil
}

func (r *mongoSubjectRepository) CreateFlight(ctx context.Context, flight *model.Flight) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.flights.InsertOne(ctx, flight)
	if err != nil {
		return fmt.Errorf("failed to create flight %s: %w", flight.FlightNumber, err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		flight.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSubjectRepository) findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) error {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	err := coll.FindOne(ctx, filter).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return bookingserrors.ErrSubjectNotFound
		}
		return fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	return nil
}

// idFilter matches either the ObjectID or the legacy string id alias.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$or": []bson.M{{"_id": oid}, {"id": id}}}
	}
	return bson.M{"id": id}
}
