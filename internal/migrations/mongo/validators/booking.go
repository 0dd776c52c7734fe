package validators

import (
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var numeric = []string{"double", "int", "long", "decimal"}

// BookingValidator returns the schema for one booking collection. Legacy
// documents predate booking_type and the reference fields, so only ownership,
// lifecycle and money are required.
func BookingValidator(kind model.BookingKind) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": []string{
				"user_id",
				"status",
				"payment_status",
				"total_price",
				"created_at",
			},
			"additionalProperties": true,

			"properties": bson.M{
				"_id": bson.M{
					"bsonType": "objectId",
				},

				"user_id": bson.M{
					"bsonType":  "string",
					"minLength": 1,
				},

				"booking_type": bson.M{
					"bsonType": "string",
					"enum":     []string{string(kind)},
				},

				"status": bson.M{
					"bsonType": "string",
					"enum": []string{
						model.StatusPending,
						model.StatusConfirmed,
						model.StatusCancelled,
						model.StatusCompleted,
					},
				},

				"payment_status": bson.M{
					"bsonType": "string",
					"enum": []string{
						model.PaymentPending,
						model.PaymentPaid,
						model.PaymentRefunded,
						model.PaymentFailed,
					},
				},

				"total_price": bson.M{
					"bsonType": numeric,
					"minimum":  0,
				},

				"currency": bson.M{
					"bsonType":  "string",
					"minLength": 3,
					"maxLength": 3,
				},

				"booking_reference": bson.M{
					"bsonType": "string",
				},

				"booking_number": bson.M{
					"bsonType": "string",
				},

				"created_at": bson.M{
					"bsonType": "date",
				},

				"updated_at": bson.M{
					"bsonType": "date",
				},
			},
		},
	}
}

// FlightValidator only pins what the booking flow relies on when it
// synthesizes a flight from the aviation provider.
var FlightValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"flight_number"},
		"additionalProperties": true,

		"properties": bson.M{
			"flight_number": bson.M{
				"bsonType":  "string",
				"minLength": 2,
			},
			"price": bson.M{
				"bsonType": numeric,
				"minimum":  0,
			},
		},
	},
}
