package db

import (
	"context"
	"time"

	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingCollection implements BookingCollection for MongoDB.
type MongoBookingCollection struct {
	Collection *mongo.Collection
}

// InsertBooking inserts a booking and assigns its ID. CreatedAt and
// UpdatedAt are kept when already set.
func (c *MongoBookingCollection) InsertBooking(ctx context.Context, booking *models.Booking) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
	_, err := c.Collection.InsertOne(ctx, booking)
	return err
}

// FindBookingByID finds a booking by its hex ID.
func (c *MongoBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var booking models.Booking
	if err := findOne(ctx, c.Collection, bson.M{"_id": oid}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindBookingsByUser returns the user's bookings, newest first.
func (c *MongoBookingCollection) FindBookingsByUser(ctx context.Context, user primitive.ObjectID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := findAll(ctx, c.Collection, bson.M{"user": user}, &bookings, opts)
	return bookings, err
}

// UpdateBooking replaces a booking document.
func (c *MongoBookingCollection) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": booking.ID}, booking)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking removes a booking. Only used to roll back a booking whose
// reservation could not be written.
func (c *MongoBookingCollection) DeleteBooking(ctx context.Context, id primitive.ObjectID) error {
	if c.Collection == nil {
		return errNilCollection
	}
	_, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
