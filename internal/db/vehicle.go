package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var vehicleSortFields = map[string]string{
	"createdAt":   "created_at",
	"pricePerDay": "price_per_day",
	"rating":      "rating",
	"name":        "name",
}

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle and assigns its ID.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	if vehicle.BookedDates == nil {
		vehicle.BookedDates = []models.DateInterval{}
	}
	if vehicle.Reviews == nil {
		vehicle.Reviews = []models.Review{}
	}
	_, err := c.Collection.InsertOne(ctx, vehicle)
	return err
}

// FindVehicleByID finds a vehicle by its hex ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var vehicle models.Vehicle
	if err := findOne(ctx, c.Collection, bson.M{"_id": oid}, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehiclesByIDs loads every vehicle in ids, in no particular order.
func (c *MongoVehicleCollection) FindVehiclesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	if len(ids) == 0 {
		return vehicles, nil
	}
	err := findAll(ctx, c.Collection, bson.M{"_id": bson.M{"$in": ids}}, &vehicles)
	return vehicles, err
}

// FindVehicles returns one page of vehicles matching filter plus the total
// number of matches.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, filter VehicleFilter) ([]models.Vehicle, int64, error) {
	if c.Collection == nil {
		return nil, 0, errNilCollection
	}
	query := vehicleQuery(filter)

	sortField, ok := vehicleSortFields[filter.SortBy]
	if !ok {
		sortField = "created_at"
	}
	order := -1
	if filter.Ascending {
		order = 1
	}

	vehicles := []models.Vehicle{}
	opts := pageOptions(filter.Page, filter.Limit, bson.D{{Key: sortField, Value: order}})
	if err := findAll(ctx, c.Collection, query, &vehicles, opts); err != nil {
		return nil, 0, err
	}
	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func vehicleQuery(f VehicleFilter) bson.M {
	query := bson.M{}
	if f.Type != "" {
		query["type"] = f.Type
	}
	if f.Location != nil {
		query["location"] = *f.Location
	}
	if f.Available != nil {
		query["available"] = *f.Available
	}
	if f.MinSeats > 0 {
		query["seats"] = bson.M{"$gte": f.MinSeats}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		query["price_per_day"] = price
	}
	if f.Search != "" {
		query["$text"] = bson.M{"$search": f.Search}
	}
	return query
}

// freeOverQuery matches vehicles with no booked interval overlapping interval.
func freeOverQuery(interval models.DateInterval) bson.M {
	return bson.M{
		"$not": bson.M{
			"$elemMatch": bson.M{
				"start_date": bson.M{"$lt": interval.EndDate},
				"end_date":   bson.M{"$gt": interval.StartDate},
			},
		},
	}
}

// FindFreeVehicles returns available vehicles, optionally at one location,
// whose booked dates do not overlap interval.
func (c *MongoVehicleCollection) FindFreeVehicles(ctx context.Context, interval models.DateInterval, location *primitive.ObjectID) ([]models.Vehicle, error) {
	query := bson.M{
		"available":    true,
		"booked_dates": freeOverQuery(interval),
	}
	if location != nil {
		query["location"] = *location
	}
	vehicles := []models.Vehicle{}
	err := findAll(ctx, c.Collection, query, &vehicles)
	return vehicles, err
}

// VehicleTypes returns the distinct vehicle types in the catalog.
func (c *MongoVehicleCollection) VehicleTypes(ctx context.Context) ([]string, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	raw, err := c.Collection.Distinct(ctx, "type", bson.M{})
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			types = append(types, s)
		}
	}
	return types, nil
}

// CountVehiclesAtLocation counts vehicles whose home is location.
func (c *MongoVehicleCollection) CountVehiclesAtLocation(ctx context.Context, location primitive.ObjectID) (int64, error) {
	if c.Collection == nil {
		return 0, errNilCollection
	}
	return c.Collection.CountDocuments(ctx, bson.M{"location": location})
}

// UpdateVehicle writes the catalog fields of a vehicle. Booked dates, reviews
// and version are owned by other write paths and are left untouched.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	vehicle.UpdatedAt = time.Now()
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": vehicle.ID}, bson.M{"$set": bson.M{
		"name":          vehicle.Name,
		"type":          vehicle.Type,
		"images":        vehicle.Images,
		"price_per_day": vehicle.PricePerDay,
		"location":      vehicle.Location,
		"seats":         vehicle.Seats,
		"fuel_type":     vehicle.FuelType,
		"available":     vehicle.Available,
		"description":   vehicle.Description,
		"features":      vehicle.Features,
		"updated_at":    vehicle.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBookedDates replaces the vehicle's booked dates if its stored version
// still equals version, and bumps the version. ErrVersionConflict means
// another writer got there first.
func (c *MongoVehicleCollection) UpdateBookedDates(ctx context.Context, id primitive.ObjectID, dates []models.DateInterval, version int64) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if dates == nil {
		dates = []models.DateInterval{}
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": bson.M{"booked_dates": dates, "updated_at": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update booked dates: %w", err)
	}
	if result.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// AddReview appends review unless its user already reviewed the vehicle, and
// stores the recomputed aggregate.
func (c *MongoVehicleCollection) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review, rating float64, count int) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "reviews.user": bson.M{"$ne": review.User}},
		bson.M{
			"$push": bson.M{"reviews": review},
			"$set":  bson.M{"rating": rating, "review_count": count, "updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrDuplicate
	}
	return nil
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id primitive.ObjectID) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
