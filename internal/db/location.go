package db

import (
	"context"
	"time"

	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLocationCollection implements LocationCollection for MongoDB.
type MongoLocationCollection struct {
	Collection *mongo.Collection
}

// InsertLocation inserts a location and assigns its ID.
func (c *MongoLocationCollection) InsertLocation(ctx context.Context, location *models.Location) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	if location.ID.IsZero() {
		location.ID = primitive.NewObjectID()
	}
	location.CreatedAt = now
	location.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, location)
	return err
}

// FindLocationByID finds a location by its hex ID.
func (c *MongoLocationCollection) FindLocationByID(ctx context.Context, id string) (*models.Location, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var location models.Location
	if err := findOne(ctx, c.Collection, bson.M{"_id": oid}, &location); err != nil {
		return nil, err
	}
	return &location, nil
}

// FindLocationsByIDs loads every location in ids.
func (c *MongoLocationCollection) FindLocationsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Location, error) {
	locations := []models.Location{}
	if len(ids) == 0 {
		return locations, nil
	}
	err := findAll(ctx, c.Collection, bson.M{"_id": bson.M{"$in": ids}}, &locations)
	return locations, err
}

// FindLocations returns one page of locations sorted by country then city.
func (c *MongoLocationCollection) FindLocations(ctx context.Context, filter LocationFilter) ([]models.Location, int64, error) {
	if c.Collection == nil {
		return nil, 0, errNilCollection
	}
	query := bson.M{}
	if filter.Country != "" {
		query["address.country"] = filter.Country
	}
	if filter.City != "" {
		query["address.city"] = filter.City
	}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}
	if filter.Search != "" {
		query["$text"] = bson.M{"$search": filter.Search}
	}

	locations := []models.Location{}
	opts := pageOptions(filter.Page, filter.Limit, bson.D{
		{Key: "address.country", Value: 1},
		{Key: "address.city", Value: 1},
	})
	if err := findAll(ctx, c.Collection, query, &locations, opts); err != nil {
		return nil, 0, err
	}
	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return locations, total, nil
}

// UpdateLocation replaces a location document.
func (c *MongoLocationCollection) UpdateLocation(ctx context.Context, location *models.Location) error {
	if c.Collection == nil {
		return errNilCollection
	}
	location.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": location.ID}, location)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLocation deletes a location by its ID.
func (c *MongoLocationCollection) DeleteLocation(ctx context.Context, id primitive.ObjectID) error {
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
