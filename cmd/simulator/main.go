package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/auth"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Simulator drives booking traffic against a running API.
type Simulator struct {
	apiURL string
	client *http.Client
	tokens *auth.Service
}

// Result tallies the outcome of a burst of booking requests.
type Result struct {
	Created   int
	Conflicts int
	Failed    int
}

// NewSimulator returns a simulator that signs its own tokens with secret.
func NewSimulator(apiURL, secret string) *Simulator {
	return &Simulator{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
		tokens: auth.NewService(secret, time.Hour),
	}
}

func (s *Simulator) token(role models.Role) (string, error) {
	userID := primitive.NewObjectID().Hex()
	return s.tokens.GenerateToken(userID, "sim-"+userID[len(userID)-6:], role)
}

func (s *Simulator) post(ctx context.Context, path, token string, body interface{}, headers map[string]string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.client.Do(req)
}

// create posts body as an admin and returns the new document's id.
func (s *Simulator) create(ctx context.Context, path, token string, body interface{}) (string, error) {
	resp, err := s.post(ctx, path, token, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s creation failed with status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.ID, nil
}

// Setup creates a location and a vehicle parked there.
func (s *Simulator) Setup(ctx context.Context) (vehicleID, locationID string, err error) {
	admin, err := s.token(models.RoleAdmin)
	if err != nil {
		return "", "", err
	}

	name := "Simulator Depot"
	address := models.Address{Street: "1 Test Way", City: "London", State: "LDN", Country: "UK", ZipCode: "EC1A"}
	coords := models.Coordinates{Latitude: 51.5074, Longitude: -0.1278}
	locationID, err = s.create(ctx, "/locations", admin, service.LocationInput{
		Name: &name, Address: &address, Coordinates: &coords,
	})
	if err != nil {
		return "", "", err
	}

	vehicleName := "Sim Hatchback"
	vehicleType := models.VehicleTypeCar
	price := 45.0
	seats := 4
	description := "created by the booking simulator"
	vehicleID, err = s.create(ctx, "/vehicles", admin, service.VehicleInput{
		Name: &vehicleName, Type: &vehicleType, PricePerDay: &price,
		Location: &locationID, Seats: &seats, Description: &description,
	})
	if err != nil {
		return "", "", err
	}
	return vehicleID, locationID, nil
}

// BookConcurrently fires n booking requests for the same range at once,
// each from a different user.
func (s *Simulator) BookConcurrently(ctx context.Context, n int, in service.CreateBookingInput) Result {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result Result
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := s.token(models.RoleUser)
			<-start
			status := 0
			if err == nil {
				var resp *http.Response
				resp, err = s.post(ctx, "/bookings", token, in, map[string]string{"Idempotency-Key": uuid.NewString()})
				if err == nil {
					status = resp.StatusCode
					resp.Body.Close()
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case status == http.StatusCreated:
				result.Created++
			case status == http.StatusConflict:
				result.Conflicts++
			default:
				result.Failed++
				log.WithFields(log.Fields{"request": i, "status": status}).WithError(err).Warn("Booking request failed")
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return result
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	secret := os.Getenv("JWT_SECRET")

	concurrency := 10
	if val := os.Getenv("SIM_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			concurrency = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sim := NewSimulator(apiURL, secret)

	vehicleID := os.Getenv("SIM_VEHICLE_ID")
	locationID := os.Getenv("SIM_LOCATION_ID")
	if vehicleID == "" || locationID == "" {
		var err error
		vehicleID, locationID, err = sim.Setup(ctx)
		if err != nil {
			log.WithError(err).Fatal("Failed to set up simulator fleet. Ensure JWT_SECRET matches the API.")
		}
	}

	startDate := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	in := service.CreateBookingInput{
		VehicleID:         vehicleID,
		StartDate:         startDate.Format("2006-01-02"),
		EndDate:           startDate.AddDate(0, 0, 3).Format("2006-01-02"),
		PickupLocationID:  locationID,
		DropoffLocationID: locationID,
	}

	log.WithFields(log.Fields{
		"api_url":     apiURL,
		"vehicle_id":  vehicleID,
		"concurrency": concurrency,
		"start":       in.StartDate,
		"end":         in.EndDate,
	}).Info("Starting booking simulation")

	result := sim.BookConcurrently(ctx, concurrency, in)

	entry := log.WithFields(log.Fields{
		"created":   result.Created,
		"conflicts": result.Conflicts,
		"failed":    result.Failed,
	})
	if result.Created != 1 || result.Failed > 0 {
		entry.Error("Expected exactly one booking to succeed")
		os.Exit(1)
	}
	entry.Info("Booking simulation completed")
}
