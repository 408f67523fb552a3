package event

import (
	"time"

	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	SortDate    = "date"
	SortPrice   = "price"
	SortPopular = "popular"
)

const (
	RsvpInterested = "interested"
	RsvpRegistered = "registered"
	RsvpCompleted  = "completed"
	RsvpDNS        = "dns"
)

const (
	DefaultCountry  = "CA"
	DefaultCurrency = "CAD"
)

var (
	Statuses           = []string{StatusDraft, StatusPublished, StatusCancelled, StatusCompleted}
	EventTypes         = []string{"race", "fun_run", "clinic", "relay", "virtual"}
	Terrains           = []string{"road", "trail", "mixed", "track"}
	DistanceCategories = []string{"5k", "10k", "half", "marathon", "ultra", "custom"}
	SortOrders         = []string{SortDate, SortPrice, SortPopular}
)

type Distance struct {
	ID              string   `json:"id"`
	EventID         string   `json:"event_id"`
	Distance        string   `json:"distance"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	DistanceLabel   *string  `json:"distance_label,omitempty"`
	PriceCad        *int     `json:"price_cad,omitempty"`
	Capacity        *int     `json:"capacity,omitempty"`
	RegistrationURL *string  `json:"registration_url,omitempty"`
	CutoffTime      *string  `json:"cutoff_time,omitempty"`
}

type Event struct {
	ID                    string     `json:"id"`
	Slug                  string     `json:"slug"`
	Name                  string     `json:"name"`
	EventType             string     `json:"event_type"`
	Status                string     `json:"status"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	RegistrationDeadline  *time.Time `json:"registration_deadline,omitempty"`
	City                  string     `json:"city"`
	Province              string     `json:"province"`
	Country               string     `json:"country"`
	Venue                 *string    `json:"venue,omitempty"`
	Latitude              *float64   `json:"latitude,omitempty"`
	Longitude             *float64   `json:"longitude,omitempty"`
	Description           *string    `json:"description,omitempty"`
	ShortDescription      *string    `json:"short_description,omitempty"`
	HeroImageURL          *string    `json:"hero_image_url,omitempty"`
	ThumbnailURL          *string    `json:"thumbnail_url,omitempty"`
	Terrain               *string    `json:"terrain,omitempty"`
	ElevationGainMetres   *int       `json:"elevation_gain_metres,omitempty"`
	CourseDescription     *string    `json:"course_description,omitempty"`
	AvgTemperatureCelsius *int       `json:"avg_temperature_celsius,omitempty"`
	AvgPrecipitationMm    *float64   `json:"avg_precipitation_mm,omitempty"`
	AvgHumidityPercent    *int       `json:"avg_humidity_percent,omitempty"`
	AvgWindKmh            *int       `json:"avg_wind_kmh,omitempty"`
	AltitudeMetres        *int       `json:"altitude_metres,omitempty"`
	WeatherNotes          *string    `json:"weather_notes,omitempty"`
	PriceFromCad          *int       `json:"price_from_cad,omitempty"`
	PriceToCad            *int       `json:"price_to_cad,omitempty"`
	Currency              string     `json:"currency"`
	RegistrationURL       *string    `json:"registration_url,omitempty"`
	WebsiteURL            *string    `json:"website_url,omitempty"`
	ResultsURL            *string    `json:"results_url,omitempty"`
	Tags                  []string   `json:"tags"`
	Amenities             []string   `json:"amenities"`
	OrganizerName         *string    `json:"organizer_name,omitempty"`
	Featured              bool       `json:"featured"`
	ViewCount             int64      `json:"view_count"`
	CreatedBy             *string    `json:"created_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Distances             []Distance `json:"distances"`
}

type Rsvp struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	EventID         string    `json:"event_id"`
	DistanceID      *string   `json:"distance_id,omitempty"`
	Status          string    `json:"status"`
	ResultTime      *string   `json:"result_time,omitempty"`
	ResultPlacement *int      `json:"result_placement,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Page is one page of the filtered catalog. Total and TotalPages count every event
// matching the row predicates, before any distance-category filtering.
type Page struct {
	Events     []Event `json:"events"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

func DistanceFromDataModel(d *eventDatamodel.Distance) Distance {
	return Distance{
		ID:              d.ID,
		EventID:         d.EventID,
		Distance:        d.Distance,
		DistanceKm:      d.DistanceKm,
		DistanceLabel:   d.DistanceLabel,
		PriceCad:        d.PriceCad,
		Capacity:        d.Capacity,
		RegistrationURL: d.RegistrationURL,
		CutoffTime:      d.CutoffTime,
	}
}

// FromDataModel converts a row; distances is attached as-is and may be nil.
func FromDataModel(e *eventDatamodel.Event, distances []eventDatamodel.Distance) Event {
	out := Event{
		ID:                    e.ID,
		Slug:                  e.Slug,
		Name:                  e.Name,
		EventType:             e.EventType,
		Status:                e.Status,
		StartDate:             e.StartDate,
		EndDate:               e.EndDate,
		RegistrationDeadline:  e.RegistrationDeadline,
		City:                  e.City,
		Province:              e.Province,
		Country:               e.Country,
		Venue:                 e.Venue,
		Latitude:              e.Latitude,
		Longitude:             e.Longitude,
		Description:           e.Description,
		ShortDescription:      e.ShortDescription,
		HeroImageURL:          e.HeroImageURL,
		ThumbnailURL:          e.ThumbnailURL,
		Terrain:               e.Terrain,
		ElevationGainMetres:   e.ElevationGainMetres,
		CourseDescription:     e.CourseDescription,
		AvgTemperatureCelsius: e.AvgTemperatureCelsius,
		AvgPrecipitationMm:    e.AvgPrecipitationMm,
		AvgHumidityPercent:    e.AvgHumidityPercent,
		AvgWindKmh:            e.AvgWindKmh,
		AltitudeMetres:        e.AltitudeMetres,
		WeatherNotes:          e.WeatherNotes,
		PriceFromCad:          e.PriceFromCad,
		PriceToCad:            e.PriceToCad,
		Currency:              e.Currency,
		RegistrationURL:       e.RegistrationURL,
		WebsiteURL:            e.WebsiteURL,
		ResultsURL:            e.ResultsURL,
		Tags:                  []string(e.Tags),
		Amenities:             []string(e.Amenities),
		OrganizerName:         e.OrganizerName,
		Featured:              e.Featured,
		ViewCount:             e.ViewCount,
		CreatedBy:             e.CreatedBy,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
		Distances:             make([]Distance, 0, len(distances)),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Amenities == nil {
		out.Amenities = []string{}
	}
	for i := range distances {
		out.Distances = append(out.Distances, DistanceFromDataModel(&distances[i]))
	}
	return out
}

func RsvpFromDataModel(r *eventDatamodel.Rsvp) *Rsvp {
	return &Rsvp{
		ID:              r.ID,
		UserID:          r.UserID,
		EventID:         r.EventID,
		DistanceID:      r.DistanceID,
		Status:          r.Status,
		ResultTime:      r.ResultTime,
		ResultPlacement: r.ResultPlacement,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}
