package event

import (
	"time"

	"github.com/Merchously/iRun/internal/core/datamodel/user"
	"gorm.io/datatypes"
)

type Event struct {
	ID                    string                      `gorm:"primaryKey;size:36"`
	Slug                  string                      `gorm:"column:slug;size:200;uniqueIndex;not null"`
	Name                  string                      `gorm:"column:name;size:200;not null"`
	EventType             string                      `gorm:"column:event_type;size:20;not null"`
	Status                string                      `gorm:"column:status;size:20;not null;index"`
	StartDate             time.Time                   `gorm:"column:start_date;not null;index"`
	EndDate               *time.Time                  `gorm:"column:end_date"`
	RegistrationDeadline  *time.Time                  `gorm:"column:registration_deadline"`
	City                  string                      `gorm:"column:city;size:100;not null"`
	Province              string                      `gorm:"column:province;size:10;not null;index"`
	Country               string                      `gorm:"column:country;size:10;not null"`
	Venue                 *string                     `gorm:"column:venue;size:200"`
	Latitude              *float64                    `gorm:"column:latitude"`
	Longitude             *float64                    `gorm:"column:longitude"`
	Description           *string                     `gorm:"column:description"`
	ShortDescription      *string                     `gorm:"column:short_description;size:200"`
	HeroImageURL          *string                     `gorm:"column:hero_image_url"`
	ThumbnailURL          *string                     `gorm:"column:thumbnail_url"`
	Terrain               *string                     `gorm:"column:terrain;size:20;index"`
	ElevationGainMetres   *int                        `gorm:"column:elevation_gain_metres"`
	CourseDescription     *string                     `gorm:"column:course_description"`
	AvgTemperatureCelsius *int                        `gorm:"column:avg_temperature_celsius"`
	AvgPrecipitationMm    *float64                    `gorm:"column:avg_precipitation_mm"`
	AvgHumidityPercent    *int                        `gorm:"column:avg_humidity_percent"`
	AvgWindKmh            *int                        `gorm:"column:avg_wind_kmh"`
	AltitudeMetres        *int                        `gorm:"column:altitude_metres"`
	WeatherNotes          *string                     `gorm:"column:weather_notes;size:500"`
	PriceFromCad          *int                        `gorm:"column:price_from_cad"`
	PriceToCad            *int                        `gorm:"column:price_to_cad"`
	Currency              string                      `gorm:"column:currency;size:3;not null;default:'CAD'"`
	RegistrationURL       *string                     `gorm:"column:registration_url"`
	WebsiteURL            *string                     `gorm:"column:website_url"`
	ResultsURL            *string                     `gorm:"column:results_url"`
	Tags                  datatypes.JSONSlice[string] `gorm:"column:tags"`
	Amenities             datatypes.JSONSlice[string] `gorm:"column:amenities"`
	OrganizerName         *string                     `gorm:"column:organizer_name;size:200"`
	Featured              bool                        `gorm:"column:featured;not null;default:false;index"`
	ViewCount             int64                       `gorm:"column:view_count;not null;default:0"`
	CreatedBy             *string                     `gorm:"column:created_by;size:36"`
	CreatedAt             time.Time                   `gorm:"column:created_at"`
	UpdatedAt             time.Time                   `gorm:"column:updated_at"`

	Creator   *user.User `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"`
	Distances []Distance `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Rsvps     []Rsvp     `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

func (Event) TableName() string {
	return "events"
}

type Distance struct {
	ID              string    `gorm:"primaryKey;size:36"`
	EventID         string    `gorm:"column:event_id;size:36;not null;index"`
	Distance        string    `gorm:"column:distance;size:20;not null"`
	DistanceKm      *float64  `gorm:"column:distance_km"`
	DistanceLabel   *string   `gorm:"column:distance_label;size:100"`
	PriceCad        *int      `gorm:"column:price_cad"`
	Capacity        *int      `gorm:"column:capacity"`
	RegistrationURL *string   `gorm:"column:registration_url"`
	CutoffTime      *string   `gorm:"column:cutoff_time;size:20"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (Distance) TableName() string {
	return "event_distances"
}

// Rsvp.DistanceID carries no foreign key: distance rows are replaced wholesale on event update.
type Rsvp struct {
	ID              string    `gorm:"primaryKey;size:36"`
	UserID          string    `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_event_rsvps_user_event"`
	EventID         string    `gorm:"column:event_id;size:36;not null;uniqueIndex:idx_event_rsvps_user_event"`
	DistanceID      *string   `gorm:"column:distance_id;size:36"`
	Status          string    `gorm:"column:status;size:20;not null"`
	ResultTime      *string   `gorm:"column:result_time;size:20"`
	ResultPlacement *int      `gorm:"column:result_placement"`
	Notes           *string   `gorm:"column:notes"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`

	User *user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Rsvp) TableName() string {
	return "event_rsvps"
}
