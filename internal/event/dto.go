package event

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/core/common/validation"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"gorm.io/datatypes"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// EventInput carries both create and update payloads. A nil field is absent: create
// falls back to defaults, update leaves the column untouched.
type EventInput struct {
	Name                  *string    `json:"name"`
	Slug                  *string    `json:"slug"`
	EventType             *string    `json:"event_type"`
	Status                *string    `json:"status"`
	StartDate             *time.Time `json:"start_date"`
	EndDate               *time.Time `json:"end_date"`
	RegistrationDeadline  *time.Time `json:"registration_deadline"`
	City                  *string    `json:"city"`
	Province              *string    `json:"province"`
	Country               *string    `json:"country"`
	Venue                 *string    `json:"venue"`
	Latitude              *float64   `json:"latitude"`
	Longitude             *float64   `json:"longitude"`
	Description           *string    `json:"description"`
	ShortDescription      *string    `json:"short_description"`
	HeroImageURL          *string    `json:"hero_image_url"`
	ThumbnailURL          *string    `json:"thumbnail_url"`
	Terrain               *string    `json:"terrain"`
	ElevationGainMetres   *int       `json:"elevation_gain_metres"`
	CourseDescription     *string    `json:"course_description"`
	AvgTemperatureCelsius *int       `json:"avg_temperature_celsius"`
	AvgPrecipitationMm    *float64   `json:"avg_precipitation_mm"`
	AvgHumidityPercent    *int       `json:"avg_humidity_percent"`
	AvgWindKmh            *int       `json:"avg_wind_kmh"`
	AltitudeMetres        *int       `json:"altitude_metres"`
	WeatherNotes          *string    `json:"weather_notes"`
	PriceFromCad          *int       `json:"price_from_cad"`
	PriceToCad            *int       `json:"price_to_cad"`
	RegistrationURL       *string    `json:"registration_url"`
	WebsiteURL            *string    `json:"website_url"`
	ResultsURL            *string    `json:"results_url"`
	Tags                  []string   `json:"tags"`
	Amenities             []string   `json:"amenities"`
	OrganizerName         *string    `json:"organizer_name"`
	Featured              *bool      `json:"featured"`
}

type DistanceInput struct {
	Distance        string   `json:"distance"`
	DistanceKm      *float64 `json:"distance_km"`
	DistanceLabel   *string  `json:"distance_label"`
	PriceCad        *int     `json:"price_cad"`
	Capacity        *int     `json:"capacity"`
	RegistrationURL *string  `json:"registration_url"`
	CutoffTime      *string  `json:"cutoff_time"`
}

// Normalize turns empty strings into absent values.
func (in EventInput) Normalize() EventInput {
	for _, p := range []**string{
		&in.Name, &in.Slug, &in.EventType, &in.Status, &in.City, &in.Province, &in.Country,
		&in.Venue, &in.Description, &in.ShortDescription, &in.HeroImageURL, &in.ThumbnailURL,
		&in.Terrain, &in.CourseDescription, &in.WeatherNotes, &in.RegistrationURL,
		&in.WebsiteURL, &in.ResultsURL, &in.OrganizerName,
	} {
		*p = blankToNil(*p)
	}
	return in
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Validate reports the first failing field. Required fields are enforced only on create.
func (in EventInput) Validate(create bool) *internal.AppError {
	v := validation.NewValidator()

	required := func(fv *validation.FieldValidator) *validation.FieldValidator {
		if create {
			return fv.Required()
		}
		return fv
	}

	required(v.Field("name", in.Name)).MinLength(3).MaxLength(200)
	required(v.Field("slug", in.Slug)).MinLength(3).MaxLength(200).Pattern(slugPattern, "slug must be a valid URL slug")
	required(v.Field("event_type", in.EventType)).OneOf(EventTypes...)
	required(v.Field("start_date", in.StartDate))
	v.Field("end_date", in.EndDate).Custom(func(interface{}) *internal.AppError {
		if in.EndDate != nil && in.StartDate != nil && in.EndDate.Before(*in.StartDate) {
			return internal.NewValidationFieldError("end_date", "end_date must not be before start_date", internal.ErrCodeOutOfRange)
		}
		return nil
	})
	required(v.Field("city", in.City)).MaxLength(100)
	required(v.Field("province", in.Province)).MaxLength(10)
	v.Field("country", in.Country).MaxLength(10)
	v.Field("venue", in.Venue).MaxLength(200)
	v.Field("latitude", in.Latitude).FloatRange(-90, 90)
	v.Field("longitude", in.Longitude).FloatRange(-180, 180)
	v.Field("short_description", in.ShortDescription).MaxLength(200)
	v.Field("hero_image_url", in.HeroImageURL).URL()
	v.Field("thumbnail_url", in.ThumbnailURL).URL()
	v.Field("terrain", in.Terrain).OneOf(Terrains...)
	v.Field("elevation_gain_metres", in.ElevationGainMetres).MinInt(0)
	v.Field("avg_precipitation_mm", in.AvgPrecipitationMm).NonNegativeFloat()
	v.Field("avg_humidity_percent", in.AvgHumidityPercent).MinInt(0).MaxInt(100)
	v.Field("avg_wind_kmh", in.AvgWindKmh).MinInt(0)
	v.Field("weather_notes", in.WeatherNotes).MaxLength(500)
	v.Field("price_from_cad", in.PriceFromCad).MinInt(0)
	v.Field("price_to_cad", in.PriceToCad).MinInt(0)
	v.Field("registration_url", in.RegistrationURL).URL()
	v.Field("website_url", in.WebsiteURL).URL()
	v.Field("results_url", in.ResultsURL).URL()
	v.Field("organizer_name", in.OrganizerName).MaxLength(200)
	v.Field("status", in.Status).OneOf(Statuses...)

	return v.Validate()
}

func (d DistanceInput) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("distance", d.Distance).Required().OneOf(DistanceCategories...)
	v.Field("distance_km", d.DistanceKm).PositiveFloat()
	v.Field("distance_label", d.DistanceLabel).MaxLength(100)
	v.Field("price_cad", d.PriceCad).MinInt(0)
	v.Field("capacity", d.Capacity).MinInt(1)
	v.Field("registration_url", blankToNil(d.RegistrationURL)).URL()
	v.Field("cutoff_time", d.CutoffTime).MaxLength(20)
	return v.Validate()
}

// ToDataModel builds a new row for a validated create payload.
func (in EventInput) ToDataModel(id string, createdBy *string, now time.Time) *eventDatamodel.Event {
	row := &eventDatamodel.Event{
		ID:                    id,
		Slug:                  deref(in.Slug),
		Name:                  deref(in.Name),
		EventType:             deref(in.EventType),
		Status:                StatusDraft,
		EndDate:               in.EndDate,
		RegistrationDeadline:  in.RegistrationDeadline,
		City:                  deref(in.City),
		Province:              deref(in.Province),
		Country:               DefaultCountry,
		Venue:                 in.Venue,
		Latitude:              in.Latitude,
		Longitude:             in.Longitude,
		Description:           in.Description,
		ShortDescription:      in.ShortDescription,
		HeroImageURL:          in.HeroImageURL,
		ThumbnailURL:          in.ThumbnailURL,
		Terrain:               in.Terrain,
		ElevationGainMetres:   in.ElevationGainMetres,
		CourseDescription:     in.CourseDescription,
		AvgTemperatureCelsius: in.AvgTemperatureCelsius,
		AvgPrecipitationMm:    in.AvgPrecipitationMm,
		AvgHumidityPercent:    in.AvgHumidityPercent,
		AvgWindKmh:            in.AvgWindKmh,
		AltitudeMetres:        in.AltitudeMetres,
		WeatherNotes:          in.WeatherNotes,
		PriceFromCad:          in.PriceFromCad,
		PriceToCad:            in.PriceToCad,
		Currency:              DefaultCurrency,
		RegistrationURL:       in.RegistrationURL,
		WebsiteURL:            in.WebsiteURL,
		ResultsURL:            in.ResultsURL,
		Tags:                  datatypes.JSONSlice[string](nonNil(in.Tags)),
		Amenities:             datatypes.JSONSlice[string](nonNil(in.Amenities)),
		OrganizerName:         in.OrganizerName,
		CreatedBy:             createdBy,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if in.StartDate != nil {
		row.StartDate = in.StartDate.UTC()
	}
	if in.Status != nil {
		row.Status = *in.Status
	}
	if in.Country != nil {
		row.Country = *in.Country
	}
	if in.Featured != nil {
		row.Featured = *in.Featured
	}
	return row
}

// Changes maps the present fields of an update payload to their columns.
func (in EventInput) Changes() map[string]interface{} {
	changes := map[string]interface{}{}
	set := func(column string, present bool, value interface{}) {
		if present {
			changes[column] = value
		}
	}

	set("name", in.Name != nil, deref(in.Name))
	set("slug", in.Slug != nil, deref(in.Slug))
	set("event_type", in.EventType != nil, deref(in.EventType))
	set("status", in.Status != nil, deref(in.Status))
	if in.StartDate != nil {
		changes["start_date"] = in.StartDate.UTC()
	}
	set("end_date", in.EndDate != nil, in.EndDate)
	set("registration_deadline", in.RegistrationDeadline != nil, in.RegistrationDeadline)
	set("city", in.City != nil, deref(in.City))
	set("province", in.Province != nil, deref(in.Province))
	set("country", in.Country != nil, deref(in.Country))
	set("venue", in.Venue != nil, in.Venue)
	set("latitude", in.Latitude != nil, in.Latitude)
	set("longitude", in.Longitude != nil, in.Longitude)
	set("description", in.Description != nil, in.Description)
	set("short_description", in.ShortDescription != nil, in.ShortDescription)
	set("hero_image_url", in.HeroImageURL != nil, in.HeroImageURL)
	set("thumbnail_url", in.ThumbnailURL != nil, in.ThumbnailURL)
	set("terrain", in.Terrain != nil, in.Terrain)
	set("elevation_gain_metres", in.ElevationGainMetres != nil, in.ElevationGainMetres)
	set("course_description", in.CourseDescription != nil, in.CourseDescription)
	set("avg_temperature_celsius", in.AvgTemperatureCelsius != nil, in.AvgTemperatureCelsius)
	set("avg_precipitation_mm", in.AvgPrecipitationMm != nil, in.AvgPrecipitationMm)
	set("avg_humidity_percent", in.AvgHumidityPercent != nil, in.AvgHumidityPercent)
	set("avg_wind_kmh", in.AvgWindKmh != nil, in.AvgWindKmh)
	set("altitude_metres", in.AltitudeMetres != nil, in.AltitudeMetres)
	set("weather_notes", in.WeatherNotes != nil, in.WeatherNotes)
	set("price_from_cad", in.PriceFromCad != nil, in.PriceFromCad)
	set("price_to_cad", in.PriceToCad != nil, in.PriceToCad)
	set("registration_url", in.RegistrationURL != nil, in.RegistrationURL)
	set("website_url", in.WebsiteURL != nil, in.WebsiteURL)
	set("results_url", in.ResultsURL != nil, in.ResultsURL)
	set("tags", in.Tags != nil, datatypes.JSONSlice[string](in.Tags))
	set("amenities", in.Amenities != nil, datatypes.JSONSlice[string](in.Amenities))
	set("organizer_name", in.OrganizerName != nil, in.OrganizerName)
	set("featured", in.Featured != nil, in.Featured != nil && *in.Featured)

	return changes
}

func (d DistanceInput) ToDataModel(id, eventID string, now time.Time) *eventDatamodel.Distance {
	return &eventDatamodel.Distance{
		ID:              id,
		EventID:         eventID,
		Distance:        d.Distance,
		DistanceKm:      d.DistanceKm,
		DistanceLabel:   d.DistanceLabel,
		PriceCad:        d.PriceCad,
		Capacity:        d.Capacity,
		RegistrationURL: blankToNil(d.RegistrationURL),
		CutoffTime:      d.CutoffTime,
		CreatedAt:       now,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Filters is the catalog query contract. Zero values impose no constraint.
type Filters struct {
	Distances []string
	Terrain   []string
	Province  string
	City      string
	DateFrom  *time.Time
	DateTo    *time.Time
	PriceMax  *int
	Featured  bool
	Status    string
	Sort      string
	Page      int
	Limit     int
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 50
	// MaxPage keeps (page-1)*limit inside int32 so the offset never wraps.
	MaxPage      = math.MaxInt32 / MaxLimit
)

// WithDefaults fills sort, page, limit and status.
func (f Filters) WithDefaults() Filters {
	if f.Sort == "" {
		f.Sort = SortDate
	}
	if f.Page == 0 {
		f.Page = DefaultPage
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Status == "" {
		f.Status = StatusPublished
	}
	return f
}

func (f Filters) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("distances", f.Distances).Custom(eachOneOf("distances", f.Distances, DistanceCategories))
	v.Field("terrain", f.Terrain).Custom(eachOneOf("terrain", f.Terrain, Terrains))
	v.Field("price_max", f.PriceMax).MinInt(0)
	v.Field("status", f.Status).OneOf(Statuses...)
	v.Field("sort", f.Sort).OneOf(SortOrders...)
	v.Field("page", f.Page).MinInt(1).MaxInt(MaxPage)
	v.Field("limit", f.Limit).MinInt(1).MaxInt(MaxLimit)
	return v.Validate()
}

func eachOneOf(field string, values, options []string) func(interface{}) *internal.AppError {
	return func(interface{}) *internal.AppError {
		for _, val := range values {
			if !contains(options, val) {
				return internal.NewValidationFieldError(field,
					fmt.Sprintf("%s must be one of: %s", field, strings.Join(options, ", ")),
					internal.ErrCodeInvalidOption)
			}
		}
		return nil
	}
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

// ParseFilters reads the public query string. List parameters accept repeated keys or
// comma separated values; dates accept YYYY-MM-DD or RFC 3339.
func ParseFilters(q url.Values) (Filters, *internal.AppError) {
	f := Filters{
		Distances: splitList(q["distances"]),
		Terrain:   splitList(q["terrain"]),
		Province:  strings.TrimSpace(q.Get("province")),
		City:      strings.TrimSpace(q.Get("city")),
		Sort:      q.Get("sort"),
	}

	var err *internal.AppError
	if f.DateFrom, err = parseDate("date_from", q.Get("date_from")); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate("date_to", q.Get("date_to")); err != nil {
		return f, err
	}
	if f.PriceMax, err = parseOptionalInt("price_max", q.Get("price_max")); err != nil {
		return f, err
	}

	page, err := parseOptionalInt("page", q.Get("page"))
	if err != nil {
		return f, err
	}
	if page != nil {
		f.Page = *page
	}
	limit, err := parseOptionalInt("limit", q.Get("limit"))
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}

	if raw := q.Get("featured"); raw != "" {
		b, perr := strconv.ParseBool(raw)
		if perr != nil {
			return f, internal.NewValidationFieldError("featured", "featured must be a boolean", internal.ErrCodeInvalidFormat)
		}
		f.Featured = b
	}
	return f, nil
}

func splitList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(field, raw string) (*time.Time, *internal.AppError) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, internal.NewValidationFieldError(field, field+" must be a date", internal.ErrCodeInvalidFormat)
}

func parseOptionalInt(field, raw string) (*int, *internal.AppError) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, internal.NewValidationFieldError(field, field+" must be an integer", internal.ErrCodeInvalidFormat)
	}
	return &n, nil
}
