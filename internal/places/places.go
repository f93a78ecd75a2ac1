// Package places looks up a business profile by name for the receptionist
// demo.
package places

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gplaces "google.golang.org/api/places/v1"

	"github.com/posentia/posentia/internal/circuitbreaker"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// Source says where a profile came from.
type Source string

const (
	SourceGoogle Source = "google"
	// SourceDemo marks the fixed profile returned when no lookup was
	// possible.
	SourceDemo Source = "demo"
)

// Result is a looked-up profile. Message explains a demo profile.
type Result struct {
	Profile domain.BusinessProfile `json:"profile"`
	Source  Source                 `json:"-"`
	Message string                 `json:"message,omitempty"`
}

// Mock reports whether the profile is the demo placeholder.
func (r Result) Mock() bool { return r.Source == SourceDemo }

// Searcher finds the best matching place for a text query. It returns
// (nil, nil) when nothing matches.
type Searcher interface {
	Search(ctx context.Context, query string) (*gplaces.GoogleMapsPlacesV1Place, error)
}

var searchFields = googleapi.Field(strings.Join([]string{
	"places.displayName",
	"places.formattedAddress",
	"places.nationalPhoneNumber",
	"places.rating",
	"places.userRatingCount",
	"places.types",
	"places.regularOpeningHours",
	"places.websiteUri",
}, ","))

// GoogleSearcher queries the Places API (New) text search.
type GoogleSearcher struct {
	svc     *gplaces.Service
	breaker *circuitbreaker.Breaker
}

// NewGoogleSearcher creates a searcher authenticated with an API key. Extra
// client options (an endpoint override in tests) are appended.
func NewGoogleSearcher(ctx context.Context, apiKey string, breaker *circuitbreaker.Breaker, opts ...option.ClientOption) (*GoogleSearcher, error) {
	svc, err := gplaces.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if breaker == nil {
		breaker = circuitbreaker.New("google-places", circuitbreaker.DefaultConfig(), nil)
	}
	return &GoogleSearcher{svc: svc, breaker: breaker}, nil
}

// Search returns the first text search hit.
func (g *GoogleSearcher) Search(ctx context.Context, query string) (*gplaces.GoogleMapsPlacesV1Place, error) {
	resp, err := circuitbreaker.Call(ctx, g.breaker, func(ctx context.Context) (*gplaces.GoogleMapsPlacesV1SearchTextResponse, error) {
		return g.svc.Places.SearchText(&gplaces.GoogleMapsPlacesV1SearchTextRequest{
			TextQuery:      query,
			MaxResultCount: 1,
		}).Fields(searchFields).Context(ctx).Do()
	})
	if err != nil {
		return nil, apperrors.ExternalServiceError("google places", err)
	}
	if len(resp.Places) == 0 {
		return nil, nil
	}
	return resp.Places[0], nil
}

// Lookup resolves business names to profiles and never fails: without a
// searcher, without a match, or on any upstream error it returns the demo
// profile.
type Lookup struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewLookup creates a lookup. A nil searcher means no API key is configured.
func NewLookup(searcher Searcher, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{searcher: searcher, logger: logger}
}

// Find looks up name.
func (l *Lookup) Find(ctx context.Context, name string) Result {
	if l.searcher == nil {
		return demo(name, "Google Places API key not configured. Using demo data.")
	}

	place, err := l.searcher.Search(ctx, name)
	if err != nil {
		l.logger.Warn("business lookup failed, using demo profile", zap.String("business", name), zap.Error(err))
		return demo(name, "Error during lookup. Using demo data.")
	}
	if place == nil {
		return demo(name, "Business not found in Google Places. Using demo data.")
	}
	return Result{Profile: ProfileFromPlace(name, place), Source: SourceGoogle}
}

func demo(name, message string) Result {
	return Result{Profile: domain.DemoBusinessProfile(name), Source: SourceDemo, Message: message}
}

// ProfileFromPlace maps a place onto a profile, falling back to the query
// for a missing name and to fixed placeholders for other missing fields.
func ProfileFromPlace(query string, p *gplaces.GoogleMapsPlacesV1Place) domain.BusinessProfile {
	profile := domain.BusinessProfile{
		Name:     query,
		Category: Category(p.Types),
		Hours:    hours(p.RegularOpeningHours),
		Rating:   p.Rating,
		Reviews:  int(p.UserRatingCount),
		Phone:    p.NationalPhoneNumber,
		Address:  p.FormattedAddress,
		Website:  p.WebsiteUri,
	}
	if p.DisplayName != nil && p.DisplayName.Text != "" {
		profile.Name = p.DisplayName.Text
	}
	if profile.Rating == 0 {
		profile.Rating = 4.0
	}
	if profile.Phone == "" {
		profile.Phone = "Phone not available"
	}
	if profile.Address == "" {
		profile.Address = "Address not available"
	}
	return profile
}

func hours(h *gplaces.GoogleMapsPlacesV1PlaceOpeningHours) string {
	switch {
	case h == nil:
		return "Hours not available"
	case len(h.WeekdayDescriptions) > 0:
		return strings.Join(h.WeekdayDescriptions, ", ")
	case h.OpenNow:
		return "Open now"
	default:
		return "Closed"
	}
}

// Category turns the first specific place type into a display label:
// "hair_salon" becomes "Hair Salon". Generic types are skipped.
func Category(types []string) string {
	for _, t := range types {
		if strings.HasPrefix(t, "point_of_interest") || t == "establishment" {
			continue
		}
		return cases.Title(language.English).String(strings.ReplaceAll(t, "_", " "))
	}
	return "Business"
}
