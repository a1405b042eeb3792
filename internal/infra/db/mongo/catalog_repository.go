package mongo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

// CatalogRepository reads properties and rate plans. The engine never writes
// the catalog; documents are owned by the external catalog-management service.
type CatalogRepository struct {
	properties *mongo.Collection
	plans      *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{
		properties: db.Collection("catalog_properties"),
		plans:      db.Collection("catalog_rate_plans"),
	}
}

func (r *CatalogRepository) ByID(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID) (*catalog.Property, error) {
	return r.findProperty(ctx, bson.M{"_id": string(id), "tenant_id": string(tenant)})
}

func (r *CatalogRepository) BySlug(ctx context.Context, tenant catalog.TenantID, slug string) (*catalog.Property, error) {
	return r.findProperty(ctx, bson.M{"slug": slug, "tenant_id": string(tenant)})
}

func (r *CatalogRepository) findProperty(ctx context.Context, filter bson.M) (*catalog.Property, error) {
	var doc propertyDocument
	if err := r.properties.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// ActiveByTenant lists only bookable properties; maintenance and retired ones
// stay reachable by id or slug.
func (r *CatalogRepository) ActiveByTenant(ctx context.Context, tenant catalog.TenantID) ([]*catalog.Property, error) {
	cursor, err := r.properties.Find(ctx, bson.M{
		"tenant_id": string(tenant),
		"status":    string(catalog.PropertyAvailable),
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*catalog.Property
	for cursor.Next(ctx) {
		var doc propertyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cursor.Err()
}

func (r *CatalogRepository) ByProperty(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID) ([]*catalog.RatePlan, error) {
	cursor, err := r.plans.Find(ctx, bson.M{"property_id": string(id), "tenant_id": string(tenant)})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*catalog.RatePlan
	for cursor.Next(ctx) {
		var doc ratePlanDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		plan, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, cursor.Err()
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func (d moneyDocument) toDomain() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type propertyDocument struct {
	ID        string        `bson:"_id"`
	TenantID  string        `bson:"tenant_id"`
	Slug      string        `bson:"slug"`
	Name      string        `bson:"name"`
	MaxGuests int           `bson:"max_guests"`
	Beds      int           `bson:"beds"`
	Bathrooms int           `bson:"bathrooms"`
	BasePrice moneyDocument `bson:"base_price"`
	Policies  struct {
		CheckInTime    string `bson:"check_in_time"`
		CheckOutTime   string `bson:"check_out_time"`
		Cancellation   string `bson:"cancellation_policy"`
		MinStay        int    `bson:"min_stay"`
		MaxStay        int    `bson:"max_stay"`
		AllowsChildren bool   `bson:"allows_children"`
		AllowsInfants  bool   `bson:"allows_infants"`
		AllowsPets     bool   `bson:"allows_pets"`
	} `bson:"policies"`
	Status    string `bson:"status"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (d propertyDocument) toDomain() *catalog.Property {
	return &catalog.Property{
		ID:       catalog.PropertyID(d.ID),
		TenantID: catalog.TenantID(d.TenantID),
		Slug:     d.Slug,
		Name:     d.Name,
		Capacity: catalog.Capacity{
			MaxGuests: d.MaxGuests,
			Beds:      d.Beds,
			Bathrooms: d.Bathrooms,
		},
		BasePrice: d.BasePrice.toDomain(),
		Policies: catalog.Policies{
			CheckInTime:    d.Policies.CheckInTime,
			CheckOutTime:   d.Policies.CheckOutTime,
			Cancellation:   catalog.CancellationPolicy(d.Policies.Cancellation),
			MinStay:        d.Policies.MinStay,
			MaxStay:        d.Policies.MaxStay,
			AllowsChildren: d.Policies.AllowsChildren,
			AllowsInfants:  d.Policies.AllowsInfants,
			AllowsPets:     d.Policies.AllowsPets,
		},
		Status:    catalog.PropertyStatus(d.Status),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

type ratePlanDocument struct {
	ID            string             `bson:"_id"`
	TenantID      string             `bson:"tenant_id"`
	PropertyID    string             `bson:"property_id"`
	Name          string             `bson:"name"`
	StartDate     string             `bson:"start_date,omitempty"`
	EndDate       string             `bson:"end_date,omitempty"`
	PricePerNight moneyDocument      `bson:"price_per_night"`
	DayModifiers  map[string]float64 `bson:"day_modifiers,omitempty"`
	MinStay       int                `bson:"min_stay"`
	Priority      int                `bson:"priority"`
	CreatedAt     int64              `bson:"created_at"`
}

func (d ratePlanDocument) toDomain() (*catalog.RatePlan, error) {
	plan := &catalog.RatePlan{
		ID:            catalog.RatePlanID(d.ID),
		PropertyID:    catalog.PropertyID(d.PropertyID),
		Name:          d.Name,
		PricePerNight: d.PricePerNight.toDomain(),
		MinStay:       d.MinStay,
		Priority:      d.Priority,
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
	var err error
	if d.StartDate != "" {
		if plan.StartDate, err = dates.Parse(d.StartDate); err != nil {
			return nil, err
		}
	}
	if d.EndDate != "" {
		if plan.EndDate, err = dates.Parse(d.EndDate); err != nil {
			return nil, err
		}
	}
	if len(d.DayModifiers) > 0 {
		plan.DayModifiers = make(map[time.Weekday]float64, len(d.DayModifiers))
		for key, mod := range d.DayModifiers {
			day, err := strconv.Atoi(key)
			if err != nil || day < 0 || day > 6 {
				continue
			}
			plan.DayModifiers[time.Weekday(day)] = mod
		}
	}
	return plan, nil
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
