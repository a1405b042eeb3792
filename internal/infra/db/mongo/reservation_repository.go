package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/rates"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// ReservationRepository persists reservations plus one occupancy document per
// reserved night. The unique (tenant_id, property_id, date) index makes the
// check-then-insert race safe across processes: the loser's insert fails with
// a duplicate key and maps to reservation.ErrConflict.
type ReservationRepository struct {
	reservations *mongo.Collection
	occupancy    *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{
		reservations: db.Collection("reservations"),
		occupancy:    db.Collection("occupancy"),
	}
}

// EnsureIndexes creates the uniqueness constraints the repository relies on.
func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.occupancy.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "property_id", Value: 1},
			{Key: "date", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.reservations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "ref", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ReservationRepository) ByRef(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	var doc reservationDocument
	filter := bson.M{"tenant_id": string(tenant), "ref": string(ref)}
	if err := r.reservations.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	nights := res.Stay.Dates()
	occDocs := make([]any, 0, len(nights))
	for _, night := range nights {
		occDocs = append(occDocs, occupancyDocument{
			TenantID:      string(res.TenantID),
			PropertyID:    string(res.PropertyID),
			Date:          night.String(),
			ReservationID: string(res.ID),
		})
	}
	if _, err := r.occupancy.InsertMany(ctx, occDocs); err != nil {
		// Another writer holds at least one of the nights.
		_, _ = r.occupancy.DeleteMany(ctx, bson.M{"reservation_id": string(res.ID)})
		if mongo.IsDuplicateKeyError(err) {
			return reservation.ErrConflict
		}
		return err
	}

	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	if _, err := r.reservations.InsertOne(ctx, doc); err != nil {
		_, _ = r.occupancy.DeleteMany(ctx, bson.M{"reservation_id": string(res.ID)})
		return err
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	result, err := r.reservations.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = doc.Version
	if !res.Status.Active() && res.Status != reservation.StatusCheckedOut {
		// Cancelled and no-show stays free their nights again.
		_, err = r.occupancy.DeleteMany(ctx, bson.M{"reservation_id": string(res.ID)})
	}
	return err
}

func (r *ReservationRepository) ActiveOverlap(ctx context.Context, tenant catalog.TenantID, property catalog.PropertyID, stay dates.Range) (bool, error) {
	filter := bson.M{
		"tenant_id":   string(tenant),
		"property_id": string(property),
		// ISO dates compare correctly as strings.
		"date": bson.M{"$gte": stay.CheckIn.String(), "$lt": stay.CheckOut.String()},
	}
	count, err := r.occupancy.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type occupancyDocument struct {
	TenantID      string `bson:"tenant_id"`
	PropertyID    string `bson:"property_id"`
	Date          string `bson:"date"`
	ReservationID string `bson:"reservation_id"`
}

type nightDocument struct {
	Date       string        `bson:"date"`
	RatePlanID string        `bson:"rate_plan_id,omitempty"`
	Price      moneyDocument `bson:"price"`
}

type addOnDocument struct {
	Name   string        `bson:"name"`
	Amount moneyDocument `bson:"amount"`
}

type statusChangeDocument struct {
	Status string `bson:"status"`
	At     int64  `bson:"at"`
	Note   string `bson:"note,omitempty"`
}

type cancellationDocument struct {
	Reason      string        `bson:"reason"`
	CancelledAt int64         `bson:"cancelled_at"`
	Refund      moneyDocument `bson:"refund"`
}

type reservationDocument struct {
	ID         string `bson:"_id"`
	Ref        string `bson:"ref"`
	TenantID   string `bson:"tenant_id"`
	PropertyID string `bson:"property_id"`
	GuestID    string `bson:"guest_id"`
	CheckIn    string `bson:"check_in"`
	CheckOut   string `bson:"check_out"`
	Nights     int    `bson:"nights"`
	Adults     int    `bson:"adults"`
	Children   int    `bson:"children"`
	Infants    int    `bson:"infants"`
	Status     string `bson:"status"`
	Pricing    struct {
		Nightly  []nightDocument `bson:"nightly"`
		Subtotal moneyDocument   `bson:"subtotal"`
		Taxes    moneyDocument   `bson:"taxes"`
		Fees     moneyDocument   `bson:"fees"`
		AddOns   []addOnDocument `bson:"add_ons,omitempty"`
		Discount moneyDocument   `bson:"discount"`
		Total    moneyDocument   `bson:"total"`
	} `bson:"pricing"`
	Payment struct {
		Deposit moneyDocument `bson:"deposit"`
		Balance moneyDocument `bson:"balance"`
		Status  string        `bson:"status"`
	} `bson:"payment"`
	Policy       string                 `bson:"cancellation_policy"`
	Cancellation *cancellationDocument  `bson:"cancellation,omitempty"`
	History      []statusChangeDocument `bson:"history"`
	CreatedAt    int64                  `bson:"created_at"`
	UpdatedAt    int64                  `bson:"updated_at"`
	Version      int64                  `bson:"version"`
}

func newReservationDocument(res *reservation.Reservation) reservationDocument {
	doc := reservationDocument{
		ID:         string(res.ID),
		Ref:        string(res.Ref),
		TenantID:   string(res.TenantID),
		PropertyID: string(res.PropertyID),
		GuestID:    res.GuestID,
		CheckIn:    res.Stay.CheckIn.String(),
		CheckOut:   res.Stay.CheckOut.String(),
		Nights:     res.Nights,
		Adults:     res.Guests.Adults,
		Children:   res.Guests.Children,
		Infants:    res.Guests.Infants,
		Status:     string(res.Status),
		Policy:     string(res.Policy),
		CreatedAt:  res.CreatedAt.UnixMilli(),
		UpdatedAt:  res.UpdatedAt.UnixMilli(),
		Version:    res.Version,
	}
	for _, night := range res.Pricing.Nightly {
		doc.Pricing.Nightly = append(doc.Pricing.Nightly, nightDocument{
			Date:       night.Date.String(),
			RatePlanID: string(night.RatePlanID),
			Price:      moneyDocument{Amount: night.Price.Amount, Currency: night.Price.Currency},
		})
	}
	doc.Pricing.Subtotal = moneyDocument{Amount: res.Pricing.Subtotal.Amount, Currency: res.Pricing.Subtotal.Currency}
	doc.Pricing.Taxes = moneyDocument{Amount: res.Pricing.Taxes.Amount, Currency: res.Pricing.Taxes.Currency}
	doc.Pricing.Fees = moneyDocument{Amount: res.Pricing.Fees.Amount, Currency: res.Pricing.Fees.Currency}
	for _, addOn := range res.Pricing.AddOns {
		doc.Pricing.AddOns = append(doc.Pricing.AddOns, addOnDocument{
			Name:   addOn.Name,
			Amount: moneyDocument{Amount: addOn.Amount.Amount, Currency: addOn.Amount.Currency},
		})
	}
	doc.Pricing.Discount = moneyDocument{Amount: res.Pricing.Discount.Amount, Currency: res.Pricing.Discount.Currency}
	doc.Pricing.Total = moneyDocument{Amount: res.Pricing.Total.Amount, Currency: res.Pricing.Total.Currency}
	doc.Payment.Deposit = moneyDocument{Amount: res.Payment.Deposit.Amount, Currency: res.Payment.Deposit.Currency}
	doc.Payment.Balance = moneyDocument{Amount: res.Payment.Balance.Amount, Currency: res.Payment.Balance.Currency}
	doc.Payment.Status = string(res.Payment.Status)
	if res.Cancellation != nil {
		doc.Cancellation = &cancellationDocument{
			Reason:      res.Cancellation.Reason,
			CancelledAt: res.Cancellation.CancelledAt.UnixMilli(),
			Refund:      moneyDocument{Amount: res.Cancellation.Refund.Amount, Currency: res.Cancellation.Refund.Currency},
		}
	}
	for _, change := range res.History {
		doc.History = append(doc.History, statusChangeDocument{
			Status: string(change.Status),
			At:     change.At.UnixMilli(),
			Note:   change.Note,
		})
	}
	return doc
}

func (d reservationDocument) toAggregate() (*reservation.Reservation, error) {
	checkIn, err := dates.Parse(d.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := dates.Parse(d.CheckOut)
	if err != nil {
		return nil, err
	}
	res := &reservation.Reservation{
		ID:         reservation.ID(d.ID),
		Ref:        reservation.Ref(d.Ref),
		TenantID:   catalog.TenantID(d.TenantID),
		PropertyID: catalog.PropertyID(d.PropertyID),
		GuestID:    d.GuestID,
		Stay:       dates.Range{CheckIn: checkIn, CheckOut: checkOut},
		Nights:     d.Nights,
		Guests:     catalog.GuestCount{Adults: d.Adults, Children: d.Children, Infants: d.Infants},
		Status:     reservation.Status(d.Status),
		Policy:     catalog.CancellationPolicy(d.Policy),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
	for _, night := range d.Pricing.Nightly {
		date, err := dates.Parse(night.Date)
		if err != nil {
			return nil, err
		}
		res.Pricing.Nightly = append(res.Pricing.Nightly, rates.NightQuote{
			Date:       date,
			RatePlanID: catalog.RatePlanID(night.RatePlanID),
			Price:      night.Price.toDomain(),
		})
	}
	res.Pricing.Subtotal = d.Pricing.Subtotal.toDomain()
	res.Pricing.Taxes = d.Pricing.Taxes.toDomain()
	res.Pricing.Fees = d.Pricing.Fees.toDomain()
	for _, addOn := range d.Pricing.AddOns {
		res.Pricing.AddOns = append(res.Pricing.AddOns, reservation.AddOn{Name: addOn.Name, Amount: addOn.Amount.toDomain()})
	}
	res.Pricing.Discount = d.Pricing.Discount.toDomain()
	res.Pricing.Total = d.Pricing.Total.toDomain()
	res.Payment.Deposit = d.Payment.Deposit.toDomain()
	res.Payment.Balance = d.Payment.Balance.toDomain()
	res.Payment.Status = reservation.PaymentStatus(d.Payment.Status)
	if d.Cancellation != nil {
		res.Cancellation = &reservation.Cancellation{
			Reason:      d.Cancellation.Reason,
			CancelledAt: timestampToTime(d.Cancellation.CancelledAt),
			Refund:      d.Cancellation.Refund.toDomain(),
		}
	}
	for _, change := range d.History {
		res.History = append(res.History, reservation.StatusChange{
			Status: reservation.Status(change.Status),
			At:     timestampToTime(change.At),
			Note:   change.Note,
		})
	}
	return res, nil
}
