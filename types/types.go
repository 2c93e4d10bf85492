package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleStaff    Role = "staff"
	RoleOperator Role = "operator"
)

// ValidRole reports whether r is one of the recognized roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleConsumer, RoleStaff, RoleOperator:
		return true
	}
	return false
}

// Account is a registered user of the canteen.
// Balance is stored in integer cents and never goes negative.
type Account struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	PassHash  []byte    `db:"passhash" json:"-"`
	Role      Role      `db:"role" json:"role"`
	Balance   int64     `db:"balance" json:"balance"`
	Allergens string    `db:"allergens" json:"allergens,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AllergenTokens splits the declared allergens into lowercase tokens.
func (a *Account) AllergenTokens() []string {
	if a.Allergens == "" {
		return nil
	}
	parts := strings.Split(a.Allergens, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// MealType tags a menu item as breakfast or lunch.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
)

func ValidMealType(m MealType) bool {
	return m == MealBreakfast || m == MealLunch
}

// RecipeLine is one ingredient of a menu item: the named product and
// the quantity consumed per serving.
type RecipeLine struct {
	Product  string          `db:"product" json:"product"`
	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
}

// MenuItem is a dish offered by the canteen. Price is in cents.
type MenuItem struct {
	ID          int          `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description,omitempty"`
	Price       int64        `db:"price" json:"price"`
	MealType    MealType     `db:"meal_type" json:"meal_type"`
	ServeDate   string       `db:"serve_date" json:"serve_date,omitempty"`
	Available   bool         `db:"available" json:"available"`
	Recipe      []RecipeLine `json:"recipe,omitempty"`
}

// ItemSnapshot is an immutable copy of a menu item's name, price and
// recipe captured at order time. Later menu edits never change it.
type ItemSnapshot struct {
	ItemID int          `json:"item_id"`
	Name   string       `json:"name"`
	Price  int64        `json:"price"`
	Recipe []RecipeLine `json:"recipe,omitempty"`
}

// InventoryItem is a stocked product. Quantity is a non-negative decimal.
type InventoryItem struct {
	Product   string          `db:"product" json:"product"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Unit      string          `db:"unit" json:"unit"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderState is the two-state order machine: placed, then fulfilled.
type OrderState string

const (
	OrderPlaced    OrderState = "placed"
	OrderFulfilled OrderState = "fulfilled"
)

// Order is a paid order for one serving of a menu item. Price and Snapshot
// are captured at placement and immutable thereafter.
type Order struct {
	ID          int          `db:"id" json:"id"`
	AccountID   int          `db:"account_id" json:"account_id"`
	ItemID      int          `db:"item_id" json:"item_id"`
	Price       int64        `db:"price" json:"price"`
	Snapshot    ItemSnapshot `json:"snapshot"`
	OrderDate   string       `db:"order_date" json:"order_date"`
	State       OrderState   `db:"state" json:"state"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	FulfilledAt *time.Time   `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
}

// RequestStatus is the purchase request state machine: pending, then
// exactly one of approved or rejected.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// PurchaseRequest is a staff request to restock a product, decided by
// an operator. Approval credits inventory atomically.
type PurchaseRequest struct {
	ID          int             `db:"id" json:"id"`
	Product     string          `db:"product" json:"product"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	Status      RequestStatus   `db:"status" json:"status"`
	RequestedBy int             `db:"requested_by" json:"requested_by"`
	DecidedBy   *int            `db:"decided_by" json:"decided_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	DecidedAt   *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
}

// Receipt is returned by ledger mutations for audit purposes.
// Seq increases monotonically across all ledger entries.
type Receipt struct {
	Seq     int64  `json:"seq"`
	Ref     string `json:"ref"`
	Balance int64  `json:"balance"`
}

// Review is a consumer's rating of a menu item they have received.
type Review struct {
	ID        int       `db:"id" json:"id"`
	AccountID int       `db:"account_id" json:"account_id"`
	ItemID    int       `db:"item_id" json:"item_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DailyReport aggregates a single day of ordering activity.
type DailyReport struct {
	Date           string  `json:"date"`
	TotalRevenue   int64   `json:"total_revenue"`
	OrderCount     int     `json:"order_count"`
	FulfilledCount int     `json:"fulfilled_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}
