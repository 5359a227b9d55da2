package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultOrderLimit is the page size of the order listing.
	DefaultOrderLimit = 10
	// MaxOrderLimit is the largest page the Admin API serves.
	MaxOrderLimit = 250
	// LineItemLimit is how many line items are requested per order.
	LineItemLimit = 5

	noCustomer     = "N/A"
	notFulfilled   = "Unfulfilled"
	createdAtShort = "1/2/2006"
)

// OrderRecord is the flattened, display-ready projection of one upstream order.
type OrderRecord struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"name"`
	CustomerFullName   string `json:"customer"`
	TotalFormatted     string `json:"total"`
	Status             string `json:"status"`
	Fulfillment        string `json:"fulfillment"`
	CreatedAtFormatted string `json:"createdAt"`
	LineItemsSummary   string `json:"lineItems"`
}

// OrderNode mirrors one orders.edges[].node of the Admin API response.
type OrderNode struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	CreatedAt              string         `json:"createdAt"`
	TotalPriceSet          *MoneyBag      `json:"totalPriceSet"`
	DisplayFinancialStatus string         `json:"displayFinancialStatus"`
	FulfillmentStatus      *string        `json:"fulfillmentStatus"`
	Customer               *OrderCustomer `json:"customer"`
	LineItems              LineItemEdges  `json:"lineItems"`
}

type MoneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type OrderCustomer struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type LineItemEdges struct {
	Edges []struct {
		Node LineItem `json:"node"`
	} `json:"edges"`
}

type LineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// ProjectOrder flattens an order node. It has no side effects and keeps no reference
// to the customer object.
func ProjectOrder(node OrderNode) OrderRecord {
	return OrderRecord{
		ID:                 node.ID,
		DisplayName:        node.Name,
		CustomerFullName:   customerFullName(node.Customer),
		TotalFormatted:     formatTotal(node.TotalPriceSet),
		Status:             node.DisplayFinancialStatus,
		Fulfillment:        fulfillment(node.FulfillmentStatus),
		CreatedAtFormatted: formatCreatedAt(node.CreatedAt),
		LineItemsSummary:   summarizeLineItems(node.LineItems),
	}
}

// ProjectOrders projects every node in order.
func ProjectOrders(nodes []OrderNode) []OrderRecord {
	records := make([]OrderRecord, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, ProjectOrder(n))
	}
	return records
}

// ClampOrderLimit maps non-positive limits to the default and caps large ones.
func ClampOrderLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultOrderLimit
	case limit > MaxOrderLimit:
		return MaxOrderLimit
	default:
		return limit
	}
}

func customerFullName(c *OrderCustomer) string {
	if c == nil {
		return noCustomer
	}
	return strings.TrimSpace(deref(c.FirstName) + " " + deref(c.LastName))
}

// formatTotal concatenates the upstream amount verbatim; no rounding or locale handling.
func formatTotal(set *MoneyBag) string {
	if set == nil {
		return "$ "
	}
	return fmt.Sprintf("$%s %s", set.ShopMoney.Amount, set.ShopMoney.CurrencyCode)
}

func fulfillment(status *string) string {
	if status == nil || *status == "" {
		return notFulfilled
	}
	return *status
}

func formatCreatedAt(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format(createdAtShort)
}

func summarizeLineItems(items LineItemEdges) string {
	parts := make([]string, 0, len(items.Edges))
	for _, e := range items.Edges {
		parts = append(parts, fmt.Sprintf("%s (x%d)", e.Node.Title, e.Node.Quantity))
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
