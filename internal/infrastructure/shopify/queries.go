package shopify

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ShopProfileQuery fetches shop identity and billing data
const ShopProfileQuery = `
query shopProfile {
  shop {
    name
    id
    email
    primaryDomain {
      host
    }
    billingAddress {
      address1
      address2
      city
      province
      country
      zip
    }
  }
}
`

// OrdersQuery fetches the first page of orders with up to 5 line items each.
// The Admin schema exposes displayFulfillmentStatus; it is aliased to fulfillmentStatus.
const OrdersQuery = `
query recentOrders($first: Int!) {
  orders(first: $first) {
    edges {
      node {
        id
        name
        createdAt
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        displayFinancialStatus
        fulfillmentStatus: displayFulfillmentStatus
        customer {
          firstName
          lastName
        }
        lineItems(first: 5) {
          edges {
            node {
              title
              quantity
            }
          }
        }
      }
    }
  }
}
`

// Operation is an Admin query together with its parsed document
type Operation struct {
	Name     string
	Query    string
	Document *ast.QueryDocument
}

// Parsed operations, checked once at start-up.
var (
	ShopProfileOperation = MustOperation("shopProfile", ShopProfileQuery)
	OrdersOperation      = MustOperation("recentOrders", OrdersQuery)
)

// MustOperation parses query into an Operation and panics on a malformed document
func MustOperation(name, query string) Operation {
	return Operation{Name: name, Query: query, Document: MustParse(name, query)}
}

// CheckVariables verifies vars against the operation's variable definitions: every
// variable must be declared, and non-null variables without a default must be set.
func (op Operation) CheckVariables(vars map[string]any) error {
	defs := op.Document.Operations[0].VariableDefinitions
	declared := make(map[string]bool, len(defs))
	for _, def := range defs {
		declared[def.Variable] = true
		if def.Type.NonNull && def.DefaultValue == nil {
			if v, ok := vars[def.Variable]; !ok || v == nil {
				return fmt.Errorf("%s query: variable $%s is required", op.Name, def.Variable)
			}
		}
	}
	for name := range vars {
		if !declared[name] {
			return fmt.Errorf("%s query: variable $%s is not declared", op.Name, name)
		}
	}
	return nil
}

// Parse parses a query document and requires exactly one operation.
func Parse(name, query string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: query})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s query: %w", name, err)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("%s query must contain exactly one operation, found %d", name, len(doc.Operations))
	}
	return doc, nil
}

// MustParse is Parse that panics, for package-level documents
func MustParse(name, query string) *ast.QueryDocument {
	doc, err := Parse(name, query)
	if err != nil {
		panic(err)
	}
	return doc
}

// selectedPaths lists every field path selected by the document's operation, using
// response keys (aliases win over field names), e.g. "shop.primaryDomain.host".
func selectedPaths(doc *ast.QueryDocument) []string {
	var paths []string
	var walk func(prefix string, set ast.SelectionSet)
	walk = func(prefix string, set ast.SelectionSet) {
		for _, sel := range set {
			field, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			key := field.Alias
			if key == "" {
				key = field.Name
			}
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			paths = append(paths, path)
			walk(path, field.SelectionSet)
		}
	}
	for _, op := range doc.Operations {
		walk("", op.SelectionSet)
	}
	return paths
}
