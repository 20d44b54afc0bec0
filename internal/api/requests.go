package api

import (
	"context"
	"fmt"
	"net/http"
)

const (
	// EndpointContactDetails creates contact records.
	EndpointContactDetails = "contact-details/"

	// EndpointMember creates member records and member applications.
	EndpointMember = "member/"
)

// Record is a JSON object returned by the API.
type Record map[string]interface{}

// ID returns the record's "id" value. Numbers are returned as json.Number.
func (r Record) ID() (interface{}, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && s == "" {
		return nil, false
	}
	return v, true
}

// IDString returns the record id formatted for logs and display.
func (r Record) IDString() string {
	id, ok := r.ID()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", id)
}

// ContactDetails is the payload for creating a contact record.
// Optional fields are nil when not provided.
type ContactDetails struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	Street      *string `json:"street,omitempty"`
	HouseNumber *string `json:"houseNumber,omitempty"`
	PostalCode  *string `json:"postalCode,omitempty"`
	City        *string `json:"city,omitempty"`
	Country     *string `json:"country,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
}

// MemberApplication is the payload for creating a member application.
type MemberApplication struct {
	ContactDetails   interface{} `json:"contactDetails"`
	MembershipType   string      `json:"membershipType"`
	JoinDate         string      `json:"joinDate"`
	MandateReference string      `json:"mandateReference"`
	IBAN             *string     `json:"iban,omitempty"`
	AccountHolder    *string     `json:"accountHolder,omitempty"`
	Notes            *string     `json:"notes,omitempty"`
	IsApplication    bool        `json:"isApplication"`
}

// CreateContactDetails creates a contact record.
func (c *Client) CreateContactDetails(ctx context.Context, data ContactDetails) (Record, error) {
	payload, err := c.Request(ctx, http.MethodPost, EndpointContactDetails, data)
	if err != nil {
		return nil, err
	}
	return asRecord(payload), nil
}

// CreateMemberApplication creates a member record flagged as an application.
// IsApplication is always sent as true.
func (c *Client) CreateMemberApplication(ctx context.Context, data MemberApplication) (Record, error) {
	data.IsApplication = true
	payload, err := c.Request(ctx, http.MethodPost, EndpointMember, data)
	if err != nil {
		return nil, err
	}
	return asRecord(payload), nil
}

// asRecord converts a decoded payload to a Record. Non-object payloads yield
// an empty record.
func asRecord(payload interface{}) Record {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return Record{}
	}
	return Record(obj)
}
