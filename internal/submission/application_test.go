package submission

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestApplication_Normalize(t *testing.T) {
	app := Application{
		FirstName:      "  Ada ",
		LastName:       "Lovelace\t",
		Email:          " ADA@Example.ORG ",
		MembershipType: " Regular ",
		Phone:          Optional("   "),
		City:           Optional(" London "),
		IBAN:           Optional("gb82 west 1234 5698 7654 32"),
	}
	blank := "  "
	app.Notes = &blank

	app.Normalize()

	if app.FirstName != "Ada" || app.LastName != "Lovelace" {
		t.Errorf("Expected trimmed names, got %q %q", app.FirstName, app.LastName)
	}
	if app.Email != "ada@example.org" {
		t.Errorf("Expected lowercased email, got %q", app.Email)
	}
	if app.Phone != nil {
		t.Errorf("Expected blank phone to be nil, got %q", *app.Phone)
	}
	if app.Notes != nil {
		t.Errorf("Expected blank notes to be nil, got %q", *app.Notes)
	}
	if app.City == nil || *app.City != "London" {
		t.Errorf("Expected trimmed city, got %v", app.City)
	}
	if app.IBAN == nil || *app.IBAN != "GB82WEST12345698765432" {
		t.Errorf("Expected compact IBAN, got %v", app.IBAN)
	}
}

func TestApplication_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Application)
		fields []string
	}{
		{name: "valid", mutate: func(a *Application) {}},
		{name: "missing names", mutate: func(a *Application) { a.FirstName, a.LastName = "", "" }, fields: []string{"first_name", "last_name"}},
		{name: "missing email", mutate: func(a *Application) { a.Email = "" }, fields: []string{"email"}},
		{name: "bad email", mutate: func(a *Application) { a.Email = "ada@localhost" }, fields: []string{"email"}},
		{name: "display name email", mutate: func(a *Application) { a.Email = "Ada <ada@example.org>" }, fields: []string{"email"}},
		{name: "unknown type", mutate: func(a *Application) { a.MembershipType = "Honorary" }, fields: []string{"membership_type"}},
		{name: "missing type", mutate: func(a *Application) { a.MembershipType = "" }, fields: []string{"membership_type"}},
		{name: "bad date of birth", mutate: func(a *Application) { a.DateOfBirth = Optional("09/03/1990") }, fields: []string{"date_of_birth"}},
		{name: "good date of birth", mutate: func(a *Application) { a.DateOfBirth = Optional("1990-03-09") }},
		{name: "bad iban checksum", mutate: func(a *Application) { a.IBAN = Optional("GB82WEST12345698765433") }, fields: []string{"iban"}},
		{name: "short iban", mutate: func(a *Application) { a.IBAN = Optional("DE89") }, fields: []string{"iban"}},
		{name: "german iban", mutate: func(a *Application) { a.IBAN = Optional("DE89 3704 0044 0532 0130 00") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := validApplication()
			tt.mutate(&app)
			app.Normalize()

			err := app.Validate(testTypes)
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if len(ve.Fields) != len(tt.fields) {
				t.Errorf("Expected fields %v, got %v", tt.fields, ve.Fields)
			}
			for _, field := range tt.fields {
				if _, ok := ve.Fields[field]; !ok {
					t.Errorf("Expected error for %s, got %v", field, ve.Fields)
				}
			}
		})
	}
}

func TestApplication_ValidateWithoutTypes(t *testing.T) {
	app := validApplication()
	app.MembershipType = "anything"
	app.Normalize()

	if err := app.Validate(nil); err != nil {
		t.Errorf("Expected any type to pass without configured types, got %v", err)
	}
	if got := remoteType(nil, "anything"); got != "anything" {
		t.Errorf("Expected label passthrough, got %q", got)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"last_name":  "is required",
		"first_name": "is required",
	}}
	want := "invalid application: first_name: is required; last_name: is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMandateReference(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.FixedZone("CET", 3600))

	got := MandateReference(" Ada@Example.org ", at)
	want := "M20240309130506-CFE00DDE"
	if got != want {
		t.Errorf("MandateReference() = %q, want %q", got, want)
	}

	if again := MandateReference("ada@example.org", at); again != got {
		t.Errorf("Expected same reference within one second, got %q and %q", got, again)
	}
	if later := MandateReference("ada@example.org", at.Add(time.Second)); later == got {
		t.Error("Expected a different reference one second later")
	}
	if !strings.HasPrefix(got, "M") || len(got) != 24 {
		t.Errorf("Unexpected reference shape %q", got)
	}
}
