package commands

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/huh/v2"
	"github.com/port-experimental/membership-cli/internal/config"
	"github.com/port-experimental/membership-cli/internal/submission"
)

var errAborted = errors.New("application form aborted")

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// promptApplication fills app with an interactive form. Existing values are
// used as defaults. Field checks beyond "required" run in the workflow.
func promptApplication(app *submission.Application, types config.MembershipTypes) error {
	var (
		phone         = deref(app.Phone)
		street        = deref(app.Street)
		houseNumber   = deref(app.HouseNumber)
		postalCode    = deref(app.PostalCode)
		city          = deref(app.City)
		country       = deref(app.Country)
		dateOfBirth   = deref(app.DateOfBirth)
		iban          = deref(app.IBAN)
		accountHolder = deref(app.AccountHolder)
		notes         = deref(app.Notes)
		confirmed     = true
	)

	var typeField huh.Field
	if len(types) > 0 {
		if _, ok := types.Lookup(app.MembershipType); !ok {
			app.MembershipType = types[0].Label
		}
		typeField = huh.NewSelect[string]().
			Title("Membership type").
			Options(huh.NewOptions(types.Labels()...)...).
			Value(&app.MembershipType)
	} else {
		typeField = huh.NewInput().
			Title("Membership type").
			Value(&app.MembershipType).
			Validate(required("membership type"))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&app.FirstName).Validate(required("first name")),
			huh.NewInput().Title("Last name").Value(&app.LastName).Validate(required("last name")),
			huh.NewInput().Title("Email").Value(&app.Email).Validate(required("email")),
			huh.NewInput().Title("Date of birth").Placeholder("YYYY-MM-DD").Value(&dateOfBirth),
			huh.NewInput().Title("Phone").Value(&phone),
		),
		huh.NewGroup(
			huh.NewInput().Title("Street").Value(&street),
			huh.NewInput().Title("House number").Value(&houseNumber),
			huh.NewInput().Title("Postal code").Value(&postalCode),
			huh.NewInput().Title("City").Value(&city),
			huh.NewInput().Title("Country").Value(&country),
		),
		huh.NewGroup(
			typeField,
			huh.NewInput().Title("IBAN").Value(&iban),
			huh.NewInput().Title("Account holder").Value(&accountHolder),
			huh.NewText().Title("Notes").Value(&notes),
			huh.NewConfirm().Title("Submit this application?").Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errAborted
		}
		return fmt.Errorf("failed to run application form: %w", err)
	}
	if !confirmed {
		return errAborted
	}

	app.Phone = submission.Optional(phone)
	app.Street = submission.Optional(street)
	app.HouseNumber = submission.Optional(houseNumber)
	app.PostalCode = submission.Optional(postalCode)
	app.City = submission.Optional(city)
	app.Country = submission.Optional(country)
	app.DateOfBirth = submission.Optional(dateOfBirth)
	app.IBAN = submission.Optional(iban)
	app.AccountHolder = submission.Optional(accountHolder)
	app.Notes = submission.Optional(notes)
	return nil
}
