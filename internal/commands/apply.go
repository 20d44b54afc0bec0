package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cli/browser"
	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/port-experimental/membership-cli/internal/submission"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// applicationFlags maps flag names to the application fields they set.
type applicationFlags struct {
	firstName      string
	lastName       string
	email          string
	membershipType string
	phone          string
	street         string
	houseNumber    string
	postalCode     string
	city           string
	country        string
	dob            string
	iban           string
	accountHolder  string
	notes          string
}

func (f *applicationFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.firstName, "first-name", "", "Applicant first name")
	fs.StringVar(&f.lastName, "last-name", "", "Applicant last name")
	fs.StringVar(&f.email, "email", "", "Applicant email address")
	fs.StringVarP(&f.membershipType, "membership-type", "t", "", "Membership type label (see `membership types`)")
	fs.StringVar(&f.phone, "phone", "", "Phone number")
	fs.StringVar(&f.street, "street", "", "Street")
	fs.StringVar(&f.houseNumber, "house-number", "", "House number")
	fs.StringVar(&f.postalCode, "postal-code", "", "Postal code")
	fs.StringVar(&f.city, "city", "", "City")
	fs.StringVar(&f.country, "country", "", "Country")
	fs.StringVar(&f.dob, "date-of-birth", "", "Date of birth (YYYY-MM-DD)")
	fs.StringVar(&f.iban, "iban", "", "IBAN for the direct debit mandate")
	fs.StringVar(&f.accountHolder, "account-holder", "", "Bank account holder")
	fs.StringVar(&f.notes, "notes", "", "Notes for the membership administration")
}

// apply overlays every flag the user set onto app.
func (f *applicationFlags) apply(cmd *cobra.Command, app *submission.Application) {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setOptional := func(name string, dst **string, v string) {
		if changed(name) {
			*dst = submission.Optional(v)
		}
	}

	set("first-name", &app.FirstName, f.firstName)
	set("last-name", &app.LastName, f.lastName)
	set("email", &app.Email, f.email)
	set("membership-type", &app.MembershipType, f.membershipType)
	setOptional("phone", &app.Phone, f.phone)
	setOptional("street", &app.Street, f.street)
	setOptional("house-number", &app.HouseNumber, f.houseNumber)
	setOptional("postal-code", &app.PostalCode, f.postalCode)
	setOptional("city", &app.City, f.city)
	setOptional("country", &app.Country, f.country)
	setOptional("date-of-birth", &app.DateOfBirth, f.dob)
	setOptional("iban", &app.IBAN, f.iban)
	setOptional("account-holder", &app.AccountHolder, f.accountHolder)
	setOptional("notes", &app.Notes, f.notes)
}

// outcomeView is the printable form of an outcome.
type outcomeView struct {
	State         submission.State  `json:"state" yaml:"state"`
	SubmissionID  string            `json:"submission_id" yaml:"submission_id"`
	ContactID     string            `json:"contact_id,omitempty" yaml:"contact_id,omitempty"`
	ApplicationID string            `json:"application_id,omitempty" yaml:"application_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
	Redirect      string            `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

func newOutcomeView(out submission.Outcome, pages submission.Pages) outcomeView {
	v := outcomeView{
		State:         out.State,
		SubmissionID:  out.SubmissionID,
		ContactID:     out.ContactID,
		ApplicationID: out.ApplicationID,
		Fields:        out.Fields,
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	if pages.SiteURL != "" {
		v.Redirect = pages.Target(out)
	}
	return v
}

// RegisterApply registers the apply command and its batch subcommand.
func RegisterApply(rootCmd *cobra.Command) {
	var (
		fields      applicationFlags
		dataFile    string
		interactive bool
		open        bool
		format      string
	)

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Submit a membership application",
		Long: `Submit a membership application.

The application is validated locally, then a contact record and a member
application are created. If the second step fails the contact record is
left in place and logged for manual cleanup.

Values are taken from --data, then individual flags, then the interactive
form when --interactive is set.`,
		Example: `  membership apply --first-name Ada --last-name Lovelace \
    --email ada@example.org -t Regular --iban "GB82 WEST 1234 5698 7654 32"
  membership apply --data application.yaml --format json
  membership apply --interactive --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			var app submission.Application
			if dataFile != "" {
				loaded, err := loadApplication(dataFile)
				if err != nil {
					return err
				}
				app = *loaded
			}
			fields.apply(cmd, &app)

			sess, err := newSession(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer sess.Close()

			if interactive {
				if err := promptApplication(&app, sess.types); err != nil {
					return err
				}
			}

			out := sess.workflow().Submit(cmd.Context(), app)
			pages := sess.pages()

			if format == "text" {
				printOutcome(out, pages)
			} else if err := formatOutput(newOutcomeView(out, pages), format); err != nil {
				return err
			}

			if open && pages.SiteURL != "" {
				if err := browser.OpenURL(pages.Target(out)); err != nil {
					output.WarningPrintln(fmt.Sprintf("Could not open browser: %v", err))
				}
			}

			if out.State != submission.Succeeded {
				return out.Err
			}
			return nil
		},
	}

	fields.register(applyCmd)
	applyCmd.Flags().StringVarP(&dataFile, "data", "d", "", "Read the application from a YAML or JSON file")
	applyCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the application with an interactive form")
	applyCmd.Flags().BoolVar(&open, "open", false, "Open the resulting site page in a browser")
	applyCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")

	applyCmd.AddCommand(registerApplyBatch())
	rootCmd.AddCommand(applyCmd)
}

func registerApplyBatch() *cobra.Command {
	var (
		file        string
		concurrency int
		perSecond   float64
		format      string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit every application in a YAML or JSON file",
		Long: `Submit every application in a YAML or JSON file.

Each application runs the same two-step workflow as 'membership apply'.
A failed application does not stop the others. The command exits with an
error when any application fails.`,
		Example: `  membership apply batch --file applications.yaml --concurrency 4 --rate 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			apps, err := submission.LoadApplications(file)
			if err != nil {
				return err
			}
			if len(apps) == 0 {
				output.WarningPrintln("No applications found in " + file)
				return nil
			}

			sess, err := newSession(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer sess.Close()

			pages := sess.pages()
			views := make([]outcomeView, len(apps))
			var mu sync.Mutex

			summary, err := sess.workflow().SubmitBatch(cmd.Context(), apps, submission.BatchOptions{
				Concurrency: concurrency,
				PerSecond:   perSecond,
				OnResult: func(i int, out submission.Outcome) {
					mu.Lock()
					defer mu.Unlock()
					views[i] = newOutcomeView(out, pages)
					if format == "text" {
						output.VerbosePrintf("[%d/%d] %s %s\n", i+1, len(apps), apps[i].Email, stateLabel(out.State))
					}
				},
			})
			if err != nil {
				return err
			}

			if format != "text" {
				if err := formatOutput(views, format); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(views))
				for i, v := range views {
					rows = append(rows, []string{fmt.Sprint(i + 1), apps[i].Email, string(v.State), v.ContactID, v.ApplicationID, v.Error})
				}
				output.Table([]string{"#", "Email", "State", "Contact", "Application", "Error"}, rows)
				output.Printf("\n%d submitted, %d succeeded, %d failed\n", summary.Total, summary.Counts[submission.Succeeded], summary.Failed())
			}

			if failed := summary.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d applications failed", failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON file with a list of applications (required)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Number of applications submitted in parallel")
	cmd.Flags().Float64Var(&perSecond, "rate", 1, "Maximum submissions started per second (0 = unlimited)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.MarkFlagRequired("file")

	return cmd
}

// loadApplication reads one application from a YAML or JSON file.
func loadApplication(path string) (*submission.Application, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported data file %q (expected .yaml, .yml or .json)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var app submission.Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return &app, nil
}

func printOutcome(out submission.Outcome, pages submission.Pages) {
	output.Println(stateLabel(out.State))
	output.KeyValue("Submission", out.SubmissionID)
	if out.ContactID != "" {
		output.KeyValue("Contact", out.ContactID)
	}
	if out.ApplicationID != "" {
		output.KeyValue("Application", out.ApplicationID)
	}
	if out.State == submission.ApplicationCreationFailed && out.ContactID != "" {
		output.WarningPrintln(fmt.Sprintf("  Contact %s was created but has no application; clean it up manually.", out.ContactID))
	}
	if pages.SiteURL != "" {
		output.KeyValue("Redirect", pages.Target(out))
	}
}

func stateLabel(state submission.State) string {
	switch state {
	case submission.Succeeded:
		return output.Success("✓ Application submitted")
	case submission.ValidationRejected:
		return output.Warning("✗ Application rejected")
	case submission.ContactCreationFailed:
		return output.Error("✗ Contact creation failed")
	case submission.ApplicationCreationFailed:
		return output.Error("✗ Application creation failed")
	default:
		return string(state)
	}
}
