package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/config"
)

// State is a terminal state of one submission.
type State string

const (
	ValidationRejected        State = "validation_rejected"
	ContactCreationFailed     State = "contact_creation_failed"
	ApplicationCreationFailed State = "application_creation_failed"
	Succeeded                 State = "succeeded"
)

// ErrMissingID is returned when the API answers with success but no record id.
var ErrMissingID = errors.New("response did not contain an id")

// Backend creates the remote records of a submission. *api.Client implements it.
type Backend interface {
	CreateContactDetails(ctx context.Context, data api.ContactDetails) (api.Record, error)
	CreateMemberApplication(ctx context.Context, data api.MemberApplication) (api.Record, error)
}

// OutcomeRecorder counts terminal states.
type OutcomeRecorder interface {
	RecordOutcome(state string)
}

// Outcome is the result of one submission.
type Outcome struct {
	State         State             `json:"state"`
	SubmissionID  string            `json:"submission_id"`
	ContactID     string            `json:"contact_id,omitempty"`
	ApplicationID string            `json:"application_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Err           error             `json:"-"`
}

// UserCorrectable reports whether the applicant can fix the problem by
// editing the form. Failures after the first network call never are.
func (o Outcome) UserCorrectable() bool {
	return o.State == ValidationRejected
}

// Options configures a Workflow.
type Options struct {
	Types    config.MembershipTypes
	Logger   *slog.Logger
	Recorder OutcomeRecorder
	Now      func() time.Time
}

// Workflow runs the create-contact then create-application sequence.
// It holds no per-submission state and is safe for concurrent use.
type Workflow struct {
	backend  Backend
	types    config.MembershipTypes
	logger   *slog.Logger
	recorder OutcomeRecorder
	now      func() time.Time
}

// NewWorkflow creates a workflow submitting through backend.
func NewWorkflow(backend Backend, opts Options) *Workflow {
	w := &Workflow{
		backend:  backend,
		types:    opts.Types,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Types returns the membership types the workflow validates against.
func (w *Workflow) Types() config.MembershipTypes {
	return w.types
}

// Submit validates app and creates the contact and application records.
// A failed second step leaves the contact in place; it is logged as orphaned
// and never deleted.
func (w *Workflow) Submit(ctx context.Context, app Application) Outcome {
	out := Outcome{SubmissionID: uuid.NewString()}
	logger := w.logger.With("submission_id", out.SubmissionID)

	app.Normalize()
	if err := app.Validate(w.types); err != nil {
		out.State = ValidationRejected
		out.Err = err
		var ve *ValidationError
		if errors.As(err, &ve) {
			out.Fields = ve.Fields
		}
		logger.Info("application rejected", "fields", out.Fields)
		return w.finish(out)
	}

	contact, err := w.backend.CreateContactDetails(ctx, app.ContactDetails())
	if err == nil {
		if _, ok := contact.ID(); !ok {
			err = fmt.Errorf("failed to create contact details: %w", ErrMissingID)
		}
	}
	if err != nil {
		out.State = ContactCreationFailed
		out.Err = err
		logger.Error("contact creation failed", "kind", api.KindOf(err), "error", err)
		return w.finish(out)
	}
	out.ContactID = contact.IDString()
	contactID, _ := contact.ID()
	logger = logger.With("contact_id", out.ContactID)

	now := w.now().UTC()
	application := api.MemberApplication{
		ContactDetails:   contactID,
		MembershipType:   remoteType(w.types, app.MembershipType),
		JoinDate:         now.Format(time.DateOnly),
		MandateReference: MandateReference(app.Email, now),
		IBAN:             app.IBAN,
		AccountHolder:    app.AccountHolder,
		Notes:            app.Notes,
	}

	member, err := w.backend.CreateMemberApplication(ctx, application)
	if err == nil {
		if _, ok := member.ID(); !ok {
			err = fmt.Errorf("failed to create member application: %w", ErrMissingID)
		}
	}
	if err != nil {
		out.State = ApplicationCreationFailed
		out.Err = err
		logger.Error("member application failed, contact left orphaned",
			"orphaned_contact_id", out.ContactID,
			"kind", api.KindOf(err),
			"error", err,
		)
		return w.finish(out)
	}

	out.State = Succeeded
	out.ApplicationID = member.IDString()
	logger.Info("membership application submitted",
		"application_id", out.ApplicationID,
		"mandate_reference", application.MandateReference,
	)
	return w.finish(out)
}

func (w *Workflow) finish(out Outcome) Outcome {
	if w.recorder != nil {
		w.recorder.RecordOutcome(string(out.State))
	}
	return out
}
