package submission

import (
	"net/url"
	"strconv"
	"strings"
)

// Pages holds the site pages a submission redirects to.
type Pages struct {
	SiteURL       string
	SuccessPageID int
	ErrorPageID   int
}

// PageURL returns <site>/?page_id=<id>.
func (p Pages) PageURL(id int) string {
	return strings.TrimRight(p.SiteURL, "/") + "/?page_id=" + strconv.Itoa(id)
}

// Target returns the page an applicant is sent to after a submission.
// Failures add a reason parameter: "validation" for applicant errors and
// the terminal state otherwise.
func (p Pages) Target(out Outcome) string {
	if out.State == Succeeded {
		return p.PageURL(p.SuccessPageID)
	}

	reason := string(out.State)
	if out.UserCorrectable() {
		reason = "validation"
	}
	return p.PageURL(p.ErrorPageID) + "&reason=" + url.QueryEscape(reason)
}
