package email

import (
	"strings"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/infra/i18n"
)

// Compose renders the confirmation subject and plain-text body.
// Course purchases get the onboarding variant; ebook-only orders get the download variant.
func Compose(tr *i18n.Translator, coachName, supportURL string, o *model.Order) (subject, body string) {
	course := o.HasCourse()

	if course {
		subject = tr.T("email_subject_course", o.Buyer.Name)
	} else {
		subject = tr.T("email_subject_ebook", coachName)
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}
	line(tr.T("email_greeting", o.Buyer.Name))
	line("")
	if course {
		line(tr.T("email_intro_course", coachName, o.CapacityMonth))
	} else {
		line(tr.T("email_intro_ebook", coachName))
	}
	line("")
	line(tr.T("email_items_header"))
	for _, it := range o.Items {
		line(tr.T("email_item_line", it.Label(), it.Price))
	}
	line(tr.T("email_total_line", o.Amount))
	line(tr.T("email_reference_line", o.OrderRef))
	line("")
	if course {
		line(tr.T("email_next_steps_course"))
	} else {
		line(tr.T("email_next_steps_ebook"))
	}
	if supportURL != "" {
		line(tr.T("email_support_line", supportURL))
	}
	line("")
	line(tr.T("email_signoff", coachName))
	return subject, b.String()
}
