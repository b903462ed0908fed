package templates

import (
	"fmt"
	"html"
	"strings"
)

// IssueEmailData holds the fields the issue notification emails show
type IssueEmailData struct {
	RecipientName string
	Title         string
	Category      string
	Priority      string
	Status        string
	Address       string
	IssueURL      string
	SiteURL       string
	// ActorName is the commenter or the admin who changed the status
	ActorName string
	// Text is the comment body or the status note
	Text string
}

// Email is a rendered message
type Email struct {
	Subject string
	Plain   string
	HTML    string
}

// RenderIssueCreatedEmail confirms a new report to its reporter
func RenderIssueCreatedEmail(d IssueEmailData) Email {
	subject := fmt.Sprintf("Issue Reported: %s", d.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Issue Successfully Reported</h2><p>Hello %s,</p>", esc(d.RecipientName))
	b.WriteString("<p>Thank you for reporting an issue in your community. Your report has been received and will be reviewed by our team.</p>")
	b.WriteString(`<div class="details">`)
	fmt.Fprintf(&b, "<p><strong>Title:</strong> %s</p>", esc(d.Title))
	fmt.Fprintf(&b, "<p><strong>Category:</strong> %s</p>", esc(label(d.Category)))
	fmt.Fprintf(&b, "<p><strong>Priority:</strong> %s</p>", esc(label(d.Priority)))
	fmt.Fprintf(&b, "<p><strong>Location:</strong> %s</p>", esc(d.Address))
	b.WriteString("<p><strong>Status:</strong> Pending Review</p></div>")
	writeLink(&b, d.IssueURL, "View Issue")

	plain := fmt.Sprintf("Hello %s,\n\nYour issue %q has been received and will be reviewed.\nCategory: %s\nPriority: %s\nLocation: %s\n%s",
		d.RecipientName, d.Title, label(d.Category), label(d.Priority), d.Address, d.IssueURL)
	return Email{Subject: subject, Plain: plain, HTML: renderLayout(subject, b.String(), d.SiteURL)}
}

// RenderStatusUpdateEmail tells the reporter their issue moved
func RenderStatusUpdateEmail(d IssueEmailData) Email {
	subject := fmt.Sprintf("Status Update: %s", d.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Status Update</h2><p>Hello %s,</p><p>We have an update on the issue you reported:</p>", esc(d.RecipientName))
	b.WriteString(`<div class="details">`)
	fmt.Fprintf(&b, "<h3>%s</h3>", esc(d.Title))
	fmt.Fprintf(&b, "<p><strong>Location:</strong> %s</p>", esc(d.Address))
	fmt.Fprintf(&b, "<p><strong>New Status:</strong> %s</p></div>", esc(label(d.Status)))
	if d.Text != "" {
		fmt.Fprintf(&b, `<div class="quote">%s<br>- %s</div>`, multiline(d.Text), esc(d.ActorName))
	}
	writeLink(&b, d.IssueURL, "View Issue")

	plain := fmt.Sprintf("Hello %s,\n\nThe issue %q is now %s.\n", d.RecipientName, d.Title, label(d.Status))
	if d.Text != "" {
		plain += fmt.Sprintf("\n%q - %s\n", d.Text, d.ActorName)
	}
	plain += d.IssueURL
	return Email{Subject: subject, Plain: plain, HTML: renderLayout(subject, b.String(), d.SiteURL)}
}

// RenderCommentAddedEmail tells the reporter someone commented on their issue
func RenderCommentAddedEmail(d IssueEmailData) Email {
	subject := fmt.Sprintf("New Comment on Issue: %s", d.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New Comment</h2><p>Hello %s,</p>", esc(d.RecipientName))
	fmt.Fprintf(&b, "<p>%s commented on your issue <strong>%s</strong>:</p>", esc(d.ActorName), esc(d.Title))
	fmt.Fprintf(&b, `<div class="quote">%s</div>`, multiline(d.Text))
	writeLink(&b, d.IssueURL, "Reply")

	plain := fmt.Sprintf("Hello %s,\n\n%s commented on %q:\n\n%s\n\n%s", d.RecipientName, d.ActorName, d.Title, d.Text, d.IssueURL)
	return Email{Subject: subject, Plain: plain, HTML: renderLayout(subject, b.String(), d.SiteURL)}
}

func esc(s string) string {
	return html.EscapeString(s)
}

func multiline(s string) string {
	return strings.ReplaceAll(esc(s), "\n", "<br>")
}

// label turns "in-progress" into "In Progress"
func label(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func writeLink(b *strings.Builder, href, text string) {
	if href == "" {
		return
	}
	fmt.Fprintf(b, `<p style="text-align: center;"><a href="%s" class="cta-button">%s</a></p>`, esc(href), esc(text))
}
