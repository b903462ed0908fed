package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/urban-issue-api/models"
	templates "github.com/linesmerrill/urban-issue-api/templates/html"
)

// Sender sends a prepared email. *sendgrid.Client satisfies it.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// UserFinder looks up the recipient of an event
type UserFinder interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.User, error)
}

// EmailSink emails the recipient of each event through SendGrid
type EmailSink struct {
	Sender      Sender
	Users       UserFinder
	FromAddress string
	FromName    string
	FrontendURL string
}

// NewSendgridSink builds an EmailSink backed by the SendGrid API
func NewSendgridSink(apiKey, fromAddress, fromName, frontendURL string, users UserFinder) *EmailSink {
	return &EmailSink{
		Sender:      sendgrid.NewSendClient(apiKey),
		Users:       users,
		FromAddress: fromAddress,
		FromName:    fromName,
		FrontendURL: frontendURL,
	}
}

// Name implements Sink
func (s *EmailSink) Name() string { return "email" }

// Deliver implements Sink
func (s *EmailSink) Deliver(ctx context.Context, e Event) error {
	user, err := s.Users.FindOne(ctx, bson.M{"_id": e.Recipient})
	if err != nil {
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if user.Email == "" || !user.IsActive {
		return nil
	}

	rendered, ok := s.render(e, user)
	if !ok {
		return nil
	}

	from := mail.NewEmail(s.FromName, s.FromAddress)
	to := mail.NewEmail(user.Name, user.Email)
	message := mail.NewSingleEmail(from, rendered.Subject, to, rendered.Plain, rendered.HTML)
	response, err := s.Sender.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *EmailSink) render(e Event, user *models.User) (templates.Email, bool) {
	data := templates.IssueEmailData{
		RecipientName: user.Name,
		Title:         e.Issue.Title,
		Category:      string(e.Issue.Category),
		Priority:      string(e.Issue.Priority),
		Status:        string(e.Issue.Status),
		Address:       e.Issue.Location.Address,
		SiteURL:       s.FrontendURL,
		ActorName:     e.ActorName,
		Text:          e.Note,
	}
	if s.FrontendURL != "" {
		data.IssueURL = fmt.Sprintf("%s/issues/%s", s.FrontendURL, e.Issue.ID.Hex())
	}

	switch e.Type {
	case IssueCreated:
		return templates.RenderIssueCreatedEmail(data), true
	case IssueStatusChanged:
		return templates.RenderStatusUpdateEmail(data), true
	case CommentAdded:
		if e.Comment != nil {
			data.Text = e.Comment.Content
		}
		return templates.RenderCommentAddedEmail(data), true
	}
	return templates.Email{}, false
}
