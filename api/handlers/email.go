package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
	templates "github.com/roadwatch/roadwatch-api/templates/html"
)

// Notifier emails submitters about committed mutations to their
// reports. It runs after the mutation is persisted; failures are
// logged and never affect the mutation's success response.
type Notifier struct {
	UDB databases.UserDatabase
}

var statusSubjects = map[string]string{
	models.StatusVerified: "Your road report has been verified",
	models.StatusResolved: "Your road report has been resolved",
	models.StatusRejected: "Your road report was rejected",
}

// ReportStatusChanged emails the submitter about a status change.
// Intended to run in its own goroutine from the mutation handler.
func (n *Notifier) ReportStatusChanged(report models.Report, actorID string) {
	if n == nil {
		return
	}

	subject, ok := statusSubjects[report.Details.Status]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	uID, err := primitive.ObjectIDFromHex(report.Details.SubmittedBy)
	if err != nil {
		zap.S().Warnw("skipping status email, bad submitter id",
			"reportId", report.ID.Hex(),
			"userId", report.Details.SubmittedBy,
		)
		return
	}

	user, err := n.UDB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil || user.Details.Email == "" {
		zap.S().Warnw("skipping status email, no submitter address",
			"reportId", report.ID.Hex(),
			"userId", report.Details.SubmittedBy,
		)
		return
	}

	body := fmt.Sprintf("Your report at %s is now %s.\nThank you for helping keep the roads safe.",
		report.Details.Address, report.Details.Status)
	htmlContent := templates.RenderGenericEmail(subject, body)

	if err := sendEmail(user.Details.Email, user.Details.Name, subject, htmlContent, body); err != nil {
		zap.S().Errorw("failed to send status email",
			"reportId", report.ID.Hex(),
			"error", err,
		)
	}
}

func sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		zap.S().Debug("SENDGRID_API_KEY not set, skipping email")
		return nil
	}

	from := mail.NewEmail("RoadWatch", "no-reply@roadwatch.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
