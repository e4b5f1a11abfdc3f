package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// saoPaulo is the company calendar timezone. Event times carry the -03:00
// offset explicitly so Google never reinterprets them.
var saoPaulo = time.FixedZone("America/Sao_Paulo", -3*60*60)

const calendarID = "primary"

// GoogleClient talks to Google Calendar on behalf of a company, exchanging
// its stored refresh token per call.
type GoogleClient struct {
	clientID     string
	clientSecret string
}

func NewGoogleClient(clientID, clientSecret string) *GoogleClient {
	return &GoogleClient{clientID: clientID, clientSecret: clientSecret}
}

func (g *GoogleClient) service(ctx context.Context, refreshToken string) (*gcal.Service, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("calendar: company has no google refresh token")
	}
	conf := &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("calendar: build google client: %w", err)
	}
	return svc, nil
}

// UpsertEvent inserts or updates the calendar event for a sync record and
// returns the event id.
func (g *GoogleClient) UpsertEvent(ctx context.Context, rec *SyncRecord) (string, error) {
	svc, err := g.service(ctx, rec.RefreshToken)
	if err != nil {
		return "", err
	}
	event, err := buildEvent(rec)
	if err != nil {
		return "", err
	}

	if rec.GoogleEventID != "" {
		updated, err := svc.Events.Update(calendarID, rec.GoogleEventID, event).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("calendar: update event: %w", err)
		}
		return updated.Id, nil
	}
	created, err := svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes the calendar event. A 404 or 410 means someone already
// deleted it, which is the outcome we wanted.
func (g *GoogleClient) DeleteEvent(ctx context.Context, rec *SyncRecord) error {
	if rec.GoogleEventID == "" {
		return nil
	}
	svc, err := g.service(ctx, rec.RefreshToken)
	if err != nil {
		return err
	}
	err = svc.Events.Delete(calendarID, rec.GoogleEventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
			return nil
		}
		return fmt.Errorf("calendar: delete event: %w", err)
	}
	return nil
}

func buildEvent(rec *SyncRecord) (*gcal.Event, error) {
	if len(rec.Time) < 5 {
		return nil, fmt.Errorf("calendar: malformed appointment time %q", rec.Time)
	}
	start, err := time.ParseInLocation("2006-01-02T15:04", rec.Date+"T"+rec.Time[:5], saoPaulo)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse appointment start: %w", err)
	}
	duration := rec.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	summary := rec.ServiceName
	if summary == "" {
		summary = "Agendamento"
	}
	contact := rec.ContactName
	if contact == "" {
		contact = "Cliente"
	}

	return &gcal.Event{
		Summary:     summary + " - " + contact,
		Description: "Agendamento gerenciado pelo Zap AI",
		Status:      "confirmed",
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: "America/Sao_Paulo",
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: "America/Sao_Paulo",
		},
	}, nil
}
