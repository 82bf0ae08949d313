package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type fakeSendGrid struct {
	got    *mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func newTestSendGrid(client sendGridClient) *SendGridSender {
	return &SendGridSender{client: client, from: newIdentity("quotes@mydentalfly.com", ""), logger: quiet()}
}

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	if s := NewSendGridSender(SendGridConfig{FromEmail: "quotes@mydentalfly.com"}, nil); s != nil {
		t.Fatal("expected nil sender without API key")
	}
}

func TestSendGridSenderTagsQuote(t *testing.T) {
	client := &fakeSendGrid{status: 202}
	s := newTestSendGrid(client)

	err := s.Send(context.Background(), QuoteEmail{
		Kind:        KindPatientQuote,
		QuoteID:     "q-42",
		To:          "amelia@example.co.uk",
		ToName:      "Amelia Hart",
		ReplyTo:     "coordinators@mydentalfly.com",
		ReplyToName: "Maltepe Dental Clinic",
		Subject:     "Your quote",
		Text:        "plain",
		HTML:        "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := client.got
	if m.From.Address != "quotes@mydentalfly.com" || m.From.Name != DefaultFromName {
		t.Errorf("from = %+v", m.From)
	}
	if m.ReplyTo == nil || m.ReplyTo.Address != "coordinators@mydentalfly.com" {
		t.Errorf("reply-to = %+v", m.ReplyTo)
	}
	if len(m.Categories) != 2 || m.Categories[0] != "quote" || m.Categories[1] != "patient_quote" {
		t.Errorf("categories = %v", m.Categories)
	}
	if len(m.Personalizations) != 1 {
		t.Fatalf("personalizations = %d", len(m.Personalizations))
	}
	p := m.Personalizations[0]
	if p.To[0].Address != "amelia@example.co.uk" || p.CustomArgs["quote_id"] != "q-42" {
		t.Errorf("personalization = %+v", p)
	}
	if len(m.Content) != 2 || m.Content[0].Type != "text/plain" || m.Content[1].Type != "text/html" {
		t.Errorf("content = %+v", m.Content)
	}
}

func TestSendGridSenderFallsBackToSubjectText(t *testing.T) {
	client := &fakeSendGrid{status: 202}
	s := newTestSendGrid(client)

	if err := s.Send(context.Background(), QuoteEmail{To: "ops@mydentalfly.com", Subject: "New quote"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.got.ReplyTo != nil {
		t.Errorf("reply-to should be unset")
	}
	if len(client.got.Content) != 1 || client.got.Content[0].Value != "New quote" {
		t.Errorf("content = %+v", client.got.Content)
	}
}

func TestSendGridSenderErrors(t *testing.T) {
	rejected := newTestSendGrid(&fakeSendGrid{status: 400})
	if err := rejected.Send(context.Background(), QuoteEmail{To: "x@example.com"}); err == nil {
		t.Error("expected error on 400")
	}
	failing := newTestSendGrid(&fakeSendGrid{err: errors.New("network")})
	if err := failing.Send(context.Background(), QuoteEmail{To: "x@example.com"}); err == nil {
		t.Error("expected transport error")
	}
	var nilSender *SendGridSender
	if err := nilSender.Send(context.Background(), QuoteEmail{}); err == nil {
		t.Error("expected error from nil sender")
	}
}
