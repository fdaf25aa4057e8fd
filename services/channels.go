package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ChannelSender delivers one message to one address. Implementations return an
// error instead of panicking; the caller records it per channel.
type ChannelSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

var nonDigitRegex = regexp.MustCompile(`[^0-9]`)

// CanonicalPhone strips everything but digits. It is the de-duplication key
// for phone numbers.
func CanonicalPhone(phone string) string {
	return nonDigitRegex.ReplaceAllString(phone, "")
}

// messageCreator is the part of the Twilio REST API the channel uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioChannel sends SMS or WhatsApp messages through Twilio. WhatsApp
// addresses are prefixed with "whatsapp:" on both ends.
type TwilioChannel struct {
	api      messageCreator
	from     string
	whatsApp bool
}

type TwilioOpts struct {
	AccountSID   string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
}

// TwilioOptsFromEnv reads the TWILIO_* variables.
func TwilioOptsFromEnv() TwilioOpts {
	return TwilioOpts{
		AccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		SMSFrom:      os.Getenv("TWILIO_SMS_FROM"),
		WhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),
	}
}

// NewTwilioChannels builds the SMS and WhatsApp senders. Either may be nil when
// its sender number is not configured.
func NewTwilioChannels(opts TwilioOpts) (sms *TwilioChannel, whatsApp *TwilioChannel, err error) {
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, nil, fmt.Errorf("account SID and auth token must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: opts.AccountSID,
		Password: opts.AuthToken,
	})

	if opts.SMSFrom != "" {
		sms = &TwilioChannel{api: client.Api, from: opts.SMSFrom}
	}
	if opts.WhatsAppFrom != "" {
		whatsApp = &TwilioChannel{api: client.Api, from: opts.WhatsAppFrom, whatsApp: true}
	}
	return sms, whatsApp, nil
}

// Send ignores subject; SMS and WhatsApp have no subject line.
func (t *TwilioChannel) Send(ctx context.Context, to string, subject string, body string) error {
	digits := CanonicalPhone(to)
	if len(digits) < 6 {
		return fmt.Errorf("invalid phone number %q", to)
	}

	toAddr, fromAddr := "+"+digits, t.from
	if t.whatsApp {
		toAddr = "whatsapp:" + toAddr
		if len(fromAddr) < 9 || fromAddr[:9] != "whatsapp:" {
			fromAddr = "whatsapp:" + fromAddr
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(toAddr)
	params.SetFrom(fromAddr)
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		log.Printf("Twilio send to %s failed: %v", toAddr, err)
		return fmt.Errorf("failed to send message to %s: %w", toAddr, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("Successfully sent Twilio message to %s. SID: %s", toAddr, sid)
	return nil
}
