package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/ShepherdLoop/models"
	"golang.org/x/sync/errgroup"
)

type contactAddresses struct {
	name     string
	email    string
	phone    string
	whatsApp string
}

func (a contactAddresses) forChannel(channel models.Channel) string {
	switch channel {
	case models.ChannelEmail:
		return a.email
	case models.ChannelSMS:
		return a.phone
	case models.ChannelWhatsApp:
		if a.whatsApp != "" {
			return a.whatsApp
		}
		return a.phone
	}
	return ""
}

// SendFollowUpMessage sends one message to the follow-up's contact over each
// requested channel. Channels are dispatched concurrently and fail independently;
// the call succeeds when at least one channel delivered. The attempt history is
// left untouched.
func (s *FollowUpService) SendFollowUpMessage(ctx context.Context, id int, req models.FollowUpMessageRequest) (*models.FollowUpMessageResult, error) {
	for _, channel := range req.Channels {
		if !slices.Contains(models.DispatchChannels, channel) {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidChannel, channel)
		}
	}

	message := strings.TrimSpace(req.Message)
	if message == "" && !req.Use_AI_Generated {
		return nil, models.ErrMessageRequired
	}

	followUp, err := s.followUps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	contact, err := s.contactAddresses(ctx, followUp.Target)
	if err != nil {
		return nil, err
	}

	_, isNewContact := followUp.Target.(models.EmbeddedSnapshot)
	if message == "" {
		message = s.generateMessage(ctx, followUp, contact.name, isNewContact)
	}

	channels := dedupeChannels(req.Channels)
	outcomes := make([]error, len(channels))
	subject := fmt.Sprintf("A note from %s", s.orgName)

	var g errgroup.Group
	for i, channel := range channels {
		address := contact.forChannel(channel)
		sender, ok := s.senders[channel]
		if address == "" || !ok || sender == nil {
			if address == "" {
				outcomes[i] = fmt.Errorf("no %s address on file", channel)
			} else {
				outcomes[i] = fmt.Errorf("%s channel is not configured", channel)
			}
			continue
		}

		g.Go(func() error {
			outcomes[i] = sender.Send(ctx, address, subject, message)
			return nil
		})
	}
	_ = g.Wait()

	result := &models.FollowUpMessageResult{
		Results: make(map[models.Channel]bool, len(channels)),
		Errors:  map[models.Channel]string{},
		Message: message,
	}
	for i, channel := range channels {
		ok := outcomes[i] == nil
		result.Results[channel] = ok
		if ok {
			result.Success = true
		} else {
			result.Errors[channel] = outcomes[i].Error()
			log.Printf("Follow-up %d: %s dispatch failed: %v", id, channel, outcomes[i])
		}
		s.metrics.observeDispatch(channel, ok)
	}

	return result, nil
}

func (s *FollowUpService) contactAddresses(ctx context.Context, target models.TargetPerson) (contactAddresses, error) {
	switch t := target.(type) {
	case models.EmbeddedSnapshot:
		return contactAddresses{
			name:     t.Attendee.DisplayName(),
			email:    strings.TrimSpace(t.Attendee.Email),
			phone:    strings.TrimSpace(t.Attendee.Phone_Number),
			whatsApp: strings.TrimSpace(t.Attendee.WhatsApp_Number),
		}, nil
	case models.ExistingPerson:
		member, err := s.people.FindMemberByID(ctx, t.Person_ID)
		if err != nil {
			return contactAddresses{}, err
		}
		return contactAddresses{
			name:     member.DisplayName(),
			email:    derefString(member.Email),
			phone:    derefString(member.Phone_Number),
			whatsApp: derefString(member.WhatsApp_Number),
		}, nil
	}
	return contactAddresses{}, models.ErrInvalidTarget
}

func (s *FollowUpService) generateMessage(ctx context.Context, followUp *models.FollowUp, name string, isNewContact bool) string {
	if s.generator != nil {
		generated, err := s.generator.GenerateFollowUpMessage(ctx, GenerationRequest{
			Person_Name:       name,
			Event_Context:     followUp.Event_Context,
			Is_New_Contact:    isNewContact,
			Organization_Name: s.orgName,
		})
		if err != nil {
			log.Printf("Message generation failed for follow-up %d, using template: %v", followUp.Follow_Up_ID, err)
		} else if generated = strings.TrimSpace(generated); generated != "" {
			return generated
		}
	}
	return templateFollowUpMessage(nameOrFriend(name), isNewContact, s.orgName)
}

func dedupeChannels(channels []models.Channel) []models.Channel {
	seen := make(map[models.Channel]bool, len(channels))
	out := make([]models.Channel, 0, len(channels))
	for _, c := range channels {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nameOrFriend(name string) string {
	if name == "" {
		return "friend"
	}
	return name
}
