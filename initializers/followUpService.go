package initializers

import (
	"context"
	"log"

	"github.com/ShepherdLoop/models"
	"github.com/ShepherdLoop/services"
	"github.com/ShepherdLoop/stores"
	"github.com/prometheus/client_golang/prometheus"
)

// BuildFollowUpService wires the follow-up service from the environment. DB must
// already be connected. Optional integrations that are not configured are left
// out and logged.
func BuildFollowUpService(ctx context.Context) (*services.FollowUpService, error) {
	configs, err := LoadFollowUpConfigTable(EnvString("FOLLOW_UP_CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}

	redisClient, err := ConnectRedis()
	if err != nil {
		return nil, err
	}

	var locker services.FollowUpLocker
	if redisClient != nil {
		locker = services.NewRedisFollowUpLocker(redisClient, EnvDuration("FOLLOW_UP_LOCK_TTL", services.DefaultFollowUpLockTTL))
	} else {
		locker = services.NewLocalFollowUpLocker()
	}

	orgName := EnvString("ORGANIZATION_NAME", "")
	push := services.InitPushNotificationService(ctx, DB)

	var generator services.MessageGenerator
	if g := services.NewOpenAIMessageGenerator(); g != nil {
		generator = g
	}

	return services.NewFollowUpService(services.FollowUpServiceOptions{
		FollowUps:        stores.NewFollowUpStore(DB),
		People:           stores.NewMemberStore(DB),
		Staff:            stores.NewStaffStore(DB),
		Notifier:         services.NewNotificationService(DB, push),
		Locker:           locker,
		Senders:          buildSenders(orgName),
		Generator:        generator,
		Configs:          configs,
		Metrics:          services.MustNewMetrics(prometheus.DefaultRegisterer),
		OrganizationName: orgName,
	})
}

// buildSenders registers only the configured channels; requests for the others
// fail per channel.
func buildSenders(orgName string) map[models.Channel]services.ChannelSender {
	senders := map[models.Channel]services.ChannelSender{}

	if email := services.NewEmailChannel(orgName); email != nil {
		senders[models.ChannelEmail] = email
	}

	sms, whatsApp, err := services.NewTwilioChannels(services.TwilioOptsFromEnv())
	if err != nil {
		log.Printf("WARNING: Twilio not configured. SMS and WhatsApp follow-ups will not be available: %v", err)
		return senders
	}
	if sms != nil {
		senders[models.ChannelSMS] = sms
	}
	if whatsApp != nil {
		senders[models.ChannelWhatsApp] = whatsApp
	}
	return senders
}
