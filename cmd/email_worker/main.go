package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/mailer"
	mailtpl "github.com/oksasatya/house-marketplace/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				helpers.LogWarn(logger, "bad message", err, nil)
				_ = msg.Nack(false, false)
				continue
			}
			fields := logrus.Fields{"to": job.To, "template": job.Template}

			if err := prepare(&job); err != nil {
				helpers.LogError(logger, "render failed", err, fields)
				_ = msg.Nack(false, false)
				continue
			}

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := mg.Send(c, job)
			cancel()
			if err != nil {
				helpers.LogError(logger, "send failed", err, fields)
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
			logger.WithFields(fields).Debug("email sent")
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// prepare fills in recipient fields and renders templated jobs in place.
// Jobs without a template are sent as given.
func prepare(job *mailer.EmailJob) error {
	helpers.EnsureRecipientAndEmail(job)
	helpers.MapTypedToUniversal(job)
	if job.Template == "" {
		return nil
	}
	text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return err
	}
	job.Text, job.HTML = text, html
	if job.Subject == "" {
		job.Subject = helpers.SubjectForUniversal(job.Data)
	}
	return nil
}
