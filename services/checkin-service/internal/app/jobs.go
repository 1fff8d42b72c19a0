package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andino/pulso/internal/models"
	"github.com/andino/pulso/services/checkin-service/internal/checkin"
	"github.com/andino/pulso/services/checkin-service/internal/mailer"
	"github.com/andino/pulso/services/checkin-service/internal/store"
)

var dateFlag string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the daily check-in prompt to every active employee",
	Long:  "Mails the daily prompt and records a pending check-in row keyed by the new thread",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := today(dateFlag)
		if err != nil {
			return err
		}
		ctx := context.Background()
		service := checkin.NewService(store.NewFromConfig())
		sender := mailer.NewFromConfig()

		employees, err := service.Employees(ctx, true)
		if err != nil {
			return err
		}
		for _, emp := range employees {
			result, err := sender.Send(ctx, mailer.Message{
				To:      emp.Email,
				Subject: mailer.SubjectDaily(day, emp.DisplayName()),
				Body:    mailer.BodyDaily(day, emp.DisplayName()),
			})
			if err != nil {
				log.Printf("Failed to send daily prompt to %s: %v", emp.Email, err)
				continue
			}
			if _, err := service.UpsertCheckin(ctx, day, emp, result.ThreadID, result.MessageID); err != nil {
				log.Printf("Failed to record check-in for %s: %v", emp.Email, err)
				continue
			}
			log.Printf("Sent daily prompt to %s (thread %s)", emp.Email, result.ThreadID)
		}
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Nudge employees whose check-in is still pending",
	Long:  "Sends an in-thread reminder for every pending check-in of the date",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := today(dateFlag)
		if err != nil {
			return err
		}
		ctx := context.Background()
		service := checkin.NewService(store.NewFromConfig())
		sender := mailer.NewFromConfig()

		pending, err := service.PendingCheckins(ctx, day)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending check-ins")
			return nil
		}

		employees, err := service.Employees(ctx, true)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Employee, len(employees))
		for _, e := range employees {
			byID[e.ID] = e
		}

		for _, chk := range pending {
			emp, ok := byID[chk.EmployeeID]
			if !ok {
				continue
			}
			msg := mailer.Message{
				To:      emp.Email,
				Subject: mailer.SubjectReminder(day, emp.DisplayName()),
				Body:    mailer.BodyReminder(emp.DisplayName()),
			}
			if chk.ThreadID != nil {
				msg.ThreadID = *chk.ThreadID
			}
			if chk.FirstMessageID != nil {
				msg.InReplyTo = *chk.FirstMessageID
			}
			if _, err := sender.Send(ctx, msg); err != nil {
				log.Printf("Failed to send reminder to %s: %v", emp.Email, err)
				continue
			}
			log.Printf("Reminded %s", emp.Email)
		}
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build and send the daily digest",
	Long:  "Aggregates the day's check-ins and mails the summary to the configured recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := today(dateFlag)
		if err != nil {
			return err
		}
		ctx := context.Background()
		service := checkin.NewService(store.NewFromConfig())

		summary, err := service.BuildSummary(ctx, day)
		if err != nil {
			return err
		}
		snapshot, err := service.Snapshot(ctx, day)
		if err != nil {
			return err
		}
		body := mailer.BodyDigest(day, *summary, checkin.Breakdown(snapshot))
		fmt.Print(body)

		recipient := viper.GetString("digest.recipient")
		if recipient == "" {
			log.Println("digest.recipient not configured, digest printed only")
			return nil
		}
		sender := mailer.NewFromConfig()
		if _, err := sender.Send(ctx, mailer.Message{
			To:      recipient,
			Subject: mailer.SubjectDigest(day),
			Body:    body,
		}); err != nil {
			return fmt.Errorf("failed to send digest: %w", err)
		}
		log.Printf("Sent digest to %s", recipient)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{sendCmd, remindCmd, digestCmd} {
		cmd.Flags().StringVar(&dateFlag, "date", "", "Date to act on (YYYY-MM-DD, default today)")
		rootCmd.AddCommand(cmd)
	}
}
