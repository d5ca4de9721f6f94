package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewBatchCmd создаёт группу команд для управления batch'ами.
func NewBatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage message batches",
	}

	cmd.AddCommand(
		newBatchCreateCmd(clientFn, outputFn),
		newBatchShowCmd(clientFn, outputFn),
		newBatchMessagesCmd(clientFn, outputFn),
	)

	return cmd
}

func newBatchCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var senderID string
	var template string
	var language string
	var params []string
	var scheduledAt string
	var timezone string
	var maxAttempts int
	var recipients []string
	var headerFormat string
	var headerURL string
	var headerName string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if len(recipients) == 0 {
				return fmt.Errorf("at least one --recipient is required")
			}

			req := CreateBatchRequest{
				SenderID:       senderID,
				TemplateName:   template,
				LanguageCode:   language,
				BodyParameters: params,
				ScheduledAt:    scheduledAt,
				Timezone:       timezone,
				MaxAttempts:    maxAttempts,
			}

			// Формат получателя: PHONE или PHONE=p1,p2 для
			// индивидуальных подстановок.
			for _, r := range recipients {
				rec := RecipientRequest{Phone: r}
				if phone, raw, ok := strings.Cut(r, "="); ok {
					rec.Phone = phone
					rec.BodyParameters = strings.Split(raw, ",")
				}
				req.Recipients = append(req.Recipients, rec)
			}

			if headerFormat != "" {
				req.Header = &HeaderResponse{
					Format:    headerFormat,
					MediaURL:  headerURL,
					MediaName: headerName,
				}
			}

			batch, err := client.CreateBatch(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Batch scheduled: %s", batch.BatchID))
			out.Print(
				[]string{"BATCH_ID", "SCHEDULED_UTC", "ACCEPTED", "REJECTED"},
				[][]string{{batch.BatchID, batch.ScheduledAtUTC, strconv.Itoa(batch.Accepted), strconv.Itoa(batch.Rejected)}},
				batch,
			)

			for _, r := range batch.RejectedRecipients {
				out.Error(fmt.Sprintf("rejected %s: %s", r.Phone, r.Reason))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&senderID, "sender-id", "", "Sender phone number ID")
	cmd.Flags().StringVar(&template, "template", "", "Template name")
	cmd.Flags().StringVar(&language, "language", "", "Template language code (e.g. en_US)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Template body parameter (repeatable)")
	cmd.Flags().StringVar(&scheduledAt, "scheduled-at", "", "Local send time, e.g. \"2026-09-01 10:30\"")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone, e.g. America/Sao_Paulo")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Delivery attempt budget (server default if 0)")
	cmd.Flags().StringSliceVar(&recipients, "recipient", nil, "Recipient phone, optionally PHONE=p1,p2 (repeatable)")
	cmd.Flags().StringVar(&headerFormat, "header-format", "", "Template header format (TEXT, IMAGE, VIDEO, DOCUMENT)")
	cmd.Flags().StringVar(&headerURL, "header-url", "", "Header media URL")
	cmd.Flags().StringVar(&headerName, "header-name", "", "Header document file name")

	cmd.MarkFlagRequired("sender-id")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("language")
	cmd.MarkFlagRequired("scheduled-at")
	cmd.MarkFlagRequired("timezone")

	return cmd
}

func newBatchShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show batch status summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			summary, err := client.GetBatchSummary(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"BATCH_ID", "TOTAL", "PENDING", "PROCESSING", "SENT", "ERROR"},
				[][]string{{
					summary.BatchID,
					strconv.Itoa(summary.Total),
					strconv.Itoa(summary.Pending),
					strconv.Itoa(summary.Processing),
					strconv.Itoa(summary.Sent),
					strconv.Itoa(summary.Error),
				}},
				summary,
			)
			return nil
		},
	}
}

func newBatchMessagesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "messages ID",
		Short: "List messages in a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			messages, err := client.ListBatchMessages(args[0])
			if err != nil {
				return err
			}

			out.Print(messageHeaders(), messageRows(messages), messages)
			return nil
		},
	}
}
