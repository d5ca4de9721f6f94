package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewMessageCmd создаёт группу команд для управления сообщениями.
func NewMessageCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Manage scheduled messages",
	}

	cmd.AddCommand(
		newMessageListCmd(clientFn, outputFn),
		newMessageShowCmd(clientFn, outputFn),
		newMessageRequeueCmd(clientFn, outputFn),
	)

	return cmd
}

func newMessageListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var batchID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			messages, err := client.ListMessages(ListMessagesOpts{
				BatchID: batchID,
				Status:  status,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			out.Print(messageHeaders(), messageRows(messages), messages)
			return nil
		},
	}

	cmd.Flags().StringVar(&batchID, "batch-id", "", "Filter by batch ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PROCESSING, SENT, ERROR)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newMessageShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show message details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			msg, err := client.GetMessage(args[0])
			if err != nil {
				return err
			}

			out.Print(messageHeaders(), messageRows([]MessageResponse{*msg}), msg)
			return nil
		},
	}
}

func newMessageRequeueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue ID",
		Short: "Requeue a failed message for delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			msg, err := client.RequeueMessage(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Message requeued: %s", msg.ID))
			out.Print(messageHeaders(), messageRows([]MessageResponse{*msg}), msg)
			return nil
		},
	}
}

func messageHeaders() []string {
	return []string{"ID", "RECIPIENT", "TEMPLATE", "SCHEDULED_UTC", "STATUS", "ATTEMPTS"}
}

func messageRows(messages []MessageResponse) [][]string {
	rows := make([][]string, len(messages))
	for i, m := range messages {
		attempts := strconv.Itoa(m.Attempts) + "/" + strconv.Itoa(m.MaxAttempts)
		rows[i] = []string{m.ID, m.Recipient, m.TemplateName, m.ScheduledAtUTC, m.Status, attempts}
	}
	return rows
}
