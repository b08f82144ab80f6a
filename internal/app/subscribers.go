package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Subscribers prints every registered subscriber.
func (a *App) Subscribers(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	subs, err := store.ListSubscribers(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stdout, "no subscribers registered")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Chat ID\tUser ID\tFirst name\tUsername\tLang\tRequests")
	for _, sub := range subs {
		fmt.Fprintf(
			writer,
			"%d\t%d\t%s\t%s\t%s\t%d\n",
			sub.ChatID,
			sub.UserID,
			sub.FirstName,
			sub.Username,
			sub.LanguageCode,
			sub.RequestCount,
		)
	}

	writer.Flush()
	return nil
}
