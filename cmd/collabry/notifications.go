package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabry/collabry-go/internal/notify"
)

var (
	notifyRole    string
	notifyMarkID  string
	notifyMarkAll bool
	notifyDelete  string
	notifySize    int
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List or update the notification feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}
		hc := apiClient(cfg, store, log)

		role := notifyRole
		if role == "" {
			if sess := store.Current(); sess != nil && sess.Role != "" {
				role = sess.Role
			} else {
				role = "influencer"
			}
		}

		ctx := cmd.Context()
		feed := notify.NewFeed(notify.NewClient(hc, role, log), notifySize)
		if err := feed.Refresh(ctx); err != nil {
			return err
		}

		switch {
		case notifyMarkAll:
			if err := feed.MarkAllRead(ctx); err != nil {
				return err
			}
		case notifyMarkID != "":
			if err := feed.MarkRead(ctx, notifyMarkID); err != nil {
				return err
			}
		case notifyDelete != "":
			if err := feed.Delete(ctx, notifyDelete); err != nil {
				return err
			}
		}

		items := feed.Items()
		if len(items) == 0 {
			fmt.Println("No notifications")
			return nil
		}
		for _, n := range items {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			fmt.Printf("%s %s  %s: %s\n", marker, n.ID, n.Title, n.Body)
		}
		fmt.Printf("\n%d unread\n", feed.Unread())
		return nil
	},
}

func init() {
	notificationsCmd.Flags().StringVar(&notifyRole, "role", "", "feed role (defaults to the signed-in role)")
	notificationsCmd.Flags().StringVar(&notifyMarkID, "mark", "", "mark one notification read")
	notificationsCmd.Flags().BoolVar(&notifyMarkAll, "mark-all", false, "mark every notification read")
	notificationsCmd.Flags().StringVar(&notifyDelete, "delete", "", "delete one notification")
	notificationsCmd.Flags().IntVar(&notifySize, "size", 20, "page size")
	notificationsCmd.MarkFlagsMutuallyExclusive("mark", "mark-all", "delete")
	rootCmd.AddCommand(notificationsCmd)
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List your conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}
		hc := apiClient(cfg, store, log)

		userID := chatAsUser
		if userID == "" {
			if sess := store.Current(); sess != nil {
				userID = sess.UserID
			}
		}
		if userID == "" {
			return errors.New("sign in first or pass --as")
		}

		api := newChatAPI(hc, log)
		rooms, err := api.Rooms(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			fmt.Println("No conversations yet")
			return nil
		}
		for _, r := range rooms {
			label := "(no counterpart)"
			if p := r.Counterpart(userID); p != nil {
				label = fmt.Sprintf("%s (%s)", p.DisplayName, p.Role)
			}
			fmt.Printf("%s  %s\n", r.ID, label)
		}
		return nil
	},
}

func init() {
	roomsCmd.Flags().StringVar(&chatAsUser, "as", "", "act as this user id (sandbox use)")
	rootCmd.AddCommand(roomsCmd)
}
