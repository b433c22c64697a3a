package main

import (
	"errors"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/collabry/collabry-go/internal/chat"
	"github.com/collabry/collabry-go/internal/fileurl"
	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/notify"
	"github.com/collabry/collabry-go/internal/render"
)

var (
	chatRoomID string
	chatAsUser string
)

var chatCmd = &cobra.Command{
	Use:   "chat --room <id>",
	Short: "Open the chat view for one conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatRoomID == "" {
			return errors.New("--room is required")
		}
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

		selfID := chatAsUser
		role := ""
		if sess := store.Current(); sess != nil {
			if selfID == "" {
				selfID = sess.UserID
			}
			role = sess.Role
		}
		if selfID == "" {
			return errors.New("sign in first or pass --as")
		}

		wsURL, err := hc.WSBaseURL()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sess := chat.NewSession(chat.SessionOptions{
			API:            newChatAPI(hc, log),
			WSURL:          wsURL,
			RoomID:         chatRoomID,
			SelfID:         selfID,
			HistoryLimit:   cfg.Chat.HistoryLimit,
			MaxFileSize:    cfg.Chat.MaxAttachmentSize,
			BackoffFloor:   cfg.WS.BackoffFloor,
			BackoffCeiling: cfg.WS.BackoffCeiling,
			Logger:         log,
		})
		defer sess.Close()

		// A failed history load keeps the view usable; the error lands in the
		// inline banner instead of aborting.
		var banner string
		if err := sess.Start(ctx); err != nil {
			banner = err.Error()
		}

		var feed *notify.Feed
		if role != "" {
			feed = notify.NewFeed(notify.NewClient(hc, role, log), 20)
			go func() {
				if err := feed.Refresh(ctx); err != nil {
					log.Debug().Err(err).Msg("notification refresh failed")
				}
			}()
		}

		resolver := fileurl.NewResolver(hc.BaseURL())
		m := newChatTUI(tuiDeps{
			sess:     sess,
			feed:     feed,
			renderer: render.New(render.Options{SelfID: selfID, TruncateAt: cfg.Chat.TruncateAt, Resolver: resolver}),
			assets:   render.NewAssets(hc, resolver, log),
			banner:   banner,
			log:      log,
		})
		defer m.assets.Cleanup()

		p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}

func newChatAPI(hc *httpx.Client, log zerolog.Logger) *chat.API {
	return chat.NewAPI(hc, log)
}

func init() {
	chatCmd.Flags().StringVar(&chatRoomID, "room", "", "room id to open")
	chatCmd.Flags().StringVar(&chatAsUser, "as", "", "act as this user id (sandbox use)")
	rootCmd.AddCommand(chatCmd)
}
