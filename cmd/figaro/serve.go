package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/figaro/pkg/events"
	"github.com/go-go-golems/figaro/pkg/provider"
	"github.com/go-go-golems/figaro/pkg/server"
	"github.com/go-go-golems/figaro/pkg/session"
	"github.com/go-go-golems/figaro/pkg/settings"
	"github.com/go-go-golems/figaro/pkg/store"
	"github.com/go-go-golems/figaro/pkg/turn"
)

const turnEventsTopic = "figaro.turns"

func newServeCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(configFile)
			if err != nil {
				return err
			}
			initLogging(s)
			if err := s.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), s)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to config file")
	return cmd
}

func buildStores(s *settings.Settings) (store.Store, store.UserStore, func(), error) {
	switch s.Storage.Backend {
	case "memory":
		log.Warn().Msg("using in-memory storage, all history is lost on restart")
		m := store.NewMemoryStore()
		return m, m, func() {}, nil
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(s.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqliteStore, sqliteStore, func() { _ = sqliteStore.Close() }, nil
	default:
		return nil, nil, nil, errors.Errorf("unknown storage backend %q", s.Storage.Backend)
	}
}

func serve(ctx context.Context, s *settings.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conversations, users, closeStores, err := buildStores(s)
	if err != nil {
		return err
	}
	defer closeStores()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	turnEvents, err := pubSub.Subscribe(ctx, turnEventsTopic)
	if err != nil {
		return errors.Wrap(err, "could not subscribe to turn events")
	}
	go logTurnEvents(turnEvents)

	resolver := session.NewResolver(users, s.Session.Secret)
	cache := provider.NewClientCache(s.Provider.BaseURL)
	completer := provider.NewOpenAICompleter(cache, s.Provider)
	orchestrator := turn.NewOrchestrator(
		conversations,
		completer,
		turn.WithModel(s.Provider.Model),
		turn.WithEventSink(events.NewWatermillSink(pubSub, turnEventsTopic)),
	)

	metrics := server.NewMetrics()
	handler := server.NewHandler(s, resolver, orchestrator, metrics)
	srv := server.New(s.Server.Addr, handler, metrics)

	return srv.Run(ctx)
}

func logTurnEvents(msgs <-chan *message.Message) {
	for msg := range msgs {
		var ev events.TurnCompleted
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			log.Warn().Err(err).Msg("could not decode turn event")
			msg.Ack()
			continue
		}
		log.Info().
			Str("user_id", ev.UserID).
			Str("conversation_id", ev.ConversationID).
			Int("num_messages", ev.MessageCount).
			Str("model", ev.Model).
			Dur("duration", ev.Duration).
			Msg("turn completed")
		msg.Ack()
	}
}
