package main

import (
	"context"
	"fmt"
	"os"

	"friendchat/backend/internal/config"
	"friendchat/backend/internal/events"
	"friendchat/backend/internal/friendship"
	"friendchat/backend/internal/ledger"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/storage"

	"go.uber.org/zap"
)

const usage = `Usage: admin <command> [args]

Commands:
  reset-presence            mark every user offline and clear the presence cache
  unfriend <user_a> <user_b>
  requests <user_id>        list pending requests addressed to a user
  unread <viewer> <friend>  count unread messages from friend to viewer`

func main() {
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	db, err := storage.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	store := storage.NewStorageService(db, cfg.StoreTimeout)
	unread := ledger.New(store)
	ctx := context.Background()

	switch os.Args[1] {
	case "reset-presence":
		n, err := store.ResetPresence(ctx)
		if err != nil {
			logger.Fatal("error resetting presence", zap.Error(err))
		}
		if rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			logger.Warn("redis unavailable, presence cache left as is", zap.Error(err))
		} else {
			defer rdb.Close()
			if err := storage.NewPresenceCache(rdb, config.PresenceKeyTTL).Clear(ctx); err != nil {
				logger.Warn("error clearing presence cache", zap.Error(err))
			}
		}
		fmt.Printf("%d users marked offline.\n", n)

	case "unfriend":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin unfriend <user_a> <user_b>")
			os.Exit(1)
		}
		svc := friendship.NewService(store, unread, events.Noop{})
		if err := svc.RemoveFriendship(ctx, os.Args[2], os.Args[3]); err != nil {
			logger.Fatal("error removing friendship", zap.Error(err))
		}
		fmt.Printf("%s and %s are no longer friends.\n", os.Args[2], os.Args[3])

	case "requests":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin requests <user_id>")
			os.Exit(1)
		}
		reqs, err := store.PendingRequests(ctx, os.Args[2])
		if err != nil {
			logger.Fatal("error listing requests", zap.Error(err))
		}
		if len(reqs) == 0 {
			fmt.Println("No pending requests.")
		}
		for _, r := range reqs {
			fmt.Printf("%d\t%s\t%s\t%s\n", r.ID, r.SenderID, r.SenderUsername, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}

	case "unread":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin unread <viewer_id> <friend_id>")
			os.Exit(1)
		}
		n, err := unread.UnreadCount(ctx, os.Args[2], os.Args[3])
		if err != nil {
			logger.Fatal("error counting unread messages", zap.Error(err))
		}
		fmt.Println(n)

	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}
