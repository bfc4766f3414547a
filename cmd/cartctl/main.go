// Command cartctl runs one cart command against the configured stock service and storage.
//
//	cartctl products            list the catalog
//	cartctl list                print the persisted cart
//	cartctl add <id>            add one unit of a product
//	cartctl remove <id>         remove a product
//	cartctl update <id> <n>     set a product amount
//	cartctl watch               print cart events from the event bus
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/shopcart"
	"goflare.io/shopcart/cart"
	"goflare.io/shopcart/catalog"
	"goflare.io/shopcart/config"
	"goflare.io/shopcart/driver"
	"goflare.io/shopcart/logger"
	"goflare.io/shopcart/models"
	"goflare.io/shopcart/notify"
	"goflare.io/shopcart/storage"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: cartctl products|list|add <id>|remove <id>|update <id> <amount>|watch")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Service: "cartctl", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log, flag.Args()); err != nil {
		log.Error("cartctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, args []string) error {
	kv, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	var natsConn *nats.Conn
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.NATSURL != "" {
		natsConn, err = driver.ConnectNATS(cfg.NATSURL, "cartctl", log)
		if err != nil {
			return err
		}
		defer natsConn.Close()
		notifiers = append(notifiers, notify.NewNATSNotifier(natsConn, log))
	}

	client := catalog.NewClient(catalog.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Breaker: catalog.BreakerSettings{
			MaxConsecutiveFailures: cfg.BreakerMaxFailures,
			OpenTimeout:            cfg.BreakerOpenTimeout,
		},
	}, log)

	svc := shopcart.NewService(ctx, client, cart.NewRepository(kv, cfg.StorageKey, log), notifiers, natsConn, log)
	defer svc.Close()

	switch args[0] {
	case "products":
		products, err := svc.Products(ctx)
		if err != nil {
			return err
		}
		return printJSON(products)
	case "list":
		return printCart(svc.Cart())
	case "add":
		id, err := intArg(args, 1)
		if err != nil {
			return err
		}
		svc.AddProduct(ctx, id)
		return printCart(svc.Cart())
	case "remove":
		id, err := intArg(args, 1)
		if err != nil {
			return err
		}
		svc.RemoveProduct(ctx, id)
		return printCart(svc.Cart())
	case "update":
		id, err := intArg(args, 1)
		if err != nil {
			return err
		}
		amount, err := intArg(args, 2)
		if err != nil {
			return err
		}
		svc.UpdateProductAmount(ctx, shopcart.UpdateProductAmount{ProductID: id, Amount: amount})
		return printCart(svc.Cart())
	case "watch":
		sub, err := svc.SubscribeToEvents(func(_ context.Context, event *models.CartEvent) {
			if err := printJSON(event); err != nil {
				log.Error("Failed to print event", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		<-ctx.Done()
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.KeyValue, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		client, err := driver.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client, log), func() { _ = client.Close() }, nil
	case config.StoragePostgres:
		db, err := driver.ConnectSQL(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := storage.NewPostgres(db.Pool, driver.NewTransactionManager(db.Pool, log), log)
		if err = pg.Migrate(ctx); err != nil {
			db.Pool.Close()
			return nil, nil, err
		}
		return pg, db.Pool.Close, nil
	default:
		log.Warn("Using in-memory storage, the cart will not survive this process")
		return storage.NewMemory(), func() {}, nil
	}
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", args[i], err)
	}
	return n, nil
}

type cartView struct {
	Items models.Cart `json:"items"`
	Units int         `json:"units"`
	Total float64     `json:"total"`
}

func printCart(c models.Cart) error {
	return printJSON(cartView{Items: c, Units: c.Count(), Total: c.Total()})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
