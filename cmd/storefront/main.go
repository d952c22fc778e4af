package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/storefront-client/internal/backend"
	"github.com/example/storefront-client/internal/cart"
	"github.com/example/storefront-client/internal/config"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/session"
	"github.com/example/storefront-client/internal/store"
	"github.com/example/storefront-client/internal/tracking"
	"github.com/example/storefront-client/internal/view"
	"github.com/example/storefront-client/internal/wishlist"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	durable, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open state store")
	}
	defer durable.Close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("state store ready")

	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.APIBaseURL,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)

	sess := session.NewStore(client, durable, cfg.SessionSecret, logger)
	if ident, err := sess.Restore(ctx); err == nil {
		logger.Info().Str("email", ident.Email).Msg("session restored")
	} else if !errors.Is(err, session.ErrNoSession) {
		logger.Warn().Err(err).Msg("could not restore session")
	}

	cartMgr := cart.NewManager(durable, logger)
	cartMgr.Bind(ctx, sess)
	wishMgr := wishlist.NewManager(durable, logger)
	wishMgr.Bind(ctx, sess)

	recorder := tracking.NewRecorder(openPublisher(cfg, client), logger)
	defer recorder.Close()

	app := &app{
		logger:   logger,
		client:   client,
		sess:     sess,
		cart:     cartMgr,
		wishlist: wishMgr,
		recorder: recorder,
	}
	app.run(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreFile:
		return store.NewFileStore(cfg.StateDir)
	case config.StoreRedis:
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Namespace)
	case config.StorePostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db)
	case config.StoreDynamo:
		return store.NewDynamoStore(ctx, cfg.DynamoTable)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openPublisher(cfg config.Config, client *backend.Client) tracking.Publisher {
	switch cfg.TrackingTransport {
	case config.TrackingKafka:
		return tracking.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.TrackingHTTP:
		return tracking.NewHTTPPublisher(client)
	default:
		return nil
	}
}

type app struct {
	logger   zerolog.Logger
	client   *backend.Client
	sess     *session.Store
	cart     *cart.Manager
	wishlist *wishlist.Manager
	recorder *tracking.Recorder
}

func (a *app) run(ctx context.Context) {
	fmt.Println("storefront - type 'help' for commands")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("%s> ", a.sess.Scope())
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()
		case "login":
			a.login(ctx, args)
		case "register":
			a.register(ctx, args)
		case "logout":
			a.sess.Logout(ctx)
			fmt.Println("logged out")
		case "whoami":
			a.whoami()
		case "products":
			a.products(ctx, args)
		case "show":
			a.show(ctx, args)
		case "add":
			a.add(ctx, args)
		case "cart":
			a.showCart()
		case "qty":
			a.qty(ctx, args)
		case "remove":
			a.remove(ctx, args)
		case "clear":
			a.cart.Clear(ctx)
			fmt.Println("cart cleared")
		case "wish":
			a.wish(ctx, args)
		case "wishlist":
			a.showWishlist()
		case "recs":
			a.recommendations(ctx)
		case "orders":
			a.orders(ctx)
		case "history":
			a.history(ctx)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  login <email> <password>        sign in
  register <email> <password> [name]
  logout                          sign out, back to guest browsing
  whoami                          show the current identity
  products [search] [-c category] [-s featured|price-low|price-high|rating]
  show <product-id>               product detail (records a view)
  add <product-id> [qty]          add to cart
  cart                            list cart lines and total
  qty <product-id> <n>            set a line's quantity (0 removes)
  remove <product-id>             drop a line
  clear                           empty the cart
  wish <product-id>               toggle wishlist membership
  wishlist                        list saved products
  recs                            personalized recommendations
  orders                          past orders
  history                         recently viewed products
  quit
`)
}

// requestFailed reports an API error. An authentication failure on a request
// that previously worked means the token went stale, so the session is
// dropped locally rather than left in a half-signed-in state.
func (a *app) requestFailed(ctx context.Context, err error) {
	if errors.Is(err, backend.ErrAuthentication) && a.sess.Current() != nil {
		fmt.Println("session expired, signing out")
		a.sess.Invalidate(ctx)
		return
	}
	fmt.Printf("error: %v\n", err)
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}
	ident, err := a.sess.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Printf("login failed: %v\n", err)
		return
	}
	fmt.Printf("welcome back, %s\n", displayName(ident.DisplayName, ident.Email))
}

func (a *app) register(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: register <email> <password> [name]")
		return
	}
	name := ""
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}
	ident, err := a.sess.Register(ctx, args[0], args[1], name)
	if err != nil {
		fmt.Printf("registration failed: %v\n", err)
		return
	}
	fmt.Printf("welcome, %s\n", displayName(ident.DisplayName, ident.Email))
}

func (a *app) whoami() {
	ident := a.sess.Current()
	if ident == nil {
		fmt.Println("browsing as guest")
		return
	}
	fmt.Printf("%s <%s>\n", displayName(ident.DisplayName, ident.Email), ident.Email)
}

func (a *app) products(ctx context.Context, args []string) {
	q := view.Query{Category: view.CategoryAll, Sort: view.SortFeatured}
	var text []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c":
			if i+1 < len(args) {
				i++
				q.Category = args[i]
			}
		case "-s":
			if i+1 < len(args) {
				i++
				q.Sort = view.SortKey(args[i])
			}
		default:
			text = append(text, args[i])
		}
	}
	q.Text = strings.Join(text, " ")

	products, err := a.client.Products(ctx)
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}

	meta := view.Metadata(products)
	shown := view.Derive(products, q)
	for _, p := range shown {
		a.printProduct(p)
	}
	fmt.Printf("%d of %d products", len(shown), len(products))
	if q.Category == view.CategoryAll && len(meta.Categories) > 1 {
		names := make([]string, 0, len(meta.Categories))
		for _, c := range meta.Categories {
			names = append(names, c.Name)
		}
		fmt.Printf(" (categories: %s)", strings.Join(names, ", "))
	}
	fmt.Println()
}

func (a *app) show(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: show <product-id>")
		return
	}
	started := time.Now()
	p, err := a.client.Product(ctx, args[0])
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	a.printProduct(p)
	if p.Description != "" {
		fmt.Printf("    %s\n", p.Description)
	}

	if related, err := a.client.RelatedProducts(ctx, p.ID); err == nil && len(related) > 0 {
		fmt.Println("related:")
		for _, r := range related {
			a.printProduct(r)
		}
	}

	if ident := a.sess.Current(); ident != nil {
		a.recorder.RecordView(ctx, ident.ID, p, time.Since(started))
	}
}

func (a *app) add(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: add <product-id> [qty]")
		return
	}
	qty := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("bad quantity %q\n", args[1])
			return
		}
		qty = n
	}
	p, err := a.client.Product(ctx, args[0])
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	if !p.InStock {
		fmt.Printf("%s is out of stock\n", p.Title)
		return
	}
	if err := a.cart.AddItem(ctx, p, qty); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("added %d x %s\n", qty, p.Title)
}

func (a *app) showCart() {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, l := range lines {
		fmt.Printf("  %-12s %-30s %3d x $%.2f = $%.2f\n",
			l.ProductID, l.Snapshot.Title, l.Quantity, l.Snapshot.Price, l.Subtotal())
	}
	fmt.Printf("total: $%.2f (%d items)\n", a.cart.Total(), a.cart.Count())
}

func (a *app) qty(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: qty <product-id> <n>")
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("bad quantity %q\n", args[1])
		return
	}
	a.cart.UpdateQuantity(ctx, args[0], n)
}

func (a *app) remove(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: remove <product-id>")
		return
	}
	a.cart.RemoveItem(ctx, args[0])
}

func (a *app) wish(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: wish <product-id>")
		return
	}
	p, err := a.client.Product(ctx, args[0])
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	added, err := a.wishlist.Toggle(ctx, p)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if added {
		fmt.Printf("saved %s\n", p.Title)
	} else {
		fmt.Printf("removed %s\n", p.Title)
	}
}

func (a *app) showWishlist() {
	entries := a.wishlist.List()
	if len(entries) == 0 {
		fmt.Println("wishlist is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-12s %-30s $%.2f\n", e.ProductID, e.Snapshot.Title, e.Snapshot.Price)
	}
}

func (a *app) recommendations(ctx context.Context) {
	ident := a.sess.Current()
	if ident == nil {
		fmt.Println("sign in to get recommendations")
		return
	}
	products, err := a.client.RecommendationsForUser(ctx, ident.ID)
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	if len(products) == 0 {
		fmt.Println("no recommendations yet, browse some products first")
		return
	}
	for _, p := range products {
		a.printProduct(p)
	}
}

func (a *app) orders(ctx context.Context) {
	if a.sess.Current() == nil {
		fmt.Println("sign in to see orders")
		return
	}
	orders, err := a.client.Orders(ctx)
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	if len(orders) == 0 {
		fmt.Println("no orders yet")
		return
	}
	for _, o := range orders {
		fmt.Printf("  %-12s %s  %-10s $%.2f\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, o.TotalAmount)
		for _, item := range o.Items {
			fmt.Printf("      %d x %s @ $%.2f\n", item.Quantity, item.Title, item.UnitPrice)
		}
	}
}

func (a *app) history(ctx context.Context) {
	ident := a.sess.Current()
	if ident == nil {
		fmt.Println("sign in to see your history")
		return
	}
	records, err := a.client.History(ctx, ident.ID)
	if err != nil {
		a.requestFailed(ctx, err)
		return
	}
	if len(records) == 0 {
		fmt.Println("no views recorded yet")
		return
	}
	for _, r := range records {
		title := r.ProductID
		if r.Product != nil {
			title = r.Product.Title
		}
		fmt.Printf("  %s  %s\n", r.ViewedAt.Format("2006-01-02 15:04"), title)
	}
}

func (a *app) printProduct(p model.Product) {
	stock := ""
	if !p.InStock {
		stock = "  [out of stock]"
	}
	rating := ""
	if p.ReviewCount > 0 {
		rating = fmt.Sprintf("  %.1f★ (%d)", p.Rating, p.ReviewCount)
	}
	fmt.Printf("  %-12s %-30s $%8.2f%s%s\n", p.ID, p.Title, p.Price, rating, stock)
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
