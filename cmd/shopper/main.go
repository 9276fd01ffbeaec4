// Command shopper drives the marketplace API from a terminal: browse the
// catalog, manage the cart, follow it live and check out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/apiclient"
	"raices-verdes/internal/domain"
	"raices-verdes/internal/logging"
	"raices-verdes/internal/storefront"
)

const usage = `usage: shopper [-api URL] [-token TOKEN] <command> [args]

commands:
  browse [-community C] [-min P] [-max P] [-pages N]
  me
  cart
  add <productId>
  qty <lineId> <quantity>
  rm <lineId>
  watch
  checkout <card|cash>
  invoice <paymentId>
  payments
  articles [-category C] [-q TEXT]
  react <articleId> <like|dislike>
  signout
`

func main() {
	apiURL := flag.String("api", envOr("RAICES_API", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("RAICES_TOKEN"), "session token")
	logLevel := flag.String("log", "warn", "log level")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client, err := apiclient.New(*apiURL, apiclient.WithToken(*token))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.Component(logging.NewWithWriter(os.Stderr, *logLevel, "console"), "shopper")
	store := storefront.NewStore(client, storefront.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, cmd, args, client, store); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, client *apiclient.Client, store *storefront.Store) error {
	switch cmd {
	case "browse":
		return browse(ctx, client, args)
	case "me":
		a, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("role: %s\nid: %s\nemail: %s\n", a.Role, a.ID, a.Email)
		if a.Producer != nil {
			fmt.Printf("producer: %s (verified: %t)\n", a.Producer.BusinessName, a.Producer.Verified())
		}
		return nil
	case "cart":
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		printCart(store)
		return nil
	case "add":
		if len(args) != 1 {
			return errUsage
		}
		line, err := store.Add(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s x%d (line %s)\n", line.Product.Name, line.Quantity, line.ID)
		return nil
	case "qty":
		if len(args) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		line, err := store.SetQuantity(ctx, args[0], n)
		if err != nil {
			return err
		}
		fmt.Printf("%s x%d\n", line.Product.Name, line.Quantity)
		return nil
	case "rm":
		if len(args) != 1 {
			return errUsage
		}
		return store.Remove(ctx, args[0])
	case "watch":
		return watch(ctx, store)
	case "checkout":
		if len(args) != 1 {
			return errUsage
		}
		method, err := domain.ParsePaymentMethod(args[0])
		if err != nil {
			return err
		}
		p, err := store.Checkout(ctx, method)
		if err != nil {
			return err
		}
		fmt.Printf("payment %s\ninvoice #%d\ntotal %s\n", p.ID, p.InvoiceNumber, p.Total.StringFixed(2))
		return nil
	case "invoice":
		if len(args) != 1 {
			return errUsage
		}
		inv, err := client.Invoice(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Invoice #%d  %s  %s\n", inv.Number, inv.Date.Local().Format(time.RFC1123), inv.Method)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tQTY\tUNIT\tSUBTOTAL")
		for _, l := range inv.Lines {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2))
		}
		fmt.Fprintf(w, "\t\tTOTAL\t%s\n", inv.Total.StringFixed(2))
		return w.Flush()
	case "payments":
		ps, err := client.Payments(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INVOICE\tDATE\tMETHOD\tTOTAL\tID")
		for _, p := range ps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.InvoiceNumber, p.CreatedAt.Local().Format(time.DateTime), p.Method, p.Total.StringFixed(2), p.ID)
		}
		return w.Flush()
	case "articles":
		return articles(ctx, client, args)
	case "react":
		if len(args) != 2 {
			return errUsage
		}
		reaction, err := domain.ParseReaction(args[1])
		if err != nil {
			return err
		}
		a, err := client.React(ctx, args[0], reaction)
		if err != nil {
			return err
		}
		fmt.Printf("%s  +%d -%d  yours: %s\n", a.Title, a.Likes, a.Dislikes, orNone(string(a.Reaction)))
		return nil
	case "signout":
		return store.SignOut(ctx)
	}
	return errUsage
}

var errUsage = errors.New("invalid command or arguments, see -h")

func browse(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	community := fs.String("community", "", "only products of this community")
	minPrice := fs.String("min", "", "minimum price")
	maxPrice := fs.String("max", "", "maximum price")
	pages := fs.Int("pages", 1, "pages to load, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := domain.ProductFilter{Community: *community}
	bounds := []struct {
		raw string
		dst **decimal.Decimal
	}{{*minPrice, &filter.PriceMin}, {*maxPrice, &filter.PriceMax}}
	for _, b := range bounds {
		if b.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(b.raw)
		if err != nil {
			return fmt.Errorf("invalid price %q", b.raw)
		}
		*b.dst = &d
	}

	pager := storefront.NewPager(client, storefront.DefaultPageSize)
	pager.SetFilter(filter)
	for i := 0; *pages == 0 || i < *pages; i++ {
		if _, err := pager.Next(ctx); err != nil {
			return err
		}
		if pager.Done() {
			break
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOMMUNITY\tPRICE\tSTOCK")
	for _, p := range pager.Items() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Community, p.Price.StringFixed(2), p.Stock)
	}
	if !pager.Done() {
		fmt.Fprintln(w, "...\t(more available, raise -pages)")
	}
	return w.Flush()
}

func articles(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("articles", flag.ContinueOnError)
	category := fs.String("category", "", "exact category")
	title := fs.String("q", "", "text in the title")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	list, err := client.Articles(ctx, domain.ArticleFilter{Category: *category, Title: *title})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tCATEGORY\tAUTHOR\tLIKES\tDISLIKES\tYOURS\tID")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n", a.Title, a.Category, a.AuthorName, a.Likes, a.Dislikes, orNone(string(a.Reaction)), a.ID)
	}
	return w.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func watch(ctx context.Context, store *storefront.Store) error {
	events, cancel := store.Watch()
	defer cancel()
	if err := store.Start(ctx); err != nil {
		return err
	}
	printCart(store)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			fmt.Printf("-- %s at %s\n", ev.Kind, time.Now().Format(time.TimeOnly))
			printCart(store)
			if ev.Kind == domain.ChangeSignOut {
				return nil
			}
		}
	}
}

func printCart(store *storefront.Store) {
	lines := store.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ID, l.Product.Name, l.Quantity, l.Product.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", store.Total().StringFixed(2))
	_ = w.Flush()
}

func describe(err error) string {
	var se *domain.StockError
	switch {
	case errors.As(err, &se):
		msg := "not enough stock:"
		for _, s := range se.Shortages {
			msg += "\n  " + s.String()
		}
		return msg
	case errors.Is(err, storefront.ErrCheckoutAbandoned):
		return "stopped waiting for checkout; check `payments` before retrying"
	case errors.Is(err, domain.ErrAuthRequired):
		return "sign in first (set -token or RAICES_TOKEN)"
	}
	return err.Error()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
