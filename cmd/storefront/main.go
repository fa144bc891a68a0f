package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"online-classes-storefront/internal/config"
	"online-classes-storefront/internal/models"
	"online-classes-storefront/internal/server"
	"online-classes-storefront/internal/services"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront command failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storefront",
		Usage: "browse and book online classes from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "base URL of the classes service"},
			&cli.DurationFlag{Name: "timeout", Usage: "timeout for each call to the classes service"},
			&cli.BoolFlag{Name: "offline", Usage: "use the static catalog file instead of the classes service"},
			&cli.StringFlag{Name: "catalog-file", Usage: "YAML catalog used in offline mode"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log level"},
		},
		Before: func(c *cli.Context) error {
			level, err := log.ParseLevel(c.String("log-level"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid --log-level: %v", err), 2)
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "classes",
				Usage: "list classes, optionally filtered and sorted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "case-insensitive search over title, category and location"},
					&cli.StringFlag{Name: "sort", Value: string(services.SortBySubject), Usage: "subject, location, availability or price"},
					&cli.BoolFlag{Name: "desc", Usage: "sort descending"},
				},
				Action: listClasses,
			},
			{
				Name:  "book",
				Usage: "book one seat per --class and submit the order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first", Required: true, Usage: "first name"},
					&cli.StringFlag{Name: "last", Required: true, Usage: "last name"},
					&cli.StringFlag{Name: "phone", Required: true, Usage: "contact phone number"},
					&cli.StringSliceFlag{Name: "class", Required: true, Usage: "class ID, repeat for more seats"},
				},
				Action: bookClasses,
			},
		},
	}
}

// openStorefront builds a session against the configured classes service and loads its catalog
func openStorefront(c *cli.Context) (*services.Storefront, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if c.IsSet("api-url") {
		cfg.Classes.APIURL = c.String("api-url")
	}
	if c.IsSet("timeout") {
		cfg.Classes.Timeout = c.Duration("timeout")
	}
	if c.IsSet("offline") {
		cfg.Classes.Offline = c.Bool("offline")
	}
	if c.IsSet("catalog-file") {
		cfg.Classes.CatalogFile = c.String("catalog-file")
	}

	api, err := server.NewClassesAPI(cfg.Classes)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}

	storefront := services.NewStorefront(api)
	if err := storefront.Load(c.Context); err != nil {
		return nil, cli.Exit(err.Error(), 3)
	}
	return storefront, nil
}

func listClasses(c *cli.Context) error {
	key, err := services.ParseSortKey(c.String("sort"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	storefront, err := openStorefront(c)
	if err != nil {
		return err
	}

	printClasses(c.App.Writer, storefront.Classes(c.String("query"), key, !c.Bool("desc")))
	return nil
}

func bookClasses(c *cli.Context) error {
	storefront, err := openStorefront(c)
	if err != nil {
		return err
	}

	for _, id := range c.StringSlice("class") {
		if err := storefront.AddToCart(id); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	customer := models.CustomerInfo{
		FirstName: c.String("first"),
		LastName:  c.String("last"),
		Phone:     c.String("phone"),
	}
	summary := storefront.CartSummary()

	result, err := storefront.PlaceOrder(c.Context, customer)
	if err != nil {
		return bookingError(c.App.ErrWriter, err)
	}

	fmt.Fprintf(c.App.Writer, "Order placed by %s!\n", customer.FullName())
	if result.ID != "" {
		fmt.Fprintf(c.App.Writer, "Order ID: %s\n", result.ID)
	}
	fmt.Fprintf(c.App.Writer, "Seats: %d  Total: %s\n", summary.ItemCount, summary.Total.StringFixed(2))
	return nil
}

func bookingError(w io.Writer, err error) error {
	var inventoryErr *models.InsufficientInventoryError
	switch {
	case errors.As(err, &inventoryErr):
		fmt.Fprintln(w, "Some classes no longer have enough spaces:")
		for _, conflict := range inventoryErr.Conflicts {
			name := conflict.Title
			if name == "" {
				name = conflict.LessonID
			}
			fmt.Fprintf(w, "  %s: %s (requested %d, available %d)\n", name, conflict.Reason, conflict.Requested, conflict.Available)
		}
		return cli.Exit("booking failed", 4)
	case errors.Is(err, models.ErrEmptyCart), errors.Is(err, models.ErrMissingName), errors.Is(err, models.ErrInvalidPhone):
		return cli.Exit(err.Error(), 2)
	case errors.Is(err, models.ErrCatalogUnavailable):
		return cli.Exit(err.Error(), 3)
	default:
		return cli.Exit(err.Error(), 1)
	}
}

func printClasses(w io.Writer, listing []services.ListedLesson) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBJECT\tCATEGORY\tLOCATION\tPRICE\tSPACES")
	for _, l := range listing {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", l.ID, l.Title, l.Category, l.Location, l.Price.StringFixed(2), l.SpacesLeft)
	}
	tw.Flush()
}
