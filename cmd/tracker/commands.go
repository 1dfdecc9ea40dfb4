package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"crypto-portfolio-go/internal/catalog"
	"crypto-portfolio-go/internal/coingecko"
	"crypto-portfolio-go/internal/config"
	"crypto-portfolio-go/internal/database"
	"crypto-portfolio-go/internal/logger"
	"crypto-portfolio-go/internal/portfolio"
	"crypto-portfolio-go/internal/render"
	"crypto-portfolio-go/internal/storage"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

var configDir = flag.String("config", "./configs", "Directory containing config.yml.")

var commands = []subcommands.Command{
	&coinsCmd{},
	&showCmd{},
	&addCmd{},
	&editCmd{},
	&deleteCmd{},
}

// session wires the tracker for one command invocation.
type session struct {
	log     *zap.Logger
	client  *coingecko.RestClient
	tracker *portfolio.Tracker
}

func openSession() (*session, error) {
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	client := coingecko.NewRestClient(&cfg.CoinGecko, log)
	store := storage.NewPortfolioStore(db, cfg.Storage.Key, log)
	return &session{
		log:     log,
		client:  client,
		tracker: portfolio.NewTracker(log, client, store, portfolio.Options{ResolveByID: cfg.CoinGecko.ResolveByID}),
	}, nil
}

// load replays the saved portfolio and waits for every price.
func (s *session) load(ctx context.Context) error {
	if _, err := s.tracker.Load(ctx); err != nil {
		return err
	}
	s.tracker.Wait()
	return nil
}

func (s *session) print() {
	s.tracker.Wait()
	fmt.Println(render.Portfolio(s.tracker.Table()))
}

func (s *session) close() {
	s.tracker.Close()
	_ = s.log.Sync()
}

// rowAt resolves a 1-based row position to its row.
func rowAt(t portfolio.Table, n int) (portfolio.RowView, error) {
	if n < 1 || n > len(t.Rows) {
		return portfolio.RowView{}, fmt.Errorf("row %d out of range (portfolio has %d rows)", n, len(t.Rows))
	}
	return t.Rows[n-1], nil
}

// parseMultipliers splits a comma separated list into at most one multiplier per target slot.
func parseMultipliers(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > portfolio.TargetSlots {
		return nil, fmt.Errorf("at most %d multipliers allowed, got %d", portfolio.TargetSlots, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

type coinsCmd struct {
	query string
}

func (*coinsCmd) Name() string     { return "coins" }
func (*coinsCmd) Synopsis() string { return "list the coins that can be added to the portfolio" }
func (*coinsCmd) Usage() string {
	return `coins [-q <query>]

  Fetches the coin catalog and prints the id and label of every coin whose
  name, symbol or id contains the query.
`
}

func (c *coinsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "Filter coins by name, symbol or id.")
}

func (c *coinsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	cat := catalog.Load(ctx, s.client, s.log)
	if cat.Len() == 0 {
		fmt.Fprintln(os.Stderr, "coin catalog is empty")
		return subcommands.ExitFailure
	}
	fmt.Println(render.Coins(cat.Search(c.query)))
	return subcommands.ExitSuccess
}

type showCmd struct {
	targets string
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the portfolio with live prices" }
func (*showCmd) Usage() string {
	return `show [-t <m1,m2,m3>]

  Prints every holding with its current price, total value and profit/loss.
  With -t, each multiplier is applied to the matching target slot of every row.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.targets, "t", "", "Comma separated price-target multipliers, e.g. 2,5,10.")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	multipliers, err := parseMultipliers(c.targets)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	s, err := openSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if err := s.load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	for _, r := range s.tracker.Table().Rows {
		for i, m := range multipliers {
			_, err := s.tracker.SetTarget(r.ID, i+1, m)
			if err != nil && !errors.Is(err, portfolio.ErrPriceUnavailable) {
				fmt.Fprintln(os.Stderr, err)
				return subcommands.ExitFailure
			}
		}
	}

	s.print()
	return subcommands.ExitSuccess
}

type addCmd struct {
	coin     string
	quantity float64
	cost     float64
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding to the portfolio" }
func (*addCmd) Usage() string {
	return `add -coin <id> -qty <quantity> -cost <cost>

  Adds a holding for a catalog coin (see "coins") and saves the portfolio.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Catalog id of the coin, e.g. bitcoin.")
	f.Float64Var(&c.quantity, "qty", 0, "Quantity held.")
	f.Float64Var(&c.cost, "cost", 0, "Cost per coin in USD.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if err := s.load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cat := catalog.Load(ctx, s.client, s.log)
	if _, err := s.tracker.Add(ctx, cat, c.coin, c.quantity, c.cost); err != nil {
		if errors.Is(err, portfolio.ErrMissingFields) {
			fmt.Fprintln(os.Stderr, "Please fill in all fields.")
			return subcommands.ExitUsageError
		}
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	s.print()
	return subcommands.ExitSuccess
}

type editCmd struct {
	row      int
	quantity string
	cost     string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change the quantity and cost of a holding" }
func (*editCmd) Usage() string {
	return `edit -row <n> -qty <quantity> -cost <cost>

  Overwrites the quantity and cost of the n-th holding (as numbered by "show").
  Leaving either value empty keeps the holding unchanged.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.row, "row", 0, "Position of the holding, starting at 1.")
	f.StringVar(&c.quantity, "qty", "", "New quantity.")
	f.StringVar(&c.cost, "cost", "", "New cost per coin in USD.")
}

func (c *editCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if err := s.load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	r, err := rowAt(s.tracker.Table(), c.row)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if err := s.tracker.Edit(ctx, r.ID, c.quantity, c.cost); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, portfolio.ErrInvalidInput) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}

	s.print()
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	row int
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove a holding from the portfolio" }
func (*deleteCmd) Usage() string {
	return `delete -row <n>

  Removes the n-th holding (as numbered by "show") and saves the portfolio.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.row, "row", 0, "Position of the holding, starting at 1.")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if _, err := s.tracker.Load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	r, err := rowAt(s.tracker.Table(), c.row)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if err := s.tracker.Delete(ctx, r.ID); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	s.print()
	return subcommands.ExitSuccess
}
